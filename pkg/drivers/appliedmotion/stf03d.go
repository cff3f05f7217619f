// Package appliedmotion drives Applied Motion Products STF03-D stepper
// controllers over the eSCL UDP protocol.
package appliedmotion

import (
	"fmt"
	"math"
	"net"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"labdevices/pkg/device"
	"labdevices/pkg/drivers/instrument"
	"labdevices/pkg/transport"
)

const (
	vendor = "Applied Motion Products"
	model  = "STF03-D"

	DevicePort      = "7775"
	DefaultHostAddr = "0.0.0.0:15005"

	defaultTimeout = 5 * time.Second
)

var (
	header = []byte{0x00, 0x07}
	tail   = []byte{'\r'}
)

// STF03D is a stepper motor controller. Positions are given in user units
// (degrees, millimetres) once a calibration has been set.
type STF03D struct {
	*instrument.Base

	unitsPerTurn float64
}

var _ device.Instrument = (*STF03D)(nil)

// NewSTF03D talks to the controller at deviceIP. hostAddr is the local UDP
// address the replies are sent to; empty means DefaultHostAddr.
func NewSTF03D(name, deviceIP, hostAddr string, timeout time.Duration, logger log.FieldLogger) *STF03D {
	if hostAddr == "" {
		hostAddr = DefaultHostAddr
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	open := func() (transport.Conn, error) {
		return transport.DialUDP(hostAddr, net.JoinHostPort(deviceIP, DevicePort), timeout)
	}
	return newSTF03D(name, deviceIP, open, timeout, logger)
}

func newSTF03D(name, address string, open transport.Opener, timeout time.Duration, logger log.FieldLogger) *STF03D {
	cfg := instrument.Config{
		Info:    device.NewInfo(name, vendor, model, address),
		Open:    open,
		Timeout: timeout,
	}
	return &STF03D{Base: instrument.New(cfg, logger)}
}

func frame(cmd string) []byte {
	b := make([]byte, 0, len(header)+len(cmd)+len(tail))
	b = append(b, header...)
	b = append(b, cmd...)
	return append(b, tail...)
}

// Query sends one datagram and returns the reply without header and tail.
func (s *STF03D) Query(cmd string) (string, error) {
	sess, err := s.Session()
	if err != nil {
		return "", err
	}

	s.Logger().Debugf("Sending command: %q", cmd)
	resp, err := sess.QueryRaw(frame(cmd))
	if err != nil {
		return "", err
	}
	if len(resp) < len(header)+len(tail) {
		return "", fmt.Errorf("%w: short datagram %q", device.ErrUnexpectedResponse, resp)
	}
	return string(resp[len(header) : len(resp)-len(tail)]), nil
}

// Write sends a command and checks the acknowledge. '%' and '*' accept the
// command, '?' rejects it.
func (s *STF03D) Write(cmd string) error {
	resp, err := s.Query(cmd)
	if err != nil {
		return err
	}
	switch {
	case strings.HasPrefix(resp, "%"), strings.HasPrefix(resp, "*"):
		return nil
	case strings.HasPrefix(resp, "?"):
		return fmt.Errorf("%w: %s rejected with %q", device.ErrNegativeAcknowledge, cmd, resp)
	}
	return fmt.Errorf("%w: %s answered %q", device.ErrUnexpectedResponse, cmd, resp)
}

// IDN returns the model and revision string.
func (s *STF03D) IDN() (string, error) {
	return s.Query("MV")
}

// value requests a register and strips the "XX=" echo.
func (s *STF03D) value(cmd string) (string, error) {
	resp, err := s.Query(cmd)
	if err != nil {
		return "", err
	}
	v, ok := strings.CutPrefix(resp, cmd+"=")
	if !ok {
		return "", fmt.Errorf("%w: %s answered %q", device.ErrUnexpectedResponse, cmd, resp)
	}
	return v, nil
}

func (s *STF03D) floatValue(cmd string) (float64, error) {
	v, err := s.value(cmd)
	if err != nil {
		return 0, err
	}
	return device.ParseFloat(cmd, v)
}

func (s *STF03D) intValue(cmd string) (int, error) {
	v, err := s.value(cmd)
	if err != nil {
		return 0, err
	}
	return device.ParseInt(cmd, v)
}

func (s *STF03D) hexValue(cmd string) (uint64, error) {
	v, err := s.value(cmd)
	if err != nil {
		return 0, err
	}
	word, err := strconv.ParseUint(strings.TrimSpace(v), 16, 32)
	if err != nil {
		return 0, &device.ParseError{Field: cmd, Value: v, Err: err}
	}
	return word, nil
}

func (s *STF03D) set(cmd string, v float64) error {
	return s.Write(cmd + strconv.FormatFloat(v, 'g', -1, 64))
}

// SetCalibration sets the user units per motor turn, e.g. 360/96 degrees
// for a rotation stage with 1:96 gearing or the screw lead of a linear
// stage.
func (s *STF03D) SetCalibration(unitsPerTurn float64) {
	s.unitsPerTurn = unitsPerTurn
}

// Microstep returns the microstep resolution setting.
func (s *STF03D) Microstep() (int, error) {
	return s.intValue("MR")
}

// SetMicrostep sets the microstep resolution setting, 0 to 15 except 2.
func (s *STF03D) SetMicrostep(code int) error {
	if _, ok := stepsPerTurn[code]; !ok {
		return fmt.Errorf("%w: microstep setting %d", device.ErrUnknownCode, code)
	}
	return s.Write(fmt.Sprintf("MR%d", code))
}

// ConversionFactor returns motor steps per user unit for the current
// microstep setting.
func (s *STF03D) ConversionFactor() (float64, error) {
	if s.unitsPerTurn == 0 {
		return 0, device.ErrCalibrationNotSet
	}

	code, err := s.Microstep()
	if err != nil {
		return 0, err
	}
	steps, ok := stepsPerTurn[code]
	if !ok {
		return 0, fmt.Errorf("%w: microstep setting %d", device.ErrUnknownCode, code)
	}
	return float64(steps) / s.unitsPerTurn, nil
}

// UnitsToSteps converts user units into motor steps.
func (s *STF03D) UnitsToSteps(value float64) (int, error) {
	factor, err := s.ConversionFactor()
	if err != nil {
		return 0, err
	}
	return int(math.Round(value * factor)), nil
}

// StepsToUnits converts motor steps into user units.
func (s *STF03D) StepsToUnits(steps int) (float64, error) {
	factor, err := s.ConversionFactor()
	if err != nil {
		return 0, err
	}
	return float64(steps) / factor, nil
}

// Alarm returns the names of all active alarms.
func (s *STF03D) Alarm() ([]string, error) {
	word, err := s.hexValue("AL")
	if err != nil {
		return nil, err
	}
	return decodeBits(uint16(word), alarmCodes), nil
}

// Status returns the names of all set status bits.
func (s *STF03D) Status() ([]string, error) {
	word, err := s.hexValue("SC")
	if err != nil {
		return nil, err
	}
	return decodeBits(uint16(word), statusCodes), nil
}

func (s *STF03D) IsMoving() (bool, error) {
	word, err := s.hexValue("SC")
	if err != nil {
		return false, err
	}
	return word&statusMoving != 0, nil
}

// MaxCurrent returns the current limit in A.
func (s *STF03D) MaxCurrent() (float64, error) {
	return s.floatValue("MC")
}

// SetMaxCurrent limits idle and change current, at most 3 A.
func (s *STF03D) SetMaxCurrent(amps float64) error {
	return s.set("MC", amps)
}

// IdleCurrent returns the standstill current in A.
func (s *STF03D) IdleCurrent() (float64, error) {
	return s.floatValue("CI")
}

func (s *STF03D) SetIdleCurrent(amps float64) error {
	return s.set("CI", amps)
}

// ChangeCurrent returns the running current in A.
func (s *STF03D) ChangeCurrent() (float64, error) {
	return s.floatValue("CC")
}

func (s *STF03D) SetChangeCurrent(amps float64) error {
	return s.set("CC", amps)
}

// Position returns the motor position in user units.
func (s *STF03D) Position() (float64, error) {
	steps, err := s.intValue("SP")
	if err != nil {
		return 0, err
	}
	s.Logger().Debugf("Position in steps: %d", steps)
	return s.StepsToUnits(steps)
}

// ResetPosition makes the current position the new zero.
func (s *STF03D) ResetPosition() error {
	return s.Write("SP0")
}

// ImmediateStep returns the calculated trajectory position in steps, which
// can differ from the actual position while moving.
func (s *STF03D) ImmediateStep() (int32, error) {
	word, err := s.hexValue("IP")
	if err != nil {
		return 0, err
	}
	return int32(uint32(word)), nil
}

// Acceleration returns the point to point acceleration in rps/s.
func (s *STF03D) Acceleration() (float64, error) {
	return s.floatValue("AC")
}

func (s *STF03D) SetAcceleration(rpss float64) error {
	return s.set("AC", rpss)
}

// Deceleration returns the point to point deceleration in rps/s.
func (s *STF03D) Deceleration() (float64, error) {
	return s.floatValue("DE")
}

func (s *STF03D) SetDeceleration(rpss float64) error {
	return s.set("DE", rpss)
}

// Speed returns the point to point shaft speed in rps.
func (s *STF03D) Speed() (float64, error) {
	return s.floatValue("VE")
}

func (s *STF03D) SetSpeed(rps float64) error {
	return s.set("VE", rps)
}

// FutureMovement returns the distance or target of the next move command
// in user units.
func (s *STF03D) FutureMovement() (float64, error) {
	steps, err := s.intValue("DI")
	if err != nil {
		return 0, err
	}
	return s.StepsToUnits(steps)
}

func (s *STF03D) move(value float64, cmd string) error {
	steps, err := s.UnitsToSteps(value)
	if err != nil {
		return err
	}
	s.Logger().Infof("Move %s %g units, %d steps", cmd, value, steps)

	if err := s.Write(fmt.Sprintf("DI%d", steps)); err != nil {
		return err
	}
	return s.Write(cmd)
}

// MoveRelative moves by value user units.
func (s *STF03D) MoveRelative(value float64) error {
	return s.move(value, "FL")
}

// MoveAbsolute moves to position in user units.
func (s *STF03D) MoveAbsolute(position float64) error {
	return s.move(position, "FP")
}
