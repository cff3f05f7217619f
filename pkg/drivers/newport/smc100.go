// Package newport drives SMC100 single axis motion controllers.
package newport

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"labdevices/pkg/device"
	"labdevices/pkg/drivers/instrument"
	"labdevices/pkg/transport"
)

const (
	vendor = "Newport"
	model  = "SMC100"

	defaultTimeout = 500 * time.Millisecond
)

var (
	serialTerm = transport.Terminators{Tx: "\r\n", Rx: "\r\n"}

	defaultPortOptions = transport.PortOptions{BaudRate: 921600, DataBits: 8, StopBits: 1, Parity: "N"}
)

// Controller states as reported by TS.
const (
	StateConfiguration    = 0x14
	StateMoving           = 0x28
	StateReadyFromHoming  = 0x32
	StateReadyFromMoving  = 0x33
	StateReadyFromDisable = 0x34
	StateReadyFromJogging = 0x35
)

var stateNames = map[int]string{
	StateConfiguration:    "configuration",
	StateMoving:           "moving",
	StateReadyFromHoming:  "ready from homing",
	StateReadyFromMoving:  "ready from moving",
	StateReadyFromDisable: "ready from disable",
	StateReadyFromJogging: "ready from jogging",
}

var errorMessages = map[string]string{
	"@": "No error",
	"A": "Unknown message code or floating point controller address",
	"B": "Controller address not correct",
	"C": "Parameter missing or out of range",
	"D": "Execution not allowed",
	"E": "Home sequence already started",
	"F": "ESP stage name unknown",
	"G": "Displacement out of limits",
	"H": "Execution not allowed in NOT REFERENCED state",
	"I": "Execution not allowed in CONFIGURATION state",
	"J": "Execution not allowed in DISABLE state",
	"K": "Execution not allowed in READY state",
	"L": "Execution not allowed in HOMING state",
	"M": "Execution not allowed in MOVING state",
	"N": "Current position out of software limit",
	"S": "Communication Time Out",
	"U": "Error during EEPROM access",
	"V": "Error during command execution",
	"W": "Command not allowed for SMC100PP version",
	"X": "Command not allowed for CC version",
}

// SMC100 is one controller on a serial line. Chained controllers share the
// line and are told apart by their address.
type SMC100 struct {
	*instrument.Base

	addr int
}

var _ device.Instrument = (*SMC100)(nil)

// NewSMC100 opens the controller with address addr (1 when not chained) at
// a serial port such as /dev/ttyUSB0.
func NewSMC100(name, port string, addr int, opts transport.PortOptions, timeout time.Duration, logger log.FieldLogger) *SMC100 {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	opts = opts.Or(defaultPortOptions)
	open := func() (transport.Conn, error) {
		return transport.OpenSerial(port, opts)
	}
	return newSMC100(name, port, addr, open, timeout, logger)
}

func newSMC100(name, port string, addr int, open transport.Opener, timeout time.Duration, logger log.FieldLogger) *SMC100 {
	if addr <= 0 {
		addr = 1
	}
	cfg := instrument.Config{
		Info:    device.NewInfo(name, vendor, model, fmt.Sprintf("%s#%d", port, addr)),
		Open:    open,
		Term:    serialTerm,
		Timeout: timeout,
	}
	return &SMC100{Base: instrument.New(cfg, logger), addr: addr}
}

// Write prefixes cmd with the controller address.
func (s *SMC100) Write(cmd string) error {
	return s.Base.Write(strconv.Itoa(s.addr) + cmd)
}

// Query prefixes cmd with the controller address and strips the echoed
// address and command from the reply.
func (s *SMC100) Query(cmd string) (string, error) {
	prefix := strconv.Itoa(s.addr)
	resp, err := s.Base.Query(prefix + cmd)
	if err != nil {
		return "", err
	}
	// The echo is the address and the two letter command.
	echo := len(prefix) + 2
	if len(resp) < echo {
		return "", fmt.Errorf("%w: %s answered %q", device.ErrUnexpectedResponse, cmd, resp)
	}
	return resp[echo:], nil
}

func (s *SMC100) IDN() (string, error) {
	return s.Query("ID?")
}

func (s *SMC100) queryFloat(cmd string) (float64, error) {
	resp, err := s.Query(cmd)
	if err != nil {
		return 0, err
	}
	return device.ParseFloat(cmd, resp)
}

func (s *SMC100) writeFloat(cmd string, v float64) error {
	return s.Write(cmd + strconv.FormatFloat(v, 'g', -1, 64))
}

// ErrorAndControllerStatus returns the positioner error flags and the
// controller state, both as hex strings. Reading clears the errors.
func (s *SMC100) ErrorAndControllerStatus() (string, string, error) {
	resp, err := s.Query("TS")
	if err != nil {
		return "", "", err
	}
	if len(resp) < 6 {
		return "", "", fmt.Errorf("%w: status %q", device.ErrUnexpectedResponse, resp)
	}
	return resp[0:4], resp[4:6], nil
}

// ControllerState returns the controller state code and its name.
func (s *SMC100) ControllerState() (int, string, error) {
	_, state, err := s.ErrorAndControllerStatus()
	if err != nil {
		return 0, "", err
	}
	code, err := strconv.ParseInt(state, 16, 0)
	if err != nil {
		return 0, "", &device.ParseError{Field: "controller state", Value: state, Err: err}
	}
	return int(code), stateNames[int(code)], nil
}

func (s *SMC100) IsMoving() (bool, error) {
	code, _, err := s.ControllerState()
	if err != nil {
		return false, err
	}
	return code == StateMoving, nil
}

// WaitMoveFinish polls the controller state every interval until the
// stage stops.
func (s *SMC100) WaitMoveFinish(interval time.Duration) error {
	for {
		moving, err := s.IsMoving()
		if err != nil {
			return err
		}
		if !moving {
			s.Logger().Info("Movement finished")
			return nil
		}
		time.Sleep(interval)
	}
}

// LastCommandError returns the error code of the last rejected command and
// its meaning. Reading clears it.
func (s *SMC100) LastCommandError() (string, string, error) {
	code, err := s.Query("TE")
	if err != nil {
		return "", "", err
	}
	code = strings.TrimSpace(code)
	msg, ok := errorMessages[code]
	if !ok {
		return code, "", fmt.Errorf("%w: command error %q", device.ErrUnknownCode, code)
	}
	return code, msg, nil
}

// MoveRelative moves by distance in stage units.
func (s *SMC100) MoveRelative(distance float64) error {
	return s.writeFloat("PR", distance)
}

// MoveAbsolute moves to position in stage units.
func (s *SMC100) MoveAbsolute(position float64) error {
	return s.writeFloat("PA", position)
}

// Position returns the current position in stage units.
func (s *SMC100) Position() (float64, error) {
	return s.queryFloat("PA?")
}

// Home starts the home search.
func (s *SMC100) Home() error {
	return s.Write("OR")
}

// Reset restarts the controller, which leaves it NOT REFERENCED.
func (s *SMC100) Reset() error {
	return s.Write("RS")
}

// Speed returns the move velocity.
func (s *SMC100) Speed() (float64, error) {
	return s.queryFloat("VA?")
}

func (s *SMC100) SetSpeed(v float64) error {
	return s.writeFloat("VA", v)
}

// Acceleration returns the acceleration, also used for deceleration.
func (s *SMC100) Acceleration() (float64, error) {
	return s.queryFloat("AC?")
}

func (s *SMC100) SetAcceleration(v float64) error {
	return s.writeFloat("AC", v)
}
