// Package pfeiffer drives the Pfeiffer Vacuum TPG 362 dual gauge controller
// over its serial interface.
package pfeiffer

import (
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"labdevices/pkg/device"
	"labdevices/pkg/drivers/instrument"
	"labdevices/pkg/transport"
)

const (
	vendor = "Pfeiffer Vacuum"
	model  = "TPG 362"

	defaultTimeout = time.Second
)

// Control characters of the gauge protocol.
const (
	etx = "\x03" // reset the interface
	enq = "\x05" // request the data of the last command
	ack = "\x06"
	nak = "\x15"
)

var (
	serialTerm = transport.Terminators{Tx: "\r\n", Rx: "\r\n"}

	defaultPortOptions = transport.PortOptions{BaudRate: 9600, DataBits: 8, StopBits: 1, Parity: "N"}
)

var errorMessages = map[string]string{
	"0000": "No error",
	"1000": "ERROR (see display)",
	"0100": "No hardware error!",
	"0010": "Inadmissible parameter error",
	"0001": "Syntax error",
}

var measurementStatus = map[int]string{
	0: "Measurement data okay",
	1: "Underrange",
	2: "Overrange",
	3: "Sensor error",
	4: "Sensor off (IKR, PKR, IMR, PBR)",
	5: "No sensor (output: 5,2.0000E-2 [mbar])",
	6: "Identification error",
}

var pressureUnits = map[int]string{
	0: "mbar/bar",
	1: "Torr",
	2: "Pascal",
	3: "Micron",
	4: "hPascal",
	5: "Volt",
}

// Identity is the decoded reply of the AYT command.
type Identity struct {
	Type     string
	Model    string
	Serial   string
	Firmware string
	Hardware string
}

// Reading is the pressure of one gauge with its measurement status.
type Reading struct {
	Pressure   float64
	Status     int
	StatusText string
}

// TPG362 is a dual gauge controller.
type TPG362 struct {
	*instrument.Base
}

var _ device.Instrument = (*TPG362)(nil)

// NewTPG362 opens the controller at a serial port such as /dev/ttyUSB0.
// Unset port options default to 9600 8N1.
func NewTPG362(name, port string, opts transport.PortOptions, timeout time.Duration, logger log.FieldLogger) *TPG362 {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	opts = opts.Or(defaultPortOptions)
	open := func() (transport.Conn, error) {
		return transport.OpenSerial(port, opts)
	}
	return newTPG362(name, port, open, timeout, logger)
}

func newTPG362(name, address string, open transport.Opener, timeout time.Duration, logger log.FieldLogger) *TPG362 {
	cfg := instrument.Config{
		Info:    device.NewInfo(name, vendor, model, address),
		Open:    open,
		Term:    serialTerm,
		Timeout: timeout,
	}
	return &TPG362{Base: instrument.New(cfg, logger)}
}

// Write sends a command and requires a positive acknowledge.
func (g *TPG362) Write(cmd string) error {
	resp, err := g.Base.Query(cmd)
	if err != nil {
		return err
	}
	switch resp {
	case ack:
		return nil
	case nak:
		return fmt.Errorf("%w: %s", device.ErrNegativeAcknowledge, cmd)
	}
	return fmt.Errorf("%w: %s answered %q", device.ErrUnexpectedResponse, cmd, resp)
}

// Query sends a command and requests its data with ENQ.
func (g *TPG362) Query(cmd string) (string, error) {
	if err := g.Write(cmd); err != nil {
		return "", err
	}
	return g.Base.Query(enq)
}

// IDN returns the raw identification, see Identity for the decoded form.
func (g *TPG362) IDN() (string, error) {
	return g.Query("AYT")
}

// Reset sends ETX, which clears the input buffer of the controller.
func (g *TPG362) Reset() error {
	return g.Base.Write(etx)
}

func (g *TPG362) Identity() (Identity, error) {
	resp, err := g.IDN()
	if err != nil {
		return Identity{}, err
	}
	f := strings.Split(resp, ",")
	if len(f) != 5 {
		return Identity{}, fmt.Errorf("%w: identification %q", device.ErrUnexpectedResponse, resp)
	}
	return Identity{Type: f[0], Model: f[1], Serial: f[2], Firmware: f[3], Hardware: f[4]}, nil
}

// ErrorStatus returns the error code and its message.
func (g *TPG362) ErrorStatus() (string, string, error) {
	code, err := g.Query("ERR")
	if err != nil {
		return "", "", err
	}
	code = strings.TrimSpace(code)
	msg, ok := errorMessages[code]
	if !ok {
		return code, "", fmt.Errorf("%w: error status %s", device.ErrUnknownCode, code)
	}
	return code, msg, nil
}

func parseReading(status, pressure string) (Reading, error) {
	code, err := device.ParseInt("measurement status", status)
	if err != nil {
		return Reading{}, err
	}
	text, ok := measurementStatus[code]
	if !ok {
		return Reading{}, fmt.Errorf("%w: measurement status %d", device.ErrUnknownCode, code)
	}
	p, err := device.ParseFloat("pressure", pressure)
	if err != nil {
		return Reading{}, err
	}
	return Reading{Pressure: p, Status: code, StatusText: text}, nil
}

// GaugePressure returns the reading of gauge 1 or 2.
func (g *TPG362) GaugePressure(gauge int) (Reading, error) {
	if gauge != 1 && gauge != 2 {
		return Reading{}, fmt.Errorf("%w: gauge %d, must be 1 or 2", device.ErrOutOfRange, gauge)
	}

	resp, err := g.Query(fmt.Sprintf("PR%d", gauge))
	if err != nil {
		return Reading{}, err
	}
	f := strings.Split(resp, ",")
	if len(f) != 2 {
		return Reading{}, fmt.Errorf("%w: pressure %q", device.ErrUnexpectedResponse, resp)
	}
	return parseReading(f[0], f[1])
}

// PressureAll returns the readings of both gauges.
func (g *TPG362) PressureAll() ([2]Reading, error) {
	var readings [2]Reading

	resp, err := g.Query("PRX")
	if err != nil {
		return readings, err
	}
	f := strings.Split(resp, ",")
	if len(f) != 4 {
		return readings, fmt.Errorf("%w: pressures %q", device.ErrUnexpectedResponse, resp)
	}
	for i := range readings {
		if readings[i], err = parseReading(f[2*i], f[2*i+1]); err != nil {
			return readings, err
		}
	}
	return readings, nil
}

// PressureUnit returns the name of the configured pressure unit.
func (g *TPG362) PressureUnit() (string, error) {
	resp, err := g.Query("UNI")
	if err != nil {
		return "", err
	}
	code, err := device.ParseInt("unit", resp)
	if err != nil {
		return "", err
	}
	unit, ok := pressureUnits[code]
	if !ok {
		return "", fmt.Errorf("%w: pressure unit %d", device.ErrUnknownCode, code)
	}
	return unit, nil
}

// Temperature returns the controller temperature in °C, ±2 °C.
func (g *TPG362) Temperature() (int, error) {
	resp, err := g.Query("TMP")
	if err != nil {
		return 0, err
	}
	return device.ParseInt("temperature", resp)
}

// Readings reports both gauge pressures and the controller temperature.
func (g *TPG362) Readings() (map[string]float64, error) {
	p, err := g.PressureAll()
	if err != nil {
		return nil, err
	}
	temp, err := g.Temperature()
	if err != nil {
		return nil, err
	}
	return map[string]float64{
		"pressure_gauge1": p[0].Pressure,
		"pressure_gauge2": p[1].Pressure,
		"temperature":     float64(temp),
	}, nil
}
