// Package granville drives the Granville-Phillips Series 350 UHV gauge
// controller.
package granville

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
	vendor = "Granville-Phillips"
	model  = "350"

	// The controller has no identification command.
	identity = "Granville-Phillips 350 UHV Gauge Controller"

	defaultTimeout = time.Second
)

var (
	serialTerm = transport.Terminators{Tx: "\r\n", Rx: "\r\n"}

	defaultPortOptions = transport.PortOptions{BaudRate: 300, DataBits: 7, StopBits: 2, Parity: "N"}
)

// GP350 is an ionization gauge controller with two filaments.
type GP350 struct {
	*instrument.Base
}

var _ device.Instrument = (*GP350)(nil)

// NewGP350 opens the controller at a serial port. Unset port options
// default to 300 baud 7N2.
func NewGP350(name, port string, opts transport.PortOptions, timeout time.Duration, logger log.FieldLogger) *GP350 {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	opts = opts.Or(defaultPortOptions)
	open := func() (transport.Conn, error) {
		return transport.OpenSerial(port, opts)
	}
	return newGP350(name, port, open, timeout, logger)
}

func newGP350(name, address string, open transport.Opener, timeout time.Duration, logger log.FieldLogger) *GP350 {
	cfg := instrument.Config{
		Info:    device.NewInfo(name, vendor, model, address),
		Open:    open,
		Term:    serialTerm,
		Timeout: timeout,
	}
	return &GP350{Base: instrument.New(cfg, logger)}
}

func (g *GP350) IDN() (string, error) {
	if !g.Connected() {
		return "", device.ErrNotConnected
	}
	return identity, nil
}

// Pressure returns the ion gauge pressure.
func (g *GP350) Pressure() (float64, error) {
	return g.QueryFloat("DS IG")
}

// DegasStatus reports whether degassing is running.
func (g *GP350) DegasStatus() (bool, error) {
	status, err := g.QueryInt("DGS")
	if err != nil {
		return false, err
	}
	return status != 0, nil
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

// command sends cmd and checks for the OK reply.
func (g *GP350) command(cmd string) error {
	resp, err := g.Query(cmd)
	if err != nil {
		return err
	}
	switch strings.TrimSpace(resp) {
	case "OK":
		return nil
	case "INVALID":
		return fmt.Errorf("%w: %s", device.ErrNegativeAcknowledge, cmd)
	}
	return fmt.Errorf("%w: %s answered %q", device.ErrUnexpectedResponse, cmd, resp)
}

// Degas switches degassing of the active filament.
func (g *GP350) Degas(on bool) error {
	return g.command("DG " + onOff(on))
}

// Filament switches filament 1 or 2.
func (g *GP350) Filament(which int, on bool) error {
	if which != 1 && which != 2 {
		return fmt.Errorf("%w: filament %d, must be 1 or 2", device.ErrOutOfRange, which)
	}
	return g.command(fmt.Sprintf("IG%d %s", which, onOff(on)))
}

// Readings reports the ion gauge pressure.
func (g *GP350) Readings() (map[string]float64, error) {
	p, err := g.Pressure()
	if err != nil {
		return nil, err
	}
	return map[string]float64{"pressure": p}, nil
}
