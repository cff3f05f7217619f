// Package kuhne drives the Kuhne Electronic MKU LO 8-13 PLL local
// oscillator.
package kuhne

import (
	"fmt"
	"math"
	"time"

	log "github.com/sirupsen/logrus"

	"labdevices/pkg/device"
	"labdevices/pkg/drivers/instrument"
	"labdevices/pkg/transport"
)

const (
	vendor = "Kuhne Electronic"
	model  = "MKU LO 8-13"

	// The oscillator has no identification command.
	identity = "MKU LO 8-13 PLL Oscillator"

	defaultTimeout = time.Second

	// Pause between the digit groups of a frequency setting.
	digitSettle = 10 * time.Millisecond
)

var (
	// Commands are sent without terminator.
	serialTerm = transport.Terminators{Tx: "", Rx: "\r\n"}

	defaultPortOptions = transport.PortOptions{BaudRate: 115200, DataBits: 8, StopBits: 1, Parity: "N"}
)

// LocalOscillator is a PLL oscillator set in GHz, MHz, kHz and Hz digit
// groups.
type LocalOscillator struct {
	*instrument.Base
}

var _ device.Instrument = (*LocalOscillator)(nil)

func NewLocalOscillator(name, port string, opts transport.PortOptions, timeout time.Duration, logger log.FieldLogger) *LocalOscillator {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	opts = opts.Or(defaultPortOptions)
	open := func() (transport.Conn, error) {
		return transport.OpenSerial(port, opts)
	}
	return newLocalOscillator(name, port, open, timeout, logger)
}

func newLocalOscillator(name, address string, open transport.Opener, timeout time.Duration, logger log.FieldLogger) *LocalOscillator {
	cfg := instrument.Config{
		Info:    device.NewInfo(name, vendor, model, address),
		Open:    open,
		Term:    serialTerm,
		Timeout: timeout,
	}
	return &LocalOscillator{Base: instrument.New(cfg, logger)}
}

// Write sends a command. The oscillator confirms every command with "A".
func (lo *LocalOscillator) Write(cmd string) error {
	resp, err := lo.Base.Query(cmd)
	if err != nil {
		return err
	}
	if resp != "A" {
		return fmt.Errorf("%w: %s answered %q", device.ErrUnexpectedResponse, cmd, resp)
	}
	return nil
}

func (lo *LocalOscillator) IDN() (string, error) {
	if !lo.Connected() {
		return "", device.ErrNotConnected
	}
	return identity, nil
}

// Status returns the status of the oscillator module.
func (lo *LocalOscillator) Status() (string, error) {
	return lo.Query("sa")
}

// Digits splits a frequency in GHz into its GHz, MHz, kHz and Hz groups.
func Digits(ghz float64) ([4]int, error) {
	hz := int64(math.Round(ghz * 1e9))
	if hz < 0 || hz >= 1e12 {
		return [4]int{}, fmt.Errorf("%w: frequency %g GHz", device.ErrOutOfRange, ghz)
	}
	return [4]int{
		int(hz / 1e9),
		int(hz / 1e6 % 1000),
		int(hz / 1e3 % 1000),
		int(hz % 1000),
	}, nil
}

// SetFrequency sets the frequency in GHz with Hz resolution.
func (lo *LocalOscillator) SetFrequency(ghz float64) error {
	digits, err := Digits(ghz)
	if err != nil {
		return err
	}

	units := [4]string{"G", "M", "k", "H"}
	for i, d := range digits {
		if i > 0 {
			time.Sleep(digitSettle)
		}
		if err := lo.Write(fmt.Sprintf("%03d%sF1", d, units[i])); err != nil {
			return err
		}
	}

	lo.Logger().Infof("Frequency set to %02d GHz, %03d MHz, %03d kHz, and %03d Hz", digits[0], digits[1], digits[2], digits[3])
	return nil
}
