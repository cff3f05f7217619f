package keysight

import (
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"labdevices/pkg/device"
	"labdevices/pkg/drivers/instrument"
	"labdevices/pkg/transport"
)

const counterModel = "53230A"

// Counter is a 53200 series universal frequency counter.
type Counter struct {
	*instrument.Base
}

var _ device.Instrument = (*Counter)(nil)

func NewCounter(name, address string, timeout time.Duration, logger log.FieldLogger) *Counter {
	return newCounter(name, address, tcpOpener(address, orDefault(timeout)), orDefault(timeout), logger)
}

func newCounter(name, address string, open transport.Opener, timeout time.Duration, logger log.FieldLogger) *Counter {
	cfg := instrument.Config{
		Info:    device.NewInfo(name, vendor, counterModel, address),
		Open:    open,
		Term:    scpiTerm,
		Timeout: timeout,
	}
	return &Counter{Base: instrument.New(cfg, logger)}
}

// GateTime returns the frequency gate time in seconds.
func (c *Counter) GateTime() (float64, error) {
	return c.QueryFloat("FREQuency:GATE:TIME?")
}

func (c *Counter) SetGateTime(seconds float64) error {
	return c.Writef("FREQuency:GATE:TIME %g", seconds)
}

// TriggerSource returns the trigger source, e.g. IMM, EXT or BUS.
func (c *Counter) TriggerSource() (string, error) {
	resp, err := c.Query("TRIGger:SOURce?")
	return strings.TrimSpace(resp), err
}

// StartFrequencyMeasurement configures a frequency measurement on channel 1
// and arms it. The result is collected with ReadFrequencyMeasurement once
// the gate time has passed.
func (c *Counter) StartFrequencyMeasurement() error {
	if err := c.Write("CONFigure:FREQuency (@1)"); err != nil {
		return err
	}
	return c.Write("INITiate")
}

// ReadFrequencyMeasurement fetches the result of the last measurement in Hz.
func (c *Counter) ReadFrequencyMeasurement() (float64, error) {
	return c.QueryFloat("FETCH?")
}

// MeasureFrequency runs a complete measurement on channel 1 and returns Hz.
func (c *Counter) MeasureFrequency() (float64, error) {
	return c.QueryFloat("MEASure:FREQuency? (@1)")
}
