package rohdeschwarz

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"labdevices/pkg/device"
	"labdevices/pkg/drivers/instrument"
	"labdevices/pkg/transport"
	"labdevices/pkg/waveform"
)

const oscilloscopeModel = "RTB2000"

// Oscilloscope is an RTB2000 series scope.
type Oscilloscope struct {
	*instrument.Base
}

var _ device.Instrument = (*Oscilloscope)(nil)

// NewOscilloscope accepts an IPv4 address or a /dev/usbtmcN device node.
// Anything else fails with device.ErrInvalidAddress.
func NewOscilloscope(name, address string, timeout time.Duration, logger log.FieldLogger) (*Oscilloscope, error) {
	open, err := opener(address, orDefault(timeout))
	if err != nil {
		return nil, err
	}
	return newOscilloscope(name, address, open, orDefault(timeout), logger), nil
}

func newOscilloscope(name, address string, open transport.Opener, timeout time.Duration, logger log.FieldLogger) *Oscilloscope {
	cfg := instrument.Config{
		Info:    device.NewInfo(name, vendor, oscilloscopeModel, address),
		Open:    open,
		Term:    scpiTerm,
		Timeout: timeout,
	}
	return &Oscilloscope{Base: instrument.New(cfg, logger)}
}

func (o *Oscilloscope) Query(cmd string) (string, error) {
	resp, err := o.Base.Query(cmd)
	return trimReply(resp), err
}

func (o *Oscilloscope) IDN() (string, error) {
	return o.Query("*IDN?")
}

func (o *Oscilloscope) measure(channel int, kind string) (float64, error) {
	if err := o.Writef("MEASurement:SOURce CH%d; MEASurement:MAIN %s", channel, kind); err != nil {
		return 0, err
	}
	resp, err := o.Query("MEASurement:RESult?")
	if err != nil {
		return 0, err
	}
	return device.ParseFloat(kind, resp)
}

// VoltAverage installs a mean value screen measurement and returns it.
func (o *Oscilloscope) VoltAverage(channel int) (float64, error) {
	return o.measure(channel, "MEAN")
}

// VoltMax installs an upper peak screen measurement and returns it.
func (o *Oscilloscope) VoltMax(channel int) (float64, error) {
	return o.measure(channel, "UPEakvalue")
}

// VoltPeakPeak installs a peak to peak screen measurement and returns it.
func (o *Oscilloscope) VoltPeakPeak(channel int) (float64, error) {
	return o.measure(channel, "PEAK")
}

// Header returns the axis description of a channel's waveform.
func (o *Oscilloscope) Header(channel int) (waveform.Header, error) {
	resp, err := o.Query(fmt.Sprintf("CHANnel%d:DATA:HEADer?", channel))
	if err != nil {
		return waveform.Header{}, err
	}
	return waveform.ParseHeader(resp)
}

// Trace triggers a single acquisition of a channel and returns it in volts.
func (o *Oscilloscope) Trace(channel int) (waveform.Trace, error) {
	if err := o.Writef("CHANnel%d:SINGle", channel); err != nil {
		return waveform.Trace{}, err
	}

	resp, err := o.Query(fmt.Sprintf("FORMat ASC; CHANnel%d:DATA?", channel))
	if err != nil {
		return waveform.Trace{}, err
	}
	voltage, err := device.ParseFloats("trace", resp, ",")
	if err != nil {
		return waveform.Trace{}, err
	}

	h, err := o.Header(channel)
	if err != nil {
		return waveform.Trace{}, err
	}
	if h.Points != len(voltage) {
		o.Logger().Warnf("Header reports %d points, received %d samples", h.Points, len(voltage))
	}

	return waveform.Trace{Time: h.TimeAxis(len(voltage)), Voltage: voltage}, nil
}

// Screenshot returns the display as PNG.
func (o *Oscilloscope) Screenshot() ([]byte, error) {
	if err := o.Write("HCOPy:LANG PNG"); err != nil {
		return nil, err
	}
	return o.QueryBlock("HCOPy:DATA?", blockTimeout)
}

// SetTimeScale sets the horizontal scale in seconds per division.
func (o *Oscilloscope) SetTimeScale(seconds float64) error {
	return o.Writef(":TIMebase:SCALe %g", seconds)
}
