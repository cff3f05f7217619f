package rohdeschwarz

import (
	"time"

	log "github.com/sirupsen/logrus"

	"labdevices/pkg/device"
	"labdevices/pkg/drivers/instrument"
	"labdevices/pkg/transport"
	"labdevices/pkg/waveform"
)

const fpcModel = "FPC1000"

// The analyzer occasionally drops the frequency query when it follows the
// trace download too closely.
const traceSettle = 100 * time.Millisecond

// FPC1000 is a spectrum analyzer.
type FPC1000 struct {
	*instrument.Base
}

var _ device.Instrument = (*FPC1000)(nil)

func NewFPC1000(name, address string, timeout time.Duration, logger log.FieldLogger) (*FPC1000, error) {
	open, err := opener(address, orDefault(timeout))
	if err != nil {
		return nil, err
	}
	return newFPC1000(name, address, open, orDefault(timeout), logger), nil
}

func newFPC1000(name, address string, open transport.Opener, timeout time.Duration, logger log.FieldLogger) *FPC1000 {
	cfg := instrument.Config{
		Info:    device.NewInfo(name, vendor, fpcModel, address),
		Open:    open,
		Term:    scpiTerm,
		Timeout: timeout,
	}
	return &FPC1000{Base: instrument.New(cfg, logger)}
}

func (f *FPC1000) Query(cmd string) (string, error) {
	resp, err := f.Base.Query(cmd)
	return trimReply(resp), err
}

func (f *FPC1000) IDN() (string, error) {
	return f.Query("*IDN?")
}

func (f *FPC1000) queryFloat(cmd string) (float64, error) {
	resp, err := f.Query(cmd)
	if err != nil {
		return 0, err
	}
	return device.ParseFloat(cmd, resp)
}

// Trace returns the displayed trace. The x axis is the frequency in Hz,
// spread evenly between the start and stop frequency.
func (f *FPC1000) Trace() (waveform.Trace, error) {
	resp, err := f.Query("TRAC:DATA? TRACE1")
	if err != nil {
		return waveform.Trace{}, err
	}
	y, err := device.ParseFloats("trace", resp, ",")
	if err != nil {
		return waveform.Trace{}, err
	}

	time.Sleep(traceSettle)

	start, err := f.queryFloat("FREQ:STAR?")
	if err != nil {
		return waveform.Trace{}, err
	}
	stop, err := f.queryFloat("FREQ:STOP?")
	if err != nil {
		return waveform.Trace{}, err
	}

	return waveform.NewLinearTrace(start, stop, y), nil
}

// SystemAlarms returns all queued system errors and clears the queue.
func (f *FPC1000) SystemAlarms() (string, error) {
	return f.Query("SYST:ERR:ALL?")
}
