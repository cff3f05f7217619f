package keysight

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"labdevices/pkg/device"
	"labdevices/pkg/drivers/instrument"
	"labdevices/pkg/transport"
	"labdevices/pkg/waveform"
)

const oscilloscopeModel = "InfiniiVision 3000T"

// Binary transfers of a full record take several seconds.
const blockTimeout = 20 * time.Second

// Oscilloscope is an InfiniiVision X-series scope.
type Oscilloscope struct {
	*instrument.Base
}

var _ device.Instrument = (*Oscilloscope)(nil)

func NewOscilloscope(name, address string, timeout time.Duration, logger log.FieldLogger) *Oscilloscope {
	return newOscilloscope(name, address, tcpOpener(address, orDefault(timeout)), orDefault(timeout), logger)
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

func (o *Oscilloscope) measure(channel int, query string) (float64, error) {
	if err := o.Writef(":MEASure:SOURce CHANnel%d", channel); err != nil {
		return 0, err
	}
	return o.QueryFloat(query)
}

// VoltAverage returns the average voltage of a channel.
func (o *Oscilloscope) VoltAverage(channel int) (float64, error) {
	return o.measure(channel, ":MEASure:VAVerage?")
}

// VoltMax returns the maximum voltage of a channel.
func (o *Oscilloscope) VoltMax(channel int) (float64, error) {
	return o.measure(channel, ":MEASure:VMAX?")
}

// VoltPeakPeak returns the peak to peak voltage of a channel.
func (o *Oscilloscope) VoltPeakPeak(channel int) (float64, error) {
	return o.measure(channel, ":MEASure:VPP?")
}

// TimeScale returns the horizontal scale in seconds per division.
func (o *Oscilloscope) TimeScale() (float64, error) {
	return o.QueryFloat(":TIMebase:SCALe?")
}

func (o *Oscilloscope) SetTimeScale(seconds float64) error {
	return o.Writef(":TIMebase:SCALe %g", seconds)
}

// Preamble returns the waveform preamble of a channel.
func (o *Oscilloscope) Preamble(channel int) (waveform.Preamble, error) {
	if err := o.Writef(":WAVeform:SOURce CHANnel%d", channel); err != nil {
		return waveform.Preamble{}, err
	}
	resp, err := o.Query(":WAVeform:PREamble?")
	if err != nil {
		return waveform.Preamble{}, err
	}
	return waveform.ParsePreamble(resp)
}

// Trace downloads the displayed waveform of a channel in BYTE format. The
// time scale is restored afterwards.
func (o *Oscilloscope) Trace(channel int) (waveform.Trace, error) {
	setup := []string{
		":ACQuire:TYPE NORMal",
		fmt.Sprintf(":WAVeform:SOURce CHANnel%d", channel),
		":WAVeform:POINts:MODE NORMal",
		":WAVeform:FORMat BYTE",
	}
	for _, cmd := range setup {
		if err := o.Write(cmd); err != nil {
			return waveform.Trace{}, err
		}
	}

	scale, err := o.Query(":TIMebase:SCALe?")
	if err != nil {
		return waveform.Trace{}, err
	}

	resp, err := o.Query(":WAVeform:PREamble?")
	if err != nil {
		return waveform.Trace{}, err
	}
	pre, err := waveform.ParsePreamble(resp)
	if err != nil {
		return waveform.Trace{}, err
	}

	data, err := o.QueryBlock(":WAVeform:DATA?", blockTimeout)
	if err != nil {
		return waveform.Trace{}, fmt.Errorf("cannot read waveform data: %w", err)
	}
	if len(data) != pre.Points {
		o.Logger().Warnf("Preamble reports %d points, received %d samples", pre.Points, len(data))
	}

	if err := o.Write(":TIMebase:SCALe " + scale); err != nil {
		return waveform.Trace{}, err
	}
	return pre.Decode(data), nil
}

// Screenshot returns the display as PNG.
func (o *Oscilloscope) Screenshot() ([]byte, error) {
	if err := o.Write(":HARDcopy:INKSaver OFF"); err != nil {
		return nil, err
	}
	return o.QueryBlock(":DISPlay:DATA? PNG, COLor", blockTimeout)
}
