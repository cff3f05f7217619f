// Package ando drives the ANDO AQ6315 optical spectrum analyzer through a
// Prologix GPIB-Ethernet adapter.
package ando

import (
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"labdevices/pkg/device"
	"labdevices/pkg/drivers/instrument"
	"labdevices/pkg/transport"
	"labdevices/pkg/waveform"
)

const (
	vendor = "ANDO"
	model  = "AQ6315"

	defaultTimeout = 3 * time.Second

	minSampling = 11
	maxSampling = 1001

	// The data buffer of the adapter holds about 20 values per request.
	chunkSize  = 20
	chunkCount = 50
)

var gpibTerm = transport.Terminators{Tx: "\n", Rx: "\r\n"}

// Measurement modes.
const (
	ModePulsed = 0
	ModeCW     = 1
)

var measurementModes = map[int]string{
	ModePulsed: "pulsed",
	ModeCW:     "cw",
}

var triggerModes = map[int]string{
	0: "peak hold",
	1: "external trigger",
	2: "gate",
}

// Analysis is the result of the built in spectrum analysis.
type Analysis struct {
	CenterWavelength float64 // nm
	Bandwidth        float64 // nm
	Modes            int
}

// SpectrumAnalyzer is an AQ6315.
type SpectrumAnalyzer struct {
	*instrument.Base
}

var _ device.Instrument = (*SpectrumAnalyzer)(nil)

// NewSpectrumAnalyzer talks to the instrument at GPIB address gpib behind
// the adapter at host.
func NewSpectrumAnalyzer(name, host string, gpib int, timeout time.Duration, logger log.FieldLogger) *SpectrumAnalyzer {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	open := func() (transport.Conn, error) {
		return transport.DialPrologix(host, gpib, timeout)
	}
	return newSpectrumAnalyzer(name, fmt.Sprintf("%s gpib %d", host, gpib), open, timeout, logger)
}

func newSpectrumAnalyzer(name, address string, open transport.Opener, timeout time.Duration, logger log.FieldLogger) *SpectrumAnalyzer {
	cfg := instrument.Config{
		Info:    device.NewInfo(name, vendor, model, address),
		Open:    open,
		Term:    gpibTerm,
		Timeout: timeout,
	}
	return &SpectrumAnalyzer{Base: instrument.New(cfg, logger)}
}

// queryFields splits a comma separated reply.
func (s *SpectrumAnalyzer) queryFields(cmd string) ([]string, error) {
	resp, err := s.Query(cmd)
	if err != nil {
		return nil, err
	}
	fields := strings.Split(strings.TrimRight(resp, "\r\n"), ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields, nil
}

func (s *SpectrumAnalyzer) queryFirstInt(cmd string) (int, error) {
	fields, err := s.queryFields(cmd)
	if err != nil {
		return 0, err
	}
	return device.ParseInt(cmd, fields[0])
}

func (s *SpectrumAnalyzer) queryFirstFloat(cmd string) (float64, error) {
	fields, err := s.queryFields(cmd)
	if err != nil {
		return 0, err
	}
	return device.ParseFloat(cmd, fields[0])
}

// Sampling returns the number of sampling points.
func (s *SpectrumAnalyzer) Sampling() (int, error) {
	return s.queryFirstInt("SMPL?")
}

// SetSampling sets the number of sampling points, 11 to 1001.
func (s *SpectrumAnalyzer) SetSampling(points int) error {
	if points < minSampling || points > maxSampling {
		return fmt.Errorf("%w: sampling %d not in [%d, %d]", device.ErrOutOfRange, points, minSampling, maxSampling)
	}
	return s.Writef("SMPL%d", points)
}

// Sweep starts a single sweep. The data is kept in the instrument buffer
// until read with XData and YData.
func (s *SpectrumAnalyzer) Sweep() error {
	return s.Write("SGL")
}

// WaitSweep polls the sweep status every interval until the sweep is done.
func (s *SpectrumAnalyzer) WaitSweep(interval time.Duration) error {
	for {
		status, err := s.queryFirstInt("SWEEP?")
		if err != nil {
			return err
		}
		if status == 0 {
			return nil
		}
		time.Sleep(interval)
	}
}

// data reads the buffer in chunks. Every chunk starts with its value count,
// which is dropped.
func (s *SpectrumAnalyzer) data(cmd string) ([]float64, error) {
	values := make([]float64, 0, chunkSize*chunkCount)
	for i := 0; i < chunkCount; i++ {
		fields, err := s.queryFields(fmt.Sprintf("%s R%d-R%d", cmd, chunkSize*i+1, chunkSize*(i+1)))
		if err != nil {
			return nil, err
		}
		for _, f := range fields[1:] {
			v, err := device.ParseFloat(cmd, f)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
	}
	return values, nil
}

// XData returns the wavelength axis in nm.
func (s *SpectrumAnalyzer) XData() ([]float64, error) {
	return s.data("WDATA")
}

// YData returns the level data in dBm.
func (s *SpectrumAnalyzer) YData() ([]float64, error) {
	return s.data("LDATA")
}

// Trace reads both axes of the last sweep.
func (s *SpectrumAnalyzer) Trace() (waveform.Trace, error) {
	x, err := s.XData()
	if err != nil {
		return waveform.Trace{}, err
	}
	y, err := s.YData()
	if err != nil {
		return waveform.Trace{}, err
	}
	if len(x) != len(y) {
		return waveform.Trace{}, fmt.Errorf("%w: %d wavelengths for %d levels", device.ErrUnexpectedResponse, len(x), len(y))
	}
	return waveform.Trace{Time: x, Voltage: y}, nil
}

// Analysis returns the result of the spectrum analysis. The instrument only
// has one in some display modes.
func (s *SpectrumAnalyzer) Analysis() (Analysis, error) {
	fields, err := s.queryFields("ANA?")
	if err != nil {
		return Analysis{}, err
	}
	if len(fields) != 3 {
		return Analysis{}, fmt.Errorf("%w: no analysis data available", device.ErrUnexpectedResponse)
	}

	var a Analysis
	if a.CenterWavelength, err = device.ParseFloat("center wavelength", fields[0]); err != nil {
		return Analysis{}, err
	}
	if a.Bandwidth, err = device.ParseFloat("bandwidth", fields[1]); err != nil {
		return Analysis{}, err
	}
	if a.Modes, err = device.ParseInt("modes", fields[2]); err != nil {
		return Analysis{}, err
	}
	return a, nil
}

// Center returns the center wavelength in nm.
func (s *SpectrumAnalyzer) Center() (float64, error) {
	return s.queryFirstFloat("CTRWL?")
}

// SetCenter sets the center wavelength, 350 to 1750 nm.
func (s *SpectrumAnalyzer) SetCenter(nm float64) error {
	return s.Writef("CTRWL%f", nm)
}

// Span returns the wavelength span in nm.
func (s *SpectrumAnalyzer) Span() (float64, error) {
	return s.queryFirstFloat("SPAN?")
}

// SetSpan sets the wavelength span, 0 or 1 to 1500 nm.
func (s *SpectrumAnalyzer) SetSpan(nm float64) error {
	return s.Writef("SPAN%f", nm)
}

func (s *SpectrumAnalyzer) lookup(cmd string, table map[int]string) (int, string, error) {
	code, err := s.queryFirstInt(cmd)
	if err != nil {
		return 0, "", err
	}
	name, ok := table[code]
	if !ok {
		return code, "", fmt.Errorf("%w: %s %d", device.ErrUnknownCode, cmd, code)
	}
	return code, name, nil
}

// MeasurementMode returns 0 (pulsed) or 1 (cw) with its name.
func (s *SpectrumAnalyzer) MeasurementMode() (int, string, error) {
	return s.lookup("CWPLS?", measurementModes)
}

// SetMeasurementMode selects pulsed (0) or cw (1) measurement.
func (s *SpectrumAnalyzer) SetMeasurementMode(mode int) error {
	switch mode {
	case ModePulsed:
		return s.Write("PLMES")
	case ModeCW:
		return s.Write("CLMES")
	}
	return fmt.Errorf("%w: measurement mode %d", device.ErrOutOfRange, mode)
}

// TriggerMode returns the pulsed measurement trigger mode with its name.
func (s *SpectrumAnalyzer) TriggerMode() (int, string, error) {
	return s.lookup("PLMOD?", triggerModes)
}

// SetPeakHold selects peak hold triggering for pulsed light with the
// approximate pulse repetition time.
func (s *SpectrumAnalyzer) SetPeakHold(ms int) error {
	return s.Writef("PKHLD%d", ms)
}
