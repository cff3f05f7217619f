// Package waveform converts oscilloscope and spectrum analyzer replies into
// calibrated axes.
package waveform

import (
	"fmt"
	"strings"

	"labdevices/pkg/device"
)

// Format of the waveform data as reported in the preamble.
type Format int

const (
	FormatByte  Format = 0
	FormatWord  Format = 1
	FormatASCII Format = 4
)

// Preamble describes how raw samples map onto time and voltage. The field
// order follows the ":WAVeform:PREamble?" reply.
type Preamble struct {
	Format     Format
	Type       int // acquisition type: normal, peak, average, high resolution
	Points     int
	Count      int // averages, 1 unless in average mode
	XIncrement float64
	XOrigin    float64
	XReference float64
	YIncrement float64
	YOrigin    float64
	YReference float64
}

// ParsePreamble parses the ten comma separated preamble fields.
func ParsePreamble(reply string) (Preamble, error) {
	var p Preamble

	fields := strings.Split(strings.TrimSpace(reply), ",")
	if len(fields) != 10 {
		return p, fmt.Errorf("bad number of preamble fields: %d", len(fields))
	}

	ints := []struct {
		name string
		dst  *int
		idx  int
	}{
		{"type", &p.Type, 1},
		{"points", &p.Points, 2},
		{"count", &p.Count, 3},
	}
	format, err := device.ParseInt("format", fields[0])
	if err != nil {
		return p, err
	}
	p.Format = Format(format)

	for _, f := range ints {
		if *f.dst, err = device.ParseInt(f.name, fields[f.idx]); err != nil {
			return p, err
		}
	}

	floats := []struct {
		name string
		dst  *float64
		idx  int
	}{
		{"x increment", &p.XIncrement, 4},
		{"x origin", &p.XOrigin, 5},
		{"x reference", &p.XReference, 6},
		{"y increment", &p.YIncrement, 7},
		{"y origin", &p.YOrigin, 8},
		{"y reference", &p.YReference, 9},
	}
	for _, f := range floats {
		if *f.dst, err = device.ParseFloat(f.name, fields[f.idx]); err != nil {
			return p, err
		}
	}

	return p, nil
}

// Voltage converts one raw sample.
func (p Preamble) Voltage(sample float64) float64 {
	return (sample-p.YReference)*p.YIncrement + p.YOrigin
}

// Time returns the time of sample i.
func (p Preamble) Time(i int) float64 {
	return (float64(i)-p.XReference)*p.XIncrement + p.XOrigin
}

// Decode converts BYTE formatted samples. The time axis always has one entry
// per sample, whatever Points says.
func (p Preamble) Decode(samples []byte) Trace {
	tr := Trace{
		Time:    make([]float64, len(samples)),
		Voltage: make([]float64, len(samples)),
	}
	for i, s := range samples {
		tr.Time[i] = p.Time(i)
		tr.Voltage[i] = p.Voltage(float64(s))
	}
	return tr
}

// Header is the axis description of a Rohde & Schwarz waveform.
type Header struct {
	XStart          float64 // seconds
	XStop           float64 // seconds
	Points          int
	ValuesPerSample int
}

// ParseHeader parses the reply of "CHANnel<n>:DATA:HEADer?".
func ParseHeader(reply string) (Header, error) {
	var h Header

	fields := strings.Split(strings.TrimSpace(reply), ",")
	if len(fields) != 4 {
		return h, fmt.Errorf("bad number of header fields: %d", len(fields))
	}

	var err error
	if h.XStart, err = device.ParseFloat("x start", fields[0]); err != nil {
		return h, err
	}
	if h.XStop, err = device.ParseFloat("x stop", fields[1]); err != nil {
		return h, err
	}
	if h.Points, err = device.ParseInt("points", fields[2]); err != nil {
		return h, err
	}
	if h.ValuesPerSample, err = device.ParseInt("values per sample", fields[3]); err != nil {
		return h, err
	}
	return h, nil
}

// TimeAxis spans XStart to XStop over n samples. The sample count comes from
// the data, not from Points.
func (h Header) TimeAxis(n int) []float64 {
	return Linspace(h.XStart, h.XStop, n)
}
