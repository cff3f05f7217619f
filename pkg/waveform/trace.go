package waveform

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"gonum.org/v1/gonum/floats"
)

// Trace is a pair of equally long axes. For spectrum analyzers Time holds
// the frequency or wavelength axis.
type Trace struct {
	Time    []float64
	Voltage []float64
}

// Linspace returns n evenly spaced values from start to stop inclusive.
func Linspace(start, stop float64, n int) []float64 {
	switch {
	case n <= 0:
		return []float64{}
	case n == 1:
		return []float64{start}
	}
	return floats.Span(make([]float64, n), start, stop)
}

// NewLinearTrace pairs y with an axis spanning start to stop.
func NewLinearTrace(start, stop float64, y []float64) Trace {
	return Trace{
		Time:    Linspace(start, stop, len(y)),
		Voltage: y,
	}
}

// Len returns the number of points.
func (t Trace) Len() int {
	return len(t.Voltage)
}

// Stats returns minimum, maximum and mean of the y axis.
func (t Trace) Stats() (lo, hi, mean float64) {
	if len(t.Voltage) == 0 {
		return 0, 0, 0
	}
	return floats.Min(t.Voltage), floats.Max(t.Voltage), floats.Sum(t.Voltage) / float64(len(t.Voltage))
}

// WriteCSV writes one "x,y" row per point with a header line.
func (t Trace) WriteCSV(w io.Writer, xName, yName string) error {
	if len(t.Time) != len(t.Voltage) {
		return fmt.Errorf("axis length mismatch: %d != %d", len(t.Time), len(t.Voltage))
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{xName, yName}); err != nil {
		return err
	}
	for i := range t.Time {
		row := []string{
			strconv.FormatFloat(t.Time[i], 'g', -1, 64),
			strconv.FormatFloat(t.Voltage[i], 'g', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
