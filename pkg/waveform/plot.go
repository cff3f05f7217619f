package waveform

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// SavePNG renders the trace as a line plot. The image format follows the
// file extension of path.
func (t Trace) SavePNG(path, title, xLabel, yLabel string) error {
	if len(t.Time) != len(t.Voltage) {
		return fmt.Errorf("axis length mismatch: %d != %d", len(t.Time), len(t.Voltage))
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Add(plotter.NewGrid())

	xys := make(plotter.XYs, len(t.Time))
	for i := range t.Time {
		xys[i].X = t.Time[i]
		xys[i].Y = t.Voltage[i]
	}

	line, err := plotter.NewLine(xys)
	if err != nil {
		return fmt.Errorf("cannot create line: %w", err)
	}
	p.Add(line)

	return p.Save(8*vg.Inch, 5*vg.Inch, path)
}
