package rohdeschwarz

import (
	"bytes"
	"image"
	"image/png"
	"math"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"labdevices/pkg/transport"
	"labdevices/pkg/waveform"
)

const dummyAddress = "1.1.1.1"

var fpcReplies = map[string]string{
	"*IDN?":         "Rohde&Schwarz,FPC1000,1328.6660K02/000000,1.50",
	"SYST:ERR:ALL?": "0,'No error'",
	"FREQ:STAR?":    "181000000.000000",
	"FREQ:STOP?":    "281000000.000000",
}

var oscilloscopeReplies = map[string]string{
	"*IDN?":               "Rohde&Schwarz,RTB2004,1333.1005k04/000000,02.300",
	"MEASurement:RESult?": "0.1",
}

// joinFloats renders values the way the instruments list them.
func joinFloats(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'E', 5, 64)
	}
	return strings.Join(parts, ",")
}

// dummySpectrum is a noise floor with a single carrier in the middle.
func dummySpectrum(n int) []float64 {
	y := make([]float64, n)
	for i := range y {
		d := float64(i-n/2) / 4
		y[i] = -90 + 60*math.Exp(-d*d)
	}
	return y
}

func dummyTrace(n int) []float64 {
	t := waveform.Linspace(0, 4*math.Pi, n)
	for i := range t {
		t[i] = 0.5 * math.Sin(t[i])
	}
	return t
}

func dummyScreenshot() []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 80, 48))); err != nil {
		return nil
	}
	return buf.Bytes()
}

func newFPCMock() *transport.Mock {
	m := transport.NewMock(scpiTerm, fpcReplies)
	m.Fallback = func(cmd string) (string, bool) {
		if cmd == "TRAC:DATA? TRACE1" {
			return joinFloats(dummySpectrum(201)), true
		}
		return "", false
	}
	return m
}

func newOscilloscopeMock() *transport.Mock {
	m := transport.NewMock(scpiTerm, oscilloscopeReplies)
	m.Fallback = func(cmd string) (string, bool) {
		switch {
		case strings.HasPrefix(cmd, "FORMat ASC; CHANnel"):
			return joinFloats(dummyTrace(1200)), true
		case strings.HasSuffix(cmd, ":DATA:HEADer?"):
			return "-3.00000E-08, 2.99500E-08, 1200, 1", true
		case cmd == "HCOPy:DATA?":
			return transport.Block(dummyScreenshot()), true
		}
		return "", false
	}
	return m
}

// NewFPC1000Dummy returns a spectrum analyzer answering from canned replies.
func NewFPC1000Dummy(name string, logger log.FieldLogger) *FPC1000 {
	return newFPC1000(name, dummyAddress, transport.MockOpener(newFPCMock), 0, logger)
}

// NewOscilloscopeDummy returns an oscilloscope answering from canned replies.
func NewOscilloscopeDummy(name string, logger log.FieldLogger) *Oscilloscope {
	return newOscilloscope(name, dummyAddress, transport.MockOpener(newOscilloscopeMock), 0, logger)
}
