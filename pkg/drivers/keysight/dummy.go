package keysight

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"strings"

	log "github.com/sirupsen/logrus"

	"labdevices/pkg/transport"
)

const dummyAddress = "1.1.1.1"

var oscilloscopeReplies = map[string]string{
	"*IDN?":               "KEYSIGHT TECHNOLOGIES,DSOX3034T,MY00000000,07.50.2021102830",
	":MEASure:VAVerage?":  "0.1",
	":MEASure:VMAX?":      "0.1",
	":MEASure:VPP?":       "0.1",
	":TIMebase:SCALe?":    "+1.00000000E-03",
	":WAVeform:PREamble?": "+0,+0,+64516,+1,+1.55000309E-005,-5.00000000E-001,+0,+1.60804000E-004,+0.0E+000,+128",
}

var counterReplies = map[string]string{
	"*IDN?":                "Keysight Technologies,53230A,MY00000000,02.05-1519.666-1.19-4.15-127-155-35",
	"FREQuency:GATE:TIME?": "0.1",
	"TRIGger:SOURce?":      "IMM",
	"FETCH?":               "300000.314776433",
}

// dummySamples is one period of a sine around the vertical center.
func dummySamples(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(128 + 100*math.Sin(2*math.Pi*float64(i)/float64(n)))
	}
	return data
}

func dummyScreenshot() []byte {
	img := image.NewGray(image.Rect(0, 0, 80, 48))
	for x := 0; x < 80; x++ {
		y := 24 - int(20*math.Sin(2*math.Pi*float64(x)/80))
		img.SetGray(x, y, color.Gray{Y: 255})
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}

func newOscilloscopeMock() *transport.Mock {
	m := transport.NewMock(scpiTerm, oscilloscopeReplies)
	m.Fallback = func(cmd string) (string, bool) {
		switch cmd {
		case ":WAVeform:DATA?":
			return transport.Block(dummySamples(1000)), true
		case ":DISPlay:DATA? PNG, COLor":
			return transport.Block(dummyScreenshot()), true
		}
		return "", false
	}
	return m
}

func newCounterMock() *transport.Mock {
	m := transport.NewMock(scpiTerm, counterReplies)
	m.Fallback = func(cmd string) (string, bool) {
		if strings.HasPrefix(cmd, "MEASure:FREQuency?") {
			return "10", true
		}
		return "", false
	}
	return m
}

// NewOscilloscopeDummy returns an oscilloscope answering from canned replies.
func NewOscilloscopeDummy(name string, logger log.FieldLogger) *Oscilloscope {
	return newOscilloscope(name, dummyAddress, transport.MockOpener(newOscilloscopeMock), 0, logger)
}

// NewCounterDummy returns a counter answering from canned replies.
func NewCounterDummy(name string, logger log.FieldLogger) *Counter {
	return newCounter(name, dummyAddress, transport.MockOpener(newCounterMock), 0, logger)
}
