package ando

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"labdevices/pkg/transport"
)

var dummyReplies = map[string]string{
	"*IDN?":  "ANDO,AQ6315A,0,1.0",
	"SWEEP?": "0",
	"SMPL?":  " 501",
	"ANA?":   " 490.808,  94.958, 19",
	"CTRWL?": "1050.00",
	"SPAN?":  "1300.0",
	"CWPLS?": "1",
	"PLMOD?": "    0",
}

const (
	dummyLevels = "  20,-210.00,-210.00,-210.00,-210.00,-75.28,-210.00,-210.00,-210.00," +
		"-210.00,-210.00,-210.00,-210.00,-210.00,-210.00,-210.00, -78.57, -70.96," +
		" -75.37,-210.00,-210.00"
	dummyWavelengths = "  20, 400.000, 401.300, 402.600, 403.900, 405.200, 406.500, 407.800," +
		" 409.100, 410.400, 411.700, 413.000, 414.300, 415.600, 416.900, 418.200," +
		" 419.500, 420.800, 422.100, 423.400, 424.700"
)

func newDummyMock() *transport.Mock {
	m := transport.NewMock(gpibTerm, dummyReplies)
	m.Fallback = func(cmd string) (string, bool) {
		switch {
		case strings.HasPrefix(cmd, "LDATA"):
			return dummyLevels, true
		case strings.HasPrefix(cmd, "WDATA"):
			return dummyWavelengths, true
		}
		return "", false
	}
	return m
}

// NewSpectrumAnalyzerDummy returns an analyzer answering from canned replies.
func NewSpectrumAnalyzerDummy(name string, logger log.FieldLogger) *SpectrumAnalyzer {
	return newSpectrumAnalyzer(name, "1.1.1.1 gpib 0", transport.MockOpener(newDummyMock), 0, logger)
}
