package kuhne

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"labdevices/pkg/transport"
)

func newDummyMock() *transport.Mock {
	m := transport.NewMock(serialTerm, map[string]string{"sa": "???"})
	m.Fallback = func(cmd string) (string, bool) {
		for _, suffix := range []string{"GF1", "MF1", "kF1", "HF1"} {
			if strings.HasSuffix(cmd, suffix) {
				return "A", true
			}
		}
		return "", false
	}
	return m
}

// NewLocalOscillatorDummy returns an oscillator answering from canned
// replies.
func NewLocalOscillatorDummy(name string, logger log.FieldLogger) *LocalOscillator {
	return newLocalOscillator(name, "/dev/null", transport.MockOpener(newDummyMock), 0, logger)
}
