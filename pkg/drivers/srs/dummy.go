package srs

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"labdevices/pkg/transport"
)

func newDummyMock() *transport.Mock {
	m := transport.NewMock(tcpTerm, map[string]string{
		"*IDN?": "Stanford Research Systems,DG645,s/n001234,ver1.14.10E",
	})
	m.Fallback = func(cmd string) (string, bool) {
		switch {
		case strings.HasPrefix(cmd, "DLAY?"):
			return "2,+0.001000000000", true
		case strings.HasPrefix(cmd, "LAMP?"):
			return "+0.5", true
		}
		return "", false
	}
	return m
}

// NewDG645Dummy returns a delay generator answering from canned replies.
func NewDG645Dummy(name string, logger log.FieldLogger) *DG645 {
	return newDG645(name, "1.1.1.1:5025", transport.MockOpener(newDummyMock), 0, logger)
}
