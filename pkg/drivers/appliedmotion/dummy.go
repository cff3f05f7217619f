package appliedmotion

import (
	"bytes"
	"strings"

	log "github.com/sirupsen/logrus"

	"labdevices/pkg/transport"
)

var dummyReplies = map[string]string{
	"DI":  "DI=20000",
	"MV":  "100H179M",
	"AL":  "AL=0100",
	"SC":  "SC=020C",
	"MR":  "MR=8",
	"MC":  "MC=1",
	"CI":  "CI=0.6",
	"CC":  "CC=1",
	"SP":  "SP=0",
	"SP0": "%",
	"IP":  "IP=00000000",
	"AC":  "AC=25",
	"DE":  "DE=25",
	"VE":  "VE=10",
}

// newMockWith answers framed datagrams from a table of unframed replies.
// Commands missing from the table are acknowledged.
func newMockWith(replies map[string]string) *transport.Mock {
	m := transport.NewMock(transport.Terminators{}, nil)
	m.Fallback = func(raw string) (string, bool) {
		cmd, ok := strings.CutPrefix(raw, string(header))
		if !ok {
			return "", false
		}
		cmd = strings.TrimSuffix(cmd, string(tail))

		reply, ok := replies[cmd]
		if !ok {
			reply = "%"
		}
		return string(bytes.Join([][]byte{header, []byte(reply), tail}, nil)), true
	}
	return m
}

func newDummyMock() *transport.Mock {
	return newMockWith(dummyReplies)
}

// NewSTF03DDummy returns a controller answering from canned replies.
func NewSTF03DDummy(name string, logger log.FieldLogger) *STF03D {
	return newSTF03D(name, "1.1.1.1", transport.MockOpener(newDummyMock), 0, logger)
}
