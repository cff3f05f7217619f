package pfeiffer

import (
	log "github.com/sirupsen/logrus"

	"labdevices/pkg/transport"
)

var dummyReplies = map[string]string{
	"AYT": "TPG362,PTG28290,44998061,010300,010100",
	"ERR": "0000",
	"PR1": "5,+0.0000E+00",
	"PR2": "5,+0.0000E+00",
	"PRX": "5,+0.0000E+00,5,+0.0000E+00",
	"UNI": "4",
	"TMP": "23",
}

// newMockWith acknowledges the commands in replies, answers the following
// ENQ with the stored data and rejects everything else.
func newMockWith(replies map[string]string) *transport.Mock {
	var last string
	m := transport.NewMock(serialTerm, nil)
	m.Fallback = func(cmd string) (string, bool) {
		switch cmd {
		case enq:
			return last, true
		case etx:
			last = ""
			return "", false
		}
		data, ok := replies[cmd]
		if !ok {
			return nak, true
		}
		last = data
		return ack, true
	}
	return m
}

func newDummyMock() *transport.Mock {
	return newMockWith(dummyReplies)
}

// NewTPG362Dummy returns a gauge controller answering from canned replies.
func NewTPG362Dummy(name string, logger log.FieldLogger) *TPG362 {
	return newTPG362(name, "/dev/null", transport.MockOpener(newDummyMock), 0, logger)
}
