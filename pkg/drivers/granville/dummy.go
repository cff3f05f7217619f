package granville

import (
	log "github.com/sirupsen/logrus"

	"labdevices/pkg/transport"
)

var dummyReplies = map[string]string{
	"DS IG":   "1.20E-09",
	"DGS":     "0",
	"DG ON":   "OK",
	"DG OFF":  "OK",
	"IG1 ON":  "OK",
	"IG1 OFF": "OK",
	"IG2 ON":  "OK",
	"IG2 OFF": "OK",
}

func newDummyMock() *transport.Mock {
	return transport.NewMock(serialTerm, dummyReplies)
}

// NewGP350Dummy returns a gauge controller answering from canned replies.
func NewGP350Dummy(name string, logger log.FieldLogger) *GP350 {
	return newGP350(name, "/dev/null", transport.MockOpener(newDummyMock), 0, logger)
}
