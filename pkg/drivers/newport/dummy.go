package newport

import (
	log "github.com/sirupsen/logrus"

	"labdevices/pkg/transport"
)

var dummyReplies = map[string]string{
	"1ID?": "1IDTRA25CC_PN:B183906_UD:18114",
	"1TS":  "1TS01000A",
	"1TE":  "1TE@",
	"1PA?": "1PA0",
	"1VA?": "1VA0.4",
	"1AC?": "1AC1.6",
}

func newDummyMock() *transport.Mock {
	return transport.NewMock(serialTerm, dummyReplies)
}

// NewSMC100Dummy returns controller 1 answering from canned replies.
func NewSMC100Dummy(name string, logger log.FieldLogger) *SMC100 {
	return newSMC100(name, "/dev/null", 1, transport.MockOpener(newDummyMock), 0, logger)
}
