package thorlabs

import (
	log "github.com/sirupsen/logrus"

	"labdevices/pkg/transport"
)

var dummyReplies = map[string]string{
	"*IDN?":                     "Thorlabs,TSP01,M00416749,1.2.0",
	":READ?":                    "23.973883",
	":SENSe2:HUMidity:DATA?":    "25.24333",
	":SENSe3:TEMPerature:DATA?": "21.78577",
	":SENSe4:TEMPerature:DATA?": "21.43771",
}

func newDummyMock() *transport.Mock {
	return transport.NewMock(usbTerm, dummyReplies)
}

// NewTSP01Dummy returns a logger answering from canned replies.
func NewTSP01Dummy(name string, logger log.FieldLogger) *TSP01 {
	return newTSP01(name, "/dev/null", transport.MockOpener(newDummyMock), 0, logger)
}
