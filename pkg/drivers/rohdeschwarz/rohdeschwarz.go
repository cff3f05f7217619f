// Package rohdeschwarz drives the FPC1000 spectrum analyzer and RTB2000
// oscilloscopes.
package rohdeschwarz

import (
	"fmt"
	"net"
	"regexp"
	"strings"
	"time"

	"labdevices/pkg/device"
	"labdevices/pkg/transport"
)

const (
	vendor   = "Rohde & Schwarz"
	scpiPort = "5025"

	defaultTimeout = 5 * time.Second
	blockTimeout   = 20 * time.Second
)

var (
	scpiTerm = transport.Terminators{Tx: "\n", Rx: "\n"}

	ipPattern     = regexp.MustCompile(`^\d+\.\d+\.\d+\.\d+$`)
	usbtmcPattern = regexp.MustCompile(`^/dev/usbtmc\d+$`)
)

// opener picks the transport from the address: an IPv4 address is reached
// over a raw SCPI socket, a usbtmc device node directly.
func opener(address string, timeout time.Duration) (transport.Opener, error) {
	switch {
	case ipPattern.MatchString(address):
		return func() (transport.Conn, error) {
			return transport.DialTCP(net.JoinHostPort(address, scpiPort), timeout)
		}, nil
	case usbtmcPattern.MatchString(address):
		return func() (transport.Conn, error) {
			return transport.OpenUSBTMC(address)
		}, nil
	}
	return nil, fmt.Errorf("%w: %q is neither an IP address nor a usbtmc device", device.ErrInvalidAddress, address)
}

func orDefault(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return defaultTimeout
	}
	return timeout
}

// trimReply removes the padding the instruments leave around replies.
func trimReply(resp string) string {
	return strings.Trim(resp, "\x00\r\n ")
}
