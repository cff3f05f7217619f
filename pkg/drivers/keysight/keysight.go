// Package keysight drives Keysight InfiniiVision oscilloscopes and 53200
// series frequency counters over raw SCPI sockets.
package keysight

import (
	"net"
	"time"

	"labdevices/pkg/transport"
)

const (
	vendor   = "Keysight"
	scpiPort = "5025"

	defaultTimeout = 5 * time.Second
)

var scpiTerm = transport.Terminators{Tx: "\n", Rx: "\n"}

func tcpOpener(address string, timeout time.Duration) transport.Opener {
	return func() (transport.Conn, error) {
		return transport.DialTCP(net.JoinHostPort(address, scpiPort), timeout)
	}
}

func orDefault(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return defaultTimeout
	}
	return timeout
}
