package transport

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// netConn applies the read timeout as a deadline before every read.
type netConn struct {
	net.Conn
	timeout time.Duration
}

func (c *netConn) Read(p []byte) (int, error) {
	if c.timeout > 0 {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return 0, err
		}
	}

	n, err := c.Conn.Read(p)
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return n, ErrTimeout
	}
	return n, err
}

func (c *netConn) SetReadTimeout(timeout time.Duration) error {
	c.timeout = timeout
	return nil
}

// DialTCP connects to a raw socket instrument, e.g. SCPI on port 5025.
func DialTCP(addr string, timeout time.Duration) (Conn, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to %s: %w", addr, err)
	}
	return &netConn{Conn: conn, timeout: timeout}, nil
}

// DialUDP binds local and sends datagrams to remote. Replies from other
// peers are dropped by the kernel.
func DialUDP(local, remote string, timeout time.Duration) (Conn, error) {
	laddr, err := net.ResolveUDPAddr("udp", local)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve local address: %w", err)
	}
	raddr, err := net.ResolveUDPAddr("udp", remote)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve device address: %w", err)
	}

	conn, err := net.DialUDP("udp", laddr, raddr)
	if err != nil {
		return nil, fmt.Errorf("cannot bind udp socket: %w", err)
	}
	return &netConn{Conn: conn, timeout: timeout}, nil
}
