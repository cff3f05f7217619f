package transport

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// PrologixPort is the TCP port of the Prologix GPIB-Ethernet controller.
const PrologixPort = 1234

// prologixConn addresses one GPIB instrument behind the adapter. The adapter
// only talks after "++read", so every read following a write asks for it.
type prologixConn struct {
	*netConn
	readPending bool
}

// DialPrologix connects to the adapter at host and selects the GPIB address.
func DialPrologix(host string, gpib int, timeout time.Duration) (Conn, error) {
	return dialPrologix(net.JoinHostPort(host, strconv.Itoa(PrologixPort)), gpib, timeout)
}

func dialPrologix(addr string, gpib int, timeout time.Duration) (Conn, error) {
	if gpib < 0 || gpib > 30 {
		return nil, fmt.Errorf("invalid gpib address %d", gpib)
	}

	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to prologix adapter %s: %w", addr, err)
	}

	pc := &prologixConn{netConn: &netConn{Conn: conn, timeout: timeout}}
	setup := []string{
		"++mode 1",
		fmt.Sprintf("++addr %d", gpib),
		"++auto 0",
		"++eoi 1",
		"++eos 2",
		"++read_tmo_ms " + strconv.Itoa(readTimeoutMillis(timeout)),
	}
	for _, cmd := range setup {
		if _, err := conn.Write([]byte(cmd + "\n")); err != nil {
			conn.Close()
			return nil, fmt.Errorf("cannot configure prologix adapter: %w", err)
		}
	}
	return pc, nil
}

func (c *prologixConn) Write(p []byte) (int, error) {
	n, err := c.netConn.Write(p)
	if err == nil {
		c.readPending = true
	}
	return n, err
}

func (c *prologixConn) Read(p []byte) (int, error) {
	if c.readPending {
		c.readPending = false
		if _, err := c.netConn.Write([]byte("++read eoi\n")); err != nil {
			return 0, err
		}
	}
	return c.netConn.Read(p)
}

// readTimeoutMillis clamps the timeout to the 1-3000 ms the adapter accepts.
func readTimeoutMillis(timeout time.Duration) int {
	return int(min(max(timeout.Milliseconds(), 1), 3000))
}
