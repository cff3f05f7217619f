package transport

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

type serialConn struct {
	serial.Port
}

// OpenSerial opens the serial port at path, e.g. /dev/ttyUSB0.
func OpenSerial(path string, opts PortOptions) (Conn, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("cannot open serial port %s: %w", path, err)
	}
	// Drop anything the instrument sent before the port was opened.
	if err := port.ResetInputBuffer(); err != nil {
		port.Close()
		return nil, fmt.Errorf("cannot flush serial port %s: %w", path, err)
	}
	return &serialConn{port}, nil
}

// Read reports a timeout as ErrTimeout. The serial driver itself returns
// zero bytes and no error when the read timeout expires.
func (c *serialConn) Read(p []byte) (int, error) {
	n, err := c.Port.Read(p)
	if n == 0 && err == nil {
		return 0, ErrTimeout
	}
	return n, err
}

func (c *serialConn) SetReadTimeout(timeout time.Duration) error {
	return c.Port.SetReadTimeout(timeout)
}
