package transport

import (
	"fmt"
	"os"
	"time"
)

// usbtmcConn talks to a USB test & measurement class device through the
// Linux usbtmc driver. Every read returns one complete message.
type usbtmcConn struct {
	*os.File
}

// OpenUSBTMC opens a usbtmc character device such as /dev/usbtmc0.
func OpenUSBTMC(path string) (Conn, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", path, err)
	}
	return &usbtmcConn{f}, nil
}

// SetReadTimeout is a no-op, the kernel driver applies its own timeout.
func (c *usbtmcConn) SetReadTimeout(time.Duration) error {
	return nil
}
