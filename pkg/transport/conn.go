package transport

import (
	"errors"
	"io"
	"time"
)

// ErrTimeout is returned when an instrument does not answer within the read
// timeout. Callers decide whether to try again.
var ErrTimeout = errors.New("timeout waiting for response")

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("transport closed")

// Conn is the byte level link to an instrument.
type Conn interface {
	io.ReadWriteCloser
	SetReadTimeout(timeout time.Duration) error
}

// Opener establishes a connection when a driver is initialized. Dummy
// drivers use an Opener that returns a Mock.
type Opener func() (Conn, error)

// MockOpener returns an Opener handing out a fresh Mock built by newMock on
// every call, so a dummy can be initialized again after Close.
func MockOpener(newMock func() *Mock) Opener {
	return func() (Conn, error) {
		return newMock(), nil
	}
}
