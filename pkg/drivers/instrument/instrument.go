// Package instrument holds the state shared by the message based drivers:
// the connection lifecycle, the session and the plain SCPI verbs.
package instrument

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"labdevices/pkg/device"
	"labdevices/pkg/transport"
)

type connState int

const (
	connStateDisconnected connState = iota
	connStateConnected
)

// Config describes how to reach an instrument.
type Config struct {
	Info    device.Info
	Open    transport.Opener
	Term    transport.Terminators
	Timeout time.Duration
}

// Base implements device.Instrument on top of a transport.Session. Drivers
// embed it and override the verbs their protocol changes.
type Base struct {
	info    device.Info
	open    transport.Opener
	term    transport.Terminators
	timeout time.Duration

	state  connState
	sess   *transport.Session
	logger log.FieldLogger
}

func New(cfg Config, logger log.FieldLogger) *Base {
	return &Base{
		info:    cfg.Info,
		open:    cfg.Open,
		term:    cfg.Term,
		timeout: cfg.Timeout,
		state:   connStateDisconnected,
		logger:  logger.WithField("device", cfg.Info.Name),
	}
}

func (b *Base) Info() device.Info {
	return b.info
}

func (b *Base) Logger() log.FieldLogger {
	return b.logger
}

// Initialize opens the connection. Initializing a connected instrument does
// nothing.
func (b *Base) Initialize() error {
	if b.state == connStateConnected {
		return nil
	}

	conn, err := b.open()
	if err != nil {
		return fmt.Errorf("cannot open %s: %w", b.info.Address, err)
	}

	sess, err := transport.NewSession(conn, b.term, b.timeout, b.logger)
	if err != nil {
		return err
	}

	b.sess = sess
	b.state = connStateConnected
	b.logger.Infof("Connected to %s %s at %s", b.info.Vendor, b.info.Model, b.info.Address)
	return nil
}

// Close releases the connection. It never fails on a closed or never opened
// instrument.
func (b *Base) Close() error {
	if b.state == connStateDisconnected {
		return nil
	}

	err := b.sess.Close()
	b.sess = nil
	b.state = connStateDisconnected
	b.logger.Info("Connection closed")
	return err
}

func (b *Base) Connected() bool {
	return b.state == connStateConnected
}

// Session returns the open session or device.ErrNotConnected.
func (b *Base) Session() (*transport.Session, error) {
	if b.state != connStateConnected {
		return nil, device.ErrNotConnected
	}
	return b.sess, nil
}

func (b *Base) Write(cmd string) error {
	sess, err := b.Session()
	if err != nil {
		return err
	}
	return sess.Write(cmd)
}

func (b *Base) Query(cmd string) (string, error) {
	sess, err := b.Session()
	if err != nil {
		return "", err
	}
	return sess.Query(cmd)
}

func (b *Base) IDN() (string, error) {
	return b.Query("*IDN?")
}

// Writef formats a command and writes it.
func (b *Base) Writef(format string, args ...any) error {
	return b.Write(fmt.Sprintf(format, args...))
}

// QueryFloat queries cmd and parses the reply as a number.
func (b *Base) QueryFloat(cmd string) (float64, error) {
	resp, err := b.Query(cmd)
	if err != nil {
		return 0, err
	}
	return device.ParseFloat(cmd, resp)
}

// QueryInt queries cmd and parses the reply as an integer.
func (b *Base) QueryInt(cmd string) (int, error) {
	resp, err := b.Query(cmd)
	if err != nil {
		return 0, err
	}
	return device.ParseInt(cmd, resp)
}

// QueryBlock queries an IEEE 488.2 binary block. The read timeout is
// raised to timeout for the transfer when it is longer than the session's.
func (b *Base) QueryBlock(cmd string, timeout time.Duration) ([]byte, error) {
	sess, err := b.Session()
	if err != nil {
		return nil, err
	}

	if prev := sess.Timeout(); timeout > prev {
		if err := sess.SetTimeout(timeout); err != nil {
			return nil, err
		}
		defer func() {
			if err := sess.SetTimeout(prev); err != nil {
				b.logger.Warnf("cannot restore read timeout: %v", err)
			}
		}()
	}
	return sess.QueryBlock(cmd)
}
