package transport

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Terminators are appended to commands (Tx) and mark the end of a reply (Rx).
// An empty Rx means a reply is whatever a single read returns.
type Terminators struct {
	Tx string
	Rx string
}

// Session is a message based link to one instrument. It is not safe for
// concurrent use.
type Session struct {
	conn    Conn
	rd      *bufio.Reader
	term    Terminators
	timeout time.Duration
	logger  log.FieldLogger
}

func NewSession(conn Conn, term Terminators, timeout time.Duration, logger log.FieldLogger) (*Session, error) {
	if timeout > 0 {
		if err := conn.SetReadTimeout(timeout); err != nil {
			conn.Close()
			return nil, fmt.Errorf("cannot set read timeout: %w", err)
		}
	}

	return &Session{
		conn:    conn,
		rd:      bufio.NewReaderSize(conn, 64*1024),
		term:    term,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Timeout returns the current read timeout.
func (s *Session) Timeout() time.Duration {
	return s.timeout
}

// SetTimeout changes the read timeout, e.g. for long binary transfers.
func (s *Session) SetTimeout(timeout time.Duration) error {
	if s.conn == nil {
		return ErrClosed
	}
	if err := s.conn.SetReadTimeout(timeout); err != nil {
		return err
	}
	s.timeout = timeout
	return nil
}

// Write sends cmd followed by the Tx terminator.
func (s *Session) Write(cmd string) error {
	s.logger.Debugf("Sending command: %q", cmd)
	return s.WriteRaw([]byte(cmd + s.term.Tx))
}

// WriteRaw sends b unchanged.
func (s *Session) WriteRaw(b []byte) error {
	if s.conn == nil {
		return ErrClosed
	}
	if _, err := s.conn.Write(b); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	return nil
}

// ReadLine reads one reply and strips the Rx terminator.
func (s *Session) ReadLine() (string, error) {
	if s.conn == nil {
		return "", ErrClosed
	}
	if s.term.Rx == "" {
		b, err := s.ReadRaw()
		return string(b), err
	}

	last := s.term.Rx[len(s.term.Rx)-1]
	var line strings.Builder
	for {
		chunk, err := s.rd.ReadString(last)
		line.WriteString(chunk)
		if err != nil {
			return "", fmt.Errorf("read failed: %w", err)
		}
		if strings.HasSuffix(line.String(), s.term.Rx) {
			break
		}
	}

	resp := strings.TrimSuffix(line.String(), s.term.Rx)
	s.logger.Debugf("Response: %q", resp)
	return resp, nil
}

// ReadRaw returns the bytes of a single read, one datagram for UDP.
func (s *Session) ReadRaw() ([]byte, error) {
	if s.conn == nil {
		return nil, ErrClosed
	}
	buf := make([]byte, 64*1024)
	n, err := s.rd.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("read failed: %w", err)
	}
	s.logger.Debugf("Response: %q", buf[:n])
	return buf[:n], nil
}

// Query writes cmd and reads one reply line.
func (s *Session) Query(cmd string) (string, error) {
	if err := s.Write(cmd); err != nil {
		return "", err
	}
	return s.ReadLine()
}

// QueryRaw writes b and returns the next single read.
func (s *Session) QueryRaw(b []byte) ([]byte, error) {
	if err := s.WriteRaw(b); err != nil {
		return nil, err
	}
	return s.ReadRaw()
}

// QueryBlock writes cmd and reads an IEEE 488.2 block reply.
func (s *Session) QueryBlock(cmd string) ([]byte, error) {
	if err := s.Write(cmd); err != nil {
		return nil, err
	}
	if s.conn == nil {
		return nil, ErrClosed
	}

	data, err := ReadBlock(s.rd, s.term.Rx)
	if err != nil {
		return nil, err
	}
	s.logger.Debugf("Block of %d bytes", len(data))
	return data, nil
}

// Close releases the connection. Closing twice is not an error.
func (s *Session) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	s.rd = nil
	return err
}

// ReadBlock parses "#<n><length><data>" from r. A zero digit count denotes
// an indefinite block terminated by rx. A definite block must be followed
// by rx, which is consumed.
func ReadBlock(r *bufio.Reader, rx string) ([]byte, error) {
	// Skip anything before the block start, e.g. a leading space.
	if _, err := r.ReadBytes('#'); err != nil {
		return nil, fmt.Errorf("missing block header: %w", err)
	}

	digit, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("truncated block header: %w", err)
	}
	n, err := strconv.Atoi(string(digit))
	if err != nil {
		return nil, fmt.Errorf("invalid block header digit %q", digit)
	}

	if n == 0 {
		if rx == "" {
			return io.ReadAll(r)
		}
		data, err := r.ReadBytes(rx[len(rx)-1])
		if err != nil {
			return nil, fmt.Errorf("read failed: %w", err)
		}
		return bytes.TrimSuffix(data, []byte(rx)), nil
	}

	lenField := make([]byte, n)
	if _, err := io.ReadFull(r, lenField); err != nil {
		return nil, fmt.Errorf("truncated block length: %w", err)
	}
	length, err := strconv.Atoi(string(lenField))
	if err != nil || length < 0 {
		return nil, fmt.Errorf("invalid block length %q", lenField)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("truncated block data: %w", err)
	}

	if rx != "" {
		tail := make([]byte, len(rx))
		if _, err := io.ReadFull(r, tail); err != nil {
			return nil, fmt.Errorf("missing block terminator: %w", err)
		}
		if string(tail) != rx {
			return nil, fmt.Errorf("invalid block terminator %q", tail)
		}
	}
	return data, nil
}
