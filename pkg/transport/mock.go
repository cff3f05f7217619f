package transport

import (
	"bytes"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Mock is a Conn that answers commands from a canned table. It is the
// transport behind every dummy driver and the fixture for driver tests.
type Mock struct {
	Term Terminators

	// Replies maps a command, without its Tx terminator, to the reply
	// without its Rx terminator.
	Replies map[string]string

	// Fallback answers commands missing from Replies. A false return
	// means the instrument stays silent.
	Fallback func(cmd string) (string, bool)

	mu      sync.Mutex
	written []string
	pending bytes.Buffer
	out     bytes.Buffer
	closed  bool
}

func NewMock(term Terminators, replies map[string]string) *Mock {
	return &Mock{
		Term:    term,
		Replies: replies,
	}
}

func (m *Mock) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClosed
	}

	if m.Term.Tx == "" {
		m.handle(string(p))
		return len(p), nil
	}

	m.pending.Write(p)
	for {
		buf := m.pending.String()
		cmd, rest, found := strings.Cut(buf, m.Term.Tx)
		if !found {
			break
		}
		m.pending.Reset()
		m.pending.WriteString(rest)
		m.handle(cmd)
	}
	return len(p), nil
}

func (m *Mock) handle(cmd string) {
	m.written = append(m.written, cmd)

	reply, ok := m.Replies[cmd]
	if !ok && m.Fallback != nil {
		reply, ok = m.Fallback(cmd)
	}
	if ok {
		m.out.WriteString(reply + m.Term.Rx)
	}
}

// Read returns queued reply bytes or ErrTimeout when there are none.
func (m *Mock) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClosed
	}
	if m.out.Len() == 0 {
		return 0, ErrTimeout
	}
	return m.out.Read(p)
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *Mock) SetReadTimeout(time.Duration) error {
	return nil
}

// Written returns the commands received so far.
func (m *Mock) Written() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.written...)
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Block formats data as an IEEE 488.2 definite length block.
func Block(data []byte) string {
	n := strconv.Itoa(len(data))
	return "#" + strconv.Itoa(len(n)) + n + string(data)
}
