package transport

import (
	"bufio"
	"errors"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T, m *Mock) *Session {
	t.Helper()
	s, err := NewSession(m, m.Term, 0, log.New())
	require.NoError(t, err)
	return s
}

func TestSessionQuery(t *testing.T) {
	m := NewMock(Terminators{Tx: "\n", Rx: "\r\n"}, map[string]string{
		"*IDN?": "Stanford Research Systems,DG645",
	})
	s := newTestSession(t, m)

	resp, err := s.Query("*IDN?")
	require.NoError(t, err)
	assert.Equal(t, "Stanford Research Systems,DG645", resp)
	assert.Equal(t, []string{"*IDN?"}, m.Written())
}

func TestSessionSilentInstrumentTimesOut(t *testing.T) {
	m := NewMock(Terminators{Tx: "\n", Rx: "\n"}, nil)
	s := newTestSession(t, m)

	_, err := s.Query("FETCH?")
	assert.True(t, errors.Is(err, ErrTimeout))
}

func TestSessionClose(t *testing.T) {
	m := NewMock(Terminators{Tx: "\n", Rx: "\n"}, nil)
	s := newTestSession(t, m)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.True(t, m.Closed())

	assert.ErrorIs(t, s.Write("*RST"), ErrClosed)
	_, err := s.Query("*IDN?")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSessionWithoutRxTerminator(t *testing.T) {
	m := NewMock(Terminators{Tx: "\r"}, map[string]string{"\x00\x07SP": "\x00\x07SP=0\r"})
	s := newTestSession(t, m)

	resp, err := s.QueryRaw([]byte("\x00\x07SP\r"))
	require.NoError(t, err)
	assert.Equal(t, []byte("\x00\x07SP=0\r"), resp)
}

func TestMockFallback(t *testing.T) {
	m := NewMock(Terminators{Tx: "\n", Rx: "\n"}, map[string]string{"A?": "1"})
	m.Fallback = func(cmd string) (string, bool) {
		if strings.HasPrefix(cmd, "DLAY?") {
			return "0,+1e-3", true
		}
		return "", false
	}
	s := newTestSession(t, m)

	resp, err := s.Query("DLAY? 2")
	require.NoError(t, err)
	assert.Equal(t, "0,+1e-3", resp)

	// Two commands in one write are both answered.
	require.NoError(t, s.WriteRaw([]byte("A?\nA?\n")))
	first, err := s.ReadLine()
	require.NoError(t, err)
	second, err := s.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "1"}, []string{first, second})
}

func TestReadBlock(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		rx          string
		expected    []byte
		rest        string
		expectError bool
	}{
		{
			name:     "Definite block",
			input:    "#14\x80\x81\x82\x83\n*IDN?",
			rx:       "\n",
			expected: []byte{0x80, 0x81, 0x82, 0x83},
			rest:     "*IDN?",
		},
		{
			name:     "Leading whitespace",
			input:    " #211hello world\n",
			rx:       "\n",
			expected: []byte("hello world"),
		},
		{
			name:     "Indefinite block",
			input:    "#0abc\n",
			rx:       "\n",
			expected: []byte("abc"),
		},
		{
			name:        "Missing header",
			input:       "abc",
			rx:          "\n",
			expectError: true,
		},
		{
			name:        "Bad digit",
			input:       "#x12",
			rx:          "\n",
			expectError: true,
		},
		{
			name:        "Missing terminator",
			input:       "#13abc",
			rx:          "\n",
			expectError: true,
		},
		{
			name:        "Wrong terminator",
			input:       "#13abcX",
			rx:          "\n",
			expectError: true,
		},
		{
			name:        "Truncated data",
			input:       "#15abc",
			rx:          "\n",
			expectError: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := bufio.NewReader(strings.NewReader(tc.input))
			data, err := ReadBlock(r, tc.rx)
			if tc.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, data)
			if tc.rest != "" {
				rest, _ := r.ReadString(0)
				assert.Equal(t, tc.rest, rest)
			}
		})
	}
}

func TestSessionQueryBlock(t *testing.T) {
	m := NewMock(Terminators{Tx: "\n", Rx: "\n"}, map[string]string{
		":WAVeform:DATA?": "#15\x80\x81\x82\x83\x84",
	})
	s := newTestSession(t, m)

	data, err := s.QueryBlock(":WAVeform:DATA?")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x80, 0x81, 0x82, 0x83, 0x84}, data)
}

// chunkConn replies to each command with a fixed series of chunks, handing
// out one chunk per Read.
type chunkConn struct {
	tx      string
	replies map[string][]string
	pending []string
}

func (c *chunkConn) Write(p []byte) (int, error) {
	cmd := strings.TrimSuffix(string(p), c.tx)
	c.pending = append(c.pending, c.replies[cmd]...)
	return len(p), nil
}

func (c *chunkConn) Read(p []byte) (int, error) {
	if len(c.pending) == 0 {
		return 0, ErrTimeout
	}
	n := copy(p, c.pending[0])
	if n < len(c.pending[0]) {
		c.pending[0] = c.pending[0][n:]
	} else {
		c.pending = c.pending[1:]
	}
	return n, nil
}

func (c *chunkConn) Close() error                       { return nil }
func (c *chunkConn) SetReadTimeout(time.Duration) error { return nil }

func TestSessionQueryBlockSplitTerminator(t *testing.T) {
	large := strings.Repeat("x", 70000)
	tests := []struct {
		name     string
		chunks   []string
		expected string
	}{
		{
			name:     "Small block",
			chunks:   []string{"#14abcd", "\n"},
			expected: "abcd",
		},
		{
			name:     "Large block",
			chunks:   []string{"#570000" + large[:30000], large[30000:], "\n"},
			expected: large,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			conn := &chunkConn{tx: "\n", replies: map[string][]string{
				":WAVeform:DATA?": tc.chunks,
				"*IDN?":           {"KEYSIGHT\n"},
			}}
			s, err := NewSession(conn, Terminators{Tx: "\n", Rx: "\n"}, 0, log.New())
			require.NoError(t, err)

			data, err := s.QueryBlock(":WAVeform:DATA?")
			require.NoError(t, err)
			assert.Equal(t, tc.expected, string(data))

			resp, err := s.Query("*IDN?")
			require.NoError(t, err)
			assert.Equal(t, "KEYSIGHT", resp)
		})
	}
}

func TestPortOptionsNormalize(t *testing.T) {
	tests := []struct {
		name        string
		input       PortOptions
		expected    PortOptions
		expectError bool
	}{
		{
			name:     "Defaults",
			input:    PortOptions{},
			expected: PortOptions{BaudRate: 9600, DataBits: 8, StopBits: 1, Parity: "N"},
		},
		{
			name:     "Granville-Phillips 350",
			input:    PortOptions{BaudRate: 300, DataBits: 7, StopBits: 2, Parity: "none"},
			expected: PortOptions{BaudRate: 300, DataBits: 7, StopBits: 2, Parity: "N"},
		},
		{
			name:     "Even parity",
			input:    PortOptions{BaudRate: 19200, Parity: "even"},
			expected: PortOptions{BaudRate: 19200, DataBits: 8, StopBits: 1, Parity: "E"},
		},
		{name: "Bad data bits", input: PortOptions{DataBits: 9}, expectError: true},
		{name: "Bad stop bits", input: PortOptions{StopBits: 3}, expectError: true},
		{name: "Bad parity", input: PortOptions{Parity: "mark"}, expectError: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opts, err := tc.input.Normalize()
			if tc.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, opts)

			mode, err := tc.input.SerialMode()
			require.NoError(t, err)
			assert.Equal(t, tc.expected.BaudRate, mode.BaudRate)
			assert.Equal(t, tc.expected.DataBits, mode.DataBits)
		})
	}
}

func TestReadTimeoutMillis(t *testing.T) {
	assert.Equal(t, 1, readTimeoutMillis(0))
	assert.Equal(t, 500, readTimeoutMillis(500_000_000))
	assert.Equal(t, 3000, readTimeoutMillis(10_000_000_000))
}

func TestBlockRoundTrip(t *testing.T) {
	data := []byte{0x00, 0x80, 0xff, '\n', '#'}
	r := bufio.NewReader(strings.NewReader(Block(data) + "\n"))

	got, err := ReadBlock(r, "\n")
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, "#15", Block(data)[:3])
}

func TestPortOptionsOr(t *testing.T) {
	def := PortOptions{BaudRate: 300, DataBits: 7, StopBits: 2, Parity: "N"}

	assert.Equal(t, def, PortOptions{}.Or(def))
	assert.Equal(t,
		PortOptions{BaudRate: 9600, DataBits: 7, StopBits: 2, Parity: "E"},
		PortOptions{BaudRate: 9600, Parity: "E"}.Or(def))
}
