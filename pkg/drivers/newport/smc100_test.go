package newport

import (
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labdevices/pkg/device"
	"labdevices/pkg/transport"
)

func newTestController(t *testing.T, addr int, m *transport.Mock) *SMC100 {
	t.Helper()
	open := func() (transport.Conn, error) { return m, nil }
	s := newSMC100("stage", "test", addr, open, 0, log.New())
	require.NoError(t, s.Initialize())
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDummyGetters(t *testing.T) {
	s := NewSMC100Dummy("stage", log.New())
	require.NoError(t, s.Initialize())
	defer s.Close()

	idn, err := s.IDN()
	require.NoError(t, err)
	assert.Equal(t, "TRA25CC_PN:B183906_UD:18114", idn)

	errs, state, err := s.ErrorAndControllerStatus()
	require.NoError(t, err)
	assert.Equal(t, "0100", errs)
	assert.Equal(t, "0A", state)

	moving, err := s.IsMoving()
	require.NoError(t, err)
	assert.False(t, moving)

	code, msg, err := s.LastCommandError()
	require.NoError(t, err)
	assert.Equal(t, "@", code)
	assert.Equal(t, "No error", msg)

	pos, err := s.Position()
	require.NoError(t, err)
	assert.Equal(t, 0.0, pos)

	speed, err := s.Speed()
	require.NoError(t, err)
	assert.Equal(t, 0.4, speed)

	accel, err := s.Acceleration()
	require.NoError(t, err)
	assert.Equal(t, 1.6, accel)
}

func TestControllerAddressPrefix(t *testing.T) {
	m := transport.NewMock(serialTerm, map[string]string{"2PA?": "2PA12.5"})
	s := newTestController(t, 2, m)

	pos, err := s.Position()
	require.NoError(t, err)
	assert.Equal(t, 12.5, pos)

	require.NoError(t, s.MoveRelative(-0.25))
	require.NoError(t, s.MoveAbsolute(10))
	require.NoError(t, s.SetSpeed(0.5))
	require.NoError(t, s.SetAcceleration(2))
	require.NoError(t, s.Home())
	require.NoError(t, s.Reset())

	assert.Equal(t, []string{"2PA?", "2PR-0.25", "2PA10", "2VA0.5", "2AC2", "2OR", "2RS"}, m.Written())
}

func TestChainedControllerAddress(t *testing.T) {
	m := transport.NewMock(serialTerm, map[string]string{
		"12PA?": "12PA3.75",
		"12ID?": "12IDTRA25CC",
		"12TE":  "12TE",
	})
	s := newTestController(t, 12, m)

	pos, err := s.Position()
	require.NoError(t, err)
	assert.Equal(t, 3.75, pos)

	idn, err := s.IDN()
	require.NoError(t, err)
	assert.Equal(t, "TRA25CC", idn)
}

func TestWaitMoveFinish(t *testing.T) {
	polls := 0
	m := transport.NewMock(serialTerm, nil)
	m.Fallback = func(cmd string) (string, bool) {
		if cmd != "1TS" {
			return "", false
		}
		polls++
		if polls < 3 {
			return "1TS000028", true
		}
		return "1TS000033", true
	}
	s := newTestController(t, 1, m)

	require.NoError(t, s.WaitMoveFinish(time.Millisecond))
	assert.Equal(t, 3, polls)

	code, name, err := s.ControllerState()
	require.NoError(t, err)
	assert.Equal(t, StateReadyFromMoving, code)
	assert.Equal(t, "ready from moving", name)
}

func TestLastCommandError(t *testing.T) {
	tests := []struct {
		reply       string
		code        string
		message     string
		expectError bool
	}{
		{"1TE@", "@", "No error", false},
		{"1TEC", "C", "Parameter missing or out of range", false},
		{"1TEX", "X", "Command not allowed for CC version", false},
		{"1TEZ", "Z", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.code, func(t *testing.T) {
			s := newTestController(t, 1, transport.NewMock(serialTerm, map[string]string{"1TE": tc.reply}))

			code, msg, err := s.LastCommandError()
			if tc.expectError {
				assert.ErrorIs(t, err, device.ErrUnknownCode)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.message, msg)
			}
			assert.Equal(t, tc.code, code)
		})
	}
}

func TestShortReply(t *testing.T) {
	s := newTestController(t, 1, transport.NewMock(serialTerm, map[string]string{"1TS": "1TS0"}))

	_, _, err := s.ErrorAndControllerStatus()
	assert.ErrorIs(t, err, device.ErrUnexpectedResponse)
}

func TestCloseTwice(t *testing.T) {
	s := NewSMC100Dummy("stage", log.New())
	require.NoError(t, s.Initialize())
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}
