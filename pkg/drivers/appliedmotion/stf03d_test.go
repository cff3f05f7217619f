package appliedmotion

import (
	"fmt"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labdevices/pkg/device"
	"labdevices/pkg/transport"
)

func newTestSTF03D(t *testing.T, m *transport.Mock) *STF03D {
	t.Helper()
	open := func() (transport.Conn, error) { return m, nil }
	s := newSTF03D("stepper", "test", open, 0, log.New())
	require.NoError(t, s.Initialize())
	t.Cleanup(func() { s.Close() })
	return s
}

func TestFrame(t *testing.T) {
	assert.Equal(t, []byte("\x00\x07SC\r"), frame("SC"))
}

func TestDummyGetters(t *testing.T) {
	s := NewSTF03DDummy("stepper", log.New())
	require.NoError(t, s.Initialize())
	defer s.Close()

	idn, err := s.IDN()
	require.NoError(t, err)
	assert.Equal(t, "100H179M", idn)

	mr, err := s.Microstep()
	require.NoError(t, err)
	assert.Equal(t, 8, mr)

	floats := []struct {
		name string
		get  func() (float64, error)
		want float64
	}{
		{"MaxCurrent", s.MaxCurrent, 1},
		{"IdleCurrent", s.IdleCurrent, 0.6},
		{"ChangeCurrent", s.ChangeCurrent, 1},
		{"Acceleration", s.Acceleration, 25},
		{"Deceleration", s.Deceleration, 25},
		{"Speed", s.Speed, 10},
	}
	for _, tc := range floats {
		t.Run(tc.name, func(t *testing.T) {
			v, err := tc.get()
			require.NoError(t, err)
			assert.Equal(t, tc.want, v)
		})
	}

	ip, err := s.ImmediateStep()
	require.NoError(t, err)
	assert.Equal(t, int32(0), ip)
}

func TestAlarmAndStatus(t *testing.T) {
	s := NewSTF03DDummy("stepper", log.New())
	require.NoError(t, s.Initialize())
	defer s.Close()

	alarms, err := s.Alarm()
	require.NoError(t, err)
	assert.Equal(t, []string{"Open Motor Winding"}, alarms)

	status, err := s.Status()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Drive Fault (check Alarm Code)",
		"In Position (motor is in position)",
		"Alarm present (check Alarm Code)",
	}, status)

	moving, err := s.IsMoving()
	require.NoError(t, err)
	assert.False(t, moving)
}

func TestDecodeBits(t *testing.T) {
	tests := []struct {
		name     string
		word     uint16
		table    map[uint16]string
		expected []string
	}{
		{"No alarm", 0, alarmCodes, []string{"No alarms"}},
		{"Two alarms", 0x0081, alarmCodes, []string{"Position Limit", "Over Current"}},
		{"Unused bit ignored", 0x2000, alarmCodes, nil},
		{"Disabled", 0, statusCodes, []string{"Motor disabled"}},
		{"Moving", 0x0010, statusCodes, []string{"Moving (motor is moving)"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, decodeBits(tc.word, tc.table))
		})
	}
}

func TestImmediateStepIsSigned(t *testing.T) {
	s := newTestSTF03D(t, newMockWith(map[string]string{"IP": "IP=FFFFFF38"}))

	ip, err := s.ImmediateStep()
	require.NoError(t, err)
	assert.Equal(t, int32(-200), ip)
}

func TestCalibrationRequired(t *testing.T) {
	s := newTestSTF03D(t, newDummyMock())

	_, err := s.ConversionFactor()
	assert.ErrorIs(t, err, device.ErrCalibrationNotSet)
	_, err = s.Position()
	assert.ErrorIs(t, err, device.ErrCalibrationNotSet)
	_, err = s.FutureMovement()
	assert.ErrorIs(t, err, device.ErrCalibrationNotSet)
	assert.ErrorIs(t, s.MoveRelative(10), device.ErrCalibrationNotSet)
	assert.ErrorIs(t, s.MoveAbsolute(10), device.ErrCalibrationNotSet)
}

func TestConversionRoundTrip(t *testing.T) {
	const unitsPerTurn = 360.0 / 96

	values := []float64{0, 1, -1, 0.37, 12.5, -359.9, 1234.567}

	for _, code := range MicrostepCodes() {
		t.Run(fmt.Sprintf("microstep %d", code), func(t *testing.T) {
			s := newTestSTF03D(t, newMockWith(map[string]string{"MR": fmt.Sprintf("MR=%d", code)}))
			s.SetCalibration(unitsPerTurn)

			factor, err := s.ConversionFactor()
			require.NoError(t, err)
			assert.Equal(t, float64(stepsPerTurn[code])/unitsPerTurn, factor)

			for _, v := range values {
				steps, err := s.UnitsToSteps(v)
				require.NoError(t, err)
				back, err := s.StepsToUnits(steps)
				require.NoError(t, err)
				assert.InDelta(t, v, back, 0.5/factor+1e-9, "value %g", v)
			}
		})
	}
}

func TestUnknownMicrostep(t *testing.T) {
	s := newTestSTF03D(t, newMockWith(map[string]string{"MR": "MR=2"}))
	s.SetCalibration(360)

	_, err := s.ConversionFactor()
	assert.ErrorIs(t, err, device.ErrUnknownCode)
	assert.ErrorIs(t, s.SetMicrostep(2), device.ErrUnknownCode)
	assert.ErrorIs(t, s.SetMicrostep(16), device.ErrUnknownCode)
}

func TestMoves(t *testing.T) {
	m := newDummyMock()
	s := newTestSTF03D(t, m)
	// MR=8 is 20000 steps per turn.
	s.SetCalibration(360)

	require.NoError(t, s.MoveRelative(90))
	require.NoError(t, s.MoveAbsolute(-18))

	pos, err := s.Position()
	require.NoError(t, err)
	assert.Equal(t, 0.0, pos)

	next, err := s.FutureMovement()
	require.NoError(t, err)
	assert.InDelta(t, 360.0, next, 1e-9)

	assert.Equal(t, []string{
		"\x00\x07MR\r", "\x00\x07DI5000\r", "\x00\x07FL\r",
		"\x00\x07MR\r", "\x00\x07DI-1000\r", "\x00\x07FP\r",
		"\x00\x07SP\r", "\x00\x07MR\r",
		"\x00\x07DI\r", "\x00\x07MR\r",
	}, m.Written())
}

func TestSetters(t *testing.T) {
	m := newDummyMock()
	s := newTestSTF03D(t, m)

	require.NoError(t, s.SetMicrostep(3))
	require.NoError(t, s.SetMaxCurrent(3))
	require.NoError(t, s.SetIdleCurrent(0.5))
	require.NoError(t, s.SetChangeCurrent(2.5))
	require.NoError(t, s.SetAcceleration(1))
	require.NoError(t, s.SetDeceleration(1))
	require.NoError(t, s.SetSpeed(2))
	require.NoError(t, s.ResetPosition())

	assert.Equal(t, []string{
		"\x00\x07MR3\r",
		"\x00\x07MC3\r",
		"\x00\x07CI0.5\r",
		"\x00\x07CC2.5\r",
		"\x00\x07AC1\r",
		"\x00\x07DE1\r",
		"\x00\x07VE2\r",
		"\x00\x07SP0\r",
	}, m.Written())
}

func TestNegativeAcknowledge(t *testing.T) {
	s := newTestSTF03D(t, newMockWith(map[string]string{"VE100": "?4"}))

	assert.ErrorIs(t, s.SetSpeed(100), device.ErrNegativeAcknowledge)
}

func TestCloseWithoutInitialize(t *testing.T) {
	s := NewSTF03DDummy("stepper", log.New())
	assert.NoError(t, s.Close())

	_, err := s.Microstep()
	assert.ErrorIs(t, err, device.ErrNotConnected)
}
