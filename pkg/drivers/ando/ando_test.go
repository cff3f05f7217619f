package ando

import (
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labdevices/pkg/device"
	"labdevices/pkg/transport"
)

func newTestAnalyzer(t *testing.T, m *transport.Mock) *SpectrumAnalyzer {
	t.Helper()
	open := func() (transport.Conn, error) { return m, nil }
	s := newSpectrumAnalyzer("ando", "test", open, 0, log.New())
	require.NoError(t, s.Initialize())
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDummyGetters(t *testing.T) {
	s := NewSpectrumAnalyzerDummy("ando", log.New())
	require.NoError(t, s.Initialize())
	defer s.Close()

	smpl, err := s.Sampling()
	require.NoError(t, err)
	assert.Equal(t, 501, smpl)

	center, err := s.Center()
	require.NoError(t, err)
	assert.Equal(t, 1050.0, center)

	span, err := s.Span()
	require.NoError(t, err)
	assert.Equal(t, 1300.0, span)

	ana, err := s.Analysis()
	require.NoError(t, err)
	assert.Equal(t, Analysis{CenterWavelength: 490.808, Bandwidth: 94.958, Modes: 19}, ana)

	code, name, err := s.MeasurementMode()
	require.NoError(t, err)
	assert.Equal(t, ModeCW, code)
	assert.Equal(t, "cw", name)

	code, name, err = s.TriggerMode()
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, "peak hold", name)
}

func TestData(t *testing.T) {
	m := newDummyMock()
	s := newTestAnalyzer(t, m)

	x, err := s.XData()
	require.NoError(t, err)
	assert.Len(t, x, chunkSize*chunkCount)
	assert.Equal(t, 400.0, x[0])
	assert.Equal(t, 424.7, x[19])

	written := m.Written()
	assert.Equal(t, "WDATA R1-R20", written[0])
	assert.Equal(t, "WDATA R981-R1000", written[len(written)-1])

	tr, err := s.Trace()
	require.NoError(t, err)
	assert.Len(t, tr.Voltage, 1000)
	assert.Equal(t, -75.28, tr.Voltage[4])
}

func TestSetSampling(t *testing.T) {
	tests := []struct {
		points      int
		expectError bool
	}{
		{10, true},
		{11, false},
		{501, false},
		{1001, false},
		{1002, true},
	}

	m := newDummyMock()
	s := newTestAnalyzer(t, m)

	for _, tc := range tests {
		err := s.SetSampling(tc.points)
		if tc.expectError {
			assert.ErrorIs(t, err, device.ErrOutOfRange, "points %d", tc.points)
		} else {
			assert.NoError(t, err, "points %d", tc.points)
		}
	}
	assert.Equal(t, []string{"SMPL11", "SMPL501", "SMPL1001"}, m.Written())
}

func TestSetters(t *testing.T) {
	m := newDummyMock()
	s := newTestAnalyzer(t, m)

	require.NoError(t, s.SetCenter(1550))
	require.NoError(t, s.SetSpan(20.5))
	require.NoError(t, s.SetMeasurementMode(ModePulsed))
	require.NoError(t, s.SetMeasurementMode(ModeCW))
	assert.ErrorIs(t, s.SetMeasurementMode(2), device.ErrOutOfRange)
	require.NoError(t, s.SetPeakHold(38))
	require.NoError(t, s.Sweep())
	require.NoError(t, s.WaitSweep(time.Millisecond))

	assert.Equal(t, []string{
		"CTRWL1550.000000",
		"SPAN20.500000",
		"PLMES",
		"CLMES",
		"PKHLD38",
		"SGL",
		"SWEEP?",
	}, m.Written())
}

func TestWaitSweepPolls(t *testing.T) {
	polls := 0
	m := transport.NewMock(gpibTerm, nil)
	m.Fallback = func(cmd string) (string, bool) {
		if cmd != "SWEEP?" {
			return "", false
		}
		polls++
		if polls < 3 {
			return "1", true
		}
		return "0", true
	}
	s := newTestAnalyzer(t, m)

	require.NoError(t, s.WaitSweep(time.Millisecond))
	assert.Equal(t, 3, polls)
}

func TestUnknownTriggerMode(t *testing.T) {
	m := transport.NewMock(gpibTerm, map[string]string{"PLMOD?": "   38"})
	s := newTestAnalyzer(t, m)

	code, _, err := s.TriggerMode()
	assert.ErrorIs(t, err, device.ErrUnknownCode)
	assert.Equal(t, 38, code)
}

func TestAnalysisUnavailable(t *testing.T) {
	m := transport.NewMock(gpibTerm, map[string]string{"ANA?": "0"})
	s := newTestAnalyzer(t, m)

	_, err := s.Analysis()
	assert.ErrorIs(t, err, device.ErrUnexpectedResponse)
}

func TestNotConnected(t *testing.T) {
	s := NewSpectrumAnalyzerDummy("ando", log.New())
	assert.NoError(t, s.Close())

	_, err := s.Sampling()
	assert.ErrorIs(t, err, device.ErrNotConnected)
}
