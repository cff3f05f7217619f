package keysight

import (
	"bytes"
	"image/png"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labdevices/pkg/device"
	"labdevices/pkg/transport"
)

func mockOpener(m *transport.Mock) transport.Opener {
	return func() (transport.Conn, error) { return m, nil }
}

func TestOscilloscopeDummyMeasurements(t *testing.T) {
	scope := NewOscilloscopeDummy("scope", log.New())
	require.NoError(t, scope.Initialize())
	defer scope.Close()

	tests := []struct {
		name    string
		measure func(int) (float64, error)
	}{
		{"VoltAverage", scope.VoltAverage},
		{"VoltMax", scope.VoltMax},
		{"VoltPeakPeak", scope.VoltPeakPeak},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v, err := tc.measure(1)
			require.NoError(t, err)
			assert.Equal(t, 0.1, v)
		})
	}
}

func TestOscilloscopeMeasureCommands(t *testing.T) {
	m := newOscilloscopeMock()
	scope := newOscilloscope("scope", dummyAddress, mockOpener(m), 0, log.New())
	require.NoError(t, scope.Initialize())

	_, err := scope.VoltPeakPeak(3)
	require.NoError(t, err)
	require.NoError(t, scope.SetTimeScale(0.002))

	assert.Equal(t, []string{
		":MEASure:SOURce CHANnel3",
		":MEASure:VPP?",
		":TIMebase:SCALe 0.002",
	}, m.Written())
}

func TestOscilloscopePreamble(t *testing.T) {
	scope := NewOscilloscopeDummy("scope", log.New())
	require.NoError(t, scope.Initialize())
	defer scope.Close()

	pre, err := scope.Preamble(1)
	require.NoError(t, err)
	assert.Equal(t, 64516, pre.Points)
	assert.Equal(t, 128.0, pre.YReference)
}

func TestOscilloscopeTrace(t *testing.T) {
	m := newOscilloscopeMock()
	scope := newOscilloscope("scope", dummyAddress, mockOpener(m), 0, log.New())
	require.NoError(t, scope.Initialize())
	defer scope.Close()

	tr, err := scope.Trace(1)
	require.NoError(t, err)

	// The preamble claims 64516 points, the block holds 1000 samples.
	assert.Len(t, tr.Time, 1000)
	assert.Len(t, tr.Voltage, 1000)
	assert.Equal(t, -0.5, tr.Time[0])
	assert.InDelta(t, 0.0, tr.Voltage[0], 1e-12)

	written := m.Written()
	assert.Equal(t, ":ACQuire:TYPE NORMal", written[0])
	assert.Equal(t, ":WAVeform:FORMat BYTE", written[3])
	assert.Equal(t, ":TIMebase:SCALe +1.00000000E-03", written[len(written)-1])
}

func TestOscilloscopeScreenshot(t *testing.T) {
	scope := NewOscilloscopeDummy("scope", log.New())
	require.NoError(t, scope.Initialize())
	defer scope.Close()

	img, err := scope.Screenshot()
	require.NoError(t, err)

	_, err = png.Decode(bytes.NewReader(img))
	assert.NoError(t, err)
}

func TestOscilloscopeNotConnected(t *testing.T) {
	scope := NewOscilloscopeDummy("scope", log.New())

	assert.NoError(t, scope.Close())
	_, err := scope.VoltAverage(1)
	assert.ErrorIs(t, err, device.ErrNotConnected)
	_, err = scope.Trace(1)
	assert.ErrorIs(t, err, device.ErrNotConnected)

	require.NoError(t, scope.Initialize())
	require.NoError(t, scope.Close())
	assert.NoError(t, scope.Close())
}

func TestCounterDummy(t *testing.T) {
	m := newCounterMock()
	counter := newCounter("counter", dummyAddress, mockOpener(m), 0, log.New())
	require.NoError(t, counter.Initialize())
	defer counter.Close()

	gate, err := counter.GateTime()
	require.NoError(t, err)
	assert.Equal(t, 0.1, gate)

	src, err := counter.TriggerSource()
	require.NoError(t, err)
	assert.Equal(t, "IMM", src)

	require.NoError(t, counter.SetGateTime(0.5))
	require.NoError(t, counter.StartFrequencyMeasurement())

	f, err := counter.ReadFrequencyMeasurement()
	require.NoError(t, err)
	assert.Equal(t, 300000.314776433, f)

	f, err = counter.MeasureFrequency()
	require.NoError(t, err)
	assert.Equal(t, 10.0, f)

	assert.Contains(t, m.Written(), "FREQuency:GATE:TIME 0.5")
	assert.Contains(t, m.Written(), "INITiate")
}

func TestCounterDummyIDN(t *testing.T) {
	counter := NewCounterDummy("counter", log.New())
	require.NoError(t, counter.Initialize())
	defer counter.Close()

	idn, err := counter.IDN()
	require.NoError(t, err)
	assert.Contains(t, idn, "53230A")
}
