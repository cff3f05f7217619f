package rohdeschwarz

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

func TestOscilloscopeAddress(t *testing.T) {
	tests := []struct {
		name        string
		address     string
		expectError bool
	}{
		{"IP address", "10.0.0.90", false},
		{"usbtmc node", "/dev/usbtmc0", false},
		{"VISA resource", "USB0::0x0AAD::0x01D6::000000::INSTR", true},
		{"Hostname", "scope.lab", true},
		{"Empty", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewOscilloscope("scope", tc.address, 0, log.New())
			if tc.expectError {
				assert.ErrorIs(t, err, device.ErrInvalidAddress)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFPC1000Trace(t *testing.T) {
	fpc := NewFPC1000Dummy("fpc", log.New())
	require.NoError(t, fpc.Initialize())
	defer fpc.Close()

	tr, err := fpc.Trace()
	require.NoError(t, err)

	require.Len(t, tr.Voltage, 201)
	require.Len(t, tr.Time, 201)
	assert.Equal(t, 181e6, tr.Time[0])
	assert.Equal(t, 281e6, tr.Time[200])
	assert.InDelta(t, 231e6, tr.Time[100], 1e-3)
}

func TestFPC1000SystemAlarms(t *testing.T) {
	fpc := NewFPC1000Dummy("fpc", log.New())
	require.NoError(t, fpc.Initialize())
	defer fpc.Close()

	alarms, err := fpc.SystemAlarms()
	require.NoError(t, err)
	assert.Equal(t, "0,'No error'", alarms)
}

func TestOscilloscopeMeasurements(t *testing.T) {
	m := newOscilloscopeMock()
	scope := newOscilloscope("scope", dummyAddress, mockOpener(m), 0, log.New())
	require.NoError(t, scope.Initialize())
	defer scope.Close()

	for _, measure := range []func(int) (float64, error){scope.VoltAverage, scope.VoltMax, scope.VoltPeakPeak} {
		v, err := measure(2)
		require.NoError(t, err)
		assert.Equal(t, 0.1, v)
	}

	assert.Equal(t, []string{
		"MEASurement:SOURce CH2; MEASurement:MAIN MEAN",
		"MEASurement:RESult?",
		"MEASurement:SOURce CH2; MEASurement:MAIN UPEakvalue",
		"MEASurement:RESult?",
		"MEASurement:SOURce CH2; MEASurement:MAIN PEAK",
		"MEASurement:RESult?",
	}, m.Written())
}

func TestOscilloscopeTrace(t *testing.T) {
	scope := NewOscilloscopeDummy("scope", log.New())
	require.NoError(t, scope.Initialize())
	defer scope.Close()

	h, err := scope.Header(1)
	require.NoError(t, err)
	assert.Equal(t, 1200, h.Points)
	assert.Equal(t, 1, h.ValuesPerSample)

	tr, err := scope.Trace(1)
	require.NoError(t, err)
	require.Len(t, tr.Voltage, 1200)
	require.Len(t, tr.Time, 1200)
	assert.Equal(t, -3e-8, tr.Time[0])
	assert.InDelta(t, 2.995e-8, tr.Time[1199], 1e-20)
}

func TestOscilloscopeScreenshot(t *testing.T) {
	m := newOscilloscopeMock()
	scope := newOscilloscope("scope", dummyAddress, mockOpener(m), 0, log.New())
	require.NoError(t, scope.Initialize())
	defer scope.Close()

	img, err := scope.Screenshot()
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(img))
	assert.NoError(t, err)

	require.NoError(t, scope.SetTimeScale(1e-9))
	assert.Equal(t, []string{"HCOPy:LANG PNG", "HCOPy:DATA?", ":TIMebase:SCALe 1e-09"}, m.Written())
}

func TestQueryStripsPadding(t *testing.T) {
	term := transport.Terminators{Tx: "\n", Rx: "\n"}
	m := transport.NewMock(term, map[string]string{"*IDN?": "Rohde&Schwarz,RTB2004\x00\x00"})
	scope := newOscilloscope("scope", dummyAddress, mockOpener(m), 0, log.New())
	require.NoError(t, scope.Initialize())

	idn, err := scope.IDN()
	require.NoError(t, err)
	assert.Equal(t, "Rohde&Schwarz,RTB2004", idn)
}

func TestCloseNeverOpened(t *testing.T) {
	assert.NoError(t, NewFPC1000Dummy("fpc", log.New()).Close())
	assert.NoError(t, NewOscilloscopeDummy("scope", log.New()).Close())
}
