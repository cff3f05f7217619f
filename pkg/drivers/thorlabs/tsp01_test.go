package thorlabs

import (
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labdevices/pkg/device"
	"labdevices/pkg/transport"
)

func TestDummyGetters(t *testing.T) {
	s := NewTSP01Dummy("climate", log.New())
	require.NoError(t, s.Initialize())
	defer s.Close()

	idn, err := s.IDN()
	require.NoError(t, err)
	assert.Equal(t, "Thorlabs,TSP01,M00416749,1.2.0", idn)

	tests := []struct {
		name     string
		read     func() (float64, error)
		expected float64
	}{
		{"TemperatureUSB", s.TemperatureUSB, 23.973883},
		{"HumidityUSB", s.HumidityUSB, 25.24333},
		{"Probe1", func() (float64, error) { return s.TemperatureProbe(1) }, 21.78577},
		{"Probe2", func() (float64, error) { return s.TemperatureProbe(2) }, 21.43771},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v, err := tc.read()
			require.NoError(t, err)
			assert.Equal(t, tc.expected, v)
		})
	}

	_, err = s.TemperatureProbe(3)
	assert.ErrorIs(t, err, device.ErrOutOfRange)
}

func TestListReply(t *testing.T) {
	m := transport.NewMock(usbTerm, map[string]string{":READ?": "+2.31E+01,+2.30E+01"})
	open := func() (transport.Conn, error) { return m, nil }
	s := newTSP01("climate", "test", open, 0, log.New())
	require.NoError(t, s.Initialize())
	defer s.Close()

	v, err := s.TemperatureUSB()
	require.NoError(t, err)
	assert.Equal(t, 23.1, v)
}

func TestReadings(t *testing.T) {
	s := NewTSP01Dummy("climate", log.New())
	require.NoError(t, s.Initialize())
	defer s.Close()

	readings, err := s.Readings()
	require.NoError(t, err)
	assert.Len(t, readings, 4)
	assert.Equal(t, 25.24333, readings["humidity"])
}

func TestNotConnected(t *testing.T) {
	s := NewTSP01Dummy("climate", log.New())
	assert.NoError(t, s.Close())

	_, err := s.Readings()
	assert.ErrorIs(t, err, device.ErrNotConnected)
}
