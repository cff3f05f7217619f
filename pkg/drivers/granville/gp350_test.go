package granville

import (
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labdevices/pkg/device"
	"labdevices/pkg/transport"
)

func newTestGauge(t *testing.T, m *transport.Mock) *GP350 {
	t.Helper()
	open := func() (transport.Conn, error) { return m, nil }
	g := newGP350("ion gauge", "test", open, 0, log.New())
	require.NoError(t, g.Initialize())
	t.Cleanup(func() { g.Close() })
	return g
}

func TestDummyGetters(t *testing.T) {
	g := NewGP350Dummy("ion gauge", log.New())

	_, err := g.IDN()
	assert.ErrorIs(t, err, device.ErrNotConnected)

	require.NoError(t, g.Initialize())
	defer g.Close()

	idn, err := g.IDN()
	require.NoError(t, err)
	assert.Equal(t, identity, idn)

	p, err := g.Pressure()
	require.NoError(t, err)
	assert.Equal(t, 1.2e-9, p)

	degas, err := g.DegasStatus()
	require.NoError(t, err)
	assert.False(t, degas)

	readings, err := g.Readings()
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"pressure": 1.2e-9}, readings)
}

func TestSwitches(t *testing.T) {
	m := newDummyMock()
	g := newTestGauge(t, m)

	require.NoError(t, g.Degas(true))
	require.NoError(t, g.Degas(false))
	require.NoError(t, g.Filament(1, true))
	require.NoError(t, g.Filament(2, false))
	assert.ErrorIs(t, g.Filament(3, true), device.ErrOutOfRange)

	assert.Equal(t, []string{"DG ON", "DG OFF", "IG1 ON", "IG2 OFF"}, m.Written())
}

func TestInvalidReply(t *testing.T) {
	g := newTestGauge(t, transport.NewMock(serialTerm, map[string]string{
		"IG1 ON": "INVALID",
		"DG ON":  "???",
	}))

	assert.ErrorIs(t, g.Filament(1, true), device.ErrNegativeAcknowledge)
	assert.ErrorIs(t, g.Degas(true), device.ErrUnexpectedResponse)
}
