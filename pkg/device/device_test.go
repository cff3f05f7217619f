package device

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInfoUniqueID(t *testing.T) {
	a := NewInfo("scope", "Keysight", "DSOX3034T", "10.0.0.84")
	b := NewInfo("other name", "Keysight", "DSOX3034T", "10.0.0.84")
	c := NewInfo("scope", "Keysight", "DSOX3034T", "10.0.0.85")

	assert.Equal(t, a.UniqueID, b.UniqueID)
	assert.NotEqual(t, a.UniqueID, c.UniqueID)
	assert.Len(t, a.UniqueID, 36)
}

func TestParseHelpers(t *testing.T) {
	f, err := ParseFloat("delay", " +0.001000000000\r\n")
	require.NoError(t, err)
	assert.Equal(t, 0.001, f)

	i, err := ParseInt("sampling", " 501")
	require.NoError(t, err)
	assert.Equal(t, 501, i)

	values, err := ParseFloats("trace", "1.5,-2,3e2", ",")
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, -2, 300}, values)

	_, err = ParseFloats("trace", "1.5,,3", ",")
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "trace", perr.Field)
	assert.True(t, errors.Is(err, strconv.ErrSyntax))
}
