package engine

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapForOrb(t *testing.T) {
	for _, name := range []string{"", "orb", "ORB"} {
		wrap, err := WrapFor(name)
		require.NoError(t, err, name)
		g, err := wrap(orb.Point{1, 2})
		require.NoError(t, err)
		assert.Equal(t, orb.Point{1, 2}, g.Orb())
	}
}

func TestWrapForUnknown(t *testing.T) {
	_, err := WrapFor("jts")
	assert.EqualError(t, err, `unknown geometry engine "jts"`)
}
