//go:build geos

package geosgeom

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wrap(t *testing.T, g orb.Geometry) *Shape {
	t.Helper()
	w, err := Wrap(g)
	require.NoError(t, err)
	return w.(*Shape)
}

func TestNull(t *testing.T) {
	s := wrap(t, nil)
	assert.True(t, s.IsNull())
	assert.False(t, s.IsValid())
	assert.Nil(t, s.Orb())
}

func TestValidity(t *testing.T) {
	ok := wrap(t, orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}})
	assert.True(t, ok.IsValid())
	bowtie := wrap(t, orb.Polygon{{{0, 0}, {2, 2}, {2, 0}, {0, 2}, {0, 0}}})
	assert.False(t, bowtie.IsValid())
}

func TestEqualsIgnoresCollinearVertex(t *testing.T) {
	a := wrap(t, orb.Polygon{{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}}})
	b := wrap(t, orb.Polygon{{{0, 0}, {1, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}}})
	assert.True(t, a.Equals(b))
}

func TestDistance(t *testing.T) {
	a := wrap(t, orb.Point{0, 0})
	b := wrap(t, orb.Point{0, 2e-6})
	assert.InDelta(t, 2e-6, a.Distance(b), 1e-12)
}
