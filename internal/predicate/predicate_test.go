package predicate

import (
	"testing"

	"geo-compare/internal/feature"
	"geo-compare/internal/geom"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func TestNewTolerance(t *testing.T) {
	assert.Equal(t, PointTolerance, New(feature.KindPoint).Tolerance)
	assert.Equal(t, 0.0, New(feature.KindPolygon).Tolerance)
	assert.Equal(t, 0.0, New(feature.KindLine).Tolerance)
}

func TestComparePointTolerance(t *testing.T) {
	p := New(feature.KindPoint)
	origin := geom.New(orb.Point{0, 0})
	assert.Equal(t, Equal, p.Compare(origin, geom.New(orb.Point{9e-7, 0})))
	assert.Equal(t, Equal, p.Compare(origin, geom.New(orb.Point{0, 0})))
	assert.Equal(t, Different, p.Compare(origin, geom.New(orb.Point{2e-6, 0})))
}

func TestComparePolygonExact(t *testing.T) {
	p := New(feature.KindPolygon)
	a := geom.New(orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}})
	b := geom.New(orb.Polygon{{{1, 0}, {1, 1}, {0, 1}, {0, 0}, {1, 0}}})
	c := geom.New(orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1.0000001}, {0, 0}}})
	assert.Equal(t, Equal, p.Compare(a, b))
	assert.Equal(t, Different, p.Compare(a, c))
}

func TestCompareLine(t *testing.T) {
	p := New(feature.KindLine)
	a := geom.New(orb.LineString{{0, 0}, {5, 5}})
	assert.Equal(t, Equal, p.Compare(a, geom.New(orb.LineString{{5, 5}, {0, 0}})))
	assert.Equal(t, Different, p.Compare(a, geom.New(orb.LineString{{0, 0}, {5, 6}})))
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "equal", Equal.String())
	assert.Equal(t, "different", Different.String())
}
