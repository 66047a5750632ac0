package index

import (
	"math"
	"testing"

	"geo-compare/internal/feature"
	"geo-compare/internal/geom"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(id feature.ID, x float64) feature.Record {
	return feature.Record{ID: id, Geometry: geom.New(orb.Point{x, 0}), Attributes: map[string]any{"x": x}}
}

func TestBuildSkipsNullIDs(t *testing.T) {
	ix := Build([]feature.Record{rec("a", 1), rec(nil, 2), rec("", 3), rec("b", 4)})
	assert.Equal(t, 2, ix.Skipped)
	assert.Equal(t, 2, ix.Len())
	assert.Equal(t, []feature.ID{"a", "b"}, ix.IDs())
	assert.False(t, ix.Has(""))
}

func TestBuildLastWriteWins(t *testing.T) {
	ix := Build([]feature.Record{rec("a", 1), rec("b", 2), rec("a", 3), rec("a", 5)})
	r, ok := ix.Get("a")
	require.True(t, ok)
	assert.Equal(t, 5.0, r.Attributes["x"])
	assert.Equal(t, 0, ix.Position("a"))
	assert.Equal(t, 1, ix.Position("b"))
	assert.Equal(t, []feature.ID{"a"}, ix.Duplicates)
	assert.Equal(t, 2, ix.Len())
}

func TestIdentifiersAreNotNormalized(t *testing.T) {
	ix := Build([]feature.Record{rec("1", 1), rec(float64(1), 2), rec(1, 3)})
	assert.Equal(t, 3, ix.Len())
	assert.Equal(t, -1, ix.Position("missing"))
}

func TestIDsIsACopy(t *testing.T) {
	ix := Build([]feature.Record{rec("a", 1)})
	ids := ix.IDs()
	ids[0] = "z"
	assert.Equal(t, []feature.ID{"a"}, ix.IDs())
}

func TestBuildSkipsNaNIDs(t *testing.T) {
	ix := Build([]feature.Record{rec(math.NaN(), 1), rec(1.0, 2), rec(math.NaN(), 3)})
	assert.Equal(t, 2, ix.Skipped)
	assert.Equal(t, 1, ix.Len())
	assert.Equal(t, []feature.ID{1.0}, ix.IDs())
}
