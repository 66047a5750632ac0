package match

import (
	"fmt"
	"math/rand"
	"testing"

	"geo-compare/internal/feature"
	"geo-compare/internal/geom"
	"geo-compare/internal/index"
	"geo-compare/internal/report"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(x, y, size float64) orb.Polygon {
	return orb.Polygon{{{x, y}, {x + size, y}, {x + size, y + size}, {x, y + size}, {x, y}}}
}

func rec(id feature.ID, g orb.Geometry) feature.Record {
	return feature.Record{ID: id, Geometry: geom.New(g), Attributes: map[string]any{"id": id}}
}

func classify(kind feature.Kind, opts Options, old, new []feature.Record) *report.Report {
	return New(kind, opts).Classify(index.Build(old), index.Build(new))
}

func assertDisjoint(t *testing.T, r *report.Report) {
	t.Helper()
	seen := map[feature.ID]string{}
	for name, ids := range map[string][]feature.ID{"added": r.Added, "deleted": r.Deleted, "modified": r.Modified} {
		for _, id := range ids {
			prev, dup := seen[id]
			assert.False(t, dup, "id %v in %s and %s", id, prev, name)
			seen[id] = name
		}
	}
}

func TestDisjointIdentifiers(t *testing.T) {
	old := []feature.Record{
		rec("a", square(0, 0, 1)),
		rec("b", square(10, 0, 1)),
		rec("c", square(20, 0, 1)),
	}
	new := []feature.Record{
		rec("b", square(10, 0, 1)),
		rec("c", square(20, 0, 2)),
		rec("d", square(30, 0, 1)),
	}
	r := classify(feature.KindPolygon, Options{}, old, new)
	assert.Equal(t, []feature.ID{"d"}, r.Added)
	assert.Equal(t, []feature.ID{"a"}, r.Deleted)
	assert.Equal(t, []feature.ID{"c"}, r.Modified)
	assert.Equal(t, 1, r.Diagnostics.Unchanged)
	assert.Empty(t, r.Rescued)
	assertDisjoint(t, r)
}

func TestIdempotent(t *testing.T) {
	old := []feature.Record{rec(1, square(0, 0, 1)), rec(2, square(5, 5, 1)), rec(3, square(9, 9, 1))}
	new := []feature.Record{rec(2, square(5, 5, 2)), rec(4, square(0, 0, 1)), rec(5, square(50, 50, 1))}
	first := classify(feature.KindPolygon, Options{}, old, new)
	second := classify(feature.KindPolygon, Options{}, old, new)
	assert.Equal(t, first, second)
}

func TestSwapSymmetry(t *testing.T) {
	old := []feature.Record{rec("a", square(0, 0, 1)), rec("b", square(10, 0, 1)), rec("c", square(20, 0, 1))}
	new := []feature.Record{rec("b", square(10, 0, 3)), rec("c", square(20, 0, 1)), rec("d", square(30, 0, 1))}
	fwd := classify(feature.KindPolygon, Options{}, old, new)
	rev := classify(feature.KindPolygon, Options{}, new, old)
	assert.Equal(t, fwd.Added, rev.Deleted)
	assert.Equal(t, fwd.Deleted, rev.Added)
	assert.ElementsMatch(t, fwd.Modified, rev.Modified)
}

func TestRescueMatchModifiedPolicy(t *testing.T) {
	g := square(0, 0, 1)
	r := classify(feature.KindPolygon, Options{Policy: RescueModified}, []feature.Record{rec(1, g)}, []feature.Record{rec(2, g)})
	assert.Equal(t, []feature.ID{2}, r.Modified)
	assert.Empty(t, r.Added)
	assert.Empty(t, r.Deleted)
	assert.Equal(t, []report.Pair{{OldID: 1, NewID: 2}}, r.Rescued)
	assert.Equal(t, 1, r.Diagnostics.Rescued)
}

func TestRescueMatchUnchangedPolicy(t *testing.T) {
	g := square(0, 0, 1)
	r := classify(feature.KindPolygon, Options{Policy: RescueUnchanged}, []feature.Record{rec(1, g)}, []feature.Record{rec(2, g)})
	assert.Empty(t, r.Modified)
	assert.Empty(t, r.Added)
	assert.Empty(t, r.Deleted)
	assert.Equal(t, 1, r.Diagnostics.Unchanged)
}

func TestRescueFirstFit(t *testing.T) {
	g := square(0, 0, 1)
	old := []feature.Record{rec("o1", g), rec("o2", g)}
	new := []feature.Record{rec("n1", square(3, 3, 1)), rec("n2", g), rec("n3", g), rec("n4", g)}
	r := classify(feature.KindPolygon, Options{}, old, new)
	assert.Equal(t, []report.Pair{{OldID: "o1", NewID: "n2"}, {OldID: "o2", NewID: "n3"}}, r.Rescued)
	assert.Equal(t, []feature.ID{"n1", "n4"}, r.Added)
	assert.Empty(t, r.Deleted)
	assert.Equal(t, []feature.ID{"n2", "n3"}, r.Modified)
	assertDisjoint(t, r)
}

func TestNullGeometryOnCommonIDIsSkipped(t *testing.T) {
	old := []feature.Record{rec("a", square(0, 0, 1)), rec("b", square(5, 5, 1))}
	new := []feature.Record{rec("a", nil), rec("b", square(5, 5, 2))}
	r := classify(feature.KindPolygon, Options{}, old, new)
	assert.Equal(t, []feature.ID{"b"}, r.Modified)
	assert.Empty(t, r.Added)
	assert.Empty(t, r.Deleted)
	assert.Equal(t, 1, r.Diagnostics.SkippedInvalidGeometry)
	assert.Equal(t, 1, r.Diagnostics.InvalidCommon)
	require.Len(t, r.Skips, 1)
	assert.Equal(t, report.Skip{ID: "a", Side: report.SideNew, Bucket: report.BucketCommon, Reason: report.ReasonNullGeometry}, r.Skips[0])
}

func TestInvalidGeometryExcludedFromAddedAndDeleted(t *testing.T) {
	bowtie := orb.Polygon{{{0, 0}, {2, 2}, {2, 0}, {0, 2}, {0, 0}}}
	old := []feature.Record{rec("gone", bowtie), rec("gone-null", nil)}
	new := []feature.Record{rec("fresh", bowtie)}
	r := classify(feature.KindPolygon, Options{}, old, new)
	assert.Empty(t, r.Added)
	assert.Empty(t, r.Deleted)
	assert.Empty(t, r.Modified)
	assert.Equal(t, 2, r.Diagnostics.InvalidDeleted)
	assert.Equal(t, 1, r.Diagnostics.InvalidAdded)
	assert.Equal(t, 3, r.Diagnostics.SkippedInvalidGeometry)
}

func TestPointTolerance(t *testing.T) {
	old := []feature.Record{rec("near", orb.Point{0, 0}), rec("far", orb.Point{1, 1})}
	new := []feature.Record{rec("near", orb.Point{9e-7, 0}), rec("far", orb.Point{1 + 2e-6, 1})}
	r := classify(feature.KindPoint, Options{}, old, new)
	assert.Equal(t, []feature.ID{"far"}, r.Modified)
	assert.Equal(t, 1, r.Diagnostics.Unchanged)
}

func TestScenarioAdded(t *testing.T) {
	poly1 := square(0, 0, 1)
	poly2 := square(5, 5, 1)
	r := classify(feature.KindPolygon, Options{}, []feature.Record{rec("A", poly1)}, []feature.Record{rec("A", poly1), rec("B", poly2)})
	assert.Equal(t, []feature.ID{"B"}, r.Added)
	assert.Empty(t, r.Deleted)
	assert.Empty(t, r.Modified)
}

func TestScenarioDeleted(t *testing.T) {
	r := classify(feature.KindPolygon, Options{}, []feature.Record{rec("A", square(0, 0, 1))}, nil)
	assert.Empty(t, r.Added)
	assert.Equal(t, []feature.ID{"A"}, r.Deleted)
	assert.Empty(t, r.Modified)
}

func TestNullIDsAndDuplicatesReported(t *testing.T) {
	old := []feature.Record{rec(nil, square(0, 0, 1)), rec("a", square(0, 0, 1)), rec("a", square(0, 0, 1))}
	new := []feature.Record{rec("", square(0, 0, 1)), rec("", square(1, 1, 1)), rec("a", square(0, 0, 1))}
	r := classify(feature.KindPolygon, Options{}, old, new)
	assert.Equal(t, 1, r.Diagnostics.SkippedNullIDOld)
	assert.Equal(t, 2, r.Diagnostics.SkippedNullIDNew)
	assert.Equal(t, 1, r.Diagnostics.DuplicateIDsOld)
	assert.Equal(t, 0, r.Diagnostics.DuplicateIDsNew)
	assert.True(t, r.Empty())
}

func TestParseRescuePolicy(t *testing.T) {
	p, ok := ParseRescuePolicy("Unchanged")
	assert.True(t, ok)
	assert.Equal(t, RescueUnchanged, p)
	p, ok = ParseRescuePolicy("")
	assert.True(t, ok)
	assert.Equal(t, RescueModified, p)
	_, ok = ParseRescuePolicy("best-fit")
	assert.False(t, ok)
	assert.Equal(t, "modified", RescueModified.String())
}

// 空间索引与线性扫描必须给出完全相同的首个匹配结果
func TestSpatialIndexMatchesLinearScan(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	shapes := make([]orb.Polygon, 40)
	for i := range shapes {
		shapes[i] = square(float64(rnd.Intn(10)), float64(rnd.Intn(10)), 1)
	}
	var old, new []feature.Record
	for i := 0; i < 150; i++ {
		old = append(old, rec(fmt.Sprintf("o%d", i), shapes[rnd.Intn(len(shapes))]))
		new = append(new, rec(fmt.Sprintf("n%d", i), shapes[rnd.Intn(len(shapes))]))
	}
	linear := classify(feature.KindPolygon, Options{SpatialThreshold: 0}, old, new)
	spatial := classify(feature.KindPolygon, Options{SpatialThreshold: 1}, old, new)
	assert.NotEmpty(t, linear.Rescued)
	assert.Equal(t, linear, spatial)
}

func TestSpatialIndexPoints(t *testing.T) {
	var old, new []feature.Record
	for i := 0; i < 100; i++ {
		x := float64(i % 10)
		y := float64(i / 10)
		old = append(old, rec(fmt.Sprintf("o%d", i), orb.Point{x, y}))
		new = append(new, rec(fmt.Sprintf("n%d", i), orb.Point{x + 5e-7, y}))
	}
	new = append(new, rec("moved", orb.Point{100, 100}))
	linear := classify(feature.KindPoint, Options{SpatialThreshold: 0}, old, new)
	spatial := classify(feature.KindPoint, Options{SpatialThreshold: 10}, old, new)
	assert.Len(t, linear.Rescued, 100)
	assert.Equal(t, []feature.ID{"moved"}, linear.Added)
	assert.Equal(t, linear, spatial)
}
