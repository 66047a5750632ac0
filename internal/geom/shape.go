// 包 geom：基于 orb 的纯 Go 几何实现，提供有效性、归一化相等与平面距离
package geom

import (
	"math"
	"sync"

	"geo-compare/internal/feature"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// 文档注释：orb 几何包装
// 背景：作为 feature.Geometry 的默认实现，无需 cgo；相等判定在归一化后逐坐标比较。
// 约束：拓扑相等覆盖环起点、方向、重复点、同向共线顶点与部件顺序差异；自交或重叠部件的等价请使用 GEOS 实现。
type Shape struct {
	g    orb.Geometry
	once sync.Once
	norm orb.Geometry
}

// New：包装 orb 几何；nil 表示空几何
func New(g orb.Geometry) *Shape { return &Shape{g: g} }

// Wrap：供适配层按引擎选择包装函数
func Wrap(g orb.Geometry) (feature.Geometry, error) { return New(g), nil }

func (s *Shape) IsNull() bool { return s == nil || s.g == nil }

func (s *Shape) IsValid() bool { return !s.IsNull() && Valid(s.g) }

func (s *Shape) Orb() orb.Geometry {
	if s == nil {
		return nil
	}
	return s.g
}

func (s *Shape) Bound() orb.Bound {
	if s.IsNull() {
		return orb.Bound{}
	}
	return s.g.Bound()
}

func (s *Shape) normalized() orb.Geometry {
	s.once.Do(func() { s.norm = Normalize(s.g) })
	return s.norm
}

// Equals：归一化后逐坐标相等
func (s *Shape) Equals(other feature.Geometry) bool {
	if s.IsNull() || other == nil || other.IsNull() {
		return false
	}
	var on orb.Geometry
	if o, ok := other.(*Shape); ok {
		on = o.normalized()
	} else {
		on = Normalize(other.Orb())
	}
	return orb.Equal(s.normalized(), on)
}

// Distance：平面最小距离；任一侧为空返回 +Inf
func (s *Shape) Distance(other feature.Geometry) float64 {
	if s.IsNull() || other == nil || other.IsNull() {
		return math.Inf(1)
	}
	return Distance(s.g, other.Orb())
}

// Distance：点/多点按逐点最小距离；其余几何按顶点到对侧的最小距离近似
func Distance(a, b orb.Geometry) float64 {
	if pa := points(a); pa != nil {
		return minDistanceFrom(b, pa)
	}
	if pb := points(b); pb != nil {
		return minDistanceFrom(a, pb)
	}
	d := minDistanceFrom(b, vertices(a))
	if d2 := minDistanceFrom(a, vertices(b)); d2 < d {
		d = d2
	}
	return d
}

func minDistanceFrom(g orb.Geometry, pts []orb.Point) float64 {
	best := math.Inf(1)
	for _, p := range pts {
		if d := planar.DistanceFrom(g, p); d < best {
			best = d
		}
	}
	return best
}

func points(g orb.Geometry) []orb.Point {
	switch v := g.(type) {
	case orb.Point:
		return []orb.Point{v}
	case orb.MultiPoint:
		return v
	}
	return nil
}

func vertices(g orb.Geometry) []orb.Point {
	var out []orb.Point
	switch v := g.(type) {
	case orb.Point:
		out = append(out, v)
	case orb.MultiPoint:
		out = append(out, v...)
	case orb.LineString:
		out = append(out, v...)
	case orb.Ring:
		out = append(out, v...)
	case orb.MultiLineString:
		for _, ls := range v {
			out = append(out, ls...)
		}
	case orb.Polygon:
		for _, r := range v {
			out = append(out, r...)
		}
	case orb.MultiPolygon:
		for _, p := range v {
			for _, r := range p {
				out = append(out, r...)
			}
		}
	case orb.Collection:
		for _, c := range v {
			out = append(out, vertices(c)...)
		}
	}
	return out
}
