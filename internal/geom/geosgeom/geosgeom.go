//go:build geos

// 包 geosgeom：GEOS 几何实现；有效性、拓扑相等与距离均由 GEOS 计算，与桌面 GIS 的判定一致
package geosgeom

import (
	"fmt"
	"math"

	"geo-compare/internal/feature"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/twpayne/go-geos"
)

// 文档注释：GEOS 几何包装
// 背景：保留原始 orb 几何用于输出与包围盒，GEOS 句柄用于谓词计算；通过 WKB 交接避免坐标拷贝误差。
// 约束：需 cgo 与 libgeos；g 为 nil 表示空几何。
type Shape struct {
	src orb.Geometry
	g   *geos.Geom
}

// Wrap：将 orb 几何转换为 GEOS 几何
func Wrap(g orb.Geometry) (feature.Geometry, error) {
	if g == nil {
		return &Shape{}, nil
	}
	b, err := wkb.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("wkb marshal: %w", err)
	}
	gg, err := geos.NewGeomFromWKB(b)
	if err != nil {
		return nil, fmt.Errorf("geos from wkb: %w", err)
	}
	return &Shape{src: g, g: gg}, nil
}

func (s *Shape) IsNull() bool { return s == nil || s.g == nil }

func (s *Shape) IsValid() bool { return !s.IsNull() && !s.g.IsEmpty() && s.g.IsValid() }

func (s *Shape) Orb() orb.Geometry {
	if s == nil {
		return nil
	}
	return s.src
}

func (s *Shape) Bound() orb.Bound {
	if s.IsNull() {
		return orb.Bound{}
	}
	return s.src.Bound()
}

func (s *Shape) Equals(other feature.Geometry) bool {
	o, ok := s.peer(other)
	if !ok {
		return false
	}
	return s.g.Equals(o)
}

func (s *Shape) Distance(other feature.Geometry) float64 {
	o, ok := s.peer(other)
	if !ok {
		return math.Inf(1)
	}
	return s.g.Distance(o)
}

// peer：取得对侧的 GEOS 句柄；对侧为其它实现时按需转换
func (s *Shape) peer(other feature.Geometry) (*geos.Geom, bool) {
	if s.IsNull() || other == nil || other.IsNull() {
		return nil, false
	}
	if o, ok := other.(*Shape); ok {
		return o.g, true
	}
	w, err := Wrap(other.Orb())
	if err != nil {
		return nil, false
	}
	return w.(*Shape).g, true
}
