// 包 feature：变化检测的最小数据模型（标识、几何、属性）；与宿主框架解耦，由适配层负责转换
package feature

import (
	"math"
	"strings"

	"github.com/paulmach/orb"
)

// ID：要素标识，承载标量值（字符串/整数/浮点/布尔）
// 约束：按动态值直接比较，不做归一化；"1" 与 1.0 视为不同标识
type ID = any

// IsNullID：判定标识是否无效（nil、空字符串、NaN 或非标量值）
// 约束：NaN 与自身不相等，作为映射键无法再取回
func IsNullID(v ID) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return false
	default:
		return true
	}
}

// 文档注释：几何抽象
// 背景：核心算法只依赖空值、有效性、相等与距离四种能力，具体实现可选纯 Go（orb）或 GEOS。
// 约束：Equals/Distance 的调用方需先过滤空几何与无效几何；Bound 用于空间候选索引。
type Geometry interface {
	IsNull() bool
	IsValid() bool
	Equals(other Geometry) bool
	Distance(other Geometry) float64
	Bound() orb.Bound
	Orb() orb.Geometry
}

// Record：一条要素记录；加载后只读
type Record struct {
	ID         ID
	Geometry   Geometry
	Attributes map[string]any
}

// HasUsableGeometry：几何非空且有效
func (r Record) HasUsableGeometry() bool {
	return r.Geometry != nil && !r.Geometry.IsNull() && r.Geometry.IsValid()
}

// Kind：几何维度类别，每次运行固定
type Kind int

const (
	KindUnknown Kind = iota
	KindPolygon
	KindLine
	KindPoint
	KindMixed
)

func (k Kind) String() string {
	switch k {
	case KindPolygon:
		return "Polygon"
	case KindLine:
		return "Line"
	case KindPoint:
		return "Point"
	case KindMixed:
		return "Mixed"
	default:
		return "Unknown"
	}
}

// ParseKind：解析几何类型参数，兼容名称与枚举序号（0 面、1 线、2 点）
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "polygon", "0":
		return KindPolygon, true
	case "line", "linestring", "1":
		return KindLine, true
	case "point", "2":
		return KindPoint, true
	}
	return KindUnknown, false
}

// KindOf：按维度归类 orb 几何；集合类型与空值返回 KindUnknown
func KindOf(g orb.Geometry) Kind {
	switch g.(type) {
	case orb.Polygon, orb.MultiPolygon:
		return KindPolygon
	case orb.LineString, orb.MultiLineString:
		return KindLine
	case orb.Point, orb.MultiPoint:
		return KindPoint
	}
	return KindUnknown
}
