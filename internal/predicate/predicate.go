// 包 predicate：几何比较谓词；点按距离容差判定，面/线按拓扑相等判定
package predicate

import "geo-compare/internal/feature"

// PointTolerance：点模式距离容差（坐标单位）
const PointTolerance = 1e-6

// Outcome：比较结果
type Outcome int

const (
	Different Outcome = iota
	Equal
)

func (o Outcome) String() string {
	if o == Equal {
		return "equal"
	}
	return "different"
}

// 文档注释：几何比较谓词
// 背景：整次运行固定一种几何类别；点模式使用距离容差，面/线使用容差为 0 的精确相等。
// 约束：不做有效性校验，调用方须先过滤空几何与无效几何，并将其作为跳过诊断上报。
type Predicate struct {
	Kind      feature.Kind
	Tolerance float64
}

// New：按几何类别构造谓词
func New(kind feature.Kind) Predicate {
	p := Predicate{Kind: kind}
	if kind == feature.KindPoint {
		p.Tolerance = PointTolerance
	}
	return p
}

// Compare：比较两个几何
func (p Predicate) Compare(a, b feature.Geometry) Outcome {
	if p.Kind == feature.KindPoint {
		if a.Distance(b) <= p.Tolerance {
			return Equal
		}
		return Different
	}
	if a.Equals(b) {
		return Equal
	}
	return Different
}
