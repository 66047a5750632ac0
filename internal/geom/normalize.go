package geom

import (
	"sort"

	"github.com/paulmach/orb"
)

// 文档注释：几何归一化
// 背景：使拓扑相同但书写不同的几何得到同一坐标序列，从而可用 orb.Equal 判定相等。
// 约束：去除连续重复点与同向共线的中间顶点；环与闭合线从最小顶点起始，外环逆时针、洞顺时针；
// 线取字典序较小的方向；多部件按字典序排序。输入不被修改。
func Normalize(g orb.Geometry) orb.Geometry {
	switch v := g.(type) {
	case orb.MultiPoint:
		pts := append(orb.MultiPoint(nil), v...)
		sort.Slice(pts, func(i, j int) bool { return lessPoint(pts[i], pts[j]) })
		out := pts[:0:0]
		for i, p := range pts {
			if i > 0 && p == pts[i-1] {
				continue
			}
			out = append(out, p)
		}
		return out
	case orb.LineString:
		return normLine(v)
	case orb.MultiLineString:
		out := make(orb.MultiLineString, len(v))
		for i, ls := range v {
			out[i] = normLine(ls)
		}
		sort.Slice(out, func(i, j int) bool { return comparePoints(out[i], out[j]) < 0 })
		return out
	case orb.Polygon:
		return normPolygon(v)
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, len(v))
		for i, p := range v {
			out[i] = normPolygon(p)
		}
		sort.Slice(out, func(i, j int) bool { return comparePolygons(out[i], out[j]) < 0 })
		return out
	case orb.Collection:
		out := make(orb.Collection, len(v))
		for i, c := range v {
			out[i] = Normalize(c)
		}
		return out
	}
	return g
}

func normLine(ls orb.LineString) orb.LineString {
	pts := dropRepeated(ls)
	if len(pts) >= 4 && pts[0] == pts[len(pts)-1] {
		return normClosedLine(pts[:len(pts)-1])
	}
	out := orb.LineString(dropStraight(pts))
	rev := reversed(out)
	if comparePoints(rev, out) < 0 {
		return rev
	}
	return out
}

// normClosedLine：闭合线起点与方向均不影响点集，取最小顶点起始且字典序较小的方向
func normClosedLine(open []orb.Point) orb.LineString {
	open = dropStraightCycle(dropStraight(open))
	fwd := rotateToMin(open)
	back := rotateToMin(reversed(open))
	if comparePoints(back, fwd) < 0 {
		fwd = back
	}
	return append(orb.LineString(fwd), fwd[0])
}

func dropRepeated[S ~[]orb.Point](pts S) []orb.Point {
	out := make([]orb.Point, 0, len(pts))
	for _, p := range pts {
		if len(out) > 0 && p == out[len(out)-1] {
			continue
		}
		out = append(out, p)
	}
	return out
}

// straight：b 位于 a、c 之间且三点同向共线
func straight(a, b, c orb.Point) bool {
	if cross(a, b, c) != 0 {
		return false
	}
	return (b[0]-a[0])*(c[0]-b[0])+(b[1]-a[1])*(c[1]-b[1]) > 0
}

// dropStraight：去除同向共线的中间顶点，保留首尾
func dropStraight(pts []orb.Point) []orb.Point {
	out := make([]orb.Point, 0, len(pts))
	for _, p := range pts {
		for len(out) >= 2 && straight(out[len(out)-2], out[len(out)-1], p) {
			out = out[:len(out)-1]
		}
		out = append(out, p)
	}
	return out
}

// dropStraightCycle：环形序列首尾相接处的共线顶点
func dropStraightCycle(pts []orb.Point) []orb.Point {
	for len(pts) > 3 {
		n := len(pts)
		switch {
		case straight(pts[n-2], pts[n-1], pts[0]):
			pts = pts[:n-1]
		case straight(pts[n-1], pts[0], pts[1]):
			pts = pts[1:]
		default:
			return pts
		}
	}
	return pts
}

func reversed[S ~[]orb.Point](pts S) S {
	out := make(S, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}

func rotateToMin(open []orb.Point) []orb.Point {
	start := 0
	for i := range open {
		if lessPoint(open[i], open[start]) {
			start = i
		}
	}
	out := make([]orb.Point, 0, len(open))
	out = append(out, open[start:]...)
	return append(out, open[:start]...)
}

func normPolygon(p orb.Polygon) orb.Polygon {
	out := make(orb.Polygon, len(p))
	for i, r := range p {
		out[i] = normRing(r, i == 0)
	}
	if len(out) > 2 {
		holes := out[1:]
		sort.Slice(holes, func(i, j int) bool { return comparePoints(holes[i], holes[j]) < 0 })
	}
	return out
}

// normRing：shell 为 true 时定向为逆时针，否则顺时针；起点旋转到最小顶点
func normRing(r orb.Ring, shell bool) orb.Ring {
	open := dropRepeated(r)
	if len(open) > 1 && open[0] == open[len(open)-1] {
		open = open[:len(open)-1]
	}
	if len(open) == 0 {
		return orb.Ring{}
	}
	open = dropStraightCycle(dropStraight(open))
	closed := append(orb.Ring(nil), open...)
	closed = append(closed, open[0])
	if a := signedArea(closed); (shell && a < 0) || (!shell && a > 0) {
		open = reversed(open)
	}
	out := orb.Ring(rotateToMin(open))
	return append(out, out[0])
}

func lessPoint(a, b orb.Point) bool {
	if a[0] != b[0] {
		return a[0] < b[0]
	}
	return a[1] < b[1]
}

func comparePoints[S ~[]orb.Point](a, b S) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] == b[i] {
			continue
		}
		if lessPoint(a[i], b[i]) {
			return -1
		}
		return 1
	}
	return len(a) - len(b)
}

func comparePolygons(a, b orb.Polygon) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := comparePoints(a[i], b[i]); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}
