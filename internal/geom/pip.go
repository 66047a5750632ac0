package geom

import "github.com/paulmach/orb"

// 射线法判定点是否在环内（Even-Odd）；边界上的点结果不稳定，调用方需自行处理
func pointInRing(pt orb.Point, ring orb.Ring) bool {
	n := len(ring)
	if n < 3 {
		return false
	}
	inside := false
	x, y := pt[0], pt[1]
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]
		if ((yi > y) != (yj > y)) && (x < (xj-xi)*(y-yi)/(yj-yi)+xi) {
			inside = !inside
		}
	}
	return inside
}

// 快速包围盒过滤（含边界）
func inBBox(pt orb.Point, b orb.Bound) bool {
	return pt[0] >= b.Min[0] && pt[0] <= b.Max[0] && pt[1] >= b.Min[1] && pt[1] <= b.Max[1]
}

// 点是否落在线段上（含端点）
func onSegment(p, a, b orb.Point) bool {
	if cross(a, b, p) != 0 {
		return false
	}
	return p[0] >= min(a[0], b[0]) && p[0] <= max(a[0], b[0]) &&
		p[1] >= min(a[1], b[1]) && p[1] <= max(a[1], b[1])
}

func onRingBoundary(p orb.Point, ring orb.Ring) bool {
	for i := 0; i+1 < len(ring); i++ {
		if onSegment(p, ring[i], ring[i+1]) {
			return true
		}
	}
	return false
}

func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// 线段相交（含端点接触与共线重叠）
func segmentsIntersect(p1, p2, q1, q2 orb.Point) bool {
	d1 := sign(cross(q1, q2, p1))
	d2 := sign(cross(q1, q2, p2))
	d3 := sign(cross(p1, p2, q1))
	d4 := sign(cross(p1, p2, q2))
	if d1 != d2 && d3 != d4 && d1 != 0 && d2 != 0 && d3 != 0 && d4 != 0 {
		return true
	}
	return (d1 == 0 && onSegment(p1, q1, q2)) ||
		(d2 == 0 && onSegment(p2, q1, q2)) ||
		(d3 == 0 && onSegment(q1, p1, p2)) ||
		(d4 == 0 && onSegment(q2, p1, p2))
}
