package geom

import (
	"math"

	"github.com/paulmach/orb"
)

// 文档注释：几何有效性（OGC 简化版）
// 背景：变化检测前过滤畸形几何；无效几何按跳过诊断上报，不参与比较。
// 约束：坐标须为有限数；线至少两个不同顶点；环闭合、至少四个顶点、面积非零且不自交；洞的顶点不得落在外环之外。
func Valid(g orb.Geometry) bool {
	switch v := g.(type) {
	case orb.Point:
		return finite(v)
	case orb.MultiPoint:
		if len(v) == 0 {
			return false
		}
		for _, p := range v {
			if !finite(p) {
				return false
			}
		}
		return true
	case orb.LineString:
		return validLine(v)
	case orb.MultiLineString:
		if len(v) == 0 {
			return false
		}
		for _, ls := range v {
			if !validLine(ls) {
				return false
			}
		}
		return true
	case orb.Polygon:
		return validPolygon(v)
	case orb.MultiPolygon:
		if len(v) == 0 {
			return false
		}
		for _, p := range v {
			if !validPolygon(p) {
				return false
			}
		}
		return true
	case orb.Collection:
		if len(v) == 0 {
			return false
		}
		for _, c := range v {
			if !Valid(c) {
				return false
			}
		}
		return true
	}
	return false
}

func finite(p orb.Point) bool {
	return !math.IsNaN(p[0]) && !math.IsNaN(p[1]) && !math.IsInf(p[0], 0) && !math.IsInf(p[1], 0)
}

func validLine(ls orb.LineString) bool {
	if len(ls) < 2 {
		return false
	}
	distinct := false
	for i, p := range ls {
		if !finite(p) {
			return false
		}
		if i > 0 && p != ls[0] {
			distinct = true
		}
	}
	return distinct
}

func validRing(r orb.Ring) bool {
	if len(r) < 4 || r[0] != r[len(r)-1] {
		return false
	}
	for _, p := range r {
		if !finite(p) {
			return false
		}
	}
	rr := dedupe(r)
	if len(rr) < 4 || signedArea(rr) == 0 {
		return false
	}
	return simpleRing(rr)
}

// 非相邻边不得相交；首尾两条边经闭合点相邻
func simpleRing(r orb.Ring) bool {
	segs := len(r) - 1
	for i := 0; i < segs; i++ {
		for j := i + 2; j < segs; j++ {
			if i == 0 && j == segs-1 {
				continue
			}
			if segmentsIntersect(r[i], r[i+1], r[j], r[j+1]) {
				return false
			}
		}
	}
	return true
}

func validPolygon(p orb.Polygon) bool {
	if len(p) == 0 {
		return false
	}
	for _, r := range p {
		if !validRing(r) {
			return false
		}
	}
	shell := p[0]
	sb := shell.Bound()
	for _, hole := range p[1:] {
		for _, v := range hole {
			if !inBBox(v, sb) {
				return false
			}
			if onRingBoundary(v, shell) {
				continue
			}
			if !pointInRing(v, shell) {
				return false
			}
		}
	}
	return true
}

// 鞋带公式有向面积；逆时针为正
func signedArea(r orb.Ring) float64 {
	var s float64
	for i := 0; i+1 < len(r); i++ {
		s += r[i][0]*r[i+1][1] - r[i+1][0]*r[i][1]
	}
	return s / 2
}

// 去除连续重复点，保持闭合
func dedupe(r orb.Ring) orb.Ring {
	out := make(orb.Ring, 0, len(r))
	for i, p := range r {
		if i > 0 && p == out[len(out)-1] {
			continue
		}
		out = append(out, p)
	}
	return out
}
