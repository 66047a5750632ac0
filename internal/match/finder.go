package match

import (
	"sort"

	"geo-compare/internal/feature"
	"geo-compare/internal/predicate"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/quadtree"
)

// candidate：可参与救援匹配的新增候选；pos 为其在候选序列中的位置
type candidate struct {
	id     feature.ID
	rec    feature.Record
	pos    int
	center orb.Point
}

func (c *candidate) Point() orb.Point { return c.center }

// finder：按迭代顺序返回第一个未被占用且几何相等的候选
type finder interface {
	first(g feature.Geometry, used *roaring.Bitmap) *candidate
}

type linearFinder struct {
	cands []*candidate
	pred  predicate.Predicate
}

func (f *linearFinder) first(g feature.Geometry, used *roaring.Bitmap) *candidate {
	for _, c := range f.cands {
		if used.Contains(uint32(c.pos)) {
			continue
		}
		if f.pred.Compare(g, c.rec.Geometry) == predicate.Equal {
			return c
		}
	}
	return nil
}

// 文档注释：四叉树候选过滤
// 背景：面/线相等的几何包围盒必然相同，按包围盒中心精确查找；点按容差外扩的包围盒查找。
// 约束：命中集合按位置重新排序后逐个比较，结果与线性扫描的首个匹配一致；多点候选不适用，由调用方回退线性扫描。
type quadFinder struct {
	qt    *quadtree.Quadtree
	pred  predicate.Predicate
	point bool
	buf   []orb.Pointer
}

func newQuadFinder(cands []*candidate, pred predicate.Predicate) *quadFinder {
	b := orb.Bound{Min: cands[0].center, Max: cands[0].center}
	for _, c := range cands[1:] {
		b = b.Extend(c.center)
	}
	qt := quadtree.New(b)
	for _, c := range cands {
		_ = qt.Add(c)
	}
	return &quadFinder{qt: qt, pred: pred, point: pred.Kind == feature.KindPoint}
}

func (f *quadFinder) first(g feature.Geometry, used *roaring.Bitmap) *candidate {
	var b orb.Bound
	if f.point {
		b = g.Bound().Pad(f.pred.Tolerance * (1 + 1e-6))
	} else {
		c := g.Bound().Center()
		b = orb.Bound{Min: c, Max: c}
	}
	f.buf = f.qt.InBound(f.buf[:0], b)
	hits := make([]*candidate, 0, len(f.buf))
	for _, p := range f.buf {
		c := p.(*candidate)
		if !used.Contains(uint32(c.pos)) {
			hits = append(hits, c)
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	for _, c := range hits {
		if f.pred.Compare(g, c.rec.Geometry) == predicate.Equal {
			return c
		}
	}
	return nil
}

func (e *Engine) finder(cands []*candidate) finder {
	t := e.opts.SpatialThreshold
	if t <= 0 || len(cands) < t {
		return &linearFinder{cands: cands, pred: e.pred}
	}
	if e.kind == feature.KindPoint {
		for _, c := range cands {
			if _, ok := c.rec.Geometry.Orb().(orb.Point); !ok {
				return &linearFinder{cands: cands, pred: e.pred}
			}
		}
	}
	e.log.Debug("rescue_spatial_index", "candidates", len(cands))
	return newQuadFinder(cands, e.pred)
}
