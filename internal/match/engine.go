// 包 match：变化分类核心算法（标识分区 → 几何救援匹配 → 公共标识分类 → 救援配对分类）
package match

import (
	"log/slog"
	"strings"

	"geo-compare/internal/feature"
	"geo-compare/internal/index"
	"geo-compare/internal/logger"
	"geo-compare/internal/predicate"
	"geo-compare/internal/report"

	"github.com/RoaringBitmap/roaring/v2"
)

// RescuePolicy：救援配对的输出策略
type RescuePolicy int

const (
	// RescueModified：标识被重新分配本身视为变化，以新标识输出到修改分区
	RescueModified RescuePolicy = iota
	// RescueUnchanged：几何相同即视为未变化，不输出
	RescueUnchanged
)

func (p RescuePolicy) String() string {
	if p == RescueUnchanged {
		return "unchanged"
	}
	return "modified"
}

// ParseRescuePolicy：解析策略名称
func ParseRescuePolicy(s string) (RescuePolicy, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "modified":
		return RescueModified, true
	case "unchanged":
		return RescueUnchanged, true
	}
	return RescueModified, false
}

// DefaultSpatialThreshold：候选新增数达到该值时启用空间候选索引
const DefaultSpatialThreshold = 64

// Options：引擎参数
type Options struct {
	Policy RescuePolicy
	// SpatialThreshold 小于等于 0 时始终线性扫描
	SpatialThreshold int
	Logger           *slog.Logger
}

// 文档注释：匹配引擎
// 背景：单线程、一次遍历完成分类；每次调用独占两个索引与报告，无共享可变状态。
// 约束：救援匹配为首个匹配（first-fit）而非最优匹配，迭代顺序为索引顺序；命中后新旧两个标识均退出后续匹配。
type Engine struct {
	kind feature.Kind
	pred predicate.Predicate
	opts Options
	log  *slog.Logger
}

// New：按几何类别构造引擎
func New(kind feature.Kind, opts Options) *Engine {
	l := opts.Logger
	if l == nil {
		l = logger.L()
	}
	return &Engine{kind: kind, pred: predicate.New(kind), opts: opts, log: l}
}

// Classify：对新旧两个索引执行完整分类
func (e *Engine) Classify(oldIx, newIx *index.Index) *report.Report {
	rep := report.New(e.kind)
	rep.Diagnostics.SkippedNullIDOld = oldIx.Skipped
	rep.Diagnostics.SkippedNullIDNew = newIx.Skipped
	rep.Diagnostics.DuplicateIDsOld = len(oldIx.Duplicates)
	rep.Diagnostics.DuplicateIDsNew = len(newIx.Duplicates)

	common, candAdded, candDeleted := partition(oldIx, newIx)
	e.log.Debug("id_partition", "common", len(common), "candidate_added", len(candAdded), "candidate_deleted", len(candDeleted))

	pairs := e.rescue(oldIx, newIx, candAdded, candDeleted, rep)
	e.classifyCommon(oldIx, newIx, common, rep)
	e.classifyRescued(pairs, rep)
	return rep
}

// partition：公共标识按新快照顺序，候选新增按新快照顺序，候选删除按旧快照顺序
func partition(oldIx, newIx *index.Index) (common, candAdded, candDeleted []feature.ID) {
	for _, id := range newIx.IDs() {
		if oldIx.Has(id) {
			common = append(common, id)
		} else {
			candAdded = append(candAdded, id)
		}
	}
	for _, id := range oldIx.IDs() {
		if !newIx.Has(id) {
			candDeleted = append(candDeleted, id)
		}
	}
	return common, candAdded, candDeleted
}

func (e *Engine) rescue(oldIx, newIx *index.Index, candAdded, candDeleted []feature.ID, rep *report.Report) []report.Pair {
	cands := make([]*candidate, 0, len(candAdded))
	for _, id := range candAdded {
		r, _ := newIx.Get(id)
		if !r.HasUsableGeometry() {
			e.skip(rep, r, report.SideNew, report.BucketAdded)
			continue
		}
		cands = append(cands, &candidate{id: id, rec: r, pos: len(cands), center: r.Geometry.Bound().Center()})
	}
	f := e.finder(cands)
	matched := roaring.New()
	var pairs []report.Pair
	for _, oldID := range candDeleted {
		r, _ := oldIx.Get(oldID)
		if !r.HasUsableGeometry() {
			e.skip(rep, r, report.SideOld, report.BucketDeleted)
			continue
		}
		c := f.first(r.Geometry, matched)
		if c == nil {
			rep.Deleted = append(rep.Deleted, oldID)
			continue
		}
		matched.Add(uint32(c.pos))
		pairs = append(pairs, report.Pair{OldID: oldID, NewID: c.id})
		rep.AddRescue(oldID, c.id)
		e.log.Debug("rescue_match", "old_id", oldID, "new_id", c.id)
	}
	for _, c := range cands {
		if !matched.Contains(uint32(c.pos)) {
			rep.Added = append(rep.Added, c.id)
		}
	}
	return pairs
}

func (e *Engine) classifyCommon(oldIx, newIx *index.Index, common []feature.ID, rep *report.Report) {
	for _, id := range common {
		o, _ := oldIx.Get(id)
		n, _ := newIx.Get(id)
		if !o.HasUsableGeometry() {
			e.skip(rep, o, report.SideOld, report.BucketCommon)
			continue
		}
		if !n.HasUsableGeometry() {
			e.skip(rep, n, report.SideNew, report.BucketCommon)
			continue
		}
		if e.pred.Compare(o.Geometry, n.Geometry) == predicate.Different {
			rep.Modified = append(rep.Modified, id)
			continue
		}
		rep.Diagnostics.Unchanged++
	}
}

// classifyRescued：救援配对在构造时已判定几何相等，输出与否仅取决于策略
func (e *Engine) classifyRescued(pairs []report.Pair, rep *report.Report) {
	for _, p := range pairs {
		if e.opts.Policy == RescueModified {
			rep.Modified = append(rep.Modified, p.NewID)
			continue
		}
		rep.Diagnostics.Unchanged++
	}
}

func (e *Engine) skip(rep *report.Report, r feature.Record, side report.Side, bucket report.Bucket) {
	reason := report.ReasonInvalidGeometry
	if r.Geometry == nil || r.Geometry.IsNull() {
		reason = report.ReasonNullGeometry
	}
	rep.AddSkip(report.Skip{ID: r.ID, Side: side, Bucket: bucket, Reason: reason})
	e.log.Debug("skip_geometry", "id", r.ID, "side", string(side), "bucket", string(bucket), "reason", string(reason))
}
