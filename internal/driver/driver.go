// 包 driver：一次比较运行的编排（结构校验 → 建索引 → 分类 → 逐条输出），负责取消、进度与指标
package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"geo-compare/internal/feature"
	"geo-compare/internal/index"
	"geo-compare/internal/logger"
	"geo-compare/internal/match"
	"geo-compare/internal/metrics"
	"geo-compare/internal/report"
	"geo-compare/internal/sink"
)

// Request：一次运行的输入
type Request struct {
	Old     *feature.Collection
	New     *feature.Collection
	Kind    feature.Kind
	IDField string

	Policy           match.RescuePolicy
	SpatialThreshold int
	Logger           *slog.Logger
}

// Sinks：三个分区的写入端；nil 表示丢弃
type Sinks struct {
	Added    sink.Sink
	Deleted  sink.Sink
	Modified sink.Sink
}

// Result：运行结果；取消或写入失败时 Written 为已写入数
type Result struct {
	Report   *report.Report
	Written  int
	Duration time.Duration
}

// 文档注释：执行一次比较
// 背景：结构错误在建索引前立即返回；分类单线程完成后按 新增 → 删除 → 修改 顺序写出。
// 约束：每条记录写出前检查 ctx，取消时返回 ErrCanceled，已写入记录不回滚；写入端由调用方关闭。
func Run(ctx context.Context, req Request, sinks Sinks, progress Progress) (*Result, error) {
	start := time.Now()
	l := req.Logger
	if l == nil {
		l = logger.L()
	}
	res, err := run(ctx, req, sinks, progress, l)
	var ie *InputError
	status := "ok"
	switch {
	case err == nil:
	case errors.As(err, &ie), errors.Is(err, ErrGeometryTypeMismatch):
		status = "invalid"
	case errors.Is(err, ErrCanceled):
		status = "canceled"
	default:
		status = "error"
	}
	metrics.RunsTotal.WithLabelValues(status).Inc()
	metrics.RunDurationMs.Observe(float64(time.Since(start).Milliseconds()))
	if res != nil {
		res.Duration = time.Since(start)
	}
	return res, err
}

func run(ctx context.Context, req Request, sinks Sinks, progress Progress, l *slog.Logger) (*Result, error) {
	if err := validate(req); err != nil {
		l.Warn("compare_invalid_input", "err", err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return &Result{}, fmt.Errorf("%w: %w", ErrCanceled, err)
	}
	for _, side := range []struct {
		name report.Side
		col  *feature.Collection
	}{{report.SideOld, req.Old}, {report.SideNew, req.New}} {
		l.Info("layer_loaded", "side", string(side.name), "name", side.col.Name, "features", side.col.Len())
		if side.col.Len() == 0 {
			l.Info("layer_empty", "side", string(side.name), "name", side.col.Name)
		}
	}

	oldIx := index.Build(keyed(req.Old.Records, req.IDField))
	newIx := index.Build(keyed(req.New.Records, req.IDField))
	logIndex(l, report.SideOld, oldIx)
	logIndex(l, report.SideNew, newIx)

	eng := match.New(req.Kind, match.Options{Policy: req.Policy, SpatialThreshold: req.SpatialThreshold, Logger: l})
	rep := eng.Classify(oldIx, newIx)
	observe(rep)
	l.Info("compare_classified", "kind", req.Kind.String(), "summary", rep.Summary(),
		"rescued", rep.Diagnostics.Rescued, "skipped_invalid_geometry", rep.Diagnostics.SkippedInvalidGeometry)

	res := &Result{Report: rep}
	total := rep.Total()
	if progress != nil {
		progress.Report(0, total)
	}
	if rep.Empty() {
		l.Info("no_differences")
		return res, nil
	}
	batches := []struct {
		part sink.Partition
		ids  []feature.ID
		ix   *index.Index
		out  sink.Sink
	}{
		{sink.Added, rep.Added, newIx, sinks.Added},
		{sink.Deleted, rep.Deleted, oldIx, sinks.Deleted},
		{sink.Modified, rep.Modified, newIx, sinks.Modified},
	}
	for _, b := range batches {
		for _, id := range b.ids {
			if err := ctx.Err(); err != nil {
				l.Info("compare_canceled", "written", res.Written, "total", total)
				return res, fmt.Errorf("%w: %w", ErrCanceled, err)
			}
			r, ok := b.ix.Get(id)
			if !ok {
				return res, fmt.Errorf("%s: id %v not indexed", b.part, id)
			}
			if b.out != nil {
				if err := b.out.Write(ctx, r); err != nil {
					l.Error("sink_write_error", "partition", string(b.part), "id", id, "err", err)
					return res, fmt.Errorf("write %s %v: %w", b.part, id, err)
				}
			}
			metrics.FeaturesTotal.WithLabelValues(string(b.part)).Inc()
			res.Written++
			if progress != nil {
				progress.Report(res.Written, total)
			}
		}
	}
	l.Info("compare_done", "added", len(rep.Added), "deleted", len(rep.Deleted), "modified", len(rep.Modified))
	return res, nil
}

// validate：输入缺失、几何类型不符、标识字段缺失
func validate(req Request) error {
	switch req.Kind {
	case feature.KindPolygon, feature.KindLine, feature.KindPoint:
	default:
		return fmt.Errorf("%w: unsupported geometry type %s", ErrGeometryTypeMismatch, req.Kind)
	}
	sides := []struct {
		name report.Side
		col  *feature.Collection
	}{{report.SideOld, req.Old}, {report.SideNew, req.New}}
	for _, s := range sides {
		if s.col == nil {
			return &InputError{Side: s.name, Err: ErrInputMissing}
		}
	}
	for _, s := range sides {
		if s.col.Kind != feature.KindUnknown && s.col.Kind != req.Kind {
			return &InputError{Side: s.name, Err: ErrGeometryTypeMismatch,
				Detail: fmt.Sprintf("layer %q is %s, expected %s", s.col.Name, s.col.Kind, req.Kind)}
		}
	}
	for _, s := range sides {
		if s.col.Len() > 0 && !s.col.HasField(req.IDField) {
			return &InputError{Side: s.name, Err: ErrIDFieldMissing,
				Detail: fmt.Sprintf("field %q not in layer %q, available fields: %s", req.IDField, s.col.Name, strings.Join(s.col.Fields, ", "))}
		}
	}
	return nil
}

// keyed：按标识字段赋值记录标识；原记录不修改
func keyed(records []feature.Record, field string) []feature.Record {
	out := make([]feature.Record, len(records))
	for i, r := range records {
		r.ID = r.Attributes[field]
		out[i] = r
	}
	return out
}

func logIndex(l *slog.Logger, side report.Side, ix *index.Index) {
	if ix.Skipped > 0 {
		l.Info("skip_null_id", "side", string(side), "count", ix.Skipped)
	}
	if len(ix.Duplicates) > 0 {
		l.Warn("duplicate_ids", "side", string(side), "count", len(ix.Duplicates), "first", ix.Duplicates[0])
	}
}

func observe(rep *report.Report) {
	d := rep.Diagnostics
	metrics.SkippedTotal.WithLabelValues("null_id").Add(float64(d.SkippedNullIDOld + d.SkippedNullIDNew))
	for _, s := range rep.Skips {
		metrics.SkippedTotal.WithLabelValues(string(s.Reason)).Inc()
	}
	metrics.RescuedTotal.Add(float64(d.Rescued))
}
