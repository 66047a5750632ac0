// geocompare：比较两个 GeoJSON 快照，按新增、删除、修改输出三个要素集合
//
// 用法：geocompare [OLD_PATH NEW_PATH]；未给出参数时读取同名环境变量。
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"geo-compare/internal/config"
	"geo-compare/internal/driver"
	"geo-compare/internal/engine"
	"geo-compare/internal/logger"
	"geo-compare/internal/migrate"
	"geo-compare/internal/report"
	"geo-compare/internal/sink"
	"geo-compare/internal/source"
	"geo-compare/internal/store"
	"geo-compare/internal/utils"

	"github.com/minio/minio-go/v7"
)

const name = "geometrycomparator"

func main() {
	config.LoadDotEnv()
	l := logger.Setup()
	cfg, err := config.FromEnv()
	if err != nil {
		l.Error("config_error", "err", err)
		os.Exit(2)
	}
	if len(os.Args) == 3 {
		cfg.OldPath, cfg.NewPath = os.Args[1], os.Args[2]
	}
	if cfg.OldPath == "" || cfg.NewPath == "" {
		fmt.Fprintln(os.Stderr, "usage: geocompare OLD_PATH NEW_PATH (or set OLD_PATH and NEW_PATH)")
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, cfg, l))
}

func run(ctx context.Context, cfg *config.Config, l *slog.Logger) int {
	wrap, err := engine.WrapFor(cfg.Engine)
	if err != nil {
		l.Error("engine_error", "err", err)
		return 2
	}
	s3, err := utils.OpenS3FromEnv()
	if err != nil {
		l.Error("s3_open_error", "err", err)
		return 1
	}
	l.Info("compare_begin", "algorithm", name, "old", cfg.OldPath, "new", cfg.NewPath,
		"kind", cfg.Kind.String(), "id_field", cfg.IDField, "policy", cfg.Policy.String(), "engine", cfg.Engine)

	loader := &source.Loader{Wrap: wrap, S3: s3, Log: l}
	oldCol, newCol, err := loader.LoadPair(ctx, cfg.OldPath, cfg.NewPath)
	if err != nil {
		l.Error("source_load_error", "err", err)
		return 1
	}
	req := driver.Request{
		Old: oldCol, New: newCol, Kind: cfg.Kind, IDField: cfg.IDField,
		Policy: cfg.Policy, SpatialThreshold: cfg.SpatialThreshold, Logger: l,
	}

	out, err := openSinks(ctx, cfg, s3)
	if err != nil {
		l.Error("sink_open_error", "err", err)
		return 1
	}
	var runID int64
	if cfg.SinkPostgres {
		st, closeDB, err := openStore()
		if err != nil {
			l.Error("db_open_error", "err", err)
			_ = out.close()
			return 1
		}
		defer closeDB()
		runID, err = st.CreateRun(ctx, store.RunMeta{
			GeometryType: cfg.Kind.String(), IDField: cfg.IDField, Policy: cfg.Policy.String(),
			OldName: oldCol.Name, NewName: newCol.Name,
		})
		if err != nil {
			l.Error("db_run_error", "err", err)
			_ = out.close()
			return 1
		}
		out.tee(sink.Added, sink.NewPostgres(st, runID, sink.Added))
		out.tee(sink.Deleted, sink.NewPostgres(st, runID, sink.Deleted))
		out.tee(sink.Modified, sink.NewPostgres(st, runID, sink.Modified))
		defer func() { finish(st, runID, out.res, out.err, l) }()
	}
	if cfg.SinkRedis {
		rc := utils.OpenRedisFromEnv()
		defer rc.Close()
		key := strconv.FormatInt(runID, 10)
		if runID == 0 {
			key = time.Now().UTC().Format("20060102T150405")
		}
		for _, p := range []sink.Partition{sink.Added, sink.Deleted, sink.Modified} {
			out.tee(p, sink.NewRedis(rc, sink.RedisKey(key, p), cfg.RedisSinkTTL))
		}
		l.Info("redis_sink_keys", "run", key)
	}

	last := -10
	progress := driver.ProgressFunc(func(cur, total int) {
		pct := int(driver.Percent(cur, total))
		if pct/10 != last/10 {
			last = pct
			l.Info("progress", "percent", pct, "written", cur, "total", total)
		}
	})
	out.res, out.err = driver.Run(ctx, req, out.sinks(), progress)
	if cerr := out.close(); cerr != nil && out.err == nil {
		out.err = cerr
	}
	switch {
	case out.err == nil:
	case errors.Is(out.err, driver.ErrCanceled):
		l.Warn("compare_canceled", "written", out.res.Written)
		return 130
	case isInputErr(out.err):
		l.Error("compare_invalid_input", "err", out.err)
		return 2
	default:
		l.Error("compare_error", "err", out.err)
		return 1
	}
	fmt.Println(out.res.Report.Summary())
	return 0
}

func isInputErr(err error) bool {
	var ie *driver.InputError
	return errors.As(err, &ie) || errors.Is(err, driver.ErrGeometryTypeMismatch)
}

// outputs：三个分区的写入端集合，文件写入端在前
type outputs struct {
	parts map[sink.Partition]sink.Tee
	res   *driver.Result
	err   error
}

func openSinks(ctx context.Context, cfg *config.Config, s3 *minio.Client) (*outputs, error) {
	o := &outputs{parts: map[sink.Partition]sink.Tee{}}
	ext := os.Getenv("OUT_EXT")
	if ext == "" {
		ext = ".geojson"
	}
	for _, p := range []sink.Partition{sink.Added, sink.Deleted, sink.Modified} {
		s, err := sink.CreateGeoJSON(ctx, outPath(cfg.OutDir, string(p)+ext), string(p), s3)
		if err != nil {
			_ = o.close()
			return nil, err
		}
		o.parts[p] = sink.Tee{s}
	}
	return o, nil
}

func outPath(dir, file string) string {
	if strings.HasPrefix(dir, "s3://") {
		return strings.TrimSuffix(dir, "/") + "/" + path.Clean(file)
	}
	return filepath.Join(dir, file)
}

func (o *outputs) tee(p sink.Partition, s sink.Sink) {
	o.parts[p] = append(o.parts[p], s)
}

func (o *outputs) sinks() driver.Sinks {
	return driver.Sinks{Added: o.parts[sink.Added], Deleted: o.parts[sink.Deleted], Modified: o.parts[sink.Modified]}
}

func (o *outputs) close() error {
	var first error
	for _, t := range o.parts {
		if err := t.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func openStore() (*store.Store, func(), error) {
	db, err := utils.OpenPostgresFromEnv()
	if err != nil {
		return nil, nil, err
	}
	if err := migrate.EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return store.AttachDB(db), func() { _ = db.Close() }, nil
}

func finish(st *store.Store, runID int64, res *driver.Result, runErr error, l *slog.Logger) {
	status := "ok"
	switch {
	case errors.Is(runErr, driver.ErrCanceled):
		status = "canceled"
	case runErr != nil:
		status = "error"
	}
	var rep *report.Report
	if res != nil {
		rep = res.Report
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := st.FinishRun(ctx, runID, status, rep, runErr); err != nil {
		l.Error("db_finish_run_error", "run_id", runID, "err", err)
	}
}
