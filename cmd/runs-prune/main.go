package main

import (
	"context"
	"os"
	"strconv"
	"time"

	"geo-compare/internal/config"
	"geo-compare/internal/logger"
	"geo-compare/internal/migrate"
	"geo-compare/internal/store"
	"geo-compare/internal/utils"
)

// 文档注释：比较运行记录保留窗口
// 背景：按开始时间保留最近 N 次运行，其余运行及其分区要素级联删除。
// 约束：RUNS_KEEP_N 缺省 50；仅作用于 _gc_runs / _gc_features。
func main() {
	config.LoadDotEnv()
	l := logger.Setup()
	keepN := 50
	if s := os.Getenv("RUNS_KEEP_N"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			keepN = n
		}
	}
	db, err := utils.OpenPostgresFromEnv()
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := migrate.EnsureSchema(db); err != nil {
		l.Error("schema_error", "err", err)
		os.Exit(1)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	n, err := store.AttachDB(db).PruneRuns(ctx, keepN)
	if err != nil {
		l.Error("runs_prune_error", "err", err)
		os.Exit(1)
	}
	l.Info("runs_prune_done", "keep", keepN, "deleted", n)
}
