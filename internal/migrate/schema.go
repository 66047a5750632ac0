package migrate

import (
	"database/sql"

	"geo-compare/internal/logger"
)

// 背景：首次运行自动创建运行记录表与要素表，保障后续写入与查询
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突；删除运行时级联删除其要素
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS _gc_runs (
            id BIGSERIAL PRIMARY KEY,
            started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
            finished_at TIMESTAMPTZ,
            status TEXT NOT NULL DEFAULT 'running',
            geometry_type TEXT NOT NULL,
            id_field TEXT NOT NULL,
            rescue_policy TEXT NOT NULL,
            old_name TEXT NOT NULL DEFAULT '',
            new_name TEXT NOT NULL DEFAULT '',
            added INT NOT NULL DEFAULT 0,
            deleted INT NOT NULL DEFAULT 0,
            modified INT NOT NULL DEFAULT 0,
            rescued INT NOT NULL DEFAULT 0,
            diagnostics JSONB,
            error TEXT NOT NULL DEFAULT ''
        )`,
		`CREATE INDEX IF NOT EXISTS idx_gc_runs_started ON _gc_runs(started_at DESC)`,
		`CREATE TABLE IF NOT EXISTS _gc_features (
            run_id BIGINT NOT NULL REFERENCES _gc_runs(id) ON DELETE CASCADE,
            partition TEXT NOT NULL,
            seq INT NOT NULL,
            feature_id TEXT NOT NULL,
            feature JSONB NOT NULL,
            PRIMARY KEY (run_id, partition, seq)
        )`,
	}
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
