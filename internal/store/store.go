// 包 store: 提供与 PostgreSQL 的数据访问层，保存比较运行记录与各分区输出要素
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"geo-compare/internal/logger"
	"geo-compare/internal/report"
)

// ErrNotFound：运行记录不存在
var ErrNotFound = errors.New("run not found")

// Store: 数据库访问入口，持有连接池；连接池由 utils.OpenPostgresFromEnv 创建并由调用方关闭
type Store struct {
	db *sql.DB
}

func AttachDB(db *sql.DB) *Store { return &Store{db: db} }

// RunMeta: 运行参数
type RunMeta struct {
	GeometryType string
	IDField      string
	Policy       string
	OldName      string
	NewName      string
}

// Run: 运行记录
type Run struct {
	ID          int64              `json:"id"`
	StartedAt   time.Time          `json:"started_at"`
	FinishedAt  *time.Time         `json:"finished_at,omitempty"`
	Status      string             `json:"status"`
	Meta        RunMeta            `json:"-"`
	Added       int                `json:"added"`
	Deleted     int                `json:"deleted"`
	Modified    int                `json:"modified"`
	Rescued     int                `json:"rescued"`
	Diagnostics report.Diagnostics `json:"diagnostics"`
	Error       string             `json:"error,omitempty"`
}

// CreateRun: 新建运行记录，状态为 running
func (s *Store) CreateRun(ctx context.Context, m RunMeta) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		"INSERT INTO _gc_runs(geometry_type, id_field, rescue_policy, old_name, new_name) VALUES($1,$2,$3,$4,$5) RETURNING id",
		m.GeometryType, m.IDField, m.Policy, m.OldName, m.NewName).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create run: %w", err)
	}
	logger.L().Debug("db_run_created", "run_id", id)
	return id, nil
}

// FinishRun: 写入最终状态与计数；rep 为空时仅更新状态
func (s *Store) FinishRun(ctx context.Context, id int64, status string, rep *report.Report, runErr error) error {
	var (
		added, deleted, modified, rescued int
		diag                              []byte
		msg                               string
	)
	if rep != nil {
		added, deleted, modified, rescued = len(rep.Added), len(rep.Deleted), len(rep.Modified), len(rep.Rescued)
		b, err := json.Marshal(rep.Diagnostics)
		if err != nil {
			return err
		}
		diag = b
	}
	if runErr != nil {
		msg = runErr.Error()
	}
	_, err := s.db.ExecContext(ctx,
		"UPDATE _gc_runs SET finished_at=now(), status=$2, added=$3, deleted=$4, modified=$5, rescued=$6, diagnostics=$7, error=$8 WHERE id=$1",
		id, status, added, deleted, modified, rescued, nullJSON(diag), msg)
	if err != nil {
		return fmt.Errorf("finish run %d: %w", id, err)
	}
	logger.L().Debug("db_run_finished", "run_id", id, "status", status)
	return nil
}

// InsertFeature: 追加一条分区要素
// 约束：JSONB 参数以文本传入，lib/pq 会将 []byte 编码为 bytea
func (s *Store) InsertFeature(ctx context.Context, runID int64, partition string, seq int, featureID string, body []byte) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO _gc_features(run_id, partition, seq, feature_id, feature) VALUES($1,$2,$3,$4,$5)",
		runID, partition, seq, featureID, string(body))
	return err
}

// GetRun: 读取运行记录
func (s *Store) GetRun(ctx context.Context, id int64) (*Run, error) {
	var (
		r    Run
		fin  sql.NullTime
		diag []byte
	)
	row := s.db.QueryRowContext(ctx,
		"SELECT id, started_at, finished_at, status, geometry_type, id_field, rescue_policy, old_name, new_name, added, deleted, modified, rescued, diagnostics, error FROM _gc_runs WHERE id=$1", id)
	err := row.Scan(&r.ID, &r.StartedAt, &fin, &r.Status, &r.Meta.GeometryType, &r.Meta.IDField, &r.Meta.Policy,
		&r.Meta.OldName, &r.Meta.NewName, &r.Added, &r.Deleted, &r.Modified, &r.Rescued, &diag, &r.Error)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if fin.Valid {
		r.FinishedAt = &fin.Time
	}
	if len(diag) > 0 {
		_ = json.Unmarshal(diag, &r.Diagnostics)
	}
	return &r, nil
}

// ListFeatures: 按写入顺序读取分区要素；limit<=0 表示不限
func (s *Store) ListFeatures(ctx context.Context, runID int64, partition string, limit int) ([]json.RawMessage, error) {
	q := "SELECT feature FROM _gc_features WHERE run_id=$1 AND partition=$2 ORDER BY seq"
	args := []any{runID, partition}
	if limit > 0 {
		q += " LIMIT $3"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []json.RawMessage
	for rows.Next() {
		var b []byte
		if err := rows.Scan(&b); err != nil {
			return nil, err
		}
		out = append(out, json.RawMessage(b))
	}
	return out, rows.Err()
}

// PruneRuns: 保留最近 keep 条运行记录，删除其余（要素级联删除）
func (s *Store) PruneRuns(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM _gc_runs WHERE id NOT IN (SELECT id FROM _gc_runs ORDER BY started_at DESC, id DESC LIMIT $1)", keep)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	logger.L().Info("db_runs_pruned", "keep", keep, "deleted", n)
	return n, nil
}

func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
