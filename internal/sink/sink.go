// 包 sink：输出适配层；驱动按分区逐条追加写入完整记录
package sink

import (
	"context"
	"sync"

	"geo-compare/internal/feature"
)

// Partition：输出分区名
type Partition string

const (
	Added    Partition = "added"
	Deleted  Partition = "deleted"
	Modified Partition = "modified"
)

// Sink：仅追加的记录写入端
// 约束：写入失败即中止；已写入记录不回滚
type Sink interface {
	Write(ctx context.Context, r feature.Record) error
	Close() error
}

// Memory：内存写入端（测试与 HTTP 接口使用）
type Memory struct {
	mu      sync.Mutex
	records []feature.Record
	closed  bool
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Write(_ context.Context, r feature.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.records = append(m.records, r)
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Records：已写入记录（副本）
func (m *Memory) Records() []feature.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]feature.Record(nil), m.records...)
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// Tee：同时写入多个写入端；任一失败即返回
type Tee []Sink

func (t Tee) Write(ctx context.Context, r feature.Record) error {
	for _, s := range t {
		if err := s.Write(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (t Tee) Close() error {
	var first error
	for _, s := range t {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
