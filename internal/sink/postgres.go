package sink

import (
	"context"
	"fmt"

	"geo-compare/internal/feature"
	"geo-compare/internal/source"
	"geo-compare/internal/store"
)

// Postgres：将分区要素写入 _gc_features，seq 为分区内写入序号
type Postgres struct {
	st        *store.Store
	runID     int64
	partition Partition
	seq       int
	closed    bool
}

func NewPostgres(st *store.Store, runID int64, p Partition) *Postgres {
	return &Postgres{st: st, runID: runID, partition: p}
}

func (s *Postgres) Write(ctx context.Context, r feature.Record) error {
	if s.closed {
		return ErrClosed
	}
	b, err := source.MarshalRecord(r)
	if err != nil {
		return err
	}
	if err := s.st.InsertFeature(ctx, s.runID, string(s.partition), s.seq, fmt.Sprint(r.ID), b); err != nil {
		return fmt.Errorf("postgres sink %s: %w", s.partition, err)
	}
	s.seq++
	return nil
}

func (s *Postgres) Close() error {
	s.closed = true
	return nil
}
