package sink

import (
	"context"
	"time"

	"geo-compare/internal/feature"
	"geo-compare/internal/source"

	"github.com/redis/go-redis/v9"
)

const redisBatch = 256

// 文档注释：Redis 列表写入端
// 背景：每个分区一个列表键，元素为 GeoJSON 要素；按批次通过管道 RPUSH，Close 时刷新剩余并设置过期。
// 约束：TTL 为 0 时不设置过期
type Redis struct {
	rc      *redis.Client
	key     string
	ttl     time.Duration
	pending []any
	closed  bool
}

// RedisKey：运行与分区对应的列表键
func RedisKey(run string, p Partition) string {
	return "geocompare:" + run + ":" + string(p)
}

func NewRedis(rc *redis.Client, key string, ttl time.Duration) *Redis {
	return &Redis{rc: rc, key: key, ttl: ttl}
}

func (s *Redis) Write(ctx context.Context, r feature.Record) error {
	if s.closed {
		return ErrClosed
	}
	b, err := source.MarshalRecord(r)
	if err != nil {
		return err
	}
	s.pending = append(s.pending, b)
	if len(s.pending) >= redisBatch {
		return s.flush(ctx)
	}
	return nil
}

func (s *Redis) flush(ctx context.Context) error {
	if len(s.pending) == 0 {
		return nil
	}
	pipe := s.rc.Pipeline()
	pipe.RPush(ctx, s.key, s.pending...)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.key, s.ttl)
	}
	_, err := pipe.Exec(ctx)
	s.pending = s.pending[:0]
	return err
}

func (s *Redis) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.flush(context.Background())
}
