package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"geo-compare/internal/feature"
	"geo-compare/internal/source"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/minio/minio-go/v7"
)

// 文档注释：流式 GeoJSON 要素集合写入端
// 背景：逐条写出要素，不在内存中累积；Close 时补全集合尾部，空分区同样产出合法空集合。
// 约束：目标为本地路径或 s3://bucket/key；后缀 .gz / .zst 时压缩输出。
type GeoJSON struct {
	name   string
	w      *bufio.Writer
	closer []func() error
	count  int
	closed bool
}

// NewGeoJSON：包装任意写入器
func NewGeoJSON(name string, w io.Writer) (*GeoJSON, error) {
	s := &GeoJSON{name: name, w: bufio.NewWriterSize(w, 1<<16)}
	head, err := json.Marshal(name)
	if err != nil {
		return nil, err
	}
	if _, err := fmt.Fprintf(s.w, `{"type":"FeatureCollection","name":%s,"features":[`, head); err != nil {
		return nil, err
	}
	return s, nil
}

var newZstdWriter = func(w io.Writer) (io.WriteCloser, error) { return zstd.NewWriter(w) }

// CreateGeoJSON：按路径创建写入端；S3 目标通过管道流式上传
// 约束：创建失败时已打开的文件被关闭并删除，S3 上传以错误中止
func CreateGeoJSON(ctx context.Context, path, name string, s3 *minio.Client) (*GeoJSON, error) {
	var (
		raw    io.Writer
		closer []func() error
		abort  func(error)
	)
	if bucket, key, ok := source.ParseS3(path); ok {
		if s3 == nil {
			return nil, fmt.Errorf("create %s: s3 client not configured", path)
		}
		pr, pw := io.Pipe()
		done := make(chan error, 1)
		go func() {
			_, err := s3.PutObject(ctx, bucket, key, pr, -1, minio.PutObjectOptions{ContentType: "application/geo+json"})
			_ = pr.CloseWithError(err)
			done <- err
		}()
		raw = pw
		closer = append(closer, func() error {
			if err := pw.Close(); err != nil {
				return err
			}
			return <-done
		})
		abort = func(err error) {
			_ = pw.CloseWithError(err)
			<-done
		}
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		raw = f
		closer = append(closer, f.Close)
		abort = func(error) {
			_ = f.Close()
			_ = os.Remove(path)
		}
	}
	switch {
	case strings.HasSuffix(path, ".gz"):
		zw := gzip.NewWriter(raw)
		raw = zw
		closer = append([]func() error{zw.Close}, closer...)
	case strings.HasSuffix(path, ".zst"):
		zw, err := newZstdWriter(raw)
		if err != nil {
			abort(err)
			return nil, fmt.Errorf("create %s: %w", path, err)
		}
		raw = zw
		closer = append([]func() error{zw.Close}, closer...)
	}
	s, err := NewGeoJSON(name, raw)
	if err != nil {
		abort(err)
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	s.closer = closer
	return s, nil
}

func (s *GeoJSON) Write(_ context.Context, r feature.Record) error {
	if s.closed {
		return ErrClosed
	}
	b, err := source.MarshalRecord(r)
	if err != nil {
		return err
	}
	if s.count > 0 {
		if err := s.w.WriteByte(','); err != nil {
			return err
		}
	}
	if _, err := s.w.Write(b); err != nil {
		return err
	}
	s.count++
	return nil
}

// Count：已写入要素数
func (s *GeoJSON) Count() int { return s.count }

func (s *GeoJSON) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	_, err := s.w.WriteString("]}\n")
	if err == nil {
		err = s.w.Flush()
	}
	for _, c := range s.closer {
		if e := c(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
