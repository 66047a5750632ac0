package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"geo-compare/internal/feature"
	"geo-compare/internal/logger"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/minio/minio-go/v7"
	"github.com/paulmach/orb/geojson"
	"golang.org/x/sync/errgroup"
)

// 文档注释：快照加载器
// 背景：路径支持本地文件与 s3://bucket/key；后缀 .gz / .zst 透明解压。
// 约束：S3 路径要求注入 minio 客户端；未注入时返回错误。
type Loader struct {
	Wrap WrapFunc
	S3   *minio.Client
	Log  *slog.Logger
}

func (l *Loader) log() *slog.Logger {
	if l.Log != nil {
		return l.Log
	}
	return logger.L()
}

// Load：读取并解析单个快照
func (l *Loader) Load(ctx context.Context, path string) (*feature.Collection, error) {
	rc, err := l.open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	col, err := Decode(LayerName(path), rc, l.Wrap)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	l.log().Debug("source_loaded", "path", path, "features", col.Len(), "kind", col.Kind.String(), "fields", len(col.Fields))
	return col, nil
}

// LoadPair：并发读取新旧两个快照；分类过程本身保持单线程
func (l *Loader) LoadPair(ctx context.Context, oldPath, newPath string) (*feature.Collection, *feature.Collection, error) {
	var oldCol, newCol *feature.Collection
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := l.Load(gctx, oldPath)
		oldCol = c
		return err
	})
	g.Go(func() error {
		c, err := l.Load(gctx, newPath)
		newCol = c
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return oldCol, newCol, nil
}

// Decode：从读取器解析 GeoJSON 要素集合
func Decode(name string, r io.Reader, wrap WrapFunc) (*feature.Collection, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(b)
	if err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}
	return FromFeatureCollection(name, fc, wrap), nil
}

// LayerName：路径去掉目录与扩展名后的图层名
func LayerName(path string) string {
	base := filepath.Base(path)
	for _, ext := range []string{".gz", ".zst", ".geojson", ".json"} {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// ParseS3：解析 s3://bucket/key
func ParseS3(path string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(path, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

func (l *Loader) open(ctx context.Context, path string) (io.ReadCloser, error) {
	var raw io.ReadCloser
	if bucket, key, ok := ParseS3(path); ok {
		if l.S3 == nil {
			return nil, fmt.Errorf("open %s: s3 client not configured", path)
		}
		obj, err := l.S3.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		raw = obj
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		raw = f
	}
	return decompress(path, raw)
}

type stackedReader struct {
	io.Reader
	closers []func() error
}

func (s *stackedReader) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func decompress(path string, raw io.ReadCloser) (io.ReadCloser, error) {
	switch {
	case strings.HasSuffix(path, ".gz"):
		zr, err := gzip.NewReader(raw)
		if err != nil {
			_ = raw.Close()
			return nil, fmt.Errorf("gzip %s: %w", path, err)
		}
		return &stackedReader{Reader: zr, closers: []func() error{zr.Close, raw.Close}}, nil
	case strings.HasSuffix(path, ".zst"):
		zr, err := zstd.NewReader(raw)
		if err != nil {
			_ = raw.Close()
			return nil, fmt.Errorf("zstd %s: %w", path, err)
		}
		return &stackedReader{Reader: zr, closers: []func() error{func() error { zr.Close(); return nil }, raw.Close}}, nil
	}
	return raw, nil
}
