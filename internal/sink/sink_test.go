package sink

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"geo-compare/internal/feature"
	"geo-compare/internal/geom"
	"geo-compare/internal/source"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(id string, p orb.Point) feature.Record {
	return feature.Record{ID: id, Geometry: geom.New(p), Attributes: map[string]any{"id": id}}
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Write(ctx, rec("a", orb.Point{1, 2})))
	require.NoError(t, m.Write(ctx, rec("b", orb.Point{3, 4})))
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, "a", m.Records()[0].ID)
	require.NoError(t, m.Close())
	assert.ErrorIs(t, m.Write(ctx, rec("c", orb.Point{})), ErrClosed)
}

func TestGeoJSONStreamsValidCollection(t *testing.T) {
	var buf bytes.Buffer
	s, err := NewGeoJSON("added", &buf)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, s.Write(ctx, rec("a", orb.Point{1, 2})))
	require.NoError(t, s.Write(ctx, rec("b", orb.Point{3, 4})))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 2, s.Count())

	col, err := source.Decode("added", &buf, nil)
	require.NoError(t, err)
	require.Equal(t, 2, col.Len())
	assert.Equal(t, "b", col.Records[1].Attributes["id"])
	assert.Equal(t, feature.KindPoint, col.Kind)
}

func TestGeoJSONEmptyPartition(t *testing.T) {
	var buf bytes.Buffer
	s, err := NewGeoJSON("deleted", &buf)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	col, err := source.Decode("deleted", &buf, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, col.Len())
}

func TestGeoJSONRejectsNullGeometry(t *testing.T) {
	var buf bytes.Buffer
	s, err := NewGeoJSON("x", &buf)
	require.NoError(t, err)
	assert.Error(t, s.Write(context.Background(), feature.Record{ID: "n"}))
}

func TestCreateGeoJSONCompressed(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"added.geojson", "added.geojson.gz", "added.geojson.zst"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, "nested", name)
			s, err := CreateGeoJSON(context.Background(), path, "added", nil)
			require.NoError(t, err)
			require.NoError(t, s.Write(context.Background(), rec("a", orb.Point{1, 2})))
			require.NoError(t, s.Close())

			l := &source.Loader{}
			col, err := l.Load(context.Background(), path)
			require.NoError(t, err)
			assert.Equal(t, 1, col.Len())
		})
	}
	_, err := CreateGeoJSON(context.Background(), "s3://b/k.geojson", "x", nil)
	assert.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "nested"))
	assert.NoError(t, statErr)
}

func TestCreateGeoJSONReleasesFileOnEncoderError(t *testing.T) {
	boom := errors.New("encoder unavailable")
	var raw io.Writer
	orig := newZstdWriter
	newZstdWriter = func(w io.Writer) (io.WriteCloser, error) {
		raw = w
		return nil, boom
	}
	t.Cleanup(func() { newZstdWriter = orig })

	path := filepath.Join(t.TempDir(), "added.geojson.zst")
	s, err := CreateGeoJSON(context.Background(), path, "added", nil)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, s)

	require.IsType(t, &os.File{}, raw)
	_, werr := raw.Write([]byte("x"))
	assert.ErrorIs(t, werr, os.ErrClosed)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

type failing struct{ err error }

func (f failing) Write(context.Context, feature.Record) error { return f.err }
func (f failing) Close() error                                 { return f.err }

func TestTee(t *testing.T) {
	a, b := NewMemory(), NewMemory()
	tee := Tee{a, b}
	require.NoError(t, tee.Write(context.Background(), rec("a", orb.Point{})))
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 1, b.Len())
	require.NoError(t, tee.Close())

	boom := errors.New("boom")
	c := NewMemory()
	tee = Tee{failing{boom}, c}
	assert.ErrorIs(t, tee.Write(context.Background(), rec("a", orb.Point{})), boom)
	assert.Equal(t, 0, c.Len())
	assert.ErrorIs(t, tee.Close(), boom)
}

func TestRedisKey(t *testing.T) {
	assert.Equal(t, "geocompare:42:modified", RedisKey("42", Modified))
}
