package config

import (
	"testing"
	"time"

	"geo-compare/internal/feature"
	"geo-compare/internal/match"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"GEOMETRY_TYPE", "ID_FIELD", "RESCUE_POLICY", "GEOMETRY_ENGINE", "SPATIAL_THRESHOLD", "OUT_DIR", "MAX_BODY_MB"} {
		t.Setenv(k, "")
	}
	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, feature.KindPolygon, c.Kind)
	assert.Equal(t, "id", c.IDField)
	assert.Equal(t, match.RescueModified, c.Policy)
	assert.Equal(t, "orb", c.Engine)
	assert.Equal(t, match.DefaultSpatialThreshold, c.SpatialThreshold)
	assert.Equal(t, "out", c.OutDir)
	assert.Equal(t, int64(64<<20), c.MaxBodyBytes)
	assert.Equal(t, time.Hour, c.ReportCacheTTL)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("GEOMETRY_TYPE", "Point")
	t.Setenv("ID_FIELD", "fid")
	t.Setenv("RESCUE_POLICY", "unchanged")
	t.Setenv("GEOMETRY_ENGINE", "GEOS")
	t.Setenv("SPATIAL_THRESHOLD", "0")
	t.Setenv("SINK_REDIS", "true")
	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, feature.KindPoint, c.Kind)
	assert.Equal(t, "fid", c.IDField)
	assert.Equal(t, match.RescueUnchanged, c.Policy)
	assert.Equal(t, "geos", c.Engine)
	assert.Equal(t, 0, c.SpatialThreshold)
	assert.True(t, c.SinkRedis)
}

func TestFromEnvErrors(t *testing.T) {
	cases := map[string]string{
		"GEOMETRY_TYPE":   "raster",
		"RESCUE_POLICY":   "best",
		"GEOMETRY_ENGINE": "jts",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
