// 包 config：从环境变量（可选 .env）读取运行配置，缺省值内联
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"geo-compare/internal/feature"
	"geo-compare/internal/match"

	"github.com/joho/godotenv"
)

// Config：CLI 与服务共用的配置
type Config struct {
	Kind             feature.Kind
	IDField          string
	Policy           match.RescuePolicy
	Engine           string
	SpatialThreshold int

	OldPath string
	NewPath string
	OutDir  string

	SinkPostgres bool
	SinkRedis    bool
	RedisSinkTTL time.Duration

	Addr            string
	APIBase         string
	ReportCacheSize int
	ReportCacheTTL  time.Duration
	MaxBodyBytes    int64
	RateLimit       bool
	RateLimitQPS    int
	MaxConcurrent   int64
}

// LoadDotEnv：加载 .env 与 data/env/.env，文件缺失时忽略
func LoadDotEnv() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
}

// 文档注释：读取环境变量构造配置
// 约束：枚举类取值非法时返回错误；数值类解析失败回退缺省值
func FromEnv() (*Config, error) {
	c := &Config{
		IDField:          envOr("ID_FIELD", "id"),
		Engine:           strings.ToLower(envOr("GEOMETRY_ENGINE", "orb")),
		SpatialThreshold: envInt("SPATIAL_THRESHOLD", match.DefaultSpatialThreshold),
		OldPath:          os.Getenv("OLD_PATH"),
		NewPath:          os.Getenv("NEW_PATH"),
		OutDir:           envOr("OUT_DIR", "out"),
		SinkPostgres:     os.Getenv("SINK_POSTGRES") == "true",
		SinkRedis:        os.Getenv("SINK_REDIS") == "true",
		RedisSinkTTL:     time.Duration(envInt("REDIS_SINK_TTL_S", 86400)) * time.Second,
		Addr:             envOr("ADDR", ":8080"),
		APIBase:          envOr("API_BASE", "/api"),
		ReportCacheSize:  envInt("REPORT_CACHE_SIZE", 128),
		ReportCacheTTL:   time.Duration(envInt("REPORT_CACHE_TTL_S", 3600)) * time.Second,
		MaxBodyBytes:     int64(envInt("MAX_BODY_MB", 64)) << 20,
		RateLimit:        os.Getenv("RATE_LIMIT_ENABLED") == "true",
		RateLimitQPS:     envInt("RATE_LIMIT_QPS", 5),
		MaxConcurrent:    int64(envInt("MAX_CONCURRENT_RUNS", 4)),
	}
	k, ok := feature.ParseKind(envOr("GEOMETRY_TYPE", "polygon"))
	if !ok || k == feature.KindUnknown || k == feature.KindMixed {
		return nil, fmt.Errorf("config: bad GEOMETRY_TYPE %q", os.Getenv("GEOMETRY_TYPE"))
	}
	c.Kind = k
	p, ok := match.ParseRescuePolicy(os.Getenv("RESCUE_POLICY"))
	if !ok {
		return nil, fmt.Errorf("config: bad RESCUE_POLICY %q", os.Getenv("RESCUE_POLICY"))
	}
	c.Policy = p
	if c.Engine != "orb" && c.Engine != "geos" {
		return nil, fmt.Errorf("config: bad GEOMETRY_ENGINE %q", c.Engine)
	}
	if c.IDField == "" {
		return nil, fmt.Errorf("config: empty ID_FIELD")
	}
	return c, nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
