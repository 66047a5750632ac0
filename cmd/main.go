// 程序入口：读取配置、初始化依赖并启动比较服务；API 注册在 internal/api
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"geo-compare/internal/api"
	"geo-compare/internal/config"
	"geo-compare/internal/engine"
	"geo-compare/internal/logger"
	"geo-compare/internal/metrics"
	"geo-compare/internal/middleware"
	"geo-compare/internal/migrate"
	"geo-compare/internal/store"
	"geo-compare/internal/utils"

	"github.com/redis/go-redis/v9"
)

func main() {
	config.LoadDotEnv()
	l := logger.Setup()
	cfg, err := config.FromEnv()
	if err != nil {
		l.Error("config_error", "err", err)
		os.Exit(1)
	}
	l.Debug("config_api_base", "base", cfg.APIBase)
	wrap, err := engine.WrapFor(cfg.Engine)
	if err != nil {
		l.Error("engine_error", "err", err)
		os.Exit(1)
	}

	var st *store.Store
	if cfg.SinkPostgres {
		db, err := utils.OpenPostgresFromEnv()
		if err != nil {
			l.Error("db_open_error", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			l.Error("db_ping_error", "err", err)
			os.Exit(1)
		}
		if err := migrate.EnsureSchema(db); err != nil {
			l.Error("schema_error", "err", err)
			os.Exit(1)
		}
		st = store.AttachDB(db)
		l.Info("db_open_ok")
	}

	var rc *redis.Client
	if cfg.SinkRedis {
		rc = utils.OpenRedisFromEnv()
		if err := rc.Ping(context.Background()).Err(); err != nil {
			l.Error("redis_ping_error", "err", err)
			rc = nil
		} else {
			l.Info("redis_ping_ok")
		}
	}

	svc, err := api.NewService(api.Options{
		Defaults: api.Defaults{
			Kind:             cfg.Kind,
			IDField:          cfg.IDField,
			Policy:           cfg.Policy,
			SpatialThreshold: cfg.SpatialThreshold,
		},
		Wrap:          wrap,
		Store:         st,
		Redis:         rc,
		CacheSize:     cfg.ReportCacheSize,
		CacheTTL:      cfg.ReportCacheTTL,
		MaxConcurrent: cfg.MaxConcurrent,
	})
	if err != nil {
		l.Error("service_init_error", "err", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.APIBase+"/", http.StripPrefix(cfg.APIBase, api.BuildRoutes(svc)))
	mux.Handle(cfg.APIBase+"/metrics", metrics.Handler())

	var handler http.Handler = mux
	handler = middleware.MaxBody(cfg.MaxBodyBytes)(handler)
	if cfg.RateLimit {
		handler = middleware.RateLimit(middleware.NewTokenBucket(cfg.RateLimitQPS))(handler)
	}
	handler = logger.AccessMiddleware(l)(handler)
	s := &http.Server{Addr: cfg.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = s.Shutdown(sctx)
	}()

	if os.Getenv("TLS_ENABLE") == "true" {
		certPath := os.Getenv("TLS_CERT_PATH")
		keyPath := os.Getenv("TLS_KEY_PATH")
		if certPath == "" {
			certPath = filepath.Join("data", "certs", "server.crt")
		}
		if keyPath == "" {
			keyPath = filepath.Join("data", "certs", "server.key")
		}
		if err := utils.EnsureSelfSignedCert(certPath, keyPath, "geocompare.local"); err != nil {
			l.Error("tls_cert_error", "err", err)
			os.Exit(1)
		}
		l.Info("listening_tls", "addr", cfg.Addr, "cert", certPath)
		err = s.ListenAndServeTLS(certPath, keyPath)
	} else {
		l.Info("listening", "addr", cfg.Addr)
		err = s.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Error("server_error", "err", err)
		os.Exit(1)
	}
	l.Info("server_stopped")
}
