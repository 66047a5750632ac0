// 包 api：集中注册 HTTP API 路由以解耦主入口
package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"geo-compare/internal/driver"
	"geo-compare/internal/feature"
	"geo-compare/internal/logger"
	"geo-compare/internal/match"
	"geo-compare/internal/metrics"
	"geo-compare/internal/report"
	"geo-compare/internal/sink"
	"geo-compare/internal/source"
	"geo-compare/internal/store"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/paulmach/orb/geojson"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

// Defaults：请求未携带参数时的缺省值
type Defaults struct {
	Kind             feature.Kind
	IDField          string
	Policy           match.RescuePolicy
	SpatialThreshold int
}

type cached struct {
	body []byte
	at   time.Time
}

// 文档注释：比较服务
// 背景：相同请求体的结果先查进程内 LRU，再查 Redis；并发的相同请求合并为一次运行。
// 约束：Store 与 Redis 均可为空；MaxConcurrent 限制同时进行的比较数。
// 合并的运行在所有等待请求断开后取消；缓存内容不含 run_id，命中缓存不登记新运行。
type Service struct {
	defaults Defaults
	wrap     source.WrapFunc
	st       *store.Store
	rc       *redis.Client
	lru      *lru.Cache[string, cached]
	ttl      time.Duration
	sem      *semaphore.Weighted
	group    singleflight.Group

	mu      sync.Mutex
	flights map[string]*flight
}

// flight：同一请求体的合并运行，waiters 归零时取消
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

type result struct {
	body   []byte
	cached []byte
}

// Options：服务参数
type Options struct {
	Defaults      Defaults
	Wrap          source.WrapFunc
	Store         *store.Store
	Redis         *redis.Client
	CacheSize     int
	CacheTTL      time.Duration
	MaxConcurrent int64
}

func NewService(o Options) (*Service, error) {
	if o.CacheSize <= 0 {
		o.CacheSize = 128
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = time.Hour
	}
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = 4
	}
	c, err := lru.New[string, cached](o.CacheSize)
	if err != nil {
		return nil, err
	}
	return &Service{
		defaults: o.Defaults,
		wrap:     o.Wrap,
		st:       o.Store,
		rc:       o.Redis,
		lru:      c,
		ttl:      o.CacheTTL,
		sem:      semaphore.NewWeighted(o.MaxConcurrent),
		flights:  make(map[string]*flight),
	}, nil
}

// BuildRoutes：独立 ServeMux，便于在主入口挂载到 API 前缀
func BuildRoutes(s *Service) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /compare", s.handleCompare)
	mux.HandleFunc("GET /runs/{id}", s.handleRun)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

func (s *Service) handleCompare(w http.ResponseWriter, r *http.Request) {
	metrics.APIRequestsTotal.Inc()
	ctx := r.Context()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "request body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	sum := sha256.Sum256(body)
	key := hex.EncodeToString(sum[:])

	if b, layer := s.lookup(ctx, key); b != nil {
		metrics.ReportCacheHitsTotal.WithLabelValues(layer).Inc()
		w.Header().Set("x-cache", layer)
		writeRaw(w, http.StatusOK, b)
		return
	}

	fctx, leave := s.join(ctx, key)
	defer leave()
	ch := s.group.DoChan(key, func() (any, error) {
		out, err := s.compare(fctx, body)
		if err != nil {
			return nil, err
		}
		res, err := encodeResult(out)
		if err != nil {
			return nil, err
		}
		s.store(fctx, key, res.cached)
		return res, nil
	})
	var fr singleflight.Result
	select {
	case <-ctx.Done():
		logger.L().Info("api_compare_client_gone", "err", ctx.Err())
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "request canceled"})
		return
	case fr = <-ch:
	}
	if fr.Err != nil {
		status := statusFor(fr.Err)
		logger.L().Warn("api_compare_error", "status", status, "err", fr.Err)
		writeJSON(w, status, errorResponse{Error: fr.Err.Error()})
		return
	}
	if fr.Shared {
		w.Header().Set("x-cache", "shared")
	} else {
		w.Header().Set("x-cache", "miss")
	}
	writeRaw(w, http.StatusOK, fr.Val.(result).body)
}

// join：登记一个等待者并返回合并运行的上下文；返回的函数在请求结束时调用
func (s *Service) join(parent context.Context, key string) (context.Context, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.flights[key]
	if f == nil {
		ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
		f = &flight{ctx: ctx, cancel: cancel}
		s.flights[key] = f
	}
	f.waiters++
	return f.ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		f.waiters--
		if f.waiters > 0 {
			return
		}
		f.cancel()
		if s.flights[key] == f {
			delete(s.flights, key)
		}
	}
}

// encodeResult：响应体带 run_id，缓存体去掉 run_id 以免命中时指向旧运行
func encodeResult(out *compareResponse) (result, error) {
	runID := out.RunID
	out.RunID = 0
	cb, err := json.Marshal(out)
	out.RunID = runID
	if err != nil || runID == 0 {
		return result{body: cb, cached: cb}, err
	}
	body, err := json.Marshal(out)
	return result{body: body, cached: cb}, err
}

var errBadRequest = errors.New("bad request")

func (s *Service) compare(ctx context.Context, body []byte) (*compareResponse, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.sem.Release(1)

	var req compareRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	dreq := driver.Request{
		Kind:             s.defaults.Kind,
		IDField:          s.defaults.IDField,
		Policy:           s.defaults.Policy,
		SpatialThreshold: s.defaults.SpatialThreshold,
	}
	if req.GeometryType != "" {
		k, ok := feature.ParseKind(req.GeometryType)
		if !ok {
			return nil, fmt.Errorf("%w: geometry_type %q", errBadRequest, req.GeometryType)
		}
		dreq.Kind = k
	}
	if req.IDField != "" {
		dreq.IDField = req.IDField
	}
	if req.RescuePolicy != "" {
		p, ok := match.ParseRescuePolicy(req.RescuePolicy)
		if !ok {
			return nil, fmt.Errorf("%w: rescue_policy %q", errBadRequest, req.RescuePolicy)
		}
		dreq.Policy = p
	}
	if req.Old != nil {
		dreq.Old = source.FromFeatureCollection("old", req.Old, s.wrap)
	}
	if req.New != nil {
		dreq.New = source.FromFeatureCollection("new", req.New, s.wrap)
	}

	mem := map[sink.Partition]*sink.Memory{sink.Added: sink.NewMemory(), sink.Deleted: sink.NewMemory(), sink.Modified: sink.NewMemory()}
	sinks := driver.Sinks{Added: mem[sink.Added], Deleted: mem[sink.Deleted], Modified: mem[sink.Modified]}
	runID, err := s.beginRun(ctx, dreq, &sinks)
	if err != nil {
		return nil, err
	}
	res, err := driver.Run(ctx, dreq, sinks, nil)
	s.finishRun(context.WithoutCancel(ctx), runID, res, err)
	if err != nil {
		return nil, err
	}

	rep := res.Report
	out := &compareResponse{
		RunID:       runID,
		Summary:     rep.Summary(),
		Added:       collect(mem[sink.Added]),
		Deleted:     collect(mem[sink.Deleted]),
		Modified:    collect(mem[sink.Modified]),
		Rescued:     make([]rescuedPair, 0, len(rep.Rescued)),
		Diagnostics: rep.Diagnostics,
	}
	for _, p := range rep.Rescued {
		out.Rescued = append(out.Rescued, rescuedPair{OldID: p.OldID, NewID: p.NewID})
	}
	return out, nil
}

// beginRun：配置了 Store 时登记运行并为各分区追加 Postgres 写入端
func (s *Service) beginRun(ctx context.Context, req driver.Request, sinks *driver.Sinks) (int64, error) {
	if s.st == nil || req.Old == nil || req.New == nil {
		return 0, nil
	}
	id, err := s.st.CreateRun(ctx, store.RunMeta{
		GeometryType: req.Kind.String(),
		IDField:      req.IDField,
		Policy:       req.Policy.String(),
		OldName:      req.Old.Name,
		NewName:      req.New.Name,
	})
	if err != nil {
		return 0, err
	}
	sinks.Added = sink.Tee{sinks.Added, sink.NewPostgres(s.st, id, sink.Added)}
	sinks.Deleted = sink.Tee{sinks.Deleted, sink.NewPostgres(s.st, id, sink.Deleted)}
	sinks.Modified = sink.Tee{sinks.Modified, sink.NewPostgres(s.st, id, sink.Modified)}
	return id, nil
}

func (s *Service) finishRun(ctx context.Context, id int64, res *driver.Result, runErr error) {
	if s.st == nil || id == 0 {
		return
	}
	status := "ok"
	switch {
	case errors.Is(runErr, driver.ErrCanceled):
		status = "canceled"
	case runErr != nil:
		status = "error"
	}
	var rep *report.Report
	if res != nil {
		rep = res.Report
	}
	if err := s.st.FinishRun(ctx, id, status, rep, runErr); err != nil {
		logger.L().Error("db_finish_run_error", "run_id", id, "err", err)
	}
}

func collect(m *sink.Memory) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, r := range m.Records() {
		fc.Append(source.ToFeature(r))
	}
	return fc
}

func (s *Service) lookup(ctx context.Context, key string) ([]byte, string) {
	if c, ok := s.lru.Get(key); ok {
		if time.Since(c.at) < s.ttl {
			return c.body, "lru"
		}
		s.lru.Remove(key)
	}
	if s.rc == nil {
		return nil, ""
	}
	b, err := s.rc.Get(ctx, redisKey(key)).Bytes()
	if err != nil || len(b) == 0 {
		return nil, ""
	}
	s.lru.Add(key, cached{body: b, at: time.Now()})
	return b, "redis"
}

func (s *Service) store(ctx context.Context, key string, b []byte) {
	s.lru.Add(key, cached{body: b, at: time.Now()})
	if s.rc != nil {
		if err := s.rc.Set(ctx, redisKey(key), b, s.ttl).Err(); err != nil {
			logger.L().Debug("redis_report_set_error", "err", err)
		}
	}
}

func redisKey(key string) string { return "geocompare:report:" + key }

func (s *Service) handleRun(w http.ResponseWriter, r *http.Request) {
	if s.st == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "run store disabled"})
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad run id"})
		return
	}
	ctx := r.Context()
	run, err := s.st.GetRun(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	part := r.URL.Query().Get("partition")
	if part == "" {
		writeJSON(w, http.StatusOK, run)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	feats, err := s.st.ListFeatures(ctx, id, part, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	if feats == nil {
		feats = []json.RawMessage{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"type": "FeatureCollection", "features": feats})
}

func statusFor(err error) int {
	var ie *driver.InputError
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.As(err, &ie), errors.Is(err, driver.ErrGeometryTypeMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, driver.ErrCanceled), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		b = []byte(`{"error":"encode"}`)
	}
	writeRaw(w, status, b)
}

func writeRaw(w http.ResponseWriter, status int, b []byte) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}
