// 包 metrics：Prometheus 指标定义与注册
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geocompare_runs_total",
		Help: "Total compare runs by final status",
	}, []string{"status"})
	RunDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "geocompare_run_duration_ms",
		Help:    "Compare run duration in milliseconds",
		Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 30000, 120000},
	})
	FeaturesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geocompare_features_total",
		Help: "Total features emitted by partition",
	}, []string{"partition"})
	SkippedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geocompare_skipped_total",
		Help: "Total records skipped by reason",
	}, []string{"reason"})
	RescuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geocompare_rescued_total",
		Help: "Total geometry rescue matches",
	})
	APIRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geocompare_api_requests_total",
		Help: "Total /compare requests",
	})
	ReportCacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geocompare_report_cache_hits_total",
		Help: "Report cache hits by layer (lru, redis)",
	}, []string{"layer"})
)

func init() {
	prometheus.MustRegister(RunsTotal)
	prometheus.MustRegister(RunDurationMs)
	prometheus.MustRegister(FeaturesTotal)
	prometheus.MustRegister(SkippedTotal)
	prometheus.MustRegister(RescuedTotal)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(ReportCacheHitsTotal)
}

// 文档注释：返回 Prometheus 指标监听器
// 背景：统一暴露注册指标，供 Prometheus 抓取；在服务入口挂载到 {API_BASE}/metrics。
func Handler() http.Handler { return promhttp.Handler() }
