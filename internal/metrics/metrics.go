// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kurosuke/check-pages/internal/model"
)

// Collector はチェック実行に関するPrometheusメトリクスを収集する実装。
// worker/check.Metricsインターフェースを満たす。
type Collector struct {
	checkTotal    *prometheus.CounterVec
	httpStatus    *prometheus.CounterVec
	checkLatency  prometheus.Histogram
	feedFallbacks prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		checkTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "checkpages_check_total",
			Help: "ステータス別のチェック実行数",
		}, []string{"status"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "checkpages_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		checkLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "checkpages_check_latency_seconds",
			Help:    "チェック1件のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		feedFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "checkpages_feed_fallback_total",
			Help: "フィード失敗によるHTMLフォールバックの発生数",
		}),
	}

	reg.MustRegister(
		c.checkTotal,
		c.httpStatus,
		c.checkLatency,
		c.feedFallbacks,
	)

	return c
}

// RecordCheck はチェック結果のステータスを記録する。
func (c *Collector) RecordCheck(status model.CheckStatus) {
	c.checkTotal.WithLabelValues(string(status)).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordCheckLatency はチェック1件のレイテンシを記録する。
func (c *Collector) RecordCheckLatency(duration time.Duration) {
	c.checkLatency.Observe(duration.Seconds())
}

// RecordFeedFallback はHTMLフォールバックの発生を記録する。
func (c *Collector) RecordFeedFallback() {
	c.feedFallbacks.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
