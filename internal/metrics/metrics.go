package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 请求
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_requests_total",
			Help: "Total number of recommendation requests by pipeline",
		},
		[]string{"pipeline"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommend_request_duration_seconds",
			Help:    "Duration of recommendation pipelines in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"pipeline"},
	)

	FallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_fallbacks_total",
			Help: "Total number of times a fallback list was served",
		},
		[]string{"reason"}, // "unknown_user", "no_candidates", "pipeline_error", "popular"
	)

	NodeErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_node_errors_total",
			Help: "Total number of pipeline node failures",
		},
		[]string{"node"},
	)

	// 交互
	TagClicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommend_tag_clicks_total",
			Help: "Total number of recorded tag clicks",
		},
	)

	ViewsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommend_views_total",
			Help: "Total number of recorded item views",
		},
	)

	PersistFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommend_persist_failures_total",
			Help: "Total number of failed profile snapshot writes",
		},
	)

	// 索引
	IndexRebuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_index_rebuilds_total",
			Help: "Total number of similarity index rebuilds",
		},
		[]string{"index"}, // "content", "interactions"
	)

	IndexBuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommend_index_build_duration_seconds",
			Help:    "Duration of similarity index builds in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"index"},
	)

	RowCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommend_row_cache_hits_total",
			Help: "Total number of content similarity row cache hits",
		},
	)

	RowCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommend_row_cache_misses_total",
			Help: "Total number of content similarity row cache misses",
		},
	)

	// 数据规模
	CatalogItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recommend_catalog_items",
			Help: "Number of items in the loaded catalog",
		},
	)

	UserProfiles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recommend_user_profiles",
			Help: "Number of user profiles in the store",
		},
	)

	// HTTP
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommend_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// ObserveIndexBuild 记录一次索引构建
func ObserveIndexBuild(index string, start time.Time) {
	IndexRebuildsTotal.WithLabelValues(index).Inc()
	IndexBuildDuration.WithLabelValues(index).Observe(time.Since(start).Seconds())
}

// ObserveRequest 记录一次推荐流程
func ObserveRequest(pipeline string, start time.Time) {
	RequestsTotal.WithLabelValues(pipeline).Inc()
	RequestDuration.WithLabelValues(pipeline).Observe(time.Since(start).Seconds())
}
