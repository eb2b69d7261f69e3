// Package metrics 采集管道的 Prometheus 指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "forum_ingest"

var (
	// PagesFetched 按平台与结果（ok, soft_failure, error）统计页数
	PagesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pages_fetched_total",
		Help:      "Pages fetched per platform and outcome.",
	}, []string{"platform", "outcome"})

	RecordsNormalized = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_normalized_total",
		Help:      "Raw records normalized per platform and outcome.",
	}, []string{"platform", "outcome"})

	PostsUpserted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "posts_upserted_total",
		Help:      "Posts written by upsert per platform.",
	}, []string{"platform"})

	CrawlDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "crawl_run_duration_seconds",
		Help:      "Duration of a crawl run.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	}, []string{"platform"})
)

const (
	OutcomeOK          = "ok"
	OutcomeSoftFailure = "soft_failure"
	OutcomeError       = "error"
	OutcomeSkipped     = "skipped"
)
