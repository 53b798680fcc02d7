// Package metrics 定义了服务暴露给 Prometheus 的指标。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AskTotal 按结果统计问答请求：answered / degraded / no_answer / rejected。
	AskTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pai_search",
		Name:      "ask_requests_total",
		Help:      "Ask requests by outcome.",
	}, []string{"outcome"})

	// AskDuration 记录问答流水线耗时（秒）。
	AskDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "pai_search",
		Name:      "ask_duration_seconds",
		Help:      "End-to-end ask pipeline latency.",
		Buckets:   []float64{0.5, 1, 2, 4, 8, 15, 25},
	})

	// VisualizationTotal 按结果统计图表抽取：skipped / accepted / rejected / failed。
	VisualizationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pai_search",
		Name:      "visualization_total",
		Help:      "Visualization extraction attempts by result.",
	}, []string{"result"})

	// PersistTotal 按结果统计持久化：dispatched / dispatch_failed / stored / failed / malformed。
	PersistTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pai_search",
		Name:      "persist_total",
		Help:      "Search persistence outcomes.",
	}, []string{"result"})
)
