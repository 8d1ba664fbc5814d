// Package metrics defines Prometheus metrics for the sync service.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "opensync_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opensync_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opensync_errors_total",
			Help: "Total errors by type",
		},
		[]string{"type"},
	)

	PushBatches = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "opensync_push_batches_total",
			Help: "Total accepted push batches",
		},
	)

	ActionsApplied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opensync_actions_applied_total",
			Help: "Journal actions applied, by kind",
		},
		[]string{"kind"},
	)

	ActionsDeduplicated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "opensync_actions_deduplicated_total",
			Help: "Push actions skipped as duplicates",
		},
	)

	Pulls = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "opensync_pulls_total",
			Help: "Total incremental pull requests served",
		},
	)

	FullResyncs = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "opensync_full_resyncs_total",
			Help: "Pulls answered with a full-resync instruction",
		},
	)

	SnapshotDownloads = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "opensync_snapshot_downloads_total",
			Help: "Full snapshot downloads served",
		},
	)

	PurgedRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opensync_purged_rows_total",
			Help: "Rows removed by retention purge, by table",
		},
		[]string{"table"},
	)

	PushLogQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "opensync_push_log_queue_depth",
			Help: "Current push log write queue depth",
		},
	)

	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "opensync_websocket_connections",
			Help: "Active WebSocket connections",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestDuration, RequestsTotal, ErrorsTotal,
		PushBatches, ActionsApplied, ActionsDeduplicated,
		Pulls, FullResyncs, SnapshotDownloads,
		PurgedRows, PushLogQueueDepth, WSConnections,
	)
}
