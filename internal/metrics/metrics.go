package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestTotal counts HTTP requests by method, route and status.
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lookup_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	// RequestDuration is the latency of HTTP requests.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lookup_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	// QueriesTotal counts query engine operations (search, filters, export).
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lookup_queries_total",
			Help: "Total number of query engine operations",
		},
		[]string{"operation"},
	)
	// QueryMatches observes how many records each search matched.
	QueryMatches = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lookup_query_matches",
			Help:    "Number of records matched per search",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)
	// ReloadsTotal counts snapshot reloads by dataset and result.
	ReloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lookup_reloads_total",
			Help: "Total number of dataset reloads",
		},
		[]string{"dataset", "result"},
	)
	// SnapshotRecords is the record count of the current snapshot.
	SnapshotRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lookup_snapshot_records",
			Help: "Number of records in the current snapshot",
		},
	)
	// SnapshotLoadedAt is the unix time of the last successful snapshot load.
	SnapshotLoadedAt = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lookup_snapshot_loaded_timestamp_seconds",
			Help: "Unix time of the last successful snapshot load",
		},
	)
	// LoginsTotal counts login attempts by result.
	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lookup_logins_total",
			Help: "Total number of login attempts",
		},
		[]string{"result"},
	)
	// ActiveSessions is the number of live sessions.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lookup_active_sessions",
			Help: "Number of unexpired sessions",
		},
	)
)
