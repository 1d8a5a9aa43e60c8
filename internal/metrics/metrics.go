// Package metrics defines the Prometheus collectors shared across the application.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Redis Cache Metrics
var (
	// CacheOpsTotal tracks Redis operations by command and status.
	CacheOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_operations_total",
			Help: "Total Redis cache operations by operation and status",
		},
		[]string{"operation", "status"},
	)

	// CacheOpDuration tracks Redis operation latency in seconds.
	CacheOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cache_operation_duration_seconds",
			Help:    "Redis cache operation duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	// CacheConnectionErrors tracks failed Redis dials.
	CacheConnectionErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_connection_errors_total",
			Help: "Total Redis connection errors",
		},
	)

	// CacheConnectAttempts tracks connect attempts against the Redis backend.
	CacheConnectAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_connect_attempts_total",
			Help: "Total connection attempts to the Redis backend",
		},
	)

	// CacheUnavailable is 1 while the cache client has exhausted its connect
	// attempts and degraded to always-miss, 0 otherwise.
	CacheUnavailable = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cache_unavailable",
			Help: "Whether the cache client is permanently unavailable (1) or not (0)",
		},
	)
)

// SSE Broadcaster Metrics
var (
	// SSEConnectedClients tracks currently registered SSE connections.
	SSEConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sse_connected_clients",
			Help: "Number of currently registered SSE connections",
		},
	)

	// SSEEventsBroadcastTotal tracks broadcast events by event type.
	SSEEventsBroadcastTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sse_events_broadcast_total",
			Help: "Total events broadcast to SSE clients by type",
		},
		[]string{"type"},
	)

	// SSEWriteFailuresTotal tracks writes that failed and evicted a connection.
	SSEWriteFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sse_write_failures_total",
			Help: "Total SSE write failures causing connection eviction",
		},
	)

	// SSESlowClientsEvicted tracks clients evicted due to a full send buffer.
	SSESlowClientsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sse_slow_clients_evicted_total",
			Help: "Total slow SSE clients evicted due to buffer full",
		},
	)

	// SSEStaleConnectionsSwept tracks connections removed by the stale sweep.
	SSEStaleConnectionsSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sse_stale_connections_swept_total",
			Help: "Total SSE connections removed by the periodic stale sweep",
		},
	)

	// SSEKeepAlivesTotal tracks keep-alive comment lines written.
	SSEKeepAlivesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sse_keepalives_total",
			Help: "Total keep-alive lines written to SSE clients",
		},
	)
)

// Ingest Metrics
var (
	// IngestArticlesTotal tracks newly ingested articles by feed source.
	IngestArticlesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_articles_total",
			Help: "Total newly ingested articles by feed source",
		},
		[]string{"source"},
	)

	// IngestPollDuration tracks the duration of one full poll cycle.
	IngestPollDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_poll_duration_seconds",
			Help:    "Duration of one full feed poll cycle in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	// IngestFeedErrors tracks feed fetch/parse failures by feed URL.
	IngestFeedErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_feed_errors_total",
			Help: "Total feed fetch or parse failures by feed URL",
		},
		[]string{"feed"},
	)
)

// HTTP / Stream Endpoint Metrics
var (
	// StreamConnectionsRejected tracks stream connections rejected by limits.
	StreamConnectionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream_connections_rejected_total",
			Help: "Total stream connections rejected by connection limits, by reason",
		},
		[]string{"reason"},
	)

	// SocialWebhookTotal tracks fire-and-forget social webhook deliveries.
	SocialWebhookTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "social_webhook_total",
			Help: "Total social content webhook deliveries by status",
		},
		[]string{"status"},
	)
)
