package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"operation", "table"},
	)

	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"routing_key", "queue"},
	)

	ProposalsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proposals_submitted_total",
			Help: "Total number of proposals submitted",
		},
		[]string{"outcome"}, // accepted_for_review, validation_failed, conflict
	)

	InvitationsFannedOut = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "invitations_fanned_out_total",
			Help: "Total number of provider invitations created by publish fan-out",
		},
	)

	ProposalCascades = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proposal_accept_cascades_total",
			Help: "Total number of proposal acceptance cascades",
		},
		[]string{"outcome"}, // applied, noop, conflict, failed
	)

	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_created_total",
			Help: "Total number of provider notifications created",
		},
		[]string{"kind"}, // invited, won, closed
	)

	SlowQueries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "db_slow_queries_total",
			Help: "Total number of queries slower than the configured threshold",
		},
	)
)

// IncrementSlowQuery counts a query that crossed the slow-query threshold.
// The SQL text goes to the log, not the metric, to keep cardinality bounded.
func IncrementSlowQuery(duration time.Duration) {
	SlowQueries.Inc()
	DBQueryDuration.WithLabelValues("slow", "any").Observe(duration.Seconds())
}

// RecordHTTPRequestDuration records a handled HTTP request.
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordDBQueryDuration records a repository query.
func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// RecordMQConsumeLatency records how long a consumed message took to process.
func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}
