// Package metrics provides Prometheus metrics for the bramble ingestion engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsTotal tracks input records by outcome (processed, skipped)
	RecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bramble",
			Subsystem: "ingest",
			Name:      "records_total",
			Help:      "Total number of input records by outcome",
		},
		[]string{"outcome"},
	)

	// FieldsExtracted tracks extracted field values by group and field
	FieldsExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bramble",
			Subsystem: "extraction",
			Name:      "fields_total",
			Help:      "Total number of field values extracted",
		},
		[]string{"group", "field"},
	)

	// PatternErrors tracks pattern evaluations that failed, usually on match timeout
	PatternErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bramble",
			Subsystem: "extraction",
			Name:      "pattern_errors_total",
			Help:      "Total number of pattern evaluations that failed",
		},
		[]string{"group", "field"},
	)

	// IdentityMisses tracks entity groups skipped for lack of a canonical name
	IdentityMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bramble",
			Subsystem: "canonical",
			Name:      "identity_misses_total",
			Help:      "Total number of entities skipped because no identity was extracted",
		},
		[]string{"entity_type"},
	)

	// NodesUpserted tracks node upserts by label
	NodesUpserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bramble",
			Subsystem: "graph",
			Name:      "nodes_upserted_total",
			Help:      "Total number of node upserts by label",
		},
		[]string{"label"},
	)

	// RelationshipsUpserted tracks edge upserts by type
	RelationshipsUpserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bramble",
			Subsystem: "graph",
			Name:      "relationships_upserted_total",
			Help:      "Total number of relationship upserts by type",
		},
		[]string{"type"},
	)

	// StatementDuration tracks graph statement duration
	StatementDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bramble",
			Subsystem: "graph",
			Name:      "statement_duration_seconds",
			Help:      "Duration of graph statements in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)

	// StoreErrors tracks failed graph statements
	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bramble",
			Subsystem: "graph",
			Name:      "errors_total",
			Help:      "Total number of failed graph statements",
		},
		[]string{"operation"},
	)

	// RunDuration tracks ingestion run duration
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bramble",
			Subsystem: "ingest",
			Name:      "run_duration_seconds",
			Help:      "Duration of ingestion runs in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
		},
		[]string{"status"},
	)

	// KafkaMessagesPublished tracks change events published to Kafka
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bramble",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"topic", "status"},
	)

	// KafkaPublishDuration tracks Kafka publish duration
	KafkaPublishDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "bramble",
			Subsystem: "kafka",
			Name:      "publish_duration_seconds",
			Help:      "Duration of Kafka publish operations in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		},
	)

	// HTTPRequestsTotal tracks read API requests
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bramble",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of read API requests",
		},
		[]string{"method", "route", "status_code"},
	)
)

// RecordStatement records a graph statement metric
func RecordStatement(operation string, durationSeconds float64, err error) {
	StatementDuration.WithLabelValues(operation).Observe(durationSeconds)
	if err != nil {
		StoreErrors.WithLabelValues(operation).Inc()
	}
}

// RecordRun records a finished ingestion run
func RecordRun(status string, durationSeconds float64) {
	RunDuration.WithLabelValues(status).Observe(durationSeconds)
}

// RecordKafkaPublish records a Kafka publish operation
func RecordKafkaPublish(topic, status string, durationSeconds float64) {
	KafkaMessagesPublished.WithLabelValues(topic, status).Inc()
	KafkaPublishDuration.Observe(durationSeconds)
}
