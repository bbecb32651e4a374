package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the inbox service
type Metrics struct {
	ProcessedCount  prometheus.Counter
	DuplicateCount  prometheus.Counter
	Classifications *prometheus.CounterVec
	FallbackCount   prometheus.Counter
	ActionSuccesses prometheus.Counter
	ActionFailures  prometheus.Counter
	ProcessingTime  prometheus.Histogram
	ActiveMailboxes prometheus.Gauge
	FetchErrors     prometheus.Counter
}

// NewMetrics creates new Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		ProcessedCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: "campaign_inbox_processed_count",
			Help: "Total number of inbound messages processed",
		}),
		DuplicateCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: "campaign_inbox_duplicate_count",
			Help: "Total number of messages skipped as duplicates",
		}),
		Classifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "campaign_inbox_classification_count",
			Help: "Total number of replies per classification label",
		}, []string{"classification"}),
		FallbackCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: "campaign_inbox_classifier_fallback_count",
			Help: "Total number of classifications served by the keyword heuristic",
		}),
		ActionSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "campaign_inbox_action_successes",
			Help: "Total number of successfully executed actions",
		}),
		ActionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "campaign_inbox_action_failures",
			Help: "Total number of failed actions",
		}),
		ProcessingTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "campaign_inbox_processing_duration_seconds",
			Help:    "Time spent processing one inbound message",
			Buckets: prometheus.DefBuckets,
		}),
		ActiveMailboxes: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "campaign_inbox_active_mailboxes",
			Help: "Number of mailboxes currently polled",
		}),
		FetchErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "campaign_inbox_fetch_errors",
			Help: "Total number of failed mailbox fetch operations",
		}),
	}
}
