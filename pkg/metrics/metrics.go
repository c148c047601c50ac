package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Booking metrics
	AppointmentsCreated     prometheus.Counter
	AppointmentsCancelled   prometheus.Counter
	AppointmentsRescheduled prometheus.Counter
	CheckIns                prometheus.Counter
	SlotRequests            prometheus.Counter

	// Queue metrics
	QueueAdmissions  prometheus.Counter
	QueueDepth       *prometheus.GaugeVec
	QueueWaitSeconds prometheus.Histogram
	CallOutsEmitted  prometheus.Counter

	// Outbox metrics
	OutboxEventsProcessed   prometheus.Counter
	OutboxEventsFailed      prometheus.Counter
	OutboxProcessingLatency prometheus.Histogram

	// Database metrics
	DatabaseOperations *prometheus.CounterVec
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		AppointmentsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "appointments_created_total",
			Help:      "Total appointments booked",
		}),
		AppointmentsCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "appointments_cancelled_total",
			Help:      "Total appointments cancelled",
		}),
		AppointmentsRescheduled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "appointments_rescheduled_total",
			Help:      "Total successful reschedules",
		}),
		CheckIns: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkins_total",
			Help:      "Total successful check-ins",
		}),
		SlotRequests: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slot_requests_total",
			Help:      "Total availability queries",
		}),
		QueueAdmissions: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_admissions_total",
			Help:      "Total queue entries created",
		}),
		QueueDepth: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Current waiting entries per branch",
		}, []string{"branch_id"}),
		QueueWaitSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "queue_wait_seconds",
			Help:      "Time between queue admission and call-out",
			Buckets:   prometheus.ExponentialBuckets(30, 2, 10),
		}),
		CallOutsEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "callouts_emitted_total",
			Help:      "Total announce events emitted by the call-out engine",
		}),
		OutboxEventsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_processed_total",
			Help:      "Outbox events published to the broker",
		}),
		OutboxEventsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_failed_total",
			Help:      "Outbox events that exhausted retries",
		}),
		OutboxProcessingLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "outbox_processing_seconds",
			Help:      "Latency of one outbox processing batch",
		}),
		DatabaseOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Database operations by name and result",
		}, []string{"operation", "result"}),
	}
}
