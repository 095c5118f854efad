package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dental_scheduling",
			Name:      "booking_decisions_total",
			Help:      "Count of orchestrator operations by outcome.",
		},
		[]string{"operation", "outcome"},
	)

	conflictRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dental_scheduling",
			Name:      "conflict_rejections_total",
			Help:      "Count of rejected bookings by conflict reason.",
		},
		[]string{"reason"},
	)

	lockWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "dental_scheduling",
			Name:      "calendar_lock_wait_seconds",
			Help:      "Time spent waiting for a dentist calendar lock.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingDecisions, conflictRejections, lockWait)
	})
}

func IncBookingDecision(operation, outcome string) {
	bookingDecisions.WithLabelValues(operation, outcome).Inc()
}

func IncConflictRejection(reason string) {
	conflictRejections.WithLabelValues(reason).Inc()
}

func ObserveLockWait(d time.Duration) {
	lockWait.Observe(d.Seconds())
}
