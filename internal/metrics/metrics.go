package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	holdsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "apptcore",
			Name:      "holds_created_total",
			Help:      "Count of booking holds created.",
		},
	)

	holdConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "apptcore",
			Name:      "hold_conflicts_total",
			Help:      "Count of hold requests rejected on interval conflict.",
		},
	)

	bookingsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "apptcore",
			Name:      "bookings_created_total",
			Help:      "Count of bookings created by initial status.",
		},
		[]string{"status"},
	)

	bookingsCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "apptcore",
			Name:      "bookings_cancelled_total",
			Help:      "Count of bookings cancelled.",
		},
	)

	outboxDelivered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "apptcore",
			Name:      "outbox_delivered_total",
			Help:      "Count of outbox events delivered to the broker.",
		},
	)

	outboxFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "apptcore",
			Name:      "outbox_failed_total",
			Help:      "Count of outbox delivery failures by finality.",
		},
		[]string{"terminal"},
	)

	holdsSwept = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "apptcore",
			Name:      "holds_swept_total",
			Help:      "Count of expired holds physically deleted.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(holdsCreated, holdConflicts, bookingsCreated,
			bookingsCancelled, outboxDelivered, outboxFailed, holdsSwept)
	})
}

func IncHoldCreated() {
	holdsCreated.Inc()
}

func IncHoldConflict() {
	holdConflicts.Inc()
}

func IncBookingCreated(status string) {
	bookingsCreated.WithLabelValues(status).Inc()
}

func IncBookingCancelled() {
	bookingsCancelled.Inc()
}

func IncOutboxDelivered() {
	outboxDelivered.Inc()
}

func IncOutboxFailed(terminal bool) {
	if terminal {
		outboxFailed.WithLabelValues("true").Inc()
	} else {
		outboxFailed.WithLabelValues("false").Inc()
	}
}

func AddHoldsSwept(n int64) {
	holdsSwept.Add(float64(n))
}
