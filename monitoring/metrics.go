package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	registrationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_registration_attempts_total",
			Help: "Registration attempts by outcome",
		},
		[]string{"outcome"},
	)

	cancellations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "event_registration_cancellations_total",
			Help: "Successful registration cancellations",
		},
	)

	paymentsCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "event_payments_completed_total",
			Help: "Payments moved to Completed",
		},
	)

	emails = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_emails_total",
			Help: "Notification emails by status",
		},
		[]string{"status"},
	)
)

// TrackRegistration records one registration attempt; outcome is "success"
// or the conflict that rejected it (e.g. "full", "duplicate").
func TrackRegistration(outcome string) {
	registrationAttempts.WithLabelValues(outcome).Inc()
}

func TrackCancellation() {
	cancellations.Inc()
}

func TrackPaymentCompleted() {
	paymentsCompleted.Inc()
}

// TrackEmail records a dispatcher event: queued, sent, failed or dropped.
func TrackEmail(status string) {
	emails.WithLabelValues(status).Inc()
}
