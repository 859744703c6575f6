package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WizardTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "markup_wizard_transitions_total",
			Help: "Wizard transitions by action and outcome",
		},
		[]string{"action", "outcome"},
	)

	WizardValidationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "markup_wizard_validation_errors_total",
			Help: "Field validation failures by field and code",
		},
		[]string{"field", "code"},
	)

	MarkupDivisor = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "markup_divisor",
			Help:    "Distribution of computed markup divisors",
			Buckets: []float64{1.1, 1.25, 1.5, 1.75, 2, 2.5, 3, 5, 10},
		},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "markup_notifications_total",
			Help: "Lead notification attempts by notifier and result",
		},
		[]string{"notifier", "result"},
	)

	NotificationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "markup_notification_duration_seconds",
			Help: "Duration of a lead notification attempt",
		},
		[]string{"notifier"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "markup_sessions_active",
			Help: "Sessions currently held by the in-memory store",
		},
	)
)
