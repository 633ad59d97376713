// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jelita_http_requests_total",
			Help: "Total number of HTTP requests handled",
		},
		[]string{"service", "method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jelita_http_request_duration_seconds",
			Help:    "Duration of HTTP request handling in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "route"},
	)

	HTTPRequestsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "jelita_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
		[]string{"service"},
	)

	SideEffectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jelita_side_effects_total",
			Help: "Cross-service side effects by outcome",
		},
		[]string{"name", "criticality", "outcome"},
	)

	StatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jelita_status_transitions_total",
			Help: "Record status transitions by entity and target status",
		},
		[]string{"entity", "status"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jelita_cache_lookups_total",
			Help: "List cache lookups by result",
		},
		[]string{"cache", "result"},
	)

	RegistrationNumberCollisions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jelita_registration_number_collisions_total",
			Help: "Registration numbers regenerated after a unique-constraint collision",
		},
	)

	SurveySubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jelita_survey_submissions_total",
			Help: "Completed SKM submissions by satisfaction category",
		},
		[]string{"category"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jelita_notifications_total",
			Help: "Survey notification deliveries by channel and status",
		},
		[]string{"channel", "status"},
	)
)
