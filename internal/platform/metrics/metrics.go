package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	UsersRegistered      prometheus.Counter
	OrganizationsCreated prometheus.Counter
	AccessDecisions      *prometheus.CounterVec
	ConsentTransitions   *prometheus.CounterVec
	AnalyticsRefreshes   prometheus.Counter
	HTTPDuration         *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		UsersRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cohort_users_registered_total",
			Help: "Total number of users registered",
		}),
		OrganizationsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cohort_organizations_created_total",
			Help: "Total number of organizations provisioned",
		}),
		AccessDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cohort_access_decisions_total",
			Help: "Access evaluations by outcome and first deny reason",
		}, []string{"outcome", "reason"}),
		ConsentTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cohort_consent_transitions_total",
			Help: "Parental consent status transitions by kind",
		}, []string{"kind"}),
		AnalyticsRefreshes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cohort_analytics_refreshes_total",
			Help: "Analytics snapshot regenerations",
		}),
		HTTPDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cohort_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
}

// RecordAccessDecision counts one evaluation. The reason label is empty for
// allows.
func (m *Metrics) RecordAccessDecision(allowed bool, reason string) {
	outcome := "deny"
	if allowed {
		outcome = "allow"
	}
	m.AccessDecisions.WithLabelValues(outcome, reason).Inc()
}
