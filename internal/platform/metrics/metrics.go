package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registration engine and the
// Directory client. All methods are safe on a nil receiver.
type Metrics struct {
	// Classification outcomes by lookup mode and outcome kind
	SearchOutcomes *prometheus.CounterVec

	// Searches that failed open to NoMatch, by mode
	SearchFailures *prometheus.CounterVec

	// Responses discarded because a newer request superseded them
	StaleResponses prometheus.Counter

	// Save attempts by result: created, attached, already_owned, declined, invalid, failed
	Submissions *prometheus.CounterVec

	// Directory Service call latency by operation and status
	DirectoryLatency *prometheus.HistogramVec

	// Directory circuit breaker transitions (opened/closed)
	BreakerTransitions *prometheus.CounterVec

	// Species list cache lookups by result (hit/miss)
	SpeciesCache *prometheus.CounterVec

	// Open registration sessions
	ActiveSessions prometheus.Gauge
}

// New creates the metrics and registers them with reg. Passing a fresh
// prometheus.NewRegistry() keeps tests independent of the global registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SearchOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vetdesk_registration_search_outcomes_total",
			Help: "Identity search classifications by mode and outcome",
		}, []string{"mode", "outcome"}),

		SearchFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vetdesk_registration_search_failures_total",
			Help: "Identity searches that failed and degraded to no match",
		}, []string{"mode"}),

		StaleResponses: f.NewCounter(prometheus.CounterOpts{
			Name: "vetdesk_registration_stale_responses_total",
			Help: "Search responses discarded because a newer request superseded them",
		}),

		Submissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vetdesk_registration_submissions_total",
			Help: "Registration save attempts by result",
		}, []string{"result"}),

		DirectoryLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vetdesk_directory_request_duration_seconds",
			Help:    "Duration of Directory Service calls",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"operation", "status"}),

		BreakerTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vetdesk_directory_breaker_transitions_total",
			Help: "Directory circuit breaker state transitions",
		}, []string{"transition"}),

		SpeciesCache: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vetdesk_species_cache_lookups_total",
			Help: "Species list cache lookups by result",
		}, []string{"result"}),

		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "vetdesk_registration_active_sessions",
			Help: "Registration sessions currently open",
		}),
	}
}

func (m *Metrics) IncrementSearchOutcome(mode, outcome string) {
	if m != nil {
		m.SearchOutcomes.WithLabelValues(mode, outcome).Inc()
	}
}

func (m *Metrics) IncrementSearchFailure(mode string) {
	if m != nil {
		m.SearchFailures.WithLabelValues(mode).Inc()
	}
}

func (m *Metrics) IncrementStaleResponse() {
	if m != nil {
		m.StaleResponses.Inc()
	}
}

func (m *Metrics) IncrementSubmission(result string) {
	if m != nil {
		m.Submissions.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) ObserveDirectoryLatency(operation, status string, d time.Duration) {
	if m != nil {
		m.DirectoryLatency.WithLabelValues(operation, status).Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementBreakerTransition(transition string) {
	if m != nil {
		m.BreakerTransitions.WithLabelValues(transition).Inc()
	}
}

func (m *Metrics) IncrementSpeciesCache(result string) {
	if m != nil {
		m.SpeciesCache.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) SessionOpened() {
	if m != nil {
		m.ActiveSessions.Inc()
	}
}

func (m *Metrics) SessionClosed() {
	if m != nil {
		m.ActiveSessions.Dec()
	}
}
