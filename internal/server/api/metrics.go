package api

import (
	"github.com/prometheus/client_golang/prometheus"

	"fileshare/internal/server/service"
	"fileshare/internal/server/session"
)

// Result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultMissing = "not_found"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	decisions      *prometheus.CounterVec
	sessionExpired prometheus.Counter
	uploads        *prometheus.CounterVec
	deletes        *prometheus.CounterVec
	toggles        prometheus.Counter
	sessionsActive prometheus.GaugeFunc
}

// NewMetrics creates the collectors and registers them with registry.
// If registry is nil, metrics are created but not registered.
func NewMetrics(registry prometheus.Registerer, tracker *session.Tracker) *Metrics {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fileshare",
				Name:      "access_decisions_total",
				Help:      "Access decisions by outcome",
			},
			[]string{"decision"},
		),
		sessionExpired: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "fileshare",
				Name:      "sessions_expired_total",
				Help:      "Sessions that expired and forced re-authentication",
			},
		),
		uploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fileshare",
				Name:      "uploads_total",
				Help:      "Upload attempts by result",
			},
			[]string{"result"},
		),
		deletes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fileshare",
				Name:      "deletes_total",
				Help:      "Delete attempts by result",
			},
			[]string{"result"},
		),
		toggles: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "fileshare",
				Name:      "visibility_toggles_total",
				Help:      "Successful visibility changes",
			},
		),
		sessionsActive: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: "fileshare",
				Name:      "sessions_active",
				Help:      "Credentials currently tracked by the session guard",
			},
			func() float64 {
				if tracker == nil {
					return 0
				}
				return float64(tracker.Len())
			},
		),
	}

	if registry != nil {
		registry.MustRegister(
			m.decisions,
			m.sessionExpired,
			m.uploads,
			m.deletes,
			m.toggles,
			m.sessionsActive,
		)
	}

	return m
}

func (m *Metrics) ObserveDecision(d service.Decision) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(d.String()).Inc()
}

func (m *Metrics) ObserveSessionExpired() {
	if m == nil {
		return
	}
	m.sessionExpired.Inc()
}

func (m *Metrics) ObserveUpload(result string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveDelete(result string) {
	if m == nil {
		return
	}
	m.deletes.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveToggle() {
	if m == nil {
		return
	}
	m.toggles.Inc()
}
