package enforce

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the enforcement engine's Prometheus metrics
type Metrics struct {
	DecisionsTotal     *prometheus.CounterVec
	BypassesTotal      *prometheus.CounterVec
	SignInsTotal       prometheus.Counter
	SweepDuration      prometheus.Histogram
	SweptSessionsTotal prometheus.Counter
}

// NewMetrics creates and registers the enforcement metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		DecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ssogate_decisions_total",
				Help: "Total number of enforcement decisions",
			},
			[]string{"outcome"},
		),
		BypassesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ssogate_bypasses_total",
				Help: "Total number of decisions short-circuited by a bypass rule",
			},
			[]string{"rule"},
		),
		SignInsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ssogate_sign_ins_recorded_total",
				Help: "Total number of sign-ins recorded into session state",
			},
		),
		SweepDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ssogate_expiry_sweep_duration_seconds",
				Help:    "Duration of batch session-expiry sweeps",
				Buckets: prometheus.DefBuckets,
			},
		),
		SweptSessionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ssogate_expiry_swept_sessions_total",
				Help: "Total number of provider sessions examined by expiry sweeps",
			},
		),
	}

	if registry != nil {
		registry.MustRegister(
			m.DecisionsTotal,
			m.BypassesTotal,
			m.SignInsTotal,
			m.SweepDuration,
			m.SweptSessionsTotal,
		)
	}

	return m
}

func (m *Metrics) recordDecision(restricted bool) {
	if m == nil {
		return
	}
	outcome := "allowed"
	if restricted {
		outcome = "restricted"
	}
	m.DecisionsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) recordBypass(rule string) {
	if m == nil {
		return
	}
	m.BypassesTotal.WithLabelValues(rule).Inc()
}

func (m *Metrics) recordSignIn() {
	if m == nil {
		return
	}
	m.SignInsTotal.Inc()
}

func (m *Metrics) recordSweep(sessions int, d time.Duration) {
	if m == nil {
		return
	}
	m.SweepDuration.Observe(d.Seconds())
	m.SweptSessionsTotal.Add(float64(sessions))
}
