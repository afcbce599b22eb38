// Package metrics exposes prometheus collectors for the session lifecycle.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dashboard"

// Refresh outcomes
const (
	RefreshSuccess        = "success"
	RefreshFailure        = "failure"
	RefreshReused         = "reused"
	RefreshNoRefreshToken = "no_refresh_token"
)

// Sign-out reasons
const (
	SignOutUser          = "user"
	SignOutRefreshFailed = "refresh_failed"
)

// Login outcomes
const (
	LoginSuccess  = "success"
	LoginRejected = "rejected"
	LoginError    = "error"
)

type Metrics struct {
	registry *prometheus.Registry

	refreshes *prometheus.CounterVec
	retries   prometheus.Counter
	signOuts  *prometheus.CounterVec
	logins    *prometheus.CounterVec
	inflight  prometheus.Gauge
}

// New registers every collector on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refresh_total",
			Help:      "Access token refresh attempts by outcome.",
		}, []string{"outcome"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unauthorized_retries_total",
			Help:      "Backend requests re-sent after a 401.",
		}),
		signOuts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signouts_total",
			Help:      "Sessions ended, by reason.",
		}, []string{"reason"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "refresh_inflight",
			Help:      "Refresh calls currently waiting on the backend.",
		}),
	}

	m.registry.MustRegister(
		m.refreshes,
		m.retries,
		m.signOuts,
		m.logins,
		m.inflight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Refresh(outcome string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) UnauthorizedRetry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

func (m *Metrics) SignOut(reason string) {
	if m == nil {
		return
	}
	m.signOuts.WithLabelValues(reason).Inc()
}

func (m *Metrics) Login(outcome string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(outcome).Inc()
}

// RefreshStarted marks one refresh in flight; call the returned func when it settles.
func (m *Metrics) RefreshStarted() func() {
	if m == nil {
		return func() {}
	}
	m.inflight.Inc()
	return m.inflight.Dec
}
