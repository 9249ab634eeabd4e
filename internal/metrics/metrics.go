// Package metrics exposes Prometheus instruments for login outcomes and
// outbound identity provider calls.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Login outcomes recorded by the HTTP boundary.
const (
	OutcomeSuccess      = "success"
	OutcomeDenied       = "denied"
	OutcomeStateInvalid = "state_invalid"
	OutcomeProviderErr  = "provider_error"
	OutcomeLogout       = "logout"
)

type Metrics struct {
	gatherer prometheus.Gatherer

	LoginsTotal             *prometheus.CounterVec
	ProviderRequestDuration *prometheus.HistogramVec
}

// New registers the instruments on reg. A nil reg uses a private registry.
// Instruments that are already registered are reused.
func New(reg *prometheus.Registry) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		gatherer: reg,
		LoginsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_broker_logins_total",
			Help: "Login attempts by provider and outcome",
		}, []string{"provider", "outcome"}),
		ProviderRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "auth_broker_provider_request_duration_seconds",
			Help:    "Latency of calls to the identity provider",
			Buckets: prometheus.DefBuckets,
		}, []string{"code", "method"}),
	}

	var err error
	if m.LoginsTotal, err = register(reg, m.LoginsTotal); err != nil {
		return nil, err
	}
	if m.ProviderRequestDuration, err = register(reg, m.ProviderRequestDuration); err != nil {
		return nil, err
	}
	return m, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordLogin increments the login counter. Safe on a nil receiver.
func (m *Metrics) RecordLogin(provider, outcome string) {
	if m == nil {
		return
	}
	m.LoginsTotal.WithLabelValues(provider, outcome).Inc()
}

// InstrumentClient returns a copy of client whose transport observes
// ProviderRequestDuration.
func (m *Metrics) InstrumentClient(client *http.Client) *http.Client {
	if client == nil {
		client = &http.Client{}
	}
	if m == nil {
		return client
	}

	next := client.Transport
	if next == nil {
		next = http.DefaultTransport
	}

	instrumented := *client
	instrumented.Transport = promhttp.InstrumentRoundTripperDuration(m.ProviderRequestDuration, next)
	return &instrumented
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
