package di

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/savaki/auth-broker/internal/auth"
	"github.com/savaki/auth-broker/internal/authz"
	"github.com/savaki/auth-broker/internal/metrics"
	"github.com/savaki/auth-broker/internal/server"
	"github.com/savaki/auth-broker/internal/services"
	"github.com/savaki/auth-broker/internal/session"
	"go.uber.org/dig"
)

// ProvideMetrics registers the service instruments alongside the Go runtime
// and process collectors on a private registry.
func ProvideMetrics() (*metrics.Metrics, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return metrics.New(reg)
}

type HandlerParams struct {
	dig.In

	Broker     *auth.Broker
	Store      session.Store
	Cookies    *session.Cookies
	Authorizer *authz.Authorizer
	Metrics    *metrics.Metrics
	Config     *services.Config
}

func ProvideHandler(p HandlerParams) *server.Handler {
	return server.NewHandler(server.HandlerInput{
		Broker:     p.Broker,
		Store:      p.Store,
		Cookies:    p.Cookies,
		Authorizer: p.Authorizer,
		Metrics:    p.Metrics,
		Paths: server.Paths{
			Login:         p.Config.LoginPath,
			Callback:      p.Config.CallbackPath,
			PostLogoutURI: p.Config.LogoutURI(),
		},
	})
}
