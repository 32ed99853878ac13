// Package server exposes the host over HTTP: the socket engine pages connect
// to, health and metrics, and a small API for inspecting sessions and
// forwarding calls to an engine.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gaspardpetit/webmap3d-bridge/internal/config"
	"github.com/gaspardpetit/webmap3d-bridge/internal/session"
)

// New constructs the HTTP handler for the host. /metrics is served from
// gatherer when cfg.MetricsPort is 0.
func New(cfg config.HostConfig, m *session.Manager, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"*"},
		}))
	}
	for _, mw := range MiddlewareChain() {
		r.Use(mw)
	}

	api := &API{Sessions: m, CallTimeout: cfg.CallTimeout}

	r.Get("/healthz", api.Healthz)
	r.Handle(cfg.WSPath, m.Handler())
	r.Route("/api", func(ar chi.Router) {
		ar.Use(BearerSecretMiddleware(cfg.APIKey))
		ar.Get("/schema", api.Schema)
		ar.Get("/sessions", api.ListSessions)
		ar.Get("/sessions/{id}", api.GetSession)
		ar.Post("/sessions/{id}/call", api.CallSession)
	})

	if cfg.MetricsPort == 0 && gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// MetricsHandler serves gatherer on its own listener.
func MetricsHandler(gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}
