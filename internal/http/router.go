// Package httpapi assembles the public router: shared middleware, health
// and metrics endpoints, and the account API.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"topup/pkg/platform/httputil"
	"topup/pkg/platform/middleware/device"
	"topup/pkg/platform/middleware/metadata"
	"topup/pkg/platform/middleware/requesttime"
)

// healthTimeout bounds a readiness probe.
const healthTimeout = 2 * time.Second

// Routes is implemented by feature handlers that mount their own endpoints.
type Routes interface {
	Register(r chi.Router)
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Config lists what the router serves.
type Config struct {
	Logger   *slog.Logger
	Gatherer prometheus.Gatherer
	// Device enables the device cookie for storage keyed by device.
	Device *device.Config
	Health map[string]HealthCheck
	// RateLimit, when set, guards every feature route.
	RateLimit func(http.Handler) http.Handler
	Routes    []Routes
}

// NewRouter wires all public endpoints.
func NewRouter(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(metadata.RequestID)
	r.Use(metadata.AccessLog(logger))
	r.Use(middleware.Recoverer)
	r.Use(requesttime.Middleware)

	r.Get("/healthz", healthz(cfg.Health))
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		if cfg.RateLimit != nil {
			r.Use(cfg.RateLimit)
		}
		if cfg.Device != nil {
			r.Use(device.Middleware(*cfg.Device))
		}
		for _, routes := range cfg.Routes {
			routes.Register(r)
		}
	})
	return r
}

func healthz(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = err.Error()
				continue
			}
			body[name] = "ok"
		}
		httputil.WriteJSON(w, status, body)
	}
}
