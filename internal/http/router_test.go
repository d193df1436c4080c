package httpapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topup/internal/account/handler"
	"topup/internal/catalog"
	"topup/internal/platform/metrics"
	"topup/internal/storage/medium"
	"topup/pkg/platform/middleware/device"
	"topup/pkg/requestcontext"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type deviceProbe struct{ seen string }

func (p *deviceProbe) Register(r chi.Router) {
	r.Get("/probe", func(w http.ResponseWriter, r *http.Request) {
		p.seen = requestcontext.DeviceID(r.Context())
		if requestcontext.Now(r.Context()).IsZero() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestHealthz(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		router := NewRouter(Config{Logger: discard, Health: map[string]HealthCheck{
			"redis": func(context.Context) error { return nil },
		}})
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"status":"ok"`)
	})

	t.Run("failing dependency", func(t *testing.T) {
		router := NewRouter(Config{Logger: discard, Health: map[string]HealthCheck{
			"redis": func(context.Context) error { return errors.New("connection refused") },
		}})
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.Contains(t, rr.Body.String(), "connection refused")
	})
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.IncrementHistorySaves()

	router := NewRouter(Config{Logger: discard, Gatherer: reg})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "history_saves_total"))
}

func TestDeviceCookieIssuedWhenEnabled(t *testing.T) {
	probe := &deviceProbe{}
	router := NewRouter(Config{Logger: discard, Device: &device.Config{}, Routes: []Routes{probe}})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/probe", nil))
	require.Equal(t, http.StatusNoContent, rr.Code)
	assert.NotEmpty(t, probe.seen)

	var issued bool
	for _, c := range rr.Result().Cookies() {
		if c.Name == device.DefaultCookieName {
			issued = c.Value == probe.seen
		}
	}
	assert.True(t, issued)
}

func TestAccountRoutesMounted(t *testing.T) {
	h, err := handler.New(catalog.NewInMemory(catalog.Defaults()...), medium.NewMemory())
	require.NoError(t, err)
	router := NewRouter(Config{Logger: discard, Routes: []Routes{h}})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products/free-fire/fields", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Content-Type"))
}

func TestRateLimitGuardsFeatureRoutesOnly(t *testing.T) {
	deny := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})
	}
	router := NewRouter(Config{Logger: discard, RateLimit: deny, Routes: []Routes{&deviceProbe{}}})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/probe", nil))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}
