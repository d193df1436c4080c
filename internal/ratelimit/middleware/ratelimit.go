// Package middleware throttles requests per client IP.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"topup/internal/platform/metrics"
	"topup/internal/ratelimit/models"
	"topup/pkg/platform/httputil"
	"topup/pkg/platform/middleware/metadata"
	"topup/pkg/requestcontext"
)

// BucketStore counts requests per key in a sliding window.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error)
}

type Middleware struct {
	store   BucketStore
	limit   int
	window  time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Middleware)

func WithMetrics(m *metrics.Metrics) Option {
	return func(mw *Middleware) { mw.metrics = m }
}

// New creates a limiter allowing limit requests per client IP per window.
// A non-positive limit disables limiting.
func New(store BucketStore, limit int, window time.Duration, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		store:  store,
		limit:  limit,
		window: window,
		logger: logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.limit <= 0 {
		logger.Info("rate limiting disabled")
	}
	return m
}

// RateLimit rejects requests over the limit with 429. When the store fails
// the request is let through.
func (m *Middleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.limit <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		ip := metadata.ClientIPFromRequest(r)

		result, err := m.store.Allow(ctx, "ip:"+ip, m.limit, m.window)
		if err != nil {
			m.logger.ErrorContext(ctx, "failed to check rate limit",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
			next.ServeHTTP(w, r)
			return
		}

		addRateLimitHeaders(w, result)
		if !result.Allowed {
			m.metrics.IncrementRateLimited()
			m.logger.WarnContext(ctx, "rate limit exceeded",
				"request_id", requestcontext.RequestID(ctx),
				"client_ip", ip,
				"retry_after", result.RetryAfter,
			)
			writeRateLimitExceeded(w, result)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.ExceededResponse{
		Error:            "rate_limit_exceeded",
		ErrorDescription: "Too many requests. Please try again later.",
		RetryAfter:       result.RetryAfter,
	})
}
