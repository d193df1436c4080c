// Package kv is an expiring JSON key/value store over a client-controlled
// medium. Every failure is logged and degraded: writes report false, reads
// report absent. Nothing is cached in memory, so each call goes back to the
// medium and sees the latest write.
package kv

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"topup/internal/platform/metrics"
	"topup/internal/storage/medium"
	"topup/pkg/platform/sentinel"
	"topup/pkg/requestcontext"
)

var tracer = otel.Tracer("topup/internal/storage/kv")

// entry is the envelope written to the medium. Key is repeated inside the
// envelope so a value copied under another name is rejected on read.
type entry struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// Store reads and writes JSON values with an absolute expiry.
type Store struct {
	medium  medium.Medium
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for degraded operations.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// New creates a store over m.
func New(m medium.Medium, opts ...Option) (*Store, error) {
	if m == nil {
		return nil, errors.New("medium is required")
	}
	s := &Store{
		medium: m,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Set stores value under key until now+ttl, replacing any prior entry.
// It returns false when the value cannot be encoded or the medium refuses it.
func (s *Store) Set(ctx context.Context, key string, value any, ttl time.Duration) bool {
	return s.Put(ctx, key, value, ttl) == nil
}

// Put is Set reporting why a write failed. Medium errors keep their
// sentinel, so callers can react to sentinel.ErrQuotaExceeded. Failures are
// logged and counted like Set.
func (s *Store) Put(ctx context.Context, key string, value any, ttl time.Duration) error {
	ctx, span := tracer.Start(ctx, "kv.Set", trace.WithAttributes(attribute.String("kv.key", key)))
	defer span.End()

	raw, err := encode(value)
	if err != nil {
		s.fail(ctx, span, "set", key, "encode", err)
		return err
	}
	expiresAt := requestcontext.Now(ctx).Add(ttl)
	payload, err := encode(entry{Key: key, Value: raw, ExpiresAt: expiresAt})
	if err != nil {
		s.fail(ctx, span, "set", key, "encode", err)
		return err
	}
	if err := s.medium.Write(ctx, key, string(payload), expiresAt); err != nil {
		s.fail(ctx, span, "set", key, reason(err), err)
		return err
	}
	return nil
}

// Get decodes the value stored under key into dest, which must be a pointer.
// It returns false when the entry is missing, malformed or expired; dest
// should be discarded in that case.
func (s *Store) Get(ctx context.Context, key string, dest any) bool {
	ctx, span := tracer.Start(ctx, "kv.Get", trace.WithAttributes(attribute.String("kv.key", key)))
	defer span.End()

	payload, err := s.medium.Read(ctx, key)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false
	}
	if errors.Is(err, sentinel.ErrMalformed) {
		s.malformed(ctx, span, key, err)
		return false
	}
	if err != nil {
		s.fail(ctx, span, "get", key, reason(err), err)
		return false
	}

	var e entry
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		s.malformed(ctx, span, key, err)
		return false
	}
	if e.Key != key || len(e.Value) == 0 || e.ExpiresAt.IsZero() {
		s.malformed(ctx, span, key, sentinel.ErrMalformed)
		return false
	}
	if !requestcontext.Now(ctx).Before(e.ExpiresAt) {
		s.metrics.IncrementExpired()
		s.remove(ctx, key)
		return false
	}
	if err := json.Unmarshal(e.Value, dest); err != nil {
		s.malformed(ctx, span, key, err)
		return false
	}
	return true
}

// Delete removes the entry under key. Deleting an absent key is a no-op.
func (s *Store) Delete(ctx context.Context, key string) {
	ctx, span := tracer.Start(ctx, "kv.Delete", trace.WithAttributes(attribute.String("kv.key", key)))
	defer span.End()
	if err := s.medium.Remove(ctx, key); err != nil {
		s.fail(ctx, span, "delete", key, reason(err), err)
	}
}

func (s *Store) remove(ctx context.Context, key string) {
	if err := s.medium.Remove(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "failed to remove expired entry",
			"request_id", requestcontext.RequestID(ctx),
			"key", key,
			"error", err,
		)
	}
}

func (s *Store) fail(ctx context.Context, span trace.Span, op, key, why string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, why)
	s.metrics.IncrementStorageFailure(op, why)
	s.logger.WarnContext(ctx, "account storage degraded",
		"request_id", requestcontext.RequestID(ctx),
		"op", op,
		"key", key,
		"reason", why,
		"error", err,
	)
}

func (s *Store) malformed(ctx context.Context, span trace.Span, key string, err error) {
	span.RecordError(err)
	s.metrics.IncrementMalformed()
	s.logger.WarnContext(ctx, "ignoring malformed stored entry",
		"request_id", requestcontext.RequestID(ctx),
		"key", key,
		"error", err,
	)
}

// encode marshals v without HTML escaping so & < > stay one byte each.
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func reason(err error) string {
	switch {
	case errors.Is(err, sentinel.ErrQuotaExceeded):
		return "quota"
	case errors.Is(err, sentinel.ErrUnavailable):
		return "unavailable"
	case errors.Is(err, sentinel.ErrMalformed):
		return "malformed"
	default:
		return "error"
	}
}
