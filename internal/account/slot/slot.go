// Package slot keeps the "last used" account for one product so a returning
// customer finds the purchase form already filled in.
//
// A Slot is constructed per product by its caller and holds the form state
// in memory. Writes reach storage only while the customer has opted in.
package slot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"maps"
	"slices"
	"time"

	"topup/internal/account/models"
	"topup/internal/account/sanitize"
	"topup/internal/platform/metrics"
	"topup/internal/storage/kv"
	"topup/pkg/requestcontext"
)

// DefaultTTL is how long a remembered account survives without edits.
const DefaultTTL = 30 * 24 * time.Hour

const (
	recordPrefix = "acct_slot_"
	optInPrefix  = "acct_optin_"
)

// Slot is the current account for one product.
type Slot struct {
	store     *kv.Store
	sanitizer *sanitize.Sanitizer
	logger    *slog.Logger
	metrics   *metrics.Metrics
	ttl       time.Duration

	product string
	allowed []string

	state    map[string]string
	hasPrior bool
	optIn    bool
}

// Option configures a Slot.
type Option func(*Slot)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Slot) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Slot) { s.metrics = m }
}

func WithSanitizer(sz *sanitize.Sanitizer) Option {
	return func(s *Slot) {
		if sz != nil {
			s.sanitizer = sz
		}
	}
}

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Slot) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// New creates an empty slot for product. allowed lists the field names that
// may be persisted; other fields live in memory only.
func New(store *kv.Store, product string, allowed []string, opts ...Option) (*Slot, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	s := &Slot{
		store:     store,
		sanitizer: sanitize.New(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		ttl:       DefaultTTL,
		allowed:   slices.Clone(allowed),
		state:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.product = s.sanitizer.Key(product)
	if s.product == "" {
		return nil, errors.New("product is required")
	}
	return s, nil
}

func (s *Slot) recordKey() string { return recordPrefix + s.product }
func (s *Slot) optInKey() string  { return optInPrefix + s.product }

// Load replaces the in-memory state with the stored record, if any, and
// restores the opt-in preference.
func (s *Slot) Load(ctx context.Context) {
	var rec models.AccountRecord
	if s.store.Get(ctx, s.recordKey(), &rec) && rec.Fields != nil {
		s.state = maps.Clone(rec.Fields)
		s.hasPrior = true
	} else {
		s.state = make(map[string]string)
		s.hasPrior = false
	}

	var optIn bool
	s.optIn = s.store.Get(ctx, s.optInKey(), &optIn) && optIn
}

// Update merges one field into the state. When the customer has opted in the
// whole state is written immediately; it reports whether a write succeeded.
func (s *Slot) Update(ctx context.Context, name, value string) bool {
	s.state[name] = value
	if !s.optIn {
		return false
	}
	return s.persist(ctx)
}

// Merge applies several edits and writes at most once.
func (s *Slot) Merge(ctx context.Context, fields map[string]string) bool {
	if len(fields) == 0 {
		return false
	}
	maps.Copy(s.state, fields)
	if !s.optIn {
		return false
	}
	return s.persist(ctx)
}

// SetOptIn records the customer's choice. Turning persistence on writes the
// current state right away. Turning it off stops future writes but leaves
// the stored record in place; Clear removes it.
func (s *Slot) SetOptIn(ctx context.Context, on bool) {
	was := s.optIn
	s.optIn = on
	s.store.Set(ctx, s.optInKey(), on, s.ttl)
	if on && !was {
		s.persist(ctx)
	}
}

// Clear forgets the remembered account and the opt-in preference.
func (s *Slot) Clear(ctx context.Context) {
	s.store.Delete(ctx, s.recordKey())
	s.store.Delete(ctx, s.optInKey())
	s.state = make(map[string]string)
	s.hasPrior = false
	s.optIn = false
}

// State returns a copy of the in-memory fields.
func (s *Slot) State() map[string]string {
	return maps.Clone(s.state)
}

// HasPriorData reports whether Load found a stored record.
func (s *Slot) HasPriorData() bool { return s.hasPrior }

// OptedIn reports whether edits are being persisted.
func (s *Slot) OptedIn() bool { return s.optIn }

func (s *Slot) persist(ctx context.Context) bool {
	rec := models.AccountRecord{Fields: s.sanitizer.Fields(s.state, s.allowed)}
	if !s.store.Set(ctx, s.recordKey(), rec, s.ttl) {
		s.logger.InfoContext(ctx, "current account kept in memory only",
			"request_id", requestcontext.RequestID(ctx),
			"product", s.product,
		)
		return false
	}
	s.metrics.IncrementSlotWrites()
	return true
}
