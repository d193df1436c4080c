// Package history keeps, per product, the last few accounts a customer
// purchased for so they can be picked from a list.
//
// The list is ordered by creation, newest first, and bounded. When it is
// full the oldest entry is dropped regardless of how recently it was looked
// at: reading or finding an entry never moves it.
package history

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/oklog/ulid/v2"

	"topup/internal/account/models"
	"topup/internal/account/sanitize"
	"topup/internal/platform/metrics"
	"topup/internal/storage/kv"
	"topup/pkg/platform/sentinel"
	"topup/pkg/requestcontext"
)

const (
	// MaxCapacity bounds the list.
	MaxCapacity = 5
	// DefaultCapacity is the list size when none is configured.
	DefaultCapacity = MaxCapacity
	// DefaultTTL is how long the list survives without a save or removal.
	DefaultTTL = 7 * 24 * time.Hour

	keyPrefix = "acct_hist_"
)

// History is the saved-accounts list for one product.
type History struct {
	store     *kv.Store
	sanitizer *sanitize.Sanitizer
	logger    *slog.Logger
	metrics   *metrics.Metrics
	ttl       time.Duration
	capacity  int
	entropy   io.Reader

	product string
	allowed []string
}

// Option configures a History.
type Option func(*History)

func WithLogger(logger *slog.Logger) Option {
	return func(h *History) {
		if logger != nil {
			h.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *History) { h.metrics = m }
}

func WithSanitizer(sz *sanitize.Sanitizer) Option {
	return func(h *History) {
		if sz != nil {
			h.sanitizer = sz
		}
	}
}

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(h *History) {
		if ttl > 0 {
			h.ttl = ttl
		}
	}
}

// WithCapacity overrides DefaultCapacity. Values outside 1..MaxCapacity
// are ignored.
func WithCapacity(n int) Option {
	return func(h *History) {
		if n > 0 && n <= MaxCapacity {
			h.capacity = n
		}
	}
}

// New creates the history for product. allowed lists the field names that
// are kept on saved entries.
func New(store *kv.Store, product string, allowed []string, opts ...Option) (*History, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	h := &History{
		store:     store,
		sanitizer: sanitize.New(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		ttl:       DefaultTTL,
		capacity:  DefaultCapacity,
		entropy:   ulid.Monotonic(rand.Reader, 0),
		allowed:   slices.Clone(allowed),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.product = h.sanitizer.Key(product)
	if h.product == "" {
		return nil, errors.New("product is required")
	}
	return h, nil
}

func (h *History) key() string { return keyPrefix + h.product }

// List returns the saved entries, newest first. Missing or unreadable
// storage yields an empty list.
func (h *History) List(ctx context.Context) []models.SavedAccountEntry {
	var entries []models.SavedAccountEntry
	if !h.store.Get(ctx, h.key(), &entries) {
		return []models.SavedAccountEntry{}
	}
	entries = slices.DeleteFunc(entries, func(e models.SavedAccountEntry) bool { return e.ID == "" })
	if len(entries) > h.capacity {
		entries = entries[:h.capacity]
	}
	return entries
}

// Save records a new entry at the head of the list, dropping the oldest
// entries beyond capacity, and returns it. When the medium rejects the list
// as too large, older entries are dropped until it fits. The entry is
// returned even when it could not be persisted.
func (h *History) Save(ctx context.Context, fields map[string]string, contact models.Contact) models.SavedAccountEntry {
	now := requestcontext.Now(ctx)
	entry := models.SavedAccountEntry{
		ID:        ulid.MustNew(ulid.Timestamp(now), h.entropy).String(),
		Fields:    h.sanitizer.Fields(fields, h.allowed),
		Contact:   h.sanitizer.Contact(contact),
		Timestamp: now.UnixMilli(),
	}

	entries := append([]models.SavedAccountEntry{entry}, h.List(ctx)...)
	if evicted := len(entries) - h.capacity; evicted > 0 {
		entries = entries[:h.capacity]
		h.metrics.AddHistoryEvictions(evicted)
	}

	for {
		err := h.store.Put(ctx, h.key(), entries, h.ttl)
		if err == nil {
			h.metrics.IncrementHistorySaves()
			return entry
		}
		if !errors.Is(err, sentinel.ErrQuotaExceeded) || len(entries) == 1 {
			break
		}
		entries = entries[:len(entries)-1]
		h.metrics.AddHistoryEvictions(1)
	}
	h.logger.InfoContext(ctx, "saved account not persisted",
		"request_id", requestcontext.RequestID(ctx),
		"product", h.product,
		"entry_id", entry.ID,
	)
	return entry
}

// Find returns the entry with id. It does not change the entry's position.
func (h *History) Find(ctx context.Context, id string) (models.SavedAccountEntry, bool) {
	for _, e := range h.List(ctx) {
		if e.ID == id {
			return e, true
		}
	}
	return models.SavedAccountEntry{}, false
}

// Remove deletes the entry with id. Removing an unknown id changes nothing.
func (h *History) Remove(ctx context.Context, id string) {
	entries := h.List(ctx)
	kept := slices.DeleteFunc(slices.Clone(entries), func(e models.SavedAccountEntry) bool { return e.ID == id })
	if len(kept) == len(entries) {
		return
	}
	h.store.Set(ctx, h.key(), kept, h.ttl)
}

// Clear drops the whole list.
func (h *History) Clear(ctx context.Context) {
	h.store.Delete(ctx, h.key())
}
