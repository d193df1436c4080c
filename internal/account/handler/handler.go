// Package handler exposes a product's current account and saved-account
// history over HTTP. Every request builds its own storage view from the
// caller's medium; the handler keeps no account state between requests.
package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"topup/internal/account/history"
	"topup/internal/account/sanitize"
	"topup/internal/account/slot"
	"topup/internal/account/validation"
	"topup/internal/catalog"
	"topup/internal/platform/metrics"
	"topup/internal/storage/kv"
	"topup/internal/storage/medium"
	dErrors "topup/pkg/domain-errors"
	"topup/pkg/platform/httputil"
	"topup/pkg/platform/sentinel"
	"topup/pkg/requestcontext"
)

// Catalog resolves the product named in the URL.
type Catalog interface {
	Product(ctx context.Context, slug string) (*catalog.Product, error)
}

// Handler wires account endpoints to the slot, history and validator.
type Handler struct {
	catalog   Catalog
	media     medium.Provider
	sanitizer *sanitize.Sanitizer
	logger    *slog.Logger
	metrics   *metrics.Metrics

	slotTTL         time.Duration
	historyTTL      time.Duration
	historyCapacity int
}

// Option configures a Handler.
type Option func(*Handler)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithSlotTTL sets how long a remembered account survives.
func WithSlotTTL(ttl time.Duration) Option {
	return func(h *Handler) { h.slotTTL = ttl }
}

// WithHistoryTTL sets how long the saved-account list survives.
func WithHistoryTTL(ttl time.Duration) Option {
	return func(h *Handler) { h.historyTTL = ttl }
}

// WithHistoryCapacity sets how many saved accounts are kept per product.
func WithHistoryCapacity(n int) Option {
	return func(h *Handler) { h.historyCapacity = n }
}

// New constructs an account handler.
func New(c Catalog, media medium.Provider, opts ...Option) (*Handler, error) {
	if c == nil {
		return nil, errors.New("catalog is required")
	}
	if media == nil {
		return nil, errors.New("medium provider is required")
	}
	h := &Handler{
		catalog:         c,
		media:           media,
		sanitizer:       sanitize.New(),
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		slotTTL:         slot.DefaultTTL,
		historyTTL:      history.DefaultTTL,
		historyCapacity: history.DefaultCapacity,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Register mounts account endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/products/{slug}", func(r chi.Router) {
		r.Get("/fields", h.HandleFields)
		r.Post("/validate", h.HandleValidate)

		r.Get("/account", h.HandleGetAccount)
		r.Patch("/account", h.HandleUpdateAccount)
		r.Delete("/account", h.HandleClearAccount)
		r.Put("/account/remember", h.HandleRemember)

		r.Get("/history", h.HandleListHistory)
		r.Post("/history", h.HandleSaveHistory)
		r.Delete("/history", h.HandleClearHistory)
		r.Get("/history/{id}", h.HandleGetHistoryEntry)
		r.Delete("/history/{id}", h.HandleDeleteHistoryEntry)
	})
}

// HandleFields handles GET /products/{slug}/fields requests.
func (h *Handler) HandleFields(w http.ResponseWriter, r *http.Request) {
	product, ok := h.product(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromProduct(product))
}

// HandleValidate handles POST /products/{slug}/validate requests. Invalid
// values are a normal outcome and are reported with 200.
func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	product, ok := h.product(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ValidateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res := validation.Validate(product.Fields, req.Values)
	if !res.Valid {
		h.metrics.IncrementValidationFailures(product.Slug)
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// HandleGetAccount handles GET /products/{slug}/account requests.
func (h *Handler) HandleGetAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	_, s, ok := h.slot(w, r)
	if !ok {
		return
	}
	s.Load(ctx)
	httputil.WriteJSON(w, http.StatusOK, accountResponse(s, false))
}

// HandleUpdateAccount handles PATCH /products/{slug}/account requests. The
// edits are written through only when the customer opted in.
func (h *Handler) HandleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	product, s, ok := h.slot(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateAccountRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	s.Load(ctx)
	persisted := s.Merge(ctx, req.Fields)

	h.logger.InfoContext(ctx, "current account updated",
		"request_id", requestID,
		"product", product.Slug,
		"fields", len(req.Fields),
		"persisted", persisted,
	)
	httputil.WriteJSON(w, http.StatusOK, accountResponse(s, persisted))
}

// HandleRemember handles PUT /products/{slug}/account/remember requests.
func (h *Handler) HandleRemember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	product, s, ok := h.slot(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RememberRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	s.Load(ctx)
	s.Merge(ctx, req.Fields)
	s.SetOptIn(ctx, *req.Remember)

	h.logger.InfoContext(ctx, "remember preference changed",
		"request_id", requestID,
		"product", product.Slug,
		"remember", *req.Remember,
	)
	httputil.WriteJSON(w, http.StatusOK, accountResponse(s, false))
}

// HandleClearAccount handles DELETE /products/{slug}/account requests.
func (h *Handler) HandleClearAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	product, s, ok := h.slot(w, r)
	if !ok {
		return
	}
	s.Clear(ctx)

	h.logger.InfoContext(ctx, "current account cleared",
		"request_id", requestcontext.RequestID(ctx),
		"product", product.Slug,
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleListHistory handles GET /products/{slug}/history requests.
func (h *Handler) HandleListHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	_, hist, ok := h.history(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromEntries(hist.List(ctx), requestcontext.Now(ctx)))
}

// HandleSaveHistory handles POST /products/{slug}/history requests. The
// fields must pass the product's rules; rejected submissions never reach
// storage.
func (h *Handler) HandleSaveHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	product, hist, ok := h.history(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SaveHistoryRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res := validation.Validate(product.Fields, req.Fields)
	if !res.Valid {
		h.metrics.IncrementValidationFailures(product.Slug)
		h.logger.InfoContext(ctx, "saved account rejected",
			"request_id", requestID,
			"product", product.Slug,
			"invalid_fields", len(res.Errors),
		)
		httputil.WriteJSON(w, http.StatusUnprocessableEntity, fromValidation(res))
		return
	}

	entry := hist.Save(ctx, req.Fields, contactOf(req))

	h.logger.InfoContext(ctx, "account saved to history",
		"request_id", requestID,
		"product", product.Slug,
		"entry_id", entry.ID,
	)
	httputil.WriteJSON(w, http.StatusCreated, fromEntry(entry, requestcontext.Now(ctx)))
}

// HandleGetHistoryEntry handles GET /products/{slug}/history/{id} requests.
func (h *Handler) HandleGetHistoryEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	_, hist, ok := h.history(w, r)
	if !ok {
		return
	}
	entry, found := hist.Find(ctx, chi.URLParam(r, "id"))
	if !found {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "saved account not found"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromEntry(entry, requestcontext.Now(ctx)))
}

// HandleDeleteHistoryEntry handles DELETE /products/{slug}/history/{id}
// requests. Deleting an unknown id succeeds.
func (h *Handler) HandleDeleteHistoryEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	product, hist, ok := h.history(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	hist.Remove(ctx, id)

	h.logger.InfoContext(ctx, "saved account removed",
		"request_id", requestcontext.RequestID(ctx),
		"product", product.Slug,
		"entry_id", id,
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleClearHistory handles DELETE /products/{slug}/history requests.
func (h *Handler) HandleClearHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	_, hist, ok := h.history(w, r)
	if !ok {
		return
	}
	hist.Clear(ctx)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) product(w http.ResponseWriter, r *http.Request) (*catalog.Product, bool) {
	ctx := r.Context()
	slug := chi.URLParam(r, "slug")
	product, err := h.catalog.Product(ctx, slug)
	if err == nil {
		return product, true
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeNotFound, "product not found"))
		return nil, false
	}
	h.logger.ErrorContext(ctx, "failed to resolve product",
		"request_id", requestcontext.RequestID(ctx),
		"product", slug,
		"error", err,
	)
	httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve product"))
	return nil, false
}

func (h *Handler) store(w http.ResponseWriter, r *http.Request) (*kv.Store, bool) {
	store, err := kv.New(h.media.For(w, r), kv.WithLogger(h.logger), kv.WithMetrics(h.metrics))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to open account storage",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "account storage unavailable"))
		return nil, false
	}
	return store, true
}

func (h *Handler) slot(w http.ResponseWriter, r *http.Request) (*catalog.Product, *slot.Slot, bool) {
	product, ok := h.product(w, r)
	if !ok {
		return nil, nil, false
	}
	store, ok := h.store(w, r)
	if !ok {
		return nil, nil, false
	}
	s, err := slot.New(store, product.Slug, product.FieldNames(),
		slot.WithLogger(h.logger),
		slot.WithMetrics(h.metrics),
		slot.WithSanitizer(h.sanitizer),
		slot.WithTTL(h.slotTTL),
	)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to open current account"))
		return nil, nil, false
	}
	return product, s, true
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) (*catalog.Product, *history.History, bool) {
	product, ok := h.product(w, r)
	if !ok {
		return nil, nil, false
	}
	store, ok := h.store(w, r)
	if !ok {
		return nil, nil, false
	}
	hist, err := history.New(store, product.Slug, product.FieldNames(),
		history.WithLogger(h.logger),
		history.WithMetrics(h.metrics),
		history.WithSanitizer(h.sanitizer),
		history.WithTTL(h.historyTTL),
		history.WithCapacity(h.historyCapacity),
	)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to open account history"))
		return nil, nil, false
	}
	return product, hist, true
}

func accountResponse(s *slot.Slot, persisted bool) *AccountResponse {
	return &AccountResponse{
		Fields:       s.State(),
		HasPriorData: s.HasPriorData(),
		Remember:     s.OptedIn(),
		Persisted:    persisted,
	}
}
