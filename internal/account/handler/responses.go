package handler

import (
	"time"

	"topup/internal/account/history"
	"topup/internal/account/models"
	"topup/internal/account/validation"
	"topup/internal/catalog"
	dErrors "topup/pkg/domain-errors"
)

// FieldsResponse is the HTTP response for GET /products/{slug}/fields.
type FieldsResponse struct {
	Product string                   `json:"product"`
	Name    string                   `json:"name"`
	Fields  []models.FieldDescriptor `json:"fields"`
}

// AccountResponse is the current account of a product.
type AccountResponse struct {
	Fields       map[string]string `json:"fields"`
	HasPriorData bool              `json:"has_prior_data"`
	Remember     bool              `json:"remember"`
	Persisted    bool              `json:"persisted"`
}

// EntryResponse is one saved account.
type EntryResponse struct {
	ID        string            `json:"id"`
	Fields    map[string]string `json:"fields"`
	Contact   models.Contact    `json:"contact"`
	Timestamp int64             `json:"timestamp"`
	CreatedAt time.Time         `json:"created_at"`
	TimeAgo   string            `json:"time_ago"`
}

// HistoryResponse is the HTTP response for GET /products/{slug}/history.
type HistoryResponse struct {
	Entries []EntryResponse `json:"entries"`
}

// ValidationErrorResponse is written when submitted fields fail the
// product's rules. Errors is keyed by field name.
type ValidationErrorResponse struct {
	Error            string            `json:"error"`
	ErrorDescription string            `json:"error_description"`
	Errors           map[string]string `json:"errors"`
}

func fromProduct(p *catalog.Product) *FieldsResponse {
	fields := p.Fields
	if fields == nil {
		fields = []models.FieldDescriptor{}
	}
	return &FieldsResponse{Product: p.Slug, Name: p.Name, Fields: fields}
}

func fromEntry(e models.SavedAccountEntry, now time.Time) EntryResponse {
	fields := e.Fields
	if fields == nil {
		fields = map[string]string{}
	}
	return EntryResponse{
		ID:        e.ID,
		Fields:    fields,
		Contact:   e.Contact,
		Timestamp: e.Timestamp,
		CreatedAt: e.CreatedAt().UTC(),
		TimeAgo:   history.TimeAgo(now, e.Timestamp),
	}
}

func fromEntries(entries []models.SavedAccountEntry, now time.Time) *HistoryResponse {
	out := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, fromEntry(e, now))
	}
	return &HistoryResponse{Entries: out}
}

func fromValidation(res validation.Result) *ValidationErrorResponse {
	return &ValidationErrorResponse{
		Error:            string(dErrors.CodeValidation),
		ErrorDescription: "one or more fields are invalid",
		Errors:           res.Errors,
	}
}
