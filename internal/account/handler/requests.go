package handler

import (
	"strings"

	"topup/internal/account/models"
	dErrors "topup/pkg/domain-errors"
)

// maxFields bounds how many field edits one request may carry.
const maxFields = 32

// ValidateRequest is the HTTP request body for POST /products/{slug}/validate.
type ValidateRequest struct {
	Values map[string]string `json:"values"`
}

// Validate implements httputil.Validatable.
func (r *ValidateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Values) > maxFields {
		return dErrors.New(dErrors.CodeBadRequest, "too many values")
	}
	if r.Values == nil {
		r.Values = map[string]string{}
	}
	return nil
}

// UpdateAccountRequest is the HTTP request body for PATCH /products/{slug}/account.
type UpdateAccountRequest struct {
	Fields map[string]string `json:"fields"`
}

// Validate implements httputil.Validatable.
func (r *UpdateAccountRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Fields) == 0 {
		return dErrors.New(dErrors.CodeValidation, "fields is required")
	}
	return validateFieldNames(r.Fields)
}

// RememberRequest is the HTTP request body for PUT /products/{slug}/account/remember.
// Fields carries the form state the page holds, so turning remembering on
// can store what was typed before the choice was made.
type RememberRequest struct {
	Remember *bool             `json:"remember"`
	Fields   map[string]string `json:"fields"`
}

// Validate implements httputil.Validatable.
func (r *RememberRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Remember == nil {
		return dErrors.New(dErrors.CodeValidation, "remember is required")
	}
	return validateFieldNames(r.Fields)
}

// SaveHistoryRequest is the HTTP request body for POST /products/{slug}/history.
type SaveHistoryRequest struct {
	Fields map[string]string `json:"fields"`
	Email  string            `json:"email"`
	Phone  string            `json:"phone"`
}

// Validate implements httputil.Validatable. Field values are checked
// against the product separately.
func (r *SaveHistoryRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	if len(r.Email) > 254 {
		return dErrors.New(dErrors.CodeValidation, "email must be at most 254 characters")
	}
	if len(r.Phone) > 32 {
		return dErrors.New(dErrors.CodeValidation, "phone must be at most 32 characters")
	}
	if r.Fields == nil {
		r.Fields = map[string]string{}
	}
	return validateFieldNames(r.Fields)
}

func contactOf(r *SaveHistoryRequest) models.Contact {
	return models.Contact{Email: r.Email, Phone: r.Phone}
}

func validateFieldNames(fields map[string]string) error {
	if len(fields) > maxFields {
		return dErrors.New(dErrors.CodeBadRequest, "too many fields")
	}
	for name := range fields {
		if strings.TrimSpace(name) == "" {
			return dErrors.New(dErrors.CodeValidation, "field names must not be empty")
		}
	}
	return nil
}
