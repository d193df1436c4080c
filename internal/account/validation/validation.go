// Package validation checks submitted account fields against a product's
// field descriptors. It does no I/O.
package validation

import (
	"strings"

	"topup/internal/account/models"
)

// Result is the outcome of validating one form submission. Errors holds at
// most one message per field name.
type Result struct {
	Valid  bool              `json:"is_valid"`
	Errors map[string]string `json:"errors"`
}

// Validate checks values against fields in order. For each field the first
// failing rule wins: a required field that is blank reports "<label> is
// required"; otherwise a present value is checked by the field's kind.
// Missing keys are treated as blank.
func Validate(fields []models.FieldDescriptor, values map[string]string) Result {
	errs := make(map[string]string)
	for _, f := range fields {
		if _, done := errs[f.Name]; done {
			continue
		}
		value := strings.TrimSpace(values[f.Name])
		if value == "" {
			if f.Required {
				errs[f.Name] = f.Label + " is required"
			}
			continue
		}
		if f.Kind == nil {
			continue
		}
		if msg := f.Kind.Check(f.Label, value); msg != "" {
			errs[f.Name] = msg
		}
	}
	return Result{Valid: len(errs) == 0, Errors: errs}
}
