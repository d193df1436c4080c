package models

import "time"

// AccountRecord is the "last used" account for one product. Fields are
// keyed by the product's field names.
type AccountRecord struct {
	Fields map[string]string `json:"fields"`
}

// Contact is optional contact metadata attached to a saved account.
type Contact struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// SavedAccountEntry is one element of a product's account history.
//
// Invariants:
//   - ID is unique within a product's history
//   - Timestamp is the creation time in unix milliseconds and never changes
type SavedAccountEntry struct {
	ID        string            `json:"id"`
	Fields    map[string]string `json:"fields"`
	Contact   Contact           `json:"contact"`
	Timestamp int64             `json:"timestamp"`
}

// CreatedAt returns the entry's creation time.
func (e SavedAccountEntry) CreatedAt() time.Time {
	return time.UnixMilli(e.Timestamp)
}
