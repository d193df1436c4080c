// Package medium provides the client-controlled string storage that account
// caches persist into. A medium is a flat namespace of named string entries,
// each with an absolute expiry; entries past their expiry are gone.
//
// The default medium is the browser's cookie jar. A Redis medium keyed by a
// device cookie serves clients whose cookie budget is too small.
package medium

import (
	"context"
	"net/http"
	"time"
)

// MaxEntryBytes bounds a single entry (name plus encoded value), matching
// the per-cookie limit browsers enforce.
const MaxEntryBytes = 4096

// Medium is the storage contract consumed by the kv store.
//
// Read returns sentinel.ErrNotFound when the entry is absent or expired.
// Write returns sentinel.ErrQuotaExceeded for oversize entries and
// sentinel.ErrUnavailable when the medium cannot accept writes.
// Remove is idempotent.
type Medium interface {
	Read(ctx context.Context, name string) (string, error)
	Write(ctx context.Context, name, value string, expiresAt time.Time) error
	Remove(ctx context.Context, name string) error
}

// Provider hands out the medium visible to one HTTP request.
type Provider interface {
	For(w http.ResponseWriter, r *http.Request) Medium
}
