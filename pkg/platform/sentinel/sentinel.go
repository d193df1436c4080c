package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Media, stores and infrastructure
// layers return these (optionally wrapped) so callers can decide whether a
// failure is recoverable.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entry or product does not exist
// - ErrExpired: stored entry is past its expiry
// - ErrMalformed: stored bytes do not decode into the expected shape
// - ErrQuotaExceeded: the medium refused an entry because of its size
// - ErrUnavailable: the medium is disabled or temporarily unreachable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound      = errors.New("not found")
	ErrExpired       = errors.New("expired")
	ErrMalformed     = errors.New("malformed")
	ErrQuotaExceeded = errors.New("quota exceeded")
	ErrUnavailable   = errors.New("unavailable")
)
