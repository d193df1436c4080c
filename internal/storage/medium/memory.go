package medium

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"topup/pkg/platform/sentinel"
	"topup/pkg/requestcontext"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// Memory is a process-local medium. It backs tests and local runs; every
// request shares the same entries, like a single browser profile would.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	writes  int
}

// NewMemory creates an empty in-memory medium.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry)}
}

// For implements Provider.
func (m *Memory) For(_ http.ResponseWriter, _ *http.Request) Medium {
	return m
}

func (m *Memory) Read(ctx context.Context, name string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[name]
	if !ok || !requestcontext.Now(ctx).Before(e.expiresAt) {
		return "", sentinel.ErrNotFound
	}
	return e.value, nil
}

func (m *Memory) Write(_ context.Context, name, value string, expiresAt time.Time) error {
	if len(name)+len(value) > MaxEntryBytes {
		return fmt.Errorf("entry %q is %d bytes: %w", name, len(name)+len(value), sentinel.ErrQuotaExceeded)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[name] = memoryEntry{value: value, expiresAt: expiresAt}
	m.writes++
	return nil
}

func (m *Memory) Remove(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, name)
	return nil
}

// Inject stores a raw value without any checks. Tests use it to plant
// corrupted entries.
func (m *Memory) Inject(name, value string, expiresAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[name] = memoryEntry{value: value, expiresAt: expiresAt}
}

// Raw returns the stored value regardless of expiry.
func (m *Memory) Raw(name string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[name]
	return e.value, ok
}

// Writes reports how many successful writes the medium has accepted.
func (m *Memory) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}
