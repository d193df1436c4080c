package medium

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"topup/pkg/platform/circuit"
	"topup/pkg/platform/sentinel"
	"topup/pkg/requestcontext"
)

// RedisProvider hands out Redis media scoped to the caller's device cookie.
// Breaker, when set, is shared by every medium it hands out so an outage
// fails fast instead of waiting on timeouts per request.
type RedisProvider struct {
	Client  redis.Cmdable
	Prefix  string
	Breaker *circuit.Breaker
}

// For implements Provider. The device id must already be on the request
// context (see the device middleware).
func (p RedisProvider) For(_ http.ResponseWriter, r *http.Request) Medium {
	m := NewRedis(p.Client, p.Prefix, requestcontext.DeviceID(r.Context()))
	m.breaker = p.Breaker
	return m
}

// Redis keeps a device's entries under "<prefix>:<device>:<name>" with EXPIREAT.
// It holds nothing the device cookie does not point at; losing the cookie
// loses the entries, same as clearing browser storage.
type Redis struct {
	client  redis.Cmdable
	prefix  string
	device  string
	breaker *circuit.Breaker
}

// NewRedis creates a medium for one device.
func NewRedis(client redis.Cmdable, prefix, device string) *Redis {
	if prefix == "" {
		prefix = "acct"
	}
	return &Redis{client: client, prefix: prefix, device: device}
}

func (m *Redis) key(name string) string {
	return m.prefix + ":" + m.device + ":" + name
}

func (m *Redis) Read(ctx context.Context, name string) (string, error) {
	if m.device == "" {
		return "", fmt.Errorf("no device id: %w", sentinel.ErrUnavailable)
	}
	var v string
	err := m.guard(func() error {
		var err error
		v, err = m.client.Get(ctx, m.key(name)).Result()
		return err
	})
	if errors.Is(err, redis.Nil) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", name, err)
	}
	return v, nil
}

func (m *Redis) Write(ctx context.Context, name, value string, expiresAt time.Time) error {
	if m.device == "" {
		return fmt.Errorf("no device id: %w", sentinel.ErrUnavailable)
	}
	if len(name)+len(value) > MaxEntryBytes {
		return fmt.Errorf("entry %q is %d bytes: %w", name, len(name)+len(value), sentinel.ErrQuotaExceeded)
	}
	if !expiresAt.After(requestcontext.Now(ctx)) {
		return m.Remove(ctx, name)
	}
	err := m.guard(func() error {
		return m.client.SetArgs(ctx, m.key(name), value, redis.SetArgs{ExpireAt: expiresAt}).Err()
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", name, err)
	}
	return nil
}

func (m *Redis) Remove(ctx context.Context, name string) error {
	if m.device == "" {
		return nil
	}
	err := m.guard(func() error {
		return m.client.Del(ctx, m.key(name)).Err()
	})
	if err != nil {
		return fmt.Errorf("redis del %s: %w", name, err)
	}
	return nil
}

// guard runs fn through the breaker. Any error other than a missing key is
// reported as ErrUnavailable.
func (m *Redis) guard(fn func() error) error {
	if m.breaker != nil && !m.breaker.Allow() {
		return fmt.Errorf("circuit %s open: %w", m.breaker.Name(), sentinel.ErrUnavailable)
	}
	err := fn()
	if err != nil && !errors.Is(err, redis.Nil) {
		if m.breaker != nil {
			m.breaker.RecordFailure()
		}
		return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
	}
	if m.breaker != nil {
		m.breaker.RecordSuccess()
	}
	return err
}
