package main

import (
	"context"
	"fmt"
	"time"

	httpapi "topup/internal/http"
	"topup/internal/platform/config"
	"topup/internal/platform/redis"
	ratelimitmw "topup/internal/ratelimit/middleware"
	ratelimitstore "topup/internal/ratelimit/store"
	"topup/internal/storage/medium"
	"topup/pkg/platform/circuit"
	"topup/pkg/platform/middleware/device"
)

// storage is the account medium selected by ACCOUNT_STORAGE plus what the
// router needs to serve it.
type storage struct {
	Provider medium.Provider
	Device   *device.Config
	Health   map[string]httpapi.HealthCheck
	Buckets  ratelimitmw.BucketStore
	close    func() error
}

func (s storage) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

func openStorage(ctx context.Context, cfg config.Server) (storage, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		return storage{Provider: medium.NewMemory(), Buckets: ratelimitstore.NewInMemoryBucketStore()}, nil
	case config.StorageRedis:
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return storage{}, fmt.Errorf("connect redis: %w", err)
		}
		return storage{
			Provider: medium.RedisProvider{
				Client:  client.Client,
				Breaker: circuit.New("redis", circuit.WithCooldown(5*time.Second)),
			},
			Device:  &device.Config{Secure: cfg.CookieSecure},
			Health:  map[string]httpapi.HealthCheck{"redis": client.Health},
			Buckets: ratelimitstore.NewRedisBucketStore(client.Client, "ratelimit"),
			close:   client.Close,
		}, nil
	default:
		return storage{
			Provider: medium.CookieProvider{Config: medium.CookieConfig{Secure: cfg.CookieSecure}},
			Buckets:  ratelimitstore.NewInMemoryBucketStore(),
		}, nil
	}
}
