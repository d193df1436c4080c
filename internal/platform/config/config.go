// Package config reads service settings from the environment. A local .env
// file, when present, is loaded first and never overrides variables that are
// already set.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"topup/internal/account/history"
)

// Storage backends for remembered accounts.
const (
	StorageCookie = "cookie"
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr         string
	Storage      string
	CookieSecure bool
	CatalogFile  string
	LogLevel     string
	Account      AccountConfig
	RateLimit    RateLimitConfig
	Redis        RedisConfig
}

// RateLimitConfig bounds requests per client IP. Zero Requests disables it.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// AccountConfig holds retention settings for remembered accounts.
type AccountConfig struct {
	SlotTTL         time.Duration
	HistoryTTL      time.Duration
	HistoryCapacity int
}

// RedisConfig configures the Redis client used by the redis storage backend.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Server{}, fmt.Errorf("load .env: %w", err)
	}

	p := parser{}
	cfg := Server{
		Addr:         getEnv("STOREFRONT_ADDR", ":8080"),
		Storage:      strings.ToLower(getEnv("ACCOUNT_STORAGE", StorageCookie)),
		CookieSecure: p.bool("COOKIE_SECURE", false),
		CatalogFile:  os.Getenv("CATALOG_FILE"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		Account: AccountConfig{
			SlotTTL:         p.duration("SLOT_TTL", 30*24*time.Hour),
			HistoryTTL:      p.duration("HISTORY_TTL", 7*24*time.Hour),
			HistoryCapacity: p.int("HISTORY_CAPACITY", history.DefaultCapacity),
		},
		RateLimit: RateLimitConfig{
			Requests: p.int("RATE_LIMIT_REQUESTS", 120),
			Window:   p.duration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     p.int("REDIS_POOL_SIZE", 10),
			MinIdleConns: p.int("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  p.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  p.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: p.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
	}
	if err := errors.Join(p.errs...); err != nil {
		return Server{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate checks settings that depend on each other.
func (c Server) Validate() error {
	switch c.Storage {
	case StorageCookie, StorageMemory:
	case StorageRedis:
		if c.Redis.URL == "" {
			return errors.New("REDIS_URL is required when ACCOUNT_STORAGE is redis")
		}
	default:
		return fmt.Errorf("ACCOUNT_STORAGE must be one of cookie, redis, memory; got %q", c.Storage)
	}
	if c.Account.SlotTTL <= 0 || c.Account.HistoryTTL <= 0 {
		return errors.New("SLOT_TTL and HISTORY_TTL must be positive")
	}
	if c.RateLimit.Requests > 0 && c.RateLimit.Window <= 0 {
		return errors.New("RATE_LIMIT_WINDOW must be positive")
	}
	if c.Account.HistoryCapacity <= 0 || c.Account.HistoryCapacity > history.MaxCapacity {
		return fmt.Errorf("HISTORY_CAPACITY must be between 1 and %d", history.MaxCapacity)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

// parser collects every malformed variable so they are reported together.
type parser struct {
	errs []error
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return d
}

func (p *parser) int(key string, fallback int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return n
}

func (p *parser) bool(key string, fallback bool) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return b
}
