package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"topup/internal/ratelimit/models"
	"topup/pkg/requestcontext"
)

// RedisBucketStore keeps each key's window as a sorted set of request
// timestamps (score = unix nanoseconds).
type RedisBucketStore struct {
	client redis.Cmdable
	prefix string
}

// NewRedisBucketStore creates a store writing under "<prefix>:<key>".
func NewRedisBucketStore(client redis.Cmdable, prefix string) *RedisBucketStore {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisBucketStore{client: client, prefix: prefix}
}

// Allow records a request against key if fewer than limit requests were
// seen in the trailing window. Trim, count and add run in one transaction;
// a denied request is removed again so it does not extend the window.
func (s *RedisBucketStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error) {
	now := requestcontext.Now(ctx)
	k := s.prefix + ":" + key
	member := strconv.FormatInt(now.UnixNano(), 10) + "-" + strconv.FormatInt(time.Now().UnixNano(), 36)

	var count *redis.IntCmd
	var oldest *redis.ZSliceCmd
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZRemRangeByScore(ctx, k, "-inf", strconv.FormatInt(now.Add(-window).UnixNano(), 10))
		count = p.ZCard(ctx, k)
		p.ZAdd(ctx, k, redis.Z{Score: float64(now.UnixNano()), Member: member})
		oldest = p.ZRangeWithScores(ctx, k, 0, 0)
		p.PExpire(ctx, k, window)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("rate limit %s: %w", key, err)
	}

	resetAt := now.Add(window)
	if zs := oldest.Val(); len(zs) > 0 {
		resetAt = time.Unix(0, int64(zs[0].Score)).Add(window)
	}

	seen := int(count.Val())
	if seen >= limit {
		if err := s.client.ZRem(ctx, k, member).Err(); err != nil {
			return nil, fmt.Errorf("rate limit %s: %w", key, err)
		}
		return &models.Result{
			Allowed:    false,
			Limit:      limit,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: retryAfter(now, resetAt),
		}, nil
	}
	return &models.Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - seen - 1,
		ResetAt:   resetAt,
	}, nil
}

// Reset clears the counter for key.
func (s *RedisBucketStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+":"+key).Err()
}
