package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"topup/pkg/requestcontext"
)

const (
	testLimit  = 10
	testWindow = time.Minute
)

type InMemoryBucketStoreSuite struct {
	suite.Suite
	store *InMemoryBucketStore
	now   time.Time
}

func TestInMemoryBucketStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryBucketStoreSuite))
}

func (s *InMemoryBucketStoreSuite) SetupTest() {
	s.store = NewInMemoryBucketStore()
	s.now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
}

func (s *InMemoryBucketStoreSuite) at(d time.Duration) context.Context {
	return requestcontext.WithTime(context.Background(), s.now.Add(d))
}

func (s *InMemoryBucketStoreSuite) TestAllow() {
	s.Run("first request allowed", func() {
		result, err := s.store.Allow(s.at(0), "ip:first", testLimit, testWindow)
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(testLimit, result.Limit)
		s.Equal(testLimit-1, result.Remaining)
	})

	s.Run("request over limit denied with retry hint", func() {
		for i := range testLimit {
			result, err := s.store.Allow(s.at(time.Duration(i)*time.Second), "ip:over", testLimit, testWindow)
			s.Require().NoError(err)
			s.True(result.Allowed)
		}
		result, err := s.store.Allow(s.at(20*time.Second), "ip:over", testLimit, testWindow)
		s.Require().NoError(err)
		s.False(result.Allowed)
		s.Equal(0, result.Remaining)
		s.Equal(40, result.RetryAfter)
		s.Equal(s.now.Add(testWindow), result.ResetAt)
	})

	s.Run("window slides", func() {
		for range testLimit {
			_, err := s.store.Allow(s.at(0), "ip:slide", testLimit, testWindow)
			s.Require().NoError(err)
		}
		result, err := s.store.Allow(s.at(testWindow), "ip:slide", testLimit, testWindow)
		s.Require().NoError(err)
		s.True(result.Allowed)
	})

	s.Run("keys are independent", func() {
		for range testLimit {
			_, _ = s.store.Allow(s.at(0), "ip:a", testLimit, testWindow)
		}
		result, err := s.store.Allow(s.at(0), "ip:b", testLimit, testWindow)
		s.Require().NoError(err)
		s.True(result.Allowed)
	})
}

func (s *InMemoryBucketStoreSuite) TestReset() {
	for range testLimit {
		_, _ = s.store.Allow(s.at(0), "ip:reset", testLimit, testWindow)
	}
	s.Require().NoError(s.store.Reset(context.Background(), "ip:reset"))

	result, err := s.store.Allow(s.at(0), "ip:reset", testLimit, testWindow)
	s.Require().NoError(err)
	s.True(result.Allowed)
}

func (s *InMemoryBucketStoreSuite) TestConcurrentAllowNeverExceedsLimit() {
	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := s.store.Allow(s.at(0), "ip:concurrent", testLimit, testWindow)
			if err == nil && result.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	s.Equal(testLimit, allowed)
}
