package kv

//go:generate mockgen -source=../medium/medium.go -destination=../medium/mocks/mocks.go -package=mocks Medium,Provider

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"topup/internal/platform/metrics"
	"topup/internal/storage/medium"
	"topup/internal/storage/medium/mocks"
	"topup/pkg/platform/sentinel"
	"topup/pkg/requestcontext"
)

type record struct {
	Fields map[string]string `json:"fields"`
	Count  int               `json:"count"`
}

type StoreSuite struct {
	suite.Suite
	medium  *medium.Memory
	metrics *metrics.Metrics
	store   *Store
	now     time.Time
	ctx     context.Context
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.medium = medium.NewMemory()
	s.metrics = metrics.New(prometheus.NewRegistry())
	var err error
	s.store, err = New(s.medium, WithMetrics(s.metrics))
	s.Require().NoError(err)
	s.now = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *StoreSuite) at(d time.Duration) context.Context {
	return requestcontext.WithTime(context.Background(), s.now.Add(d))
}

func (s *StoreSuite) TestNew() {
	_, err := New(nil)
	s.Require().Error(err)
	s.Contains(err.Error(), "medium is required")
}

// TestRoundTrip verifies values survive a JSON round trip before expiry.
func (s *StoreSuite) TestRoundTrip() {
	ttls := []time.Duration{time.Second, time.Hour, 30 * 24 * time.Hour}
	for i, ttl := range ttls {
		s.Run(fmt.Sprintf("ttl %s", ttl), func() {
			key := fmt.Sprintf("rt_%d", i)
			want := record{Fields: map[string]string{"user_id": "12345", "zone_id": "2001"}, Count: i}
			s.Require().True(s.store.Set(s.ctx, key, want, ttl))

			var got record
			s.Require().True(s.store.Get(s.at(ttl-time.Nanosecond), key, &got))
			s.Equal(want, got)
		})
	}

	s.Run("scalar and slice values", func() {
		s.Require().True(s.store.Set(s.ctx, "flag", true, time.Hour))
		var flag bool
		s.Require().True(s.store.Get(s.ctx, "flag", &flag))
		s.True(flag)

		s.Require().True(s.store.Set(s.ctx, "list", []string{"a", "b"}, time.Hour))
		var list []string
		s.Require().True(s.store.Get(s.ctx, "list", &list))
		s.Equal([]string{"a", "b"}, list)
	})

	s.Run("set overwrites", func() {
		s.Require().True(s.store.Set(s.ctx, "ow", "first", time.Hour))
		s.Require().True(s.store.Set(s.ctx, "ow", "second", time.Hour))
		var got string
		s.Require().True(s.store.Get(s.ctx, "ow", &got))
		s.Equal("second", got)
	})
}

// TestExpiry verifies reads at or after the expiry report absent.
func (s *StoreSuite) TestExpiry() {
	for _, ttl := range []time.Duration{-time.Minute, 0, time.Millisecond, time.Hour, 7 * 24 * time.Hour} {
		s.Run(fmt.Sprintf("ttl %s", ttl), func() {
			s.store.Set(s.ctx, "exp", "v", ttl)

			var got string
			s.False(s.store.Get(s.at(ttl), "exp", &got))
			s.False(s.store.Get(s.at(ttl+time.Hour), "exp", &got))
		})
	}

	s.Run("expired entry is removed from the medium", func() {
		// The medium still holds the entry (a cookie outliving its envelope).
		s.medium.Inject("gone", `{"key":"gone","value":"v","expires_at":"2024-05-01T10:01:00Z"}`, s.now.Add(24*time.Hour))
		var got string
		s.False(s.store.Get(s.at(time.Minute), "gone", &got))
		_, ok := s.medium.Raw("gone")
		s.False(ok)
	})
}

// TestMalformed verifies corrupted entries read as absent without panicking.
func (s *StoreSuite) TestMalformed() {
	far := s.now.Add(time.Hour)
	cases := map[string]string{
		"not json":          "definitely {not json",
		"wrong envelope":    `["a","b"]`,
		"missing value":     `{"key":"bad","expires_at":"2030-01-01T00:00:00Z"}`,
		"missing expiry":    `{"key":"bad","value":"x"}`,
		"key mismatch":      `{"key":"other","value":"x","expires_at":"2030-01-01T00:00:00Z"}`,
		"value wrong shape": `{"key":"bad","value":{"fields":"oops"},"expires_at":"2030-01-01T00:00:00Z"}`,
	}
	for name, raw := range cases {
		s.Run(name, func() {
			s.medium.Inject("bad", raw, far)
			var got record
			s.NotPanics(func() {
				s.False(s.store.Get(s.ctx, "bad", &got))
			})
		})
	}
	s.Equal(float64(len(cases)), testutil.ToFloat64(s.metrics.MalformedEntries))
}

func (s *StoreSuite) TestSetRejectsUnencodableValue() {
	s.False(s.store.Set(s.ctx, "fn", func() {}, time.Hour))
	s.Equal(0, s.medium.Writes())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.StorageFailures.WithLabelValues("set", "encode")))
}

func (s *StoreSuite) TestDeleteIsIdempotent() {
	s.Require().True(s.store.Set(s.ctx, "d", 1, time.Hour))
	s.store.Delete(s.ctx, "d")
	s.store.Delete(s.ctx, "d")

	var got int
	s.False(s.store.Get(s.ctx, "d", &got))
}

// MediumFailureSuite drives the store with a mocked medium to cover
// failures the in-memory medium cannot produce.
type MediumFailureSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	medium  *mocks.MockMedium
	metrics *metrics.Metrics
	store   *Store
	ctx     context.Context
}

func TestMediumFailureSuite(t *testing.T) {
	suite.Run(t, new(MediumFailureSuite))
}

func (s *MediumFailureSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.medium = mocks.NewMockMedium(s.ctrl)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.store, _ = New(s.medium, WithMetrics(s.metrics))
	s.ctx = context.Background()
}

func (s *MediumFailureSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *MediumFailureSuite) TestQuotaExceededOnSet() {
	s.medium.EXPECT().
		Write(gomock.Any(), "big", gomock.Any(), gomock.Any()).
		Return(fmt.Errorf("cookie too large: %w", sentinel.ErrQuotaExceeded))

	s.False(s.store.Set(s.ctx, "big", "value", time.Hour))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.StorageFailures.WithLabelValues("set", "quota")))
}

func (s *MediumFailureSuite) TestUnavailableOnGet() {
	s.medium.EXPECT().
		Read(gomock.Any(), "k").
		Return("", fmt.Errorf("redis down: %w", sentinel.ErrUnavailable))

	var got string
	s.False(s.store.Get(s.ctx, "k", &got))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.StorageFailures.WithLabelValues("get", "unavailable")))
}

func (s *MediumFailureSuite) TestDeleteFailureIsSwallowed() {
	s.medium.EXPECT().Remove(gomock.Any(), "k").Return(errors.New("boom"))
	s.NotPanics(func() { s.store.Delete(s.ctx, "k") })
	s.Equal(1.0, testutil.ToFloat64(s.metrics.StorageFailures.WithLabelValues("delete", "error")))
}

func (s *MediumFailureSuite) TestSetWritesEnvelopeWithExpiry() {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(s.ctx, now)
	s.medium.EXPECT().
		Write(gomock.Any(), "slot", `{"key":"slot","value":{"a":"1"},"expires_at":"2024-01-31T00:00:00Z"}`, now.Add(30*24*time.Hour)).
		Return(nil)

	s.True(s.store.Set(ctx, "slot", map[string]string{"a": "1"}, 30*24*time.Hour))
}

func (s *MediumFailureSuite) TestSetKeepsMarkupCharactersUnescaped() {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(s.ctx, now)
	s.medium.EXPECT().
		Write(gomock.Any(), "nick", `{"key":"nick","value":"Tom & Jerry <3","expires_at":"2024-01-01T01:00:00Z"}`, now.Add(time.Hour)).
		Return(nil)

	s.True(s.store.Set(ctx, "nick", "Tom & Jerry <3", time.Hour))
}

func (s *MediumFailureSuite) TestPutReportsQuota() {
	s.medium.EXPECT().
		Write(gomock.Any(), "big", gomock.Any(), gomock.Any()).
		Return(fmt.Errorf("cookie too large: %w", sentinel.ErrQuotaExceeded))

	err := s.store.Put(s.ctx, "big", "value", time.Hour)
	s.ErrorIs(err, sentinel.ErrQuotaExceeded)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.StorageFailures.WithLabelValues("set", "quota")))
}
