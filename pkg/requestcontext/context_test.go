package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNowFallsBackToWallClock(t *testing.T) {
	before := time.Now()
	got := Now(context.Background())
	assert.False(t, got.Before(before))
}

func TestInjectedValues(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := WithTime(context.Background(), fixed)
	ctx = WithRequestID(ctx, "req-42")
	ctx = WithDeviceID(ctx, "device-7")

	assert.Equal(t, fixed, Now(ctx))
	assert.Equal(t, "req-42", RequestID(ctx))
	assert.Equal(t, "device-7", DeviceID(ctx))
}

func TestMissingValuesAreEmpty(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestID(ctx))
	assert.Empty(t, DeviceID(ctx))
}
