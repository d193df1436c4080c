package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeAgo(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) int64 { return now.Add(-d).UnixMilli() }

	tests := []struct {
		name string
		ts   int64
		want string
	}{
		{"zero timestamp", 0, "unknown"},
		{"negative timestamp", -5, "unknown"},
		{"seconds ago", at(30 * time.Second), "just now"},
		{"future", at(-time.Hour), "just now"},
		{"one minute", at(time.Minute), "1 minute ago"},
		{"minutes", at(59 * time.Minute), "59 minutes ago"},
		{"one hour", at(time.Hour), "1 hour ago"},
		{"hours", at(23*time.Hour + 59*time.Minute), "23 hours ago"},
		{"one day", at(24 * time.Hour), "1 day ago"},
		{"days", at(6*24*time.Hour + time.Hour), "6 days ago"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TimeAgo(now, tt.ts))
		})
	}
}
