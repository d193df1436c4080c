package history

import (
	"fmt"
	"time"
)

// TimeAgo renders how long before now the unix-millisecond timestamp ts
// was, in minutes under an hour, hours under a day, and days beyond that.
// Non-positive timestamps render as "unknown"; timestamps in the future
// (client clock skew) render as "just now".
func TimeAgo(now time.Time, ts int64) string {
	if ts <= 0 {
		return "unknown"
	}
	d := now.Sub(time.UnixMilli(ts))
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return ago(int(d/time.Minute), "minute")
	case d < 24*time.Hour:
		return ago(int(d/time.Hour), "hour")
	default:
		return ago(int(d/(24*time.Hour)), "day")
	}
}

func ago(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
