package weather

import (
	"fmt"
	"time"
)

// TTLDisplay renders a cache TTL for humans, e.g. "30 min", "1 hr", "2 days".
func TTLDisplay(ttl time.Duration) string {
	secs := int64(ttl / time.Second)
	switch {
	case secs >= 86400:
		n := secs / 86400
		return fmt.Sprintf("%d %s", n, plural(n, "day", "days"))
	case secs >= 3600:
		n := secs / 3600
		return fmt.Sprintf("%d %s", n, plural(n, "hr", "hrs"))
	default:
		return fmt.Sprintf("%d min", secs/60)
	}
}

func plural(n int64, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
