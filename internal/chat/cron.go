package chat

import (
	"time"

	"github.com/robfig/cron/v3"
)

// nextCronDuration returns the duration from now until the next fire time
// of expr. expr is parsed exactly as config validation parses it: standard
// 5-field expressions plus descriptors such as "@daily" and "@every 1h".
// Returns 0 on parse error.
func nextCronDuration(expr string, now time.Time) time.Duration {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return 0
	}
	d := sched.Next(now).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
