package notion

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// minSleep bounds how quickly a blocked caller re-checks the window.
const minSleep = 10 * time.Millisecond

// RateLimiter bounds the request rate to the Notion API. It tracks the
// timestamps of recent acquisitions, and admits a new one only when fewer
// than `rate` acquisitions happened within the last second.
type RateLimiter struct {
	rate  int
	clock clockwork.Clock

	mu     sync.Mutex
	stamps []time.Time
}

// NewRateLimiter returns a limiter that admits at most `ratePerSecond`
// acquisitions in any rolling one second window.
func NewRateLimiter(ratePerSecond int, clock clockwork.Clock) *RateLimiter {
	if ratePerSecond < 1 {
		ratePerSecond = 1
	}
	return &RateLimiter{rate: ratePerSecond, clock: clock}
}

// Acquire blocks until another request is allowed by the rate limit.
func (l *RateLimiter) Acquire() {
	for {
		l.mu.Lock()
		now := l.clock.Now()

		kept := l.stamps[:0]
		for _, stamp := range l.stamps {
			if now.Sub(stamp) < time.Second {
				kept = append(kept, stamp)
			}
		}
		l.stamps = kept

		if len(l.stamps) < l.rate {
			l.stamps = append(l.stamps, now)
			l.mu.Unlock()
			return
		}

		// Wait until the oldest acquisition exits the window, then re-check.
		sleepFor := time.Second - now.Sub(l.stamps[0])
		l.mu.Unlock()

		if sleepFor < minSleep {
			sleepFor = minSleep
		}
		l.clock.Sleep(sleepFor)
	}
}
