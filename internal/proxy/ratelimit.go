package proxy

import (
	"golang.org/x/time/rate"

	"github.com/yndnr/blazar-go/pkg/cmap"
)

// rateLimiter keeps one token bucket per client IP. A nil *rateLimiter
// allows everything.
type rateLimiter struct {
	limit    rate.Limit
	burst    int
	limiters *cmap.Map[string, *rate.Limiter]
}

func newRateLimiter(perSecond int) *rateLimiter {
	if perSecond <= 0 {
		return nil
	}
	return &rateLimiter{
		limit:    rate.Limit(perSecond),
		burst:    perSecond,
		limiters: cmap.New[string, *rate.Limiter](),
	}
}

// allow reports whether ip may run one more command now.
func (rl *rateLimiter) allow(ip string) bool {
	if rl == nil {
		return true
	}
	l := rl.limiters.GetOrCreate(ip, func() *rate.Limiter {
		return rate.NewLimiter(rl.limit, rl.burst)
	})
	return l.Allow()
}

// sweep drops buckets that have refilled completely. A full bucket
// behaves exactly like a new one, so this only reclaims memory.
func (rl *rateLimiter) sweep() {
	if rl == nil {
		return
	}
	rl.limiters.DeleteFunc(func(_ string, l *rate.Limiter) bool {
		return l.Tokens() >= float64(rl.burst)
	})
}

// len returns the number of tracked IPs.
func (rl *rateLimiter) len() int {
	if rl == nil {
		return 0
	}
	return rl.limiters.Len()
}
