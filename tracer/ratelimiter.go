package tracer

import (
	"math"

	"golang.org/x/time/rate"
)

// requestLimiter bounds how often the worker is willing to initiate a POST
// to the agent, independent of flush_interval. It exists as a safety net
// against a caller that calls Flush from many goroutines in a tight loop,
// the way the reference tracer's rules sampler bounds sampled volume with
// golang.org/x/time/rate rather than a hand-rolled token bucket.
type requestLimiter struct {
	limiter *rate.Limiter
}

// defaultRequestsPerSecond is high enough to be a no-op under the
// documented flush_interval cadence (one request roughly every couple of
// seconds) and only engages once a caller is issuing bursts of explicit
// flushes far outside that cadence.
const defaultRequestsPerSecond = 50.0

func newRequestLimiter() *requestLimiter {
	return &requestLimiter{
		limiter: rate.NewLimiter(rate.Limit(defaultRequestsPerSecond), int(math.Ceil(defaultRequestsPerSecond))),
	}
}

// allow reports whether a POST may be initiated right now without
// blocking. It never blocks the caller; a denied request is simply
// attempted again on the worker's next wake-up rather than being held back.
func (l *requestLimiter) allow() bool {
	if l == nil {
		return true
	}
	return l.limiter.Allow()
}
