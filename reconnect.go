package wirekeep

import (
	"math"
	"sync"
	"time"
)

// backoffFactor drives the exponential growth of the reconnect delay.
const backoffFactor = 1.5

// reconnector tracks the retry budget and computes backoff delays. The
// attempt counter enforces the retry ceiling; the backoff exponent
// compounds the delay independently. Both reset only on a successful
// open or an explicit reset.
type reconnector struct {
	mu       sync.Mutex
	attempts int
	exponent int
	timer    *time.Timer
}

// begin registers a new attempt. ok is false once the ceiling has been
// reached; attempt reports the resulting attempt count either way.
// A limit of zero means no ceiling.
func (r *reconnector) begin(limit int) (attempt int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit > 0 && r.attempts >= limit {
		return r.attempts, false
	}
	r.attempts++
	return r.attempts, true
}

// nextDelay returns the wait before the next attempt and advances the
// backoff exponent. The first step waits base; each later step waits
// base*1.5^exponent capped at max, so consecutive delays never decrease
// and never exceed max.
func (r *reconnector) nextDelay(base, max time.Duration) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	delay := base
	if r.exponent > 0 {
		scaled := time.Duration(float64(base) * math.Pow(backoffFactor, float64(r.exponent)))
		if max > 0 && scaled > max {
			scaled = max
		}
		delay = scaled
	}
	r.exponent++
	return delay
}

// schedule arms fn to run after d, superseding any pending schedule.
func (r *reconnector) schedule(d time.Duration, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(d, fn)
}

// cancel stops a pending scheduled attempt, if any.
func (r *reconnector) cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// reset zeroes both counters.
func (r *reconnector) reset() {
	r.mu.Lock()
	r.attempts = 0
	r.exponent = 0
	r.mu.Unlock()
}

func (r *reconnector) attemptCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts
}
