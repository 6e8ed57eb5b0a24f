package sandbox

import (
	"math/rand"
	"time"
)

// Relaunch backoff configuration.
const (
	backoffInitial = 500 * time.Millisecond
	backoffMax     = 10 * time.Second

	// backoffResetUptime is how long a viewer host must stay up before
	// its next exit is treated as fresh rather than part of a crash loop.
	backoffResetUptime = 30 * time.Second
)

// backoff implements exponential backoff with jitter.
type backoff struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
}

func newBackoff(initial, max time.Duration) *backoff {
	return &backoff{
		initial: initial,
		max:     max,
		current: initial,
	}
}

// Sleep waits for the current backoff duration and increases it. It
// returns early, reporting false, when cancel closes first.
func (b *backoff) Sleep(cancel <-chan struct{}) bool {
	// Add jitter: ±20%
	jitter := float64(b.current) * 0.2 * (rand.Float64()*2 - 1)
	sleep := time.Duration(float64(b.current) + jitter)

	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}

	timer := time.NewTimer(sleep)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-cancel:
		return false
	}
}

// Reset returns the backoff to its initial duration.
func (b *backoff) Reset() {
	b.current = b.initial
}

// Current returns the current backoff duration.
func (b *backoff) Current() time.Duration {
	return b.current
}
