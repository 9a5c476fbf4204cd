package transport

import (
	"math/rand"
	"time"
)

// Backoff spaces reopen attempts after the port drops. Delays grow by Factor
// from Initial and are clamped to [Initial, Max] after jitter, so a device that
// stays unplugged is polled at most every Max.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
	Factor  float64
	// Jitter is the fraction of each delay randomized in both directions, 0..1.
	Jitter float64
}

func DefaultBackoff() Backoff {
	return Backoff{
		Initial: 250 * time.Millisecond,
		Max:     10 * time.Second,
		Factor:  2,
		Jitter:  0.2,
	}
}

// Delay returns the wait before reopen attempt n (1-based). rng may be nil
// for an unjittered delay.
func (b Backoff) Delay(n int, rng *rand.Rand) time.Duration {
	if b.Initial <= 0 {
		return 0
	}
	limit := b.Max
	if limit < b.Initial {
		limit = b.Initial
	}
	factor := b.Factor
	if factor < 1 {
		factor = 1
	}

	d := float64(b.Initial)
	for i := 1; i < n && d < float64(limit); i++ {
		d *= factor
	}
	if rng != nil && b.Jitter > 0 {
		j := min(b.Jitter, 1)
		d *= 1 + j*(2*rng.Float64()-1)
	}
	return time.Duration(min(max(d, float64(b.Initial)), float64(limit)))
}
