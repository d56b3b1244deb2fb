package remote

import (
	"context"
	"math/rand"
	"time"
)

const (
	DefaultInitialBackoff = 200 * time.Millisecond
	DefaultMaxBackoff     = 2 * time.Second
	backoffMultiplier     = 2.0
	jitterFactor          = 0.2
)

// backoff yields exponentially growing delays with jitter. Not safe for concurrent use;
// each retry loop owns one.
type backoff struct {
	current time.Duration
	max     time.Duration
	jitter  float64
	rng     *rand.Rand
}

func newBackoff(initial, max time.Duration, jitter float64) *backoff {
	if initial <= 0 {
		initial = DefaultInitialBackoff
	}
	if max < initial {
		max = initial
	}
	return &backoff{
		current: initial,
		max:     max,
		jitter:  jitter,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Next returns the next delay and advances.
func (b *backoff) Next() time.Duration {
	delay := b.current
	if b.jitter > 0 {
		delay += time.Duration(float64(delay) * b.jitter * b.rng.Float64())
	}
	next := time.Duration(float64(b.current) * backoffMultiplier)
	if next > b.max {
		next = b.max
	}
	b.current = next
	return delay
}

// sleepCtx waits for d or until ctx ends.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
