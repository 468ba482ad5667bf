// Package retry spaces out repeated attempts at a transport operation.
package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

type Backoff struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
	// MaxAttempts bounds Do; values below one mean a single attempt.
	MaxAttempts int
}

func DefaultBackoff() Backoff {
	return Backoff{
		InitialDelay: 50 * time.Millisecond,
		Multiplier:   2,
		MaxDelay:     time.Second,
		Jitter:       true,
		MaxAttempts:  4,
	}
}

// Delay is the wait before attempt n (1-based). The first attempt waits
// InitialDelay; jitter scales the delay into [0.5, 1.5).
func (b Backoff) Delay(attempt int, rng *rand.Rand) time.Duration {
	if b.InitialDelay <= 0 {
		return 0
	}
	mult := max(b.Multiplier, 1.0)
	delay := float64(b.InitialDelay) * math.Pow(mult, float64(max(attempt, 1)-1))
	if b.MaxDelay > 0 && delay > float64(b.MaxDelay) {
		delay = float64(b.MaxDelay)
	}
	if b.Jitter {
		f := 0.5
		if rng != nil {
			f += rng.Float64()
		}
		delay *= f
	}
	return time.Duration(delay)
}

// Do runs fn until it succeeds, attempts run out or ctx is done. The first
// attempt runs immediately.
func (b Backoff) Do(ctx context.Context, rng *rand.Rand, fn func() error) error {
	attempts := max(b.MaxAttempts, 1)
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		t := time.NewTimer(b.Delay(attempt, rng))
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("%w (last error: %v)", ctx.Err(), err)
		case <-t.C:
		}
	}
	return fmt.Errorf("retry: %d attempts: %w", attempts, err)
}
