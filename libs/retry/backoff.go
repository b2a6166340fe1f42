// Package retry provides the exponential backoff policy used by the inbound
// consumers, both for broker reconnects and for handler re-attempts.
package retry

import (
	"context"
	"time"
)

// Policy describes an exponential backoff: the first delay is Initial, each
// subsequent delay is the previous one times Multiplier, capped at Max.
type Policy struct {
	Initial    time.Duration
	Multiplier float64
	Max        time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		Initial:    time.Second,
		Multiplier: 2,
		Max:        30 * time.Second,
	}
}

// Delay returns the backoff before retry number attempt (0-based).
func (p Policy) Delay(attempt int) time.Duration {
	initial := p.Initial
	if initial <= 0 {
		initial = time.Second
	}
	multiplier := p.Multiplier
	if multiplier < 1 {
		multiplier = 2
	}
	max := p.Max
	if max < initial {
		max = initial
	}

	d := float64(initial)
	for i := 0; i < attempt; i++ {
		d *= multiplier
		if d >= float64(max) {
			return max
		}
	}
	if d > float64(max) {
		return max
	}
	return time.Duration(d)
}

// Sleep blocks for Delay(attempt) or until ctx is cancelled.
func (p Policy) Sleep(ctx context.Context, attempt int) error {
	return SleepWithContext(ctx, p.Delay(attempt))
}

// SleepWithContext sleeps for d but respects context cancellation.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
