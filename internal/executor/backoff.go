// internal/executor/backoff.go
package executor

import "time"

// Backoff strategies. Both are deterministic so retry times are exactly
// testable; no jitter.
const (
	BackoffFixed       = "fixed"
	BackoffExponential = "exponential"
)

// BackoffPolicy computes the delay before the next send attempt.
type BackoffPolicy struct {
	Strategy string
	Delay    time.Duration // base delay
	MaxDelay time.Duration // cap for the exponential strategy
}

// Next returns the delay after the attempt-th failure (attempt >= 1).
func (p BackoffPolicy) Next(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	if p.Strategy != BackoffExponential {
		return p.Delay
	}

	d := p.Delay
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}
