// internal/executor/backoff_test.go
package executor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffPolicy_Next(t *testing.T) {
	fixed := BackoffPolicy{Strategy: BackoffFixed, Delay: 30 * time.Minute}
	exponential := BackoffPolicy{Strategy: BackoffExponential, Delay: 30 * time.Minute, MaxDelay: 4 * time.Hour}

	tests := []struct {
		name    string
		policy  BackoffPolicy
		attempt int
		want    time.Duration
	}{
		{name: "fixed first attempt", policy: fixed, attempt: 1, want: 30 * time.Minute},
		{name: "fixed stays constant", policy: fixed, attempt: 5, want: 30 * time.Minute},
		{name: "exponential first attempt", policy: exponential, attempt: 1, want: 30 * time.Minute},
		{name: "exponential doubles", policy: exponential, attempt: 2, want: time.Hour},
		{name: "exponential third attempt", policy: exponential, attempt: 3, want: 2 * time.Hour},
		{name: "exponential caps at max", policy: exponential, attempt: 6, want: 4 * time.Hour},
		{name: "attempt below one clamps", policy: exponential, attempt: 0, want: 30 * time.Minute},
		{name: "unknown strategy behaves as fixed", policy: BackoffPolicy{Strategy: "jittered", Delay: time.Minute}, attempt: 4, want: time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.Next(tt.attempt))
		})
	}
}

func TestBackoffPolicy_Deterministic(t *testing.T) {
	p := BackoffPolicy{Strategy: BackoffExponential, Delay: 10 * time.Minute, MaxDelay: time.Hour}
	for i := 1; i <= 8; i++ {
		assert.Equal(t, p.Next(i), p.Next(i))
	}
}
