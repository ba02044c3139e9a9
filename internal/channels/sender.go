// Package channels holds the per-channel delivery senders and the registry
// the executor resolves them from. Each sender translates provider errors
// into the transient/permanent taxonomy; the registry wraps every sender
// with a per-channel rate limiter.
package channels

import (
	"context"

	engineerrors "reminder-engine/internal/common/errors"

	"golang.org/x/time/rate"
)

// Sender delivers one message on one channel. Send returns the provider's
// message id on success.
type Sender interface {
	Channel() string
	Send(ctx context.Context, recipient, subject, body string) (string, error)
}

// Registry maps channel names to senders. Concurrent reads are safe once
// registration (done during startup wiring) is finished.
type Registry struct {
	senders map[string]Sender
}

func NewRegistry() *Registry {
	return &Registry{senders: make(map[string]Sender)}
}

// Register adds a sender, wrapped with a token-bucket limiter when
// perSecond > 0.
func (r *Registry) Register(s Sender, perSecond float64, burst int) {
	if perSecond > 0 {
		if burst < 1 {
			burst = 1
		}
		s = &throttledSender{
			inner:   s,
			limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		}
	}
	r.senders[s.Channel()] = s
}

// Sender returns the sender for a channel, if one is configured.
func (r *Registry) Sender(channel string) (Sender, bool) {
	s, ok := r.senders[channel]
	return s, ok
}

// Channels lists the registered channel names.
func (r *Registry) Channels() []string {
	out := make([]string, 0, len(r.senders))
	for ch := range r.senders {
		out = append(out, ch)
	}
	return out
}

// throttledSender blocks on the token bucket before delegating. Waiting
// happens inside the send timeout, so a starved bucket surfaces as a
// retryable throttle error rather than a hang.
type throttledSender struct {
	inner   Sender
	limiter *rate.Limiter
}

func (t *throttledSender) Channel() string { return t.inner.Channel() }

func (t *throttledSender) Send(ctx context.Context, recipient, subject, body string) (string, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return "", engineerrors.NewSendThrottledError(err.Error())
	}
	return t.inner.Send(ctx, recipient, subject, body)
}
