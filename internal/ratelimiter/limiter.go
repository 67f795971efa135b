package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter is a single token bucket gating every call to the chat platform
// (upload, user lookup, post alike). The platform enforces one global bot
// quota, so one bucket — not one per channel — matches the upstream limit.
// Burst equals the rate so no extra burst capacity accumulates beyond the
// configured per-second maximum.
type Limiter struct {
	l *rate.Limiter
}

// New creates a Limiter granting ratePerSec tokens per second.
func New(ratePerSec int) *Limiter {
	return &Limiter{l: rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec)}
}

// Wait blocks until a token is granted. Called by each worker immediately
// before every platform call. Returns a non-nil error only if ctx is
// cancelled (or its deadline passes) while waiting.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.l.Wait(ctx)
}
