// Package ratelimiter throttles outbound calls to an object store.
//
// A Limiter is a token bucket: every store request takes one token, tokens
// refill at RequestsPerSecond and at most Burst can accumulate. A zero rate
// disables throttling entirely.
package ratelimiter

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Limiter gates store requests. It is safe for concurrent use.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a Limiter allowing requestsPerSecond with the given burst.
//
// requestsPerSecond == 0 yields an unlimited limiter. A zero burst with a
// non-zero rate is raised to the rate (rounded up, minimum 1) so the first
// requests are never rejected outright.
func New(requestsPerSecond float64, burst int) *Limiter {
	if requestsPerSecond <= 0 {
		return &Limiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	if burst <= 0 {
		burst = max(1, int(requestsPerSecond+0.5))
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst)}
}

// Unlimited reports whether the limiter never blocks.
func (l *Limiter) Unlimited() bool {
	return l.limiter.Limit() == rate.Inf
}

// Allow takes a token without waiting. It reports false when the bucket is empty.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}

// SetLimit changes the refill rate. Zero switches to unlimited.
func (l *Limiter) SetLimit(requestsPerSecond float64) {
	if requestsPerSecond <= 0 {
		l.limiter.SetLimit(rate.Inf)
		return
	}
	l.limiter.SetLimit(rate.Limit(requestsPerSecond))
	if l.limiter.Burst() == 0 {
		l.limiter.SetBurst(max(1, int(requestsPerSecond+0.5)))
	}
}

// Limit returns the configured rate, or 0 when unlimited.
func (l *Limiter) Limit() float64 {
	if l.Unlimited() {
		return 0
	}
	return float64(l.limiter.Limit())
}

// Burst returns the bucket capacity.
func (l *Limiter) Burst() int {
	return l.limiter.Burst()
}

// Tokens returns the number of tokens currently available.
func (l *Limiter) Tokens() float64 {
	return l.limiter.Tokens()
}
