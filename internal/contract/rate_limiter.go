package contract

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter spaces out lookups. A nil limiter or a non-positive rate
// never waits.
type RateLimiter struct {
	limiter *rate.Limiter
}

func NewRateLimiter(requestsPerSecond float64) *RateLimiter {
	if requestsPerSecond <= 0 {
		return &RateLimiter{}
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1)}
}

func (r *RateLimiter) WaitTurn(ctx context.Context) error {
	if r == nil || r.limiter == nil {
		return nil
	}
	return r.limiter.Wait(ctx)
}
