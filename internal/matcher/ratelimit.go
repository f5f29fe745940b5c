package matcher

import (
	"context"

	"golang.org/x/time/rate"
)

// tokenBucket is the admission gate every tracker/LLM call the matcher
// issues passes through: capacity
// callsPerMinute, continuous refill at capacity/60 tokens/second,
// grounded on the adaptive limiter's use of golang.org/x/time/rate
// (rate.NewLimiter + WaitN) for a process-local token-bucket budget.
type tokenBucket struct {
	limiter *rate.Limiter
}

// newTokenBucket builds a bucket with the given per-minute call budget. A
// non-positive callsPerMinute disables limiting (an unlimited bucket).
func newTokenBucket(callsPerMinute int) *tokenBucket {
	if callsPerMinute <= 0 {
		return &tokenBucket{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	limit := rate.Limit(float64(callsPerMinute) / 60.0)
	return &tokenBucket{limiter: rate.NewLimiter(limit, callsPerMinute)}
}

// acquire blocks until n tokens are available or ctx is done. Matcher calls
// consume one token for keyword search and one for semantic ranking (spec
// §4.6: "Two tokens are consumed per invocation").
func (b *tokenBucket) acquire(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}
	return b.limiter.WaitN(ctx, n)
}
