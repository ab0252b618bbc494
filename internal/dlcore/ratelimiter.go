package dlcore

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter shapes aggregate byte throughput across every SegmentWorker
// of every file. It wraps golang.org/x/time/rate instead of hand-rolling a
// token bucket, the same library datallboy-GoNZB and mwangiiharun-accelara
// pull in for NZB/file-transfer throttling.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter builds a limiter admitting bytesPerSecond steady-state
// with burst tolerance of the same size. bytesPerSecond <= 0 disables
// shaping entirely (acquire becomes a no-op).
func NewRateLimiter(bytesPerSecond int64) *RateLimiter {
	if bytesPerSecond <= 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	burst := int(bytesPerSecond)
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(bytesPerSecond), burst)}
}

// Acquire blocks until n bytes of budget are available, or ctx is done.
func (r *RateLimiter) Acquire(ctx context.Context, n int) error {
	if r == nil || r.limiter.Limit() == rate.Inf {
		return nil
	}
	// WaitN rejects requests larger than the burst size; split oversized
	// chunks so a single large read never fails outright.
	burst := r.limiter.Burst()
	for n > burst {
		if err := r.limiter.WaitN(ctx, burst); err != nil {
			return &DownloadError{Kind: Cancelled, Err: err}
		}
		n -= burst
	}
	if n > 0 {
		if err := r.limiter.WaitN(ctx, n); err != nil {
			return &DownloadError{Kind: Cancelled, Err: err}
		}
	}
	return nil
}
