package dlcore

import (
	"context"
	"testing"
	"time"
)

// P5: rate bound — over a window W with configured rate R, total bytes
// admitted <= R*W + capacity (here capacity == burst == R).
func TestRateLimiterBoundsThroughput(t *testing.T) {
	const rate = 1024 // bytes/sec
	rl := NewRateLimiter(rate)
	ctx := context.Background()

	start := time.Now()
	var admitted int64
	for admitted < 3*rate {
		if err := rl.Acquire(ctx, 256); err != nil {
			t.Fatalf("Acquire: %v", err)
		}
		admitted += 256
	}
	elapsed := time.Since(start)
	maxAllowed := float64(rate)*elapsed.Seconds() + float64(rate) // + burst
	if float64(admitted) > maxAllowed+float64(rate) {            // slack for scheduling jitter
		t.Fatalf("admitted %d bytes in %v, exceeds bound %v", admitted, elapsed, maxAllowed)
	}
}

func TestRateLimiterDisabledIsNoop(t *testing.T) {
	rl := NewRateLimiter(0)
	ctx := context.Background()
	start := time.Now()
	if err := rl.Acquire(ctx, 10<<20); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Fatalf("disabled limiter should not block")
	}
}

func TestRateLimiterRespectsCancellation(t *testing.T) {
	rl := NewRateLimiter(1) // 1 byte/sec, tiny burst
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := rl.Acquire(ctx, 1<<20)
	derr, ok := err.(*DownloadError)
	if !ok || derr.Kind != Cancelled {
		t.Fatalf("err = %v, want Cancelled", err)
	}
}
