package dlcore

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"os"
	"time"
)

// Retry policy constants from spec.md §4.2.
const (
	retryBaseDelay  = 500 * time.Millisecond
	retryFactor     = 2
	retryMaxDelay   = 30 * time.Second
	retryMaxAttempt = 6
	retryJitterFrac = 0.20

	// workerChunkSize bounds a single positional write and is also the
	// unit cancellation settles within, per spec.md §5 ("bounded by the
	// chunk size chosen by the HTTP layer, typically <= 64 KiB").
	workerChunkSize = 64 * 1024
)

// SegmentWorker fetches one byte range and writes it at the corresponding
// offset in the shared payload file. Ranges are disjoint across workers of
// the same file, so positional writes commute without locking the file
// handle (spec.md §4.3).
type SegmentWorker struct {
	transport  *Transport
	file       *os.File
	limiter    *RateLimiter
	progress   *ProgressSink
	controls   *Controls
	checkpoint *checkpointer
	url        string
}

func NewSegmentWorker(transport *Transport, file *os.File, limiter *RateLimiter, progress *ProgressSink, controls *Controls, checkpoint *checkpointer, url string) *SegmentWorker {
	return &SegmentWorker{
		transport:  transport,
		file:       file,
		limiter:    limiter,
		progress:   progress,
		controls:   controls,
		checkpoint: checkpoint,
		url:        url,
	}
}

// Run fetches and writes seg.Remaining(), retrying transient failures with
// exponential backoff, jitter, and a cap, and mutates seg in place so the
// caller's checkpoint loop observes the latest bytes_written/done.
func (w *SegmentWorker) Run(ctx context.Context, seg *SegmentState) error {
	var lastErr error
	for attempt := 0; attempt < retryMaxAttempt; attempt++ {
		if attempt > 0 {
			if err := w.backoff(ctx, attempt); err != nil {
				return err
			}
		}
		err := w.runOnce(ctx, seg)
		if err == nil {
			w.checkpoint.markDone(seg)
			return nil
		}
		var derr *DownloadError
		if errors.As(err, &derr) && derr.Kind == Cancelled {
			return err
		}
		if errors.As(err, &derr) && !derr.Kind.Retryable() {
			return err
		}
		lastErr = err
	}
	return lastErr
}

func (w *SegmentWorker) backoff(ctx context.Context, attempt int) error {
	delay := retryBaseDelay
	for i := 0; i < attempt; i++ {
		delay *= retryFactor
		if delay > retryMaxDelay {
			delay = retryMaxDelay
			break
		}
	}
	jitter := time.Duration((rand.Float64()*2 - 1) * retryJitterFrac * float64(delay))
	delay += jitter
	if delay < 0 {
		delay = 0
	}
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return &DownloadError{Kind: Cancelled, Err: ctx.Err()}
	}
}

func (w *SegmentWorker) runOnce(ctx context.Context, seg *SegmentState) error {
	offset, length := seg.Remaining()
	if length <= 0 {
		return nil
	}
	body, err := w.transport.OpenRange(ctx, w.url, offset, length)
	if err != nil {
		return err
	}
	defer body.Close()

	buf := make([]byte, workerChunkSize)
	writeOffset := offset
	for {
		if w.controls.Cancelled() {
			return &DownloadError{Kind: Cancelled, Err: context.Canceled}
		}
		n, readErr := body.Read(buf)
		if n > 0 {
			if err := w.limiter.Acquire(ctx, n); err != nil {
				return err
			}
			if _, werr := w.file.WriteAt(buf[:n], writeOffset); werr != nil {
				return &DownloadError{Kind: IO, Err: werr}
			}
			writeOffset += int64(n)
			w.checkpoint.recordProgress(seg, int64(n))
			w.progress.Add(int64(n))
			w.controls.AwaitResume(ctx)
		}
		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			return &DownloadError{Kind: Transient, Err: readErr}
		}
	}
	if seg.BytesWritten < seg.Length() {
		return &DownloadError{Kind: Transient, Err: errShortRead(seg.Length(), seg.BytesWritten)}
	}
	return nil
}
