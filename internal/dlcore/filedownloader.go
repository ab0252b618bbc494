package dlcore

import (
	"context"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// FileDownloader orchestrates one logical file end to end: status check,
// segmentation plan, worker fan-out, sidecar checkpointing, finalization,
// and optional hash verification. It is idempotent with respect to
// interruption: invoking Run twice against the same on-disk state
// produces the same final file.
type FileDownloader struct {
	Item     DownloadItem
	Config   Config
	Transport *Transport
	Store    *StateStore
	Limiter  *RateLimiter
	Hasher   *Hasher
	Controls *Controls
	Progress *ProgressSink

	totalSize atomic.Int64 // -1 until a probe or resumed sidecar reports a size
}

// TotalSize reports the known total byte size of this item, or -1 if no
// probe has completed yet (streaming mode may never learn one).
func (fd *FileDownloader) TotalSize() int64 {
	return fd.totalSize.Load()
}

func NewFileDownloader(item DownloadItem, cfg Config, transport *Transport, store *StateStore, limiter *RateLimiter, hasher *Hasher, controls *Controls) *FileDownloader {
	fd := &FileDownloader{
		Item:      item,
		Config:    cfg,
		Transport: transport,
		Store:     store,
		Limiter:   limiter,
		Hasher:    hasher,
		Controls:  controls,
		Progress:  &ProgressSink{},
	}
	fd.totalSize.Store(-1)
	return fd
}

// Run executes the full per-file algorithm and returns the terminal
// status, or a *DownloadError describing why it didn't reach one.
func (fd *FileDownloader) Run(ctx context.Context) (ItemStatus, error) {
	dest := fd.Item.Destination
	if err := EnsureDir(dest); err != nil {
		return StatusFailed, &DownloadError{Kind: IO, Item: fd.Item.ID, Err: err}
	}

	// Step 1: pre-check. Already-materialized files are done without any
	// network traffic, the "skip-if-already-materialized" fast path
	// original_source's downloader.rs also takes. Verification only runs
	// here if it's demanded AND a digest is actually known; otherwise the
	// file is simply treated as done, per spec.md §4.2 step 1.
	if _, err := os.Stat(dest); err == nil {
		if fd.shouldVerify() && fd.Item.ExpectedDigest != "" {
			if err := fd.Hasher.Verify(dest, fd.Item.ExpectedDigest); err != nil {
				return StatusFailed, err
			}
		}
		return StatusCompleted, nil
	}

	if fd.Config.VerifyMode == VerifyRequired && fd.Item.ExpectedDigest == "" {
		return StatusFailed, &DownloadError{Kind: HashRequired, Item: fd.Item.ID, Err: errNoDigest()}
	}

	state, err := fd.recoverOrPlan(ctx)
	if err != nil {
		return StatusFailed, err
	}

	if err := fd.downloadSegments(ctx, state); err != nil {
		if derr, ok := asDownloadError(err); ok && derr.Kind == Cancelled {
			return StatusCancelled, err
		}
		return StatusFailed, err
	}

	return fd.finalize(ctx, state)
}

func (fd *FileDownloader) shouldVerify() bool {
	switch fd.Config.VerifyMode {
	case VerifyRequired:
		return true
	case VerifyAuto:
		return fd.Item.ExpectedDigest != ""
	default:
		return false
	}
}

// recoverOrPlan implements steps 2-5: try to resume from an existing
// sidecar+part pair, falling back to a fresh probe and plan when resume
// isn't possible or isn't trustworthy.
func (fd *FileDownloader) recoverOrPlan(ctx context.Context) (*DownloadState, error) {
	dest := fd.Item.Destination
	saved, _ := fd.Store.Load(dest)

	if saved != nil {
		if info, err := os.Stat(partPath(dest)); err == nil && info.Size() == saved.TotalSize {
			probe, perr := fd.Transport.Probe(ctx, fd.Item.URL)
			if perr == nil && fd.validatorsAgree(saved.SourceValidator, probe.Validator) {
				fd.totalSize.Store(saved.TotalSize)
				fd.Progress.Add(saved.BytesWritten())
				return saved, nil
			}
		}
		// Either the part file doesn't match, or the validator check
		// failed; discard and restart from scratch (SourceChanged path).
		if err := fd.Store.Discard(dest); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat(partPath(dest)); err == nil {
		// I2: .part without a sidecar is discarded.
		if err := fd.Store.Discard(dest); err != nil {
			return nil, err
		}
	}

	return fd.planFresh(ctx)
}

// validatorsAgree applies the ResumePolicy open question: resume
// optimistically when neither side has a validator, require agreement
// when both do, and never resume on an observable mismatch regardless of
// policy.
func (fd *FileDownloader) validatorsAgree(saved, fresh string) bool {
	if saved == "" && fresh == "" {
		return fd.Config.ResumePolicy == ResumeOptimistic
	}
	if saved == "" || fresh == "" {
		return fd.Config.ResumePolicy == ResumeOptimistic
	}
	return saved == fresh
}

func (fd *FileDownloader) planFresh(ctx context.Context) (*DownloadState, error) {
	dest := fd.Item.Destination
	probe, err := fd.Transport.Probe(ctx, fd.Item.URL)
	if err != nil {
		return nil, err
	}

	// An unknown size or a source that refuses ranges can only ever be
	// fetched as one sequential stream; PlanSegments degenerates to a
	// single segment for both, and downloadSegments routes it straight to
	// degradeToStream instead of fanning out a range worker that would
	// either fail immediately or, for the unknown-size case, never even
	// attempt a request (spec.md §4.2 step 3).
	streaming := probe.Size < 0 || !probe.AcceptsRange

	segments := PlanSegments(probe.Size, fd.Config.ConfiguredSplit, probe.AcceptsRange)
	fd.totalSize.Store(probe.Size)
	totalSize := probe.Size
	if totalSize < 0 {
		totalSize = 0
	}

	if err := preallocate(partPath(dest), totalSize); err != nil {
		return nil, err
	}

	now := time.Now()
	state := &DownloadState{
		URL:             fd.Item.URL,
		TotalSize:       totalSize,
		SegmentSizeHint: MinSegmentBytes,
		Segments:        segments,
		StartedAt:       now,
		UpdatedAt:       now,
		SourceValidator: probe.Validator,
		Streaming:       streaming,
	}
	if err := fd.Store.Save(dest, state); err != nil {
		return nil, err
	}
	return state, nil
}

// downloadSegments fans out one SegmentWorker per not-yet-done segment and
// runs the checkpoint loop described in step 7, until every segment
// reports done or a fatal error surfaces. A state planned as Streaming
// (unknown size, or the source refused ranges) never reaches the range
// worker at all: it goes straight to degradeToStream, the same sequential
// path a RangeUnsupported error discovered mid-run falls back to.
func (fd *FileDownloader) downloadSegments(ctx context.Context, state *DownloadState) error {
	dest := fd.Item.Destination
	file, err := os.OpenFile(partPath(dest), os.O_RDWR, 0644)
	if err != nil {
		return &DownloadError{Kind: IO, Item: fd.Item.ID, Err: err}
	}
	defer file.Close()

	checkpoint := newCheckpointer(fd.Store, dest, state)
	defer checkpoint.flushFinal()

	if state.Streaming {
		for i := range state.Segments {
			if state.Segments[i].Done {
				continue
			}
			return fd.degradeToStream(ctx, state, file, checkpoint)
		}
		return nil
	}

	var wg sync.WaitGroup
	errCh := make(chan error, len(state.Segments))
	for i := range state.Segments {
		seg := &state.Segments[i]
		if seg.Done {
			continue
		}
		wg.Add(1)
		go func(seg *SegmentState) {
			defer wg.Done()
			worker := NewSegmentWorker(fd.Transport, file, fd.Limiter, fd.Progress, fd.Controls, checkpoint, fd.Item.URL)
			err := worker.Run(ctx, seg)
			checkpoint.onSegmentUpdate(seg)
			if err != nil {
				errCh <- err
			}
		}(seg)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if derr, ok := asDownloadError(err); ok && derr.Kind == RangeUnsupported {
			state.Streaming = true
			return fd.degradeToStream(ctx, state, file, checkpoint)
		}
		if derr, ok := asDownloadError(err); ok && derr.Kind == SourceChanged {
			if derr2 := fd.Store.Discard(dest); derr2 != nil {
				return derr2
			}
			return err
		}
		return err
	}
	return nil
}

// degradeToStream abandons range segmentation (or, for a source probed as
// streaming up front, never attempts it) and fetches the whole body with
// one sequential GET, checkpointing bytes_written at most once per
// CheckpointInterval so a crash mid-stream doesn't look like zero progress.
func (fd *FileDownloader) degradeToStream(ctx context.Context, state *DownloadState, file *os.File, checkpoint *checkpointer) error {
	if err := file.Truncate(0); err != nil {
		return &DownloadError{Kind: IO, Item: fd.Item.ID, Err: err}
	}
	body, err := fd.Transport.OpenStream(ctx, fd.Item.URL)
	if err != nil {
		return err
	}
	defer body.Close()

	state.Segments = []SegmentState{{Index: 0, Start: 0, End: -1}}
	seg := &state.Segments[0]

	buf := make([]byte, workerChunkSize)
	var offset int64
	for {
		if fd.Controls.Cancelled() {
			return &DownloadError{Kind: Cancelled, Item: fd.Item.ID, Err: context.Canceled}
		}
		n, readErr := body.Read(buf)
		if n > 0 {
			if err := fd.Limiter.Acquire(ctx, n); err != nil {
				return err
			}
			if _, werr := file.WriteAt(buf[:n], offset); werr != nil {
				return &DownloadError{Kind: IO, Item: fd.Item.ID, Err: werr}
			}
			offset += int64(n)
			checkpoint.recordStreamProgress(seg, int64(n))
			fd.Progress.Add(int64(n))
			fd.Controls.AwaitResume(ctx)
		}
		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			return &DownloadError{Kind: Transient, Item: fd.Item.ID, Err: readErr}
		}
	}
	checkpoint.markDone(seg)
	state.TotalSize = offset
	fd.totalSize.Store(offset)
	return fd.Store.Save(fd.Item.Destination, state)
}

// finalize implements step 8: truncate to the known size, hash if
// required, rename .part to the final name, and drop the sidecar.
func (fd *FileDownloader) finalize(ctx context.Context, state *DownloadState) (ItemStatus, error) {
	dest := fd.Item.Destination
	part := partPath(dest)

	if state.TotalSize > 0 {
		if f, err := os.OpenFile(part, os.O_RDWR, 0644); err == nil {
			f.Truncate(state.TotalSize)
			f.Close()
		}
	}

	if fd.shouldVerify() {
		if err := fd.Hasher.Verify(part, fd.Item.ExpectedDigest); err != nil {
			return StatusFailed, err
		}
	}

	if err := os.Rename(part, dest); err != nil {
		return StatusFailed, &DownloadError{Kind: IO, Item: fd.Item.ID, Err: err}
	}
	if err := fd.Store.Complete(dest); err != nil {
		return StatusFailed, err
	}
	return StatusCompleted, nil
}

func asDownloadError(err error) (*DownloadError, bool) {
	derr, ok := err.(*DownloadError)
	return derr, ok
}

func errNoDigest() error {
	return &noDigestError{}
}

type noDigestError struct{}

func (*noDigestError) Error() string { return "verification required but no expected digest was supplied" }

// preallocate creates path at size bytes, hole-punching where the
// filesystem supports it. Skipping pre-allocation on platforms that
// don't is safe: segments only ever write within their own range.
func preallocate(path string, size int64) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return &DownloadError{Kind: IO, Err: err}
	}
	defer f.Close()
	if size > 0 {
		if err := f.Truncate(size); err != nil {
			return &DownloadError{Kind: IO, Err: err}
		}
	}
	return nil
}
