package dlcore

import (
	"context"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Summary is the Scheduler's terminal report: every item's final outcome,
// ready to be mapped onto a process exit code by whatever wraps the core.
type Summary struct {
	Completed []string
	Failed    map[string]*DownloadError
	Cancelled []string
}

// ExitCode is zero iff every item ended Completed; non-zero otherwise.
func (s Summary) ExitCode() int {
	if len(s.Failed) > 0 || len(s.Cancelled) > 0 {
		return 1
	}
	return 0
}

// Scheduler orchestrates the full batch: bounded file-level concurrency,
// the pre-flight HashRequired scan, lifecycle propagation, and aggregate
// progress. Concurrency is bounded the way the teacher's scheduler package
// bounds workers — a buffered channel used as a counting semaphore, not a
// worker-pool library.
type Scheduler struct {
	items    []DownloadItem
	config   Config
	sem      chan struct{}
	store    *StateStore
	hasher   *Hasher
	transport *Transport
	limiter  *RateLimiter
	controls *Controls
	log      zerolog.Logger

	mu        sync.Mutex
	downloads map[string]*FileDownloader
	statuses  map[string]ItemStatus
	errs      map[string]error
}

// NewScheduler builds a Scheduler for items, bounded to fileConcurrency
// simultaneous FileDownloaders, using transport for all network I/O and
// limiter to shape aggregate byte throughput.
func NewScheduler(items []DownloadItem, cfg Config, fileConcurrency int, transport *Transport, limiter *RateLimiter, controls *Controls, log zerolog.Logger) *Scheduler {
	if fileConcurrency < 1 {
		fileConcurrency = 1
	}
	return &Scheduler{
		items:     items,
		config:    cfg,
		sem:       make(chan struct{}, fileConcurrency),
		store:     NewStateStore(),
		hasher:    NewHasher(),
		transport: transport,
		limiter:   limiter,
		controls:  controls,
		log:       log,
		downloads: make(map[string]*FileDownloader),
		statuses:  make(map[string]ItemStatus),
		errs:      make(map[string]error),
	}
}

// Run drives every item to completion, failure, or cancellation and
// returns the batch summary. The verify-mode-aware pre-flight scan
// (original_source's commands.rs upfront check) runs before any
// FileDownloader is spawned, so a missing digest under required mode never
// costs a single network round trip.
func (s *Scheduler) Run(ctx context.Context) Summary {
	summary := Summary{Failed: make(map[string]*DownloadError)}

	pending := make([]DownloadItem, 0, len(s.items))
	for _, item := range s.items {
		alreadyPresent := false
		if _, err := os.Stat(item.Destination); err == nil {
			alreadyPresent = true
		}
		if !alreadyPresent && s.config.VerifyMode == VerifyRequired && item.ExpectedDigest == "" {
			derr := &DownloadError{Kind: HashRequired, Item: item.ID, Err: errNoDigest()}
			summary.Failed[item.ID] = derr
			s.mu.Lock()
			s.statuses[item.ID] = StatusFailed
			s.errs[item.ID] = derr
			s.mu.Unlock()
			s.log.Warn().Str("item", item.ID).Msg("rejected: verification required but no digest supplied")
			continue
		}
		pending = append(pending, item)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, item := range pending {
		item := item
		s.sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-s.sem }()

			fd := NewFileDownloader(item, s.config, s.transport, s.store, s.limiter, s.hasher, s.controls)
			s.mu.Lock()
			s.downloads[item.ID] = fd
			s.statuses[item.ID] = StatusDownloading
			s.mu.Unlock()

			status, err := fd.Run(ctx)

			s.mu.Lock()
			s.statuses[item.ID] = status
			if err != nil {
				s.errs[item.ID] = err
			}
			s.mu.Unlock()

			mu.Lock()
			defer mu.Unlock()
			switch status {
			case StatusCompleted:
				summary.Completed = append(summary.Completed, item.ID)
			case StatusCancelled:
				summary.Cancelled = append(summary.Cancelled, item.ID)
			default:
				derr, ok := err.(*DownloadError)
				if !ok {
					derr = &DownloadError{Kind: Permanent, Item: item.ID, Err: err}
				}
				summary.Failed[item.ID] = derr
				s.log.Error().Str("item", item.ID).Str("kind", derr.Kind.String()).Err(derr.Err).Msg("item failed")
			}
		}()
	}
	wg.Wait()
	return summary
}

// Cancel propagates cancellation to every in-flight FileDownloader.
func (s *Scheduler) Cancel() { s.controls.Cancel() }

// Pause quiesces workers at their next chunk boundary.
func (s *Scheduler) Pause() { s.controls.Pause() }

// Resume re-admits paused workers into their loops.
func (s *Scheduler) Resume() { s.controls.Resume() }

// Snapshot reports per-item progress and the aggregate header described
// in SPEC_FULL §10 (files completed/total, bytes downloaded/known).
func (s *Scheduler) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{FilesTotal: len(s.items)}
	for _, item := range s.items {
		status := s.statuses[item.ID]
		var downloaded int64
		total := int64(-1)
		if fd, ok := s.downloads[item.ID]; ok {
			downloaded = fd.Progress.Downloaded()
			total = fd.TotalSize()
		}
		if status == StatusCompleted {
			snap.FilesCompleted++
			if total < 0 {
				if info, err := os.Stat(item.Destination); err == nil {
					total = info.Size()
				}
			}
			if downloaded == 0 && total > 0 {
				downloaded = total
			}
		}
		snap.Items = append(snap.Items, ItemSnapshot{
			ID:         item.ID,
			Status:     status,
			TotalSize:  total,
			Downloaded: downloaded,
			Err:        s.errs[item.ID],
		})
		snap.BytesDownloaded += downloaded
		if total > 0 {
			snap.BytesKnownTotal += total
		}
	}
	return snap
}
