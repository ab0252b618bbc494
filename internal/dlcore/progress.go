package dlcore

import "sync/atomic"

// ProgressSink accumulates byte deltas from every SegmentWorker of one
// file using a lock-free monotonic counter, read infrequently by the
// Scheduler's aggregate snapshot.
type ProgressSink struct {
	downloaded atomic.Int64
}

func (p *ProgressSink) Add(n int64) {
	p.downloaded.Add(n)
}

func (p *ProgressSink) Downloaded() int64 {
	return p.downloaded.Load()
}

// ItemSnapshot is one row of the Scheduler's aggregate progress report.
type ItemSnapshot struct {
	ID         string
	Status     ItemStatus
	TotalSize  int64 // -1 if unknown
	Downloaded int64
	Err        error
}

// Snapshot is the Scheduler.Snapshot() return shape: the "observability
// call returning a snapshot of per-item progress" spec.md §6 requires,
// with the aggregate header original_source's downloader.rs computes from
// its total_known_bytes/downloaded_files atomics.
type Snapshot struct {
	Items           []ItemSnapshot
	FilesCompleted  int
	FilesTotal      int
	BytesDownloaded int64
	BytesKnownTotal int64 // sum of TotalSize over items whose size is known
}
