// Package dlcore is the downloader core: per-file segmentation, concurrent
// range fetching, the resumable sidecar protocol, rate-shaped transfer, and
// post-assembly hash verification. Nothing in this package knows about the
// command line, task-list files, or where a DownloadItem came from.
package dlcore

import "time"

// DownloadItem is one planned download: a source URL, a destination path,
// and an optional expected content digest. Immutable once constructed.
type DownloadItem struct {
	ID             string
	URL            string
	Destination    string
	ExpectedDigest string // lowercase hex SHA-256, empty if unknown
}

// SegmentState tracks one contiguous byte range of a file.
type SegmentState struct {
	Index        int   `json:"index"`
	Start        int64 `json:"start"`
	End          int64 `json:"end"` // inclusive
	BytesWritten int64 `json:"bytes_written"`
	Done         bool  `json:"done"`
}

func (s SegmentState) Length() int64 {
	return s.End - s.Start + 1
}

// Remaining reports the byte range still owed for this segment, resuming
// from Start+BytesWritten.
func (s SegmentState) Remaining() (offset, length int64) {
	offset = s.Start + s.BytesWritten
	length = s.End - offset + 1
	return offset, length
}

// DownloadState is the on-disk sidecar shape persisted alongside the
// partial payload file. Field names are stable and case-sensitive; unknown
// fields are ignored on read and missing required fields discard the
// sidecar rather than erroring.
type DownloadState struct {
	URL             string         `json:"url"`
	TotalSize       int64          `json:"total_size"`
	SegmentSizeHint int64          `json:"segment_size_hint"`
	Segments        []SegmentState `json:"segments"`
	StartedAt       time.Time      `json:"started_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	SourceValidator string         `json:"source_validator,omitempty"`
	// Streaming is true when the source was probed as size-unknown or
	// range-refusing, so the single segment here was (or will be) fetched
	// with one sequential GET rather than concurrent range workers.
	Streaming bool `json:"streaming,omitempty"`
}

// BytesWritten sums progress across all segments.
func (s DownloadState) BytesWritten() int64 {
	var total int64
	for _, seg := range s.Segments {
		total += seg.BytesWritten
	}
	return total
}

// AllDone reports whether every segment has completed.
func (s DownloadState) AllDone() bool {
	if len(s.Segments) == 0 {
		return false
	}
	for _, seg := range s.Segments {
		if !seg.Done {
			return false
		}
	}
	return true
}

// ProbeResult is what Transport.Probe learns about a remote resource before
// any bytes are fetched.
type ProbeResult struct {
	Size         int64 // -1 if unknown
	AcceptsRange bool
	Validator    string // ETag if strong, else Last-Modified; empty if neither
}

// VerifyMode governs when a missing or mismatched digest is fatal.
type VerifyMode int

const (
	VerifyAuto     VerifyMode = iota // verify only if a digest is supplied
	VerifyRequired                   // HashRequired for any item lacking a digest
	VerifyDisabled                   // never verify
)

func ParseVerifyMode(s string) (VerifyMode, error) {
	switch s {
	case "auto", "":
		return VerifyAuto, nil
	case "required":
		return VerifyRequired, nil
	case "disabled":
		return VerifyDisabled, nil
	default:
		return VerifyAuto, &DownloadError{Kind: Permanent, Err: errUnknownVerifyMode(s)}
	}
}

// ResumePolicy decides whether a resume is permitted when neither the saved
// sidecar nor the fresh probe expose a validator (ETag / Last-Modified).
type ResumePolicy int

const (
	// ResumeOptimistic resumes without a validator present on either side.
	ResumeOptimistic ResumePolicy = iota
	// ResumeStrict forces a restart whenever no validator is available to
	// confirm the upstream resource hasn't changed.
	ResumeStrict
)

// ItemStatus is the terminal (or in-progress) outcome of one DownloadItem.
type ItemStatus int

const (
	StatusPending ItemStatus = iota
	StatusSegmenting
	StatusDownloading
	StatusVerifying
	StatusFinalizing
	StatusCompleted
	StatusFailed
	StatusCancelled
)

func (s ItemStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSegmenting:
		return "segmenting"
	case StatusDownloading:
		return "downloading"
	case StatusVerifying:
		return "verifying"
	case StatusFinalizing:
		return "finalizing"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}
