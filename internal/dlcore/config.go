package dlcore

import "time"

// CheckpointInterval bounds how often a sidecar flush occurs from
// coalesced progress alone (a flush always also happens immediately after
// any segment transitions to done). Decided in DESIGN.md (spec.md §4.2
// suggests 1s).
const CheckpointInterval = 1 * time.Second

// Config is the set of knobs a FileDownloader needs beyond the
// DownloadItem itself. Shared across every FileDownloader the Scheduler
// spawns.
type Config struct {
	ConfiguredSplit int // segment-count hint, S in spec.md §5
	VerifyMode      VerifyMode
	ResumePolicy    ResumePolicy
}

func DefaultConfig() Config {
	return Config{
		ConfiguredSplit: 4,
		VerifyMode:      VerifyAuto,
		ResumePolicy:    ResumeOptimistic,
	}
}
