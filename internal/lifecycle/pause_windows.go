//go:build windows

package lifecycle

import "os"

// Windows has neither SIGTSTP nor SIGCONT; pause/resume there is reachable
// only through Scheduler.Pause/Resume called directly (e.g. a future HTTP
// control surface), not a terminal keystroke. The channels here are never
// signaled.
func pauseResumeChans() (<-chan os.Signal, <-chan os.Signal) {
	return nil, nil
}

func stopPauseResume() {}
