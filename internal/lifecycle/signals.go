// Package lifecycle wires OS signals into a running Scheduler so a batch
// download can be interrupted, paused, and resumed from the terminal the
// way spec.md §6's daemon/supervisor interface calls for, grounded on
// ligustah-slurp's cmd/slurp/download.go (SIGINT/SIGTERM → context
// cancel) and other_examples' vyrti-dl main.go (the same pattern plus
// cleanup-before-exit).
package lifecycle

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/relaydl/relaydl/internal/dlcore"
	"github.com/rs/zerolog"
)

// Wire installs a signal handler for the lifetime of a batch run: SIGINT
// and SIGTERM cancel the scheduler, and on POSIX platforms SIGTSTP pauses
// it and SIGCONT resumes it. It returns a stop function that removes the
// handler; call it once the batch finishes so a later unrelated signal
// doesn't reach a scheduler that's already done.
func Wire(sched *dlcore.Scheduler, log zerolog.Logger) (stop func()) {
	termCh := make(chan os.Signal, 1)
	signal.Notify(termCh, syscall.SIGINT, syscall.SIGTERM)
	pauseCh, resumeCh := pauseResumeChans()

	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-termCh:
				log.Warn().Str("signal", sig.String()).Msg("interrupt received, cancelling")
				sched.Cancel()
			case <-pauseCh:
				log.Info().Msg("pausing on SIGTSTP")
				sched.Pause()
			case <-resumeCh:
				log.Info().Msg("resuming on SIGCONT")
				sched.Resume()
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(termCh)
		stopPauseResume()
		close(done)
	}
}
