//go:build linux || darwin

package lifecycle

import (
	"os"
	"os/signal"
	"syscall"
)

var pauseSig = make(chan os.Signal, 1)
var resumeSig = make(chan os.Signal, 1)

func pauseResumeChans() (<-chan os.Signal, <-chan os.Signal) {
	signal.Notify(pauseSig, syscall.SIGTSTP)
	signal.Notify(resumeSig, syscall.SIGCONT)
	return pauseSig, resumeSig
}

func stopPauseResume() {
	signal.Stop(pauseSig)
	signal.Stop(resumeSig)
}
