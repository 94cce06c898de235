package cli

import (
	"fmt"
	"syscall"
	"time"

	"github.com/andrewbalitaan/twitchtool/internal/fsstate"
)

func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

// signalAndWait sends SIGTERM (or SIGKILL if force) to pid and waits up
// to 10s for it to exit, escalating to SIGKILL if it hasn't.
func signalAndWait(pid int, force bool) error {
	if !fsstate.IsProcessAlive(pid) {
		return fmt.Errorf("pid %d is not running", pid)
	}

	sig := syscall.SIGTERM
	if force {
		sig = syscall.SIGKILL
	}
	if err := syscall.Kill(pid, sig); err != nil {
		return fmt.Errorf("signal pid %d: %w", pid, err)
	}

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if !fsstate.IsProcessAlive(pid) {
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}

	if !force {
		_ = syscall.Kill(pid, syscall.SIGKILL)
	}
	return nil
}
