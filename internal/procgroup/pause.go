// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package procgroup

import (
	"os/exec"

	"github.com/andrewbalitaan/twitchtool/internal/metrics"
)

// Pause suspends an entire process group with SIGSTOP. It is used by
// the encode daemon to freeze an in-flight transcode while a capture
// needs the CPU/tuner, without killing and re-enqueueing the job.
// Safe to call on a nil or already-exited command.
func Pause(cmd *exec.Cmd) error {
	if err := pauseSignal(cmd); err != nil {
		return err
	}
	metrics.IncPause()
	return nil
}

// Resume sends SIGCONT to a process group previously suspended with
// Pause.
func Resume(cmd *exec.Cmd) error {
	if err := resumeSignal(cmd); err != nil {
		return err
	}
	metrics.IncResume()
	return nil
}
