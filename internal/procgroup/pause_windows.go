// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build windows

package procgroup

import (
	"errors"
	"os/exec"
)

// ErrPauseUnsupported is returned on platforms with no SIGSTOP/SIGCONT
// equivalent exposed through os/exec.
var ErrPauseUnsupported = errors.New("procgroup: pause/resume is unsupported on this platform")

func pauseSignal(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	return ErrPauseUnsupported
}

func resumeSignal(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	return ErrPauseUnsupported
}
