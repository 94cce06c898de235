// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build unix && !windows

package procgroup

import (
	"os/exec"
	"syscall"
)

func pauseSignal(cmd *exec.Cmd) error {
	return Kill(cmd, syscall.SIGSTOP)
}

func resumeSignal(cmd *exec.Cmd) error {
	return Kill(cmd, syscall.SIGCONT)
}
