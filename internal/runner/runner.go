// Package runner provides one uniform abstraction for invoking every
// external tool the core depends on (capture, probe, mux, remux,
// transcode): a path, an argv, an optional timeout, and — for the
// long-lived transcode case — pause/resume via the child's process
// group. The recorder and encoder run their tools through this type;
// the poller's liveness probe and Recorder spawn use os/exec directly.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/andrewbalitaan/twitchtool/internal/procgroup"
)

// Spec describes one external command invocation.
type Spec struct {
	Path string
	Args []string
	// Dir, if set, is the working directory for the child.
	Dir string
	// Timeout, if nonzero, hard-kills the child's process group once
	// elapsed.
	Timeout time.Duration
}

// Result captures what happened after a command exited.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Run starts spec, waits for completion (or ctx/timeout), and returns
// its result. The child always runs in its own process group so
// Run can reap the whole tree on timeout.
func Run(ctx context.Context, spec Spec) (Result, error) {
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	cmd := exec.Command(spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	procgroup.Set(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("start %s: %w", spec.Path, err)
	}

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	select {
	case err := <-waitCh:
		return resultFrom(cmd, stdout, stderr), err
	case <-ctx.Done():
		_ = procgroup.KillGroup(cmd.Process.Pid, 5*time.Second, 5*time.Second)
		<-waitCh
		return resultFrom(cmd, stdout, stderr), ctx.Err()
	}
}

// Start launches spec without waiting, for long-lived children (the
// transcoder) that the caller needs to pause/resume/terminate across
// multiple calls.
func Start(spec Spec) (*exec.Cmd, error) {
	cmd := exec.Command(spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	procgroup.Set(cmd)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", spec.Path, err)
	}
	return cmd, nil
}

func resultFrom(cmd *exec.Cmd, stdout, stderr bytes.Buffer) Result {
	code := 0
	if cmd.ProcessState != nil {
		code = cmd.ProcessState.ExitCode()
	}
	return Result{ExitCode: code, Stdout: stdout.String(), Stderr: stderr.String()}
}
