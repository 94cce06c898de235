// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build linux

package procgroup

import (
	"os"
	"os/exec"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPauseResume(t *testing.T) {
	cmd := exec.Command("sleep", "5")
	Set(cmd)

	require.NoError(t, cmd.Start())
	defer func() { _ = cmd.Process.Kill() }()

	require.NoError(t, Pause(cmd))
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, "T", procState(t, cmd.Process.Pid), "process should be stopped")

	require.NoError(t, Resume(cmd))
	time.Sleep(50 * time.Millisecond)
	require.NotEqual(t, "T", procState(t, cmd.Process.Pid), "process should no longer be stopped")
}

// procState reads field 3 of /proc/<pid>/stat, the single-letter
// process state (R running, S sleeping, T stopped, Z zombie).
func procState(t *testing.T, pid int) string {
	t.Helper()
	data, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/stat")
	require.NoError(t, err)
	fields := strings.Fields(string(data))
	require.True(t, len(fields) > 2)
	return fields[2]
}
