package recorder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/andrewbalitaan/twitchtool/internal/kindcode"
	"github.com/andrewbalitaan/twitchtool/internal/lockfile"
	"github.com/stretchr/testify/require"
)

// fakeTool writes an executable shell script that, given the capture
// tool's contract (identifier, quality, output path), writes a small
// file to the given output path when writeOutput is set and exits with
// exitCode.
func fakeTool(t *testing.T, exitCode int, writeOutput bool) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-capture.sh")
	body := fmt.Sprintf("exit %d\n", exitCode)
	if writeOutput {
		body = fmt.Sprintf("echo data > \"$3\"\nexit %d\n", exitCode)
	}
	script := "#!/bin/sh\n" + body
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func fakeMux(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-mux.sh")
	// Find the "-i"/output-style last arg and touch it; good enough to
	// exercise the merge/remux call sites without a real ffmpeg.
	script := "#!/bin/sh\nfor a in \"$@\"; do out=\"$a\"; done\necho merged > \"$out\"\nexit 0\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func baseOptions(t *testing.T, captureExit int, writeOutput bool) Options {
	root := t.TempDir()
	return Options{
		Username:             "teststreamer",
		Quality:               "best",
		RetryDelay:            10 * time.Millisecond,
		RetryWindow:           50 * time.Millisecond,
		OutputDir:             filepath.Join(root, "out"),
		SlotsDir:              filepath.Join(root, "slots"),
		UserLockDir:           filepath.Join(root, "userlocks"),
		QueueDir:              filepath.Join(root, "queue"),
		RecordLimit:           2,
		FailFast:              true,
		EnableRemux:           false,
		DeleteTsAfterRemux:    true,
		DeleteInputOnSuccess:  false,
		CapturePath:           fakeTool(t, captureExit, writeOutput),
		MuxPath:                fakeMux(t),
	}
}

func TestRunProducesFinalizedArtifactNoTempResidue(t *testing.T) {
	opts := baseOptions(t, 0, true)

	err := Run(context.Background(), opts)
	require.NoError(t, err)

	outDir := resolveOutputDir(opts.OutputDir)
	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)

	var sawFinal bool
	for _, e := range entries {
		if e.Name() == "temp" {
			tempEntries, err := os.ReadDir(filepath.Join(outDir, "temp"))
			require.NoError(t, err)
			require.Empty(t, tempEntries, "temp/ must be empty after a completed recorder")
			continue
		}
		sawFinal = true
	}
	require.True(t, sawFinal, "a finalized artifact must exist in the output directory")
}

func TestRunUserBusyOnSecondInvocation(t *testing.T) {
	opts := baseOptions(t, 0, true)
	opts.RetryWindow = time.Second
	opts.EnableRemux = false

	// Hold the user lock directly, bypassing Run, to simulate a
	// concurrently-running recorder.
	require.NoError(t, os.MkdirAll(opts.UserLockDir, 0o700))

	lockPath := filepath.Join(opts.UserLockDir, opts.Username+".lock")
	lk, err := lockfile.Open(lockPath)
	require.NoError(t, err)
	defer lk.Close()
	require.NoError(t, lk.TryLock())

	err = Run(context.Background(), opts)
	require.ErrorIs(t, err, kindcode.ErrUserBusy)
}

func TestRunNotLiveWhenCaptureNeverSucceeds(t *testing.T) {
	opts := baseOptions(t, 1, false)
	opts.RetryDelay = 5 * time.Millisecond
	opts.RetryWindow = 20 * time.Millisecond

	err := Run(context.Background(), opts)
	require.ErrorIs(t, err, kindcode.ErrNotLive)
}
