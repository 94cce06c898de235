package encoder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/andrewbalitaan/twitchtool/internal/queue"
	"github.com/stretchr/testify/require"
)

func fakeFFmpeg(t *testing.T, exitCode int, sleep time.Duration) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-ffmpeg.sh")
	script := fmt.Sprintf("#!/bin/sh\nsleep %s\nfor a in \"$@\"; do out=\"$a\"; done\necho data > \"$out\"\nexit %d\n",
		sleep.String(), exitCode)
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func baseOptions(t *testing.T, ffmpeg string) Options {
	root := t.TempDir()
	return Options{
		QueueDir:          filepath.Join(root, "queue"),
		SlotsDir:          filepath.Join(root, "slots"),
		RecordLimit:       2,
		LockPath:          filepath.Join(root, "encoder.lock"),
		StatusPath:        filepath.Join(root, "encoder.status.json"),
		FFmpegPath:        ffmpeg,
		Preset:            "medium",
		CRF:               26,
		Threads:           1,
		Height:            480,
		PollInterval:      10 * time.Millisecond,
		PausePollInterval: 10 * time.Millisecond,
	}
}

func TestDrainsOneJobToSuccess(t *testing.T) {
	opts := baseOptions(t, fakeFFmpeg(t, 0, 0))
	d, err := New(opts)
	require.NoError(t, err)
	defer d.Close()

	inputPath := filepath.Join(t.TempDir(), "clip.ts")
	require.NoError(t, os.WriteFile(inputPath, []byte("data"), 0o644))

	_, err = d.queue.Enqueue(queue.Job{InputPath: inputPath, BaseName: "clip", Username: "teststreamer"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.Eventually(t, func() bool {
		entries, _ := d.queue.List()
		return len(entries) == 0
	}, time.Second, 10*time.Millisecond, "job should be drained from the queue")

	cancel()
	<-done
}

func TestSecondInstanceFailsSingletonLock(t *testing.T) {
	opts := baseOptions(t, fakeFFmpeg(t, 0, 0))
	d1, err := New(opts)
	require.NoError(t, err)
	defer d1.Close()

	_, err = New(opts)
	require.Error(t, err)
}
