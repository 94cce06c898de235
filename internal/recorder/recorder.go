// Package recorder implements the Recorder state machine: one process
// per stream that captures, merges, optionally remuxes, finalizes,
// and enqueues a single artifact per invocation.
package recorder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/andrewbalitaan/twitchtool/internal/fsstate"
	"github.com/andrewbalitaan/twitchtool/internal/fsutil"
	"github.com/andrewbalitaan/twitchtool/internal/kindcode"
	"github.com/andrewbalitaan/twitchtool/internal/log"
	"github.com/andrewbalitaan/twitchtool/internal/metrics"
	"github.com/andrewbalitaan/twitchtool/internal/queue"
	"github.com/andrewbalitaan/twitchtool/internal/runner"
	"github.com/andrewbalitaan/twitchtool/internal/slots"
	"github.com/andrewbalitaan/twitchtool/internal/userlock"
)

// Options configures one Recorder invocation.
type Options struct {
	Username string
	Quality  string

	RetryDelay  time.Duration
	RetryWindow time.Duration

	OutputDir   string
	SlotsDir    string
	UserLockDir string
	QueueDir    string

	RecordLimit int
	FailFast    bool

	EnableRemux          bool
	DeleteTsAfterRemux   bool
	DeleteInputOnSuccess bool

	DiskFreeMinBytes int64

	CapturePath string
	MuxPath     string

	// EncodeParams is the parameter snapshot written into the job file
	// at enqueue time.
	EncodeParams queue.Params
}

var usernameRe = mustCompileUsername()

// Run drives one Recorder invocation to completion, returning a
// kindcode-tagged error whose ExitCode corresponds to the command
// surface's exit code table.
func Run(ctx context.Context, opts Options) error {
	logger := log.WithComponent("recorder")

	if !usernameRe.MatchString(opts.Username) {
		return fmt.Errorf("%w: invalid username %q", kindcode.ErrConfig, opts.Username)
	}

	outDir := resolveOutputDir(opts.OutputDir)

	// LOCK_USER
	ulock, err := userlock.Acquire(opts.UserLockDir, opts.Username, true)
	if err != nil {
		return err
	}
	defer func() { _ = ulock.Release() }()

	tempDir := filepath.Join(outDir, "temp")
	if err := fsstate.EnsureDir(tempDir); err != nil {
		return fmt.Errorf("%w: create temp dir: %v", kindcode.ErrInternal, err)
	}

	if opts.DiskFreeMinBytes > 0 {
		free, err := fsstate.FreeBytes(outDir)
		if err == nil && free < uint64(opts.DiskFreeMinBytes) {
			logger.Warn().Uint64("free_bytes", free).Int64("min_bytes", opts.DiskFreeMinBytes).Msg("free disk space below threshold")
			return kindcode.ErrDiskLow
		}
	}

	// ACQUIRE_SLOT
	registry, err := slots.New(opts.SlotsDir, opts.RecordLimit)
	if err != nil {
		return err
	}
	handle, err := registry.Acquire(ctx, opts.Username, opts.FailFast)
	if err != nil {
		return err
	}
	slotReleased := false
	releaseSlot := func() {
		if slotReleased {
			return
		}
		if err := registry.Release(handle); err != nil {
			logger.Warn().Err(err).Msg("failed to release slot")
		}
		slotReleased = true
	}
	defer releaseSlot()

	start := time.Now().UTC()
	base := fmt.Sprintf("%s_%s", opts.Username, start.Format("2006-01-02_15-04"))

	// CAPTURE_LOOP
	parts, err := captureLoop(ctx, opts, tempDir, base)
	if err != nil {
		return err
	}
	if len(parts) == 0 {
		logger.Info().Str("username", opts.Username).Msg("stream not live, no segments captured")
		return kindcode.ErrNotLive
	}

	// MERGE and the steps after it run to completion even when an
	// interrupt ended the capture loop.
	ctx = context.WithoutCancel(ctx)
	mergedPath := filepath.Join(tempDir, base+".ts")
	if err := mergeParts(ctx, opts, parts, mergedPath); err != nil {
		return fmt.Errorf("%w: %v", kindcode.ErrMergeFailed, err)
	}
	for _, p := range parts {
		_ = os.Remove(p)
	}

	// RELEASE_SLOT — immediately after a successful merge, before remux.
	releaseSlot()

	finalPath := mergedPath
	keptTsPath := ""
	if opts.EnableRemux {
		mp4Path := filepath.Join(tempDir, base+".mp4")
		if err := remux(ctx, opts, mergedPath, mp4Path); err != nil {
			logger.Warn().Err(err).Msg("remux failed, keeping .ts")
		} else {
			finalPath = mp4Path
			if opts.DeleteTsAfterRemux {
				_ = os.Remove(mergedPath)
			} else {
				// Remux succeeded and policy says keep the .ts: it must
				// still leave temp/, alongside the .mp4 that becomes the
				// job's input.
				keptTsPath = mergedPath
			}
		}
	}

	// FINALIZE
	confined, err := finalizeInto(outDir, finalPath)
	if err != nil {
		return fmt.Errorf("%w: finalize %s: %v", kindcode.ErrInternal, finalPath, err)
	}
	if keptTsPath != "" {
		if _, err := finalizeInto(outDir, keptTsPath); err != nil {
			return fmt.Errorf("%w: finalize kept .ts %s: %v", kindcode.ErrInternal, keptTsPath, err)
		}
	}

	if !opts.EnableRemux {
		logger.Info().Str("path", confined).Msg("finalized without encode (remux disabled)")
		return nil
	}

	// ENQUEUE
	q, err := queue.Open(opts.QueueDir)
	if err != nil {
		return fmt.Errorf("%w: open queue: %v", kindcode.ErrEnqueueFailed, err)
	}
	job := queue.Job{
		InputPath:            confined,
		BaseName:             base,
		Username:             opts.Username,
		Params:               opts.EncodeParams,
		DeleteInputOnSuccess: opts.DeleteInputOnSuccess,
	}
	if _, err := q.Enqueue(job); err != nil {
		return fmt.Errorf("%w: %v", kindcode.ErrEnqueueFailed, err)
	}
	metrics.IncJobEnqueued()

	logger.Info().Str("username", opts.Username).Str("path", confined).Msg("recorder finished, job enqueued")
	return nil
}

// finalizeInto confines path's basename under outDir and renames path
// there, returning the confined destination.
func finalizeInto(outDir, path string) (string, error) {
	dest := filepath.Join(outDir, filepath.Base(path))
	confined, err := fsutil.ConfineAbsPath(outDir, dest)
	if err != nil {
		return "", err
	}
	if err := os.Rename(path, confined); err != nil {
		return "", err
	}
	return confined, nil
}

// resolveOutputDir nests a ClipKeeper subdirectory under a general
// Downloads/Videos folder so finalized artifacts don't clutter it.
func resolveOutputDir(dir string) string {
	base := filepath.Base(filepath.Clean(dir))
	if base == "Downloads" || base == "Videos" {
		return filepath.Join(dir, "ClipKeeper")
	}
	return dir
}

func captureLoop(ctx context.Context, opts Options, tempDir, base string) ([]string, error) {
	logger := log.WithComponent("recorder")

	var parts []string
	partIndex := 0
	retryDeadline := time.Now().Add(opts.RetryWindow)

	for {
		partIndex++
		partPath := filepath.Join(tempDir, fmt.Sprintf("%s_part%03d.ts", base, partIndex))

		attemptStart := time.Now()
		res, runErr := runner.Run(ctx, runner.Spec{
			Path: opts.CapturePath,
			Args: []string{opts.Username, opts.Quality, partPath},
		})
		ranFor := time.Since(attemptStart)

		if runErr == nil && res.ExitCode == 0 {
			if fileNonEmpty(partPath) {
				parts = append(parts, partPath)
			}
			return parts, nil
		}

		if fileNonEmpty(partPath) {
			parts = append(parts, partPath)
		} else {
			_ = os.Remove(partPath)
			partIndex--
		}

		if ranFor >= opts.RetryWindow {
			retryDeadline = time.Now().Add(opts.RetryWindow)
		}
		if time.Now().After(retryDeadline) {
			logger.Info().Str("username", opts.Username).Msg("retry window elapsed, giving up")
			return parts, nil
		}

		select {
		case <-ctx.Done():
			// Graceful interrupt: proceed to MERGE with whatever segments
			// were captured instead of losing the whole invocation.
			logger.Info().Str("username", opts.Username).Msg("interrupted, finalizing captured segments")
			return parts, nil
		case <-time.After(opts.RetryDelay):
		}
	}
}

func fileNonEmpty(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}

func mergeParts(ctx context.Context, opts Options, parts []string, dest string) error {
	listPath := dest + ".concat.txt"
	var b strings.Builder
	for _, p := range parts {
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(p, "'", "'\\''"))
		b.WriteString("'\n")
	}
	if err := os.WriteFile(listPath, []byte(b.String()), 0o644); err != nil {
		return err
	}
	defer os.Remove(listPath)

	_, err := runner.Run(ctx, runner.Spec{
		Path: opts.MuxPath,
		Args: []string{"-y", "-f", "concat", "-safe", "0", "-i", listPath, "-c", "copy", dest},
	})
	return err
}

func remux(ctx context.Context, opts Options, src, dest string) error {
	res, err := runner.Run(ctx, runner.Spec{
		Path: opts.MuxPath,
		Args: []string{"-y", "-i", src, "-c", "copy", "-bsf:a", "aac_adtstoasc", "-movflags", "+faststart", dest},
	})
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("remux exited %d: %s", res.ExitCode, res.Stderr)
	}
	return nil
}
