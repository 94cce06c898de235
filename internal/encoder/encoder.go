// Package encoder implements the Encode Daemon: a singleton
// long-lived process that drains the job queue in FIFO order,
// cooperatively pausing the in-flight transcode whenever the slot
// registry reports an active recording.
package encoder

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/andrewbalitaan/twitchtool/internal/fsstate"
	"github.com/andrewbalitaan/twitchtool/internal/kindcode"
	"github.com/andrewbalitaan/twitchtool/internal/lockfile"
	"github.com/andrewbalitaan/twitchtool/internal/log"
	"github.com/andrewbalitaan/twitchtool/internal/metrics"
	"github.com/andrewbalitaan/twitchtool/internal/procgroup"
	"github.com/andrewbalitaan/twitchtool/internal/queue"
	"github.com/andrewbalitaan/twitchtool/internal/runner"
	"github.com/andrewbalitaan/twitchtool/internal/slots"
	"github.com/andrewbalitaan/twitchtool/internal/status"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"
)

// Options configures a Daemon.
type Options struct {
	QueueDir    string
	SlotsDir    string
	RecordLimit int

	LockPath   string
	StatusPath string

	// PauseFlagPath, if set, names a marker file whose presence forces
	// the daemon idle regardless of slot activity — the on-disk toggle
	// behind the `encode-mode on|off` command.
	PauseFlagPath string

	FFmpegPath       string
	Preset           string
	CRF              int
	Threads          int
	Height           int
	FPS              string
	AudioBitrateKbps int
	Loglevel         string
	Nice             bool

	// PollInterval is how often the daemon checks any_active() while
	// idle, before starting a new job.
	PollInterval time.Duration
	// PausePollInterval is how often it checks any_active() while a
	// transcode is in flight, to decide pause/resume transitions.
	PausePollInterval time.Duration

	OldFailedMaxAge time.Duration
}

// Daemon is the running encode daemon.
type Daemon struct {
	opts      Options
	queue     *queue.Queue
	registry  *slots.Registry
	singleton *lockfile.Lock
}

// New opens the queue and slot registry and acquires the singleton
// lock. A second concurrent instance fails fast with a
// kindcode.ErrConfig singleton-conflict error (fatal at startup, per
// the error handling design).
func New(opts Options) (*Daemon, error) {
	if opts.PollInterval == 0 {
		opts.PollInterval = 5 * time.Second
	}
	if opts.PausePollInterval == 0 {
		opts.PausePollInterval = 2 * time.Second
	}
	if opts.OldFailedMaxAge == 0 {
		opts.OldFailedMaxAge = 7 * 24 * time.Hour
	}

	q, err := queue.Open(opts.QueueDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kindcode.ErrConfig, err)
	}

	registry, err := slots.New(opts.SlotsDir, opts.RecordLimit)
	if err != nil {
		return nil, err
	}

	lk, err := lockfile.Open(opts.LockPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open singleton lock: %v", kindcode.ErrConfig, err)
	}
	if err := lk.TryLock(); err != nil {
		_ = lk.Close()
		return nil, fmt.Errorf("%w: encode daemon already running", kindcode.ErrConfig)
	}

	if _, err := q.SweepInflight(); err != nil {
		logger := log.WithComponent("encoder")
		logger.Warn().Err(err).Msg("failed to sweep inflight jobs on startup")
	}

	return &Daemon{opts: opts, queue: q, registry: registry, singleton: lk}, nil
}

// Close releases the singleton lock and removes the status file.
func (d *Daemon) Close() error {
	_ = fsstate.SafeUnlink(d.opts.StatusPath)
	return d.singleton.Close()
}

// Run drains the queue until ctx is cancelled. The drain loop runs as
// a single errgroup-managed goroutine, the same shutdown shape the
// teacher's daemon lifecycle uses for each of its background
// subsystems.
func (d *Daemon) Run(ctx context.Context) error {
	logger := log.WithComponent("encoder")

	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		defer watcher.Close()
		_ = watcher.Add(d.opts.QueueDir)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			if ctx.Err() != nil {
				return nil
			}

			if _, err := d.queue.SweepOldFailed(d.opts.OldFailedMaxAge); err != nil {
				logger.Warn().Err(err).Msg("failed to sweep old failed jobs")
			}

			if d.registry.AnyActive() || d.paused() {
				d.writeStatus(status.EncoderIdle, "")
				if !d.waitIdleOrWake(ctx, watcher) {
					return nil
				}
				continue
			}

			entry, err := d.queue.Dequeue()
			if err != nil {
				logger.Warn().Err(err).Msg("failed to dequeue job")
				if !d.waitIdleOrWake(ctx, watcher) {
					return nil
				}
				continue
			}
			if entry == nil {
				d.writeStatus(status.EncoderIdle, "")
				if !d.waitIdleOrWake(ctx, watcher) {
					return nil
				}
				continue
			}

			d.processJob(ctx, entry)
		}
	})
	return g.Wait()
}

// waitIdleOrWake sleeps for PollInterval or until a queue-directory
// fsnotify event arrives, whichever is first. It returns false if ctx
// was cancelled.
func (d *Daemon) waitIdleOrWake(ctx context.Context, watcher *fsnotify.Watcher) bool {
	var events <-chan fsnotify.Event
	if watcher != nil {
		events = watcher.Events
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d.opts.PollInterval):
		return true
	case <-events:
		return true
	}
}

// paused reports whether the operator-controlled pause flag file
// exists (see the encode-mode CLI command).
func (d *Daemon) paused() bool {
	if d.opts.PauseFlagPath == "" {
		return false
	}
	_, err := os.Stat(d.opts.PauseFlagPath)
	return err == nil
}

func (d *Daemon) writeStatus(state status.EncoderState, currentJob string) {
	_ = status.WriteEncoder(d.opts.StatusPath, status.Encoder{
		PID:        os.Getpid(),
		State:      state,
		CurrentJob: currentJob,
		LastTick:   time.Now().UTC(),
	})
}

func (d *Daemon) processJob(ctx context.Context, entry *queue.Entry) {
	logger := log.WithComponent("encoder")
	d.writeStatus(status.EncoderRunning, entry.Job.ID)

	outPath := compressedOutputPath(entry.Job)
	path, args := wrapNice(d.opts.Nice, d.opts.FFmpegPath, d.ffmpegArgs(entry.Job, outPath))
	cmd, err := runner.Start(runner.Spec{Path: path, Args: args})
	if err != nil {
		metrics.IncJobProcessed("failed")
		_ = d.queue.Fail(entry, fmt.Sprintf("spawn transcoder: %v", err))
		return
	}

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	paused := false
	ticker := time.NewTicker(d.opts.PausePollInterval)
	defer ticker.Stop()

loop:
	for {
		select {
		case err := <-waitCh:
			if err == nil {
				d.finishSuccess(entry, outPath)
			} else {
				metrics.IncJobProcessed("failed")
				_ = d.queue.Fail(entry, err.Error())
			}
			break loop

		case <-ticker.C:
			// The operator pause flag suspends an already-running job
			// too, not just new dequeues — encode-mode off means "stop
			// burning CPU on transcodes," not "stop starting new ones."
			shouldPause := d.registry.AnyActive() || d.paused()
			if shouldPause && !paused {
				if err := procgroup.Pause(cmd); err != nil {
					logger.Warn().Err(err).Msg("failed to pause transcoder")
				}
				paused = true
				d.writeStatus(status.EncoderPaused, entry.Job.ID)
			} else if !shouldPause && paused {
				if err := procgroup.Resume(cmd); err != nil {
					logger.Warn().Err(err).Msg("failed to resume transcoder")
				}
				paused = false
				d.writeStatus(status.EncoderRunning, entry.Job.ID)
			}

		case <-ctx.Done():
			_ = procgroup.Terminate(cmd, waitCh, 10*time.Second)
			break loop
		}
	}
}

func (d *Daemon) finishSuccess(entry *queue.Entry, outPath string) {
	metrics.IncJobProcessed("success")
	if entry.Job.DeleteInputOnSuccess {
		_ = fsstate.SafeUnlink(entry.Job.InputPath)
	}
	_ = d.queue.Succeed(entry)
	_ = outPath
}

// CompressOptions configures one synchronous, queue-bypassing
// transcode invoked directly by the batch offline transcode command.
type CompressOptions struct {
	FFmpegPath       string
	InputPath        string
	OutputPath       string
	Preset           string
	CRF              int
	Threads          int
	Height           int
	FPS              string
	AudioBitrateKbps int
	Loglevel         string
	Nice             bool
}

// CompressFile runs one ffmpeg transcode synchronously to completion,
// for the batch `tscompress` command which bypasses the job queue
// entirely rather than going through the Encode Daemon.
func CompressFile(ctx context.Context, opts CompressOptions) error {
	job := queue.Job{
		InputPath: opts.InputPath,
		Params: queue.Params{
			Preset:           opts.Preset,
			CRF:              opts.CRF,
			Threads:          opts.Threads,
			Height:           opts.Height,
			FPS:              opts.FPS,
			AudioBitrateKbps: opts.AudioBitrateKbps,
			Loglevel:         opts.Loglevel,
		},
	}
	d := &Daemon{opts: Options{
		FFmpegPath: opts.FFmpegPath,
		Preset:     opts.Preset,
		CRF:        opts.CRF,
		Threads:    opts.Threads,
		Height:     opts.Height,
		Nice:       opts.Nice,
	}}
	args := d.ffmpegArgs(job, opts.OutputPath)
	path, args := wrapNice(opts.Nice, opts.FFmpegPath, args)

	res, err := runner.Run(ctx, runner.Spec{Path: path, Args: args})
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("transcode exited %d: %s", res.ExitCode, res.Stderr)
	}
	return nil
}

func compressedOutputPath(job queue.Job) string {
	dir := filepath.Dir(job.InputPath)
	return filepath.Join(dir, job.BaseName+"_compressed.mp4")
}

// ffmpegArgs builds the transcode command line for job. The running
// daemon's own configured values take precedence over the snapshot
// captured in job.Params at enqueue time — an operator re-tuning
// encode_daemon settings applies to jobs already sitting in the
// queue, not just ones enqueued afterward. The job snapshot is only a
// fallback for fields the daemon itself leaves unset.
func (d *Daemon) ffmpegArgs(job queue.Job, outPath string) []string {
	height := job.Params.Height
	if d.opts.Height > 0 {
		height = d.opts.Height
	}
	crf := job.Params.CRF
	if d.opts.CRF > 0 {
		crf = d.opts.CRF
	}
	preset := job.Params.Preset
	if d.opts.Preset != "" {
		preset = d.opts.Preset
	}
	threads := job.Params.Threads
	if d.opts.Threads > 0 {
		threads = d.opts.Threads
	}
	fps := job.Params.FPS
	if d.opts.FPS != "" {
		fps = d.opts.FPS
	}
	audioBitrateKbps := job.Params.AudioBitrateKbps
	if d.opts.AudioBitrateKbps > 0 {
		audioBitrateKbps = d.opts.AudioBitrateKbps
	}
	if audioBitrateKbps <= 0 {
		audioBitrateKbps = 128
	}
	loglevel := job.Params.Loglevel
	if d.opts.Loglevel != "" {
		loglevel = d.opts.Loglevel
	}
	if loglevel == "" {
		loglevel = "info"
	}

	vf := fmt.Sprintf("scale=-2:%d", height)
	var vsync []string
	if fps != "" && fps != "auto" {
		vf += ",fps=" + fps
		vsync = []string{"-vsync", "cfr"}
	}

	args := []string{"-loglevel", loglevel, "-y", "-i", job.InputPath}
	args = append(args, "-vf", vf)
	args = append(args, "-c:v", "libx265", "-crf", fmt.Sprint(crf), "-preset", preset, "-threads", fmt.Sprint(threads))
	args = append(args, vsync...)
	args = append(args, "-c:a", "aac", "-b:a", fmt.Sprintf("%dk", audioBitrateKbps), "-ar", "48000")
	args = append(args, "-movflags", "+faststart", outPath)
	return args
}

// wrapNice prepends "nice -n 10" to an invocation when the daemon is
// configured to run the transcoder at lowered CPU priority, so a long
// encode never starves the recorder or the rest of the system.
func wrapNice(nice bool, path string, args []string) (string, []string) {
	if !nice {
		return path, args
	}
	if _, err := exec.LookPath("nice"); err != nil {
		return path, args
	}
	return "nice", append([]string{"-n", "10", path}, args...)
}
