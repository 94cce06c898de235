// Package poller implements the Poller Daemon: a singleton process
// that periodically probes a configured set of usernames for
// liveness and spawns a detached Recorder for each one found live and
// not already locked or slot-exhausted.
package poller

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/andrewbalitaan/twitchtool/internal/fsstate"
	"github.com/andrewbalitaan/twitchtool/internal/kindcode"
	"github.com/andrewbalitaan/twitchtool/internal/lockfile"
	"github.com/andrewbalitaan/twitchtool/internal/log"
	"github.com/andrewbalitaan/twitchtool/internal/metrics"
	"github.com/andrewbalitaan/twitchtool/internal/slots"
	"github.com/andrewbalitaan/twitchtool/internal/status"
	"github.com/andrewbalitaan/twitchtool/internal/userlock"
)

// Options configures a Daemon.
type Options struct {
	UsersFile   string
	SlotsDir    string
	UserLockDir string
	RecordLimit int

	LockPath   string
	StatusPath string

	ProbePath        string
	ProbeTimeout     time.Duration
	ProbeConcurrency int

	Interval time.Duration

	// DownloadCmd is the argv used to spawn a Recorder for a username
	// found live, with the username appended as the final argument.
	DownloadCmd []string
}

// Daemon is the running poller daemon.
type Daemon struct {
	opts      Options
	registry  *slots.Registry
	singleton *lockfile.Lock
	cycle     int
}

// New opens the slot registry and acquires the singleton lock.
func New(opts Options) (*Daemon, error) {
	if opts.Interval == 0 {
		opts.Interval = 5 * time.Minute
	}
	if opts.ProbeTimeout == 0 {
		opts.ProbeTimeout = 15 * time.Second
	}
	if opts.ProbeConcurrency <= 0 {
		opts.ProbeConcurrency = 10
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
		return nil, fmt.Errorf("%w: poller daemon already running", kindcode.ErrConfig)
	}

	return &Daemon{opts: opts, registry: registry, singleton: lk}, nil
}

// Close releases the singleton lock and removes the status file.
func (d *Daemon) Close() error {
	_ = fsstate.SafeUnlink(d.opts.StatusPath)
	return d.singleton.Close()
}

// Run polls every Interval until ctx is cancelled. The cycle loop runs
// as a single errgroup-managed goroutine so Run composes cleanly with
// callers that later add further background subsystems to the same
// group, following the teacher's daemon lifecycle shape.
func (d *Daemon) Run(ctx context.Context) error {
	logger := log.WithComponent("poller")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ticker := time.NewTicker(d.opts.Interval)
		defer ticker.Stop()

		if err := d.pollOnce(ctx); err != nil {
			logger.Warn().Err(err).Msg("poll cycle failed")
		}

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := d.pollOnce(ctx); err != nil {
					logger.Warn().Err(err).Msg("poll cycle failed")
				}
			}
		}
	})
	return g.Wait()
}

func (d *Daemon) pollOnce(ctx context.Context) error {
	logger := log.WithComponent("poller")
	d.cycle++

	users, err := readUsers(d.opts.UsersFile)
	if err != nil {
		return fmt.Errorf("read users file: %w", err)
	}

	owners, _ := d.registry.Enumerate()
	freeSlots := d.opts.RecordLimit - len(owners)

	results := d.probeAll(ctx, users)

	live := 0
	spawned := 0
	for _, username := range users {
		r, ok := results[username]
		if !ok || !r.live {
			continue
		}
		live++

		if userlock.IsLocked(d.opts.UserLockDir, username) {
			logger.Debug().Str("username", username).Msg("user already has an active recorder, skipping")
			continue
		}
		if freeSlots <= 0 {
			logger.Debug().Str("username", username).Msg("no free slot, skipping")
			continue
		}

		if err := d.spawnRecorder(username); err != nil {
			logger.Warn().Err(err).Str("username", username).Msg("failed to spawn recorder")
			continue
		}
		freeSlots--
		spawned++
	}

	now := time.Now().UTC()
	_ = status.WritePoller(d.opts.StatusPath, status.Poller{
		PID:        os.Getpid(),
		LastPoll:   now,
		NextPoll:   now.Add(d.opts.Interval),
		CycleCount: d.cycle,
		LiveNow:    live,
		SpawnedNow: spawned,
	})

	logger.Info().Int("users", len(users)).Int("live", live).Int("spawned", spawned).Msg("poll cycle complete")
	return nil
}

type probeResult struct {
	live bool
	err  error
}

// probeAll runs the liveness probe for every user concurrently,
// bounded by ProbeConcurrency, and returns a result keyed by username.
// The fan-out is joined with an errgroup, mirroring the teacher's
// bound-then-join EPG fetch shape; probe errors are captured per-user
// rather than propagated, since one user's probe failure must never
// abort the others' results.
func (d *Daemon) probeAll(ctx context.Context, users []string) map[string]probeResult {
	results := make(map[string]probeResult, len(users))
	var mu sync.Mutex

	sem := semaphore.NewWeighted(int64(d.opts.ProbeConcurrency))
	g, ctx := errgroup.WithContext(ctx)

	for _, username := range users {
		username := username
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				mu.Lock()
				results[username] = probeResult{err: err}
				mu.Unlock()
				return nil
			}
			defer sem.Release(1)

			live, err := d.probe(ctx, username)
			mu.Lock()
			results[username] = probeResult{live: live, err: err}
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return results
}

func (d *Daemon) probe(ctx context.Context, username string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, d.opts.ProbeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, d.opts.ProbePath, username)
	err := cmd.Run()
	if err != nil {
		metrics.IncProbeResult("offline")
		return false, nil
	}
	metrics.IncProbeResult("live")
	return true, nil
}

func (d *Daemon) spawnRecorder(username string) error {
	if len(d.opts.DownloadCmd) == 0 {
		return fmt.Errorf("no download command configured")
	}
	argv := append(append([]string{}, d.opts.DownloadCmd...), username)
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Start(); err != nil {
		return err
	}
	// Detached: the poller does not wait on the recorder. Reap it in
	// the background so it doesn't linger as a zombie.
	go func() { _ = cmd.Wait() }()
	return nil
}

// readUsers reads one username per line from path, skipping blank
// lines and lines starting with '#'.
func readUsers(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var users []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		users = append(users, line)
	}
	return users, scanner.Err()
}
