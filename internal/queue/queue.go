// Package queue implements the encode-job directory queue: a durable,
// crash-safe FIFO built entirely from temp-file-then-rename and
// filename ordering, with no index or database. Producers (the
// recorder) and the sole consumer (the encode daemon) never share
// anything but this directory tree.
package queue

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"

	"github.com/andrewbalitaan/twitchtool/internal/fsstate"
)

const (
	jobsSubdir     = "jobs"
	tmpSubdir      = "tmp"
	inflightSubdir = "inflight"
)

// Queue is rooted at a base directory containing jobs/, tmp/, and
// inflight/ subdirectories.
type Queue struct {
	base string
}

// Open ensures the queue's subdirectories exist and returns a handle
// rooted at base.
func Open(base string) (*Queue, error) {
	for _, sub := range []string{jobsSubdir, tmpSubdir, inflightSubdir} {
		if err := fsstate.EnsureDir(filepath.Join(base, sub)); err != nil {
			return nil, fmt.Errorf("create queue subdir %s: %w", sub, err)
		}
	}
	return &Queue{base: base}, nil
}

func (q *Queue) jobsDir() string     { return filepath.Join(q.base, jobsSubdir) }
func (q *Queue) tmpDir() string      { return filepath.Join(q.base, tmpSubdir) }
func (q *Queue) inflightDir() string { return filepath.Join(q.base, inflightSubdir) }

// Entry pairs a Job with the path of the file it was read from, so
// callers can Dequeue/Fail/Succeed it later.
type Entry struct {
	Path string
	Job  Job
}

// Enqueue assigns job an id and enqueued_at timestamp if unset, then
// writes it to the queue via temp-then-rename. The filename encodes
// enqueue order: a sortable timestamp prefix plus a random suffix, so
// two jobs enqueued in the same process tick never collide and
// lexicographic filename order equals enqueue order.
func (q *Queue) Enqueue(job Job) (string, error) {
	now := time.Now().UTC()
	if job.EnqueuedAt == "" {
		job.EnqueuedAt = now.Format(time.RFC3339Nano)
	}
	suffix := uuid.NewString()[:8]
	if job.ID == "" {
		job.ID = fmt.Sprintf("%s-%s", now.Format("20060102T150405.000000000Z"), suffix)
	}

	filename := fmt.Sprintf("%s_%s.json", now.Format("20060102T150405.000000000Z"), suffix)

	data, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("marshal job: %w", err)
	}

	tmpPath := filepath.Join(q.tmpDir(), filename)
	pendingFile, err := renameio.NewPendingFile(tmpPath)
	if err != nil {
		return "", fmt.Errorf("create pending job file: %w", err)
	}
	defer func() { _ = pendingFile.Cleanup() }()

	if _, err := pendingFile.Write(data); err != nil {
		return "", fmt.Errorf("write job body: %w", err)
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return "", fmt.Errorf("stage job file: %w", err)
	}

	dest := filepath.Join(q.jobsDir(), filename)
	if err := os.Rename(tmpPath, dest); err != nil {
		return "", fmt.Errorf("publish job file: %w", err)
	}
	return dest, nil
}

// List returns all pending jobs in FIFO order (lexicographic filename
// order). Corrupt or unreadable files are skipped rather than failing
// the whole listing, since the queue's own invariant is that a valid
// rename never leaves a torn file, but external tooling could still
// drop something malformed in.
func (q *Queue) List() ([]Entry, error) {
	names, err := filepath.Glob(filepath.Join(q.jobsDir(), "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		var job Job
		if err := fsstate.ReadJSON(name, &job); err != nil {
			continue
		}
		entries = append(entries, Entry{Path: name, Job: job})
	}
	return entries, nil
}

// Dequeue claims the oldest pending job by renaming it into inflight/,
// returning its entry with Path set to the new location. Returns
// (nil, nil) if the queue is empty.
func (q *Queue) Dequeue() (*Entry, error) {
	entries, err := q.List()
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	oldest := entries[0]
	dest := filepath.Join(q.inflightDir(), filepath.Base(oldest.Path))
	if err := os.Rename(oldest.Path, dest); err != nil {
		return nil, fmt.Errorf("claim job %s: %w", oldest.Path, err)
	}
	oldest.Path = dest
	return &oldest, nil
}

// Succeed removes an in-flight job file after a successful transcode.
func (q *Queue) Succeed(e *Entry) error {
	return fsstate.SafeUnlink(e.Path)
}

// Fail writes an in-flight job, annotated with the failure reason, to
// jobs/<file stem>.failed (the job's file name without .json) and
// removes the in-flight file, instead of re-enqueueing it. Operator
// action is required to retry.
func (q *Queue) Fail(e *Entry, reason string) error {
	e.Job.FailureReason = reason
	e.Job.FailedAt = time.Now().UTC().Format(time.RFC3339)

	data, err := json.Marshal(e.Job)
	if err != nil {
		return fmt.Errorf("marshal failed job: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(e.Path), ".json")
	dest := filepath.Join(q.jobsDir(), base+".failed")
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("write failed job sidecar: %w", err)
	}
	return fsstate.SafeUnlink(e.Path)
}

// SweepOldFailed removes *.failed files older than maxAge from the
// queue directory, mirroring the original implementation's
// housekeeping so a long-idle daemon doesn't accumulate failures
// forever.
func (q *Queue) SweepOldFailed(maxAge time.Duration) (int, error) {
	names, err := filepath.Glob(filepath.Join(q.jobsDir(), "*.failed"))
	if err != nil {
		return 0, err
	}

	removed := 0
	cutoff := time.Now().Add(-maxAge)
	for _, name := range names {
		info, err := os.Stat(name)
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if fsstate.SafeUnlink(name) == nil {
				removed++
			}
		}
	}
	return removed, nil
}

// SweepInflight reclaims any job files left in inflight/ by a crashed
// encoder, moving them back into jobs/ so they are picked up again on
// the next Dequeue.
func (q *Queue) SweepInflight() (int, error) {
	names, err := filepath.Glob(filepath.Join(q.inflightDir(), "*.json"))
	if err != nil {
		return 0, err
	}

	recovered := 0
	for _, name := range names {
		dest := filepath.Join(q.jobsDir(), filepath.Base(name))
		if err := os.Rename(name, dest); err == nil {
			recovered++
		}
	}
	return recovered, nil
}
