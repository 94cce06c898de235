// Package slots implements the filesystem-backed slot registry: up to
// N named, advisory-locked tokens granting the right to hold a
// recording. The lock on slotK is the authoritative presence signal;
// the sibling slotK.owner JSON record is observational metadata that
// readers only trust once they have confirmed the recorded PID is
// alive.
package slots

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/andrewbalitaan/twitchtool/internal/fsstate"
	"github.com/andrewbalitaan/twitchtool/internal/kindcode"
	"github.com/andrewbalitaan/twitchtool/internal/lockfile"
	"github.com/andrewbalitaan/twitchtool/internal/log"
	"github.com/andrewbalitaan/twitchtool/internal/metrics"
)

// Owner is the JSON sidecar describing the current holder of a slot.
type Owner struct {
	PID       int    `json:"pid"`
	Username  string `json:"username"`
	StartedAt string `json:"started_at"`
}

// Handle is returned by Acquire and must be passed to Release.
type Handle struct {
	index int
	lock  *lockfile.Lock
	owner string
}

// Index reports the 1-based slot index held by h.
func (h *Handle) Index() int { return h.index }

// Registry manages N named slots under a runtime directory.
type Registry struct {
	dir   string
	limit int
}

// New creates a Registry for limit slots rooted at dir. The caller is
// responsible for resolving dir (see fsstate.RuntimeDir) before
// construction so tests can point it anywhere.
func New(dir string, limit int) (*Registry, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: record_limit must be positive", kindcode.ErrConfig)
	}
	if err := fsstate.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("create slots dir: %w", err)
	}
	return &Registry{dir: dir, limit: limit}, nil
}

func (r *Registry) slotPath(i int) string  { return filepath.Join(r.dir, fmt.Sprintf("slot%d", i)) }
func (r *Registry) ownerPath(i int) string { return r.slotPath(i) + ".owner" }

// Acquire scans slot1..slotN in order for a free slot. If fail_fast is
// set and none is available, it returns kindcode.ErrBusy immediately;
// otherwise it waits, rescanning every 2s (sweeping stale owners each
// pass), until one frees or ctx is done.
func (r *Registry) Acquire(ctx context.Context, username string, failFast bool) (*Handle, error) {
	logger := log.WithComponent("slots")

	for {
		r.Sweep()

		for i := 1; i <= r.limit; i++ {
			lk, err := lockfile.Open(r.slotPath(i))
			if err != nil {
				continue
			}
			if err := lk.TryLock(); err != nil {
				_ = lk.Close()
				continue
			}

			owner := Owner{PID: os.Getpid(), Username: username, StartedAt: time.Now().UTC().Format(time.RFC3339)}
			if err := fsstate.WriteJSONAtomic(r.ownerPath(i), owner); err != nil {
				_ = lk.Close()
				metrics.IncSlotAcquire("error")
				return nil, fmt.Errorf("%w: write owner record: %v", kindcode.ErrInternal, err)
			}

			logger.Info().Int("slot", i).Str("username", username).Msg("slot acquired")
			metrics.IncSlotAcquire("acquired")
			return &Handle{index: i, lock: lk, owner: r.ownerPath(i)}, nil
		}

		if failFast {
			metrics.IncSlotAcquire("busy")
			return nil, kindcode.ErrBusy
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

// Release deletes the owner record, then the advisory lock, in that
// order — if the process dies between the two, a subsequent Sweep
// removes the now-stale owner.
func (r *Registry) Release(h *Handle) error {
	if h == nil {
		return nil
	}
	if err := fsstate.SafeUnlink(h.owner); err != nil {
		return fmt.Errorf("remove owner record: %w", err)
	}
	err := h.lock.Close()
	metrics.IncSlotRelease()
	return err
}

// ReadOwner reads the owner record for slot index under dir without
// constructing a Registry, for callers (the stop CLI command) that
// only need to resolve one slot's current PID.
func ReadOwner(dir string, index int) (Owner, error) {
	var o Owner
	path := filepath.Join(dir, fmt.Sprintf("slot%d.owner", index))
	err := fsstate.ReadJSON(path, &o)
	return o, err
}

// Enumerate reads all slotK.owner records, dropping (and deleting) any
// whose PID is no longer alive.
func (r *Registry) Enumerate() ([]Owner, error) {
	var owners []Owner
	for i := 1; i <= r.limit; i++ {
		path := r.ownerPath(i)
		var o Owner
		if err := fsstate.ReadJSON(path, &o); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			continue
		}
		if !fsstate.IsProcessAlive(o.PID) {
			_ = fsstate.SafeUnlink(path)
			continue
		}
		owners = append(owners, o)
	}
	metrics.SetSlotsActive(len(owners))
	return owners, nil
}

// AnyActive reports whether any slot currently has a live owner.
func (r *Registry) AnyActive() bool {
	owners, _ := r.Enumerate()
	return len(owners) > 0
}

// Sweep forces stale-owner removal across all slots and returns the
// number of stale owner records removed. Idempotent.
func (r *Registry) Sweep() int {
	removed := 0
	for i := 1; i <= r.limit; i++ {
		path := r.ownerPath(i)
		var o Owner
		if err := fsstate.ReadJSON(path, &o); err != nil {
			continue
		}
		if !fsstate.IsProcessAlive(o.PID) {
			if fsstate.SafeUnlink(path) == nil {
				removed++
			}
		}
	}
	return removed
}
