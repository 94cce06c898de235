// Package userlock implements the per-user advisory lock that
// prevents two Recorder processes for the same username from running
// concurrently.
package userlock

import (
	"fmt"
	"path/filepath"

	"github.com/andrewbalitaan/twitchtool/internal/fsstate"
	"github.com/andrewbalitaan/twitchtool/internal/kindcode"
	"github.com/andrewbalitaan/twitchtool/internal/lockfile"
)

// Lock holds an acquired per-user lock. Release unlocks but
// deliberately leaves the lock file on disk, mirroring the registry's
// own slot files — an empty, unlocked lock file is a harmless
// fixed point, and recreating it on every acquire would only add
// churn.
type Lock struct {
	username string
	lock     *lockfile.Lock
}

func path(dir, username string) string {
	return filepath.Join(dir, username+".lock")
}

// Acquire takes the exclusive lock for username under dir. If
// failFast is true and the lock is already held, it returns
// kindcode.ErrUserBusy immediately instead of blocking.
func Acquire(dir, username string, failFast bool) (*Lock, error) {
	if err := fsstate.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("create user-lock dir: %w", err)
	}

	lk, err := lockfile.Open(path(dir, username))
	if err != nil {
		return nil, fmt.Errorf("open user lock: %w", err)
	}

	if failFast {
		if err := lk.TryLock(); err != nil {
			_ = lk.Close()
			return nil, kindcode.ErrUserBusy
		}
	} else if err := lk.Lock(); err != nil {
		_ = lk.Close()
		return nil, err
	}

	return &Lock{username: username, lock: lk}, nil
}

// IsLocked reports whether username currently has a held lock under
// dir, without blocking or acquiring it.
func IsLocked(dir, username string) bool {
	lk, err := lockfile.Open(path(dir, username))
	if err != nil {
		return false
	}
	defer lk.Close()

	if err := lk.TryLock(); err != nil {
		return true
	}
	_ = lk.Unlock()
	return false
}

// Release releases the lock. The lock file itself is left in place.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	return l.lock.Close()
}
