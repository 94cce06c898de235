// Package lockfile wraps flock(2)-style advisory exclusive locking on
// a regular file. It is the primitive the slot registry, the per-user
// lock, and every daemon's singleton lock are built from.
package lockfile

import (
	"errors"
	"os"
)

// ErrLocked is returned by TryLock when the file is already locked by
// another process.
var ErrLocked = errors.New("lockfile: already locked")

// Lock represents an open, advisory-locked file descriptor. The lock
// is released by Close, which does not remove the underlying file.
type Lock struct {
	file *os.File
}

// Open opens (creating if necessary) the file at path without taking
// the lock yet.
func Open(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	return &Lock{file: f}, nil
}

// Path returns the path the lock's underlying file was opened from.
func (l *Lock) Path() string {
	return l.file.Name()
}

// File exposes the underlying *os.File, e.g. for writing an owner
// record while the lock is held.
func (l *Lock) File() *os.File {
	return l.file
}

// TryLock attempts a non-blocking exclusive lock. Returns ErrLocked if
// another process already holds it.
func (l *Lock) TryLock() error {
	return flockTry(l.file)
}

// Lock blocks until the exclusive lock is acquired.
func (l *Lock) Lock() error {
	return flockBlocking(l.file)
}

// Unlock releases the lock without closing the file descriptor.
func (l *Lock) Unlock() error {
	return flockUnlock(l.file)
}

// Close releases the lock (if held) and closes the file descriptor.
func (l *Lock) Close() error {
	_ = l.Unlock()
	return l.file.Close()
}
