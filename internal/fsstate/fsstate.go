// Package fsstate is the small shared-state library every component
// depends on: atomic JSON writes, PID liveness checks, runtime
// directory resolution, and disk-free checks. None of it is specific
// to slots, queues, or any one component — it is the primitive layer
// the rest of the module builds on.
package fsstate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/google/renameio/v2"
)

// WriteJSONAtomic marshals v and writes it to path via temp-file-then-
// rename on the same filesystem, so readers never observe a torn
// write. The parent directory of path must already exist.
func WriteJSONAtomic(path string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}

	pendingFile, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending file %s: %w", path, err)
	}
	defer func() { _ = pendingFile.Cleanup() }()

	if _, err := pendingFile.Write(data); err != nil {
		return fmt.Errorf("write pending file %s: %w", path, err)
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace %s: %w", path, err)
	}
	return nil
}

// ReadJSON reads and unmarshals the JSON document at path into v.
func ReadJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// EnsureDir creates dir (and any missing parents) with permissions
// appropriate for a per-user runtime/state tree.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o700)
}

// IsProcessAlive reports whether pid refers to a live process owned
// by any user reachable from this process. A permission-denied signal
// result still means the process exists, just not one we own.
func IsProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	if err == syscall.EPERM {
		return true
	}
	return false
}

// SafeUnlink removes path, treating "already gone" as success.
func SafeUnlink(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// RuntimeDir resolves the preferred per-user runtime directory for
// name (e.g. "twitch-record-slots"), preferring XDG_RUNTIME_DIR /
// /run/user/<uid>, and falling back to a world-writable tmp path when
// the preferred location is not writable.
func RuntimeDir(name string) string {
	if xdg := os.Getenv("XDG_RUNTIME_DIR"); xdg != "" {
		candidate := filepath.Join(xdg, name)
		if EnsureDir(candidate) == nil {
			return candidate
		}
	}

	uidDir := filepath.Join("/run/user", fmt.Sprint(os.Getuid()), name)
	if EnsureDir(uidDir) == nil {
		return uidDir
	}

	return filepath.Join(os.TempDir(), name)
}

