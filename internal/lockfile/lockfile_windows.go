//go:build windows

package lockfile

import (
	"errors"
	"os"
)

// ErrUnsupported is returned on platforms without flock(2) semantics.
var ErrUnsupported = errors.New("lockfile: advisory locking is unsupported on this platform")

func flockTry(f *os.File) error {
	return ErrUnsupported
}

func flockBlocking(f *os.File) error {
	return ErrUnsupported
}

func flockUnlock(f *os.File) error {
	return nil
}
