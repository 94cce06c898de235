//go:build unix

package lockfile

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTryLockExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.lock")

	a, err := Open(path)
	require.NoError(t, err)
	defer a.Close()
	require.NoError(t, a.TryLock())

	b, err := Open(path)
	require.NoError(t, err)
	defer b.Close()
	require.ErrorIs(t, b.TryLock(), ErrLocked)

	require.NoError(t, a.Unlock())
	require.NoError(t, b.TryLock())
}
