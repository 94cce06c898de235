package userlock

import (
	"testing"

	"github.com/andrewbalitaan/twitchtool/internal/kindcode"
	"github.com/stretchr/testify/require"
)

func TestAcquireReleaseRoundTrip(t *testing.T) {
	dir := t.TempDir()

	l, err := Acquire(dir, "u1", true)
	require.NoError(t, err)
	require.True(t, IsLocked(dir, "u1"))

	require.NoError(t, l.Release())
	require.False(t, IsLocked(dir, "u1"))
}

func TestSecondAcquireFailsFast(t *testing.T) {
	dir := t.TempDir()

	l, err := Acquire(dir, "u1", true)
	require.NoError(t, err)
	defer l.Release()

	_, err = Acquire(dir, "u1", true)
	require.ErrorIs(t, err, kindcode.ErrUserBusy)
}
