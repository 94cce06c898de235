package slots

import (
	"context"
	"testing"

	"github.com/andrewbalitaan/twitchtool/internal/kindcode"
	"github.com/stretchr/testify/require"
)

func TestAcquireCapEnforcement(t *testing.T) {
	reg, err := New(t.TempDir(), 2)
	require.NoError(t, err)

	ctx := context.Background()

	h1, err := reg.Acquire(ctx, "u1", true)
	require.NoError(t, err)
	require.Equal(t, 1, h1.Index())

	h2, err := reg.Acquire(ctx, "u2", true)
	require.NoError(t, err)
	require.Equal(t, 2, h2.Index())

	_, err = reg.Acquire(ctx, "u3", true)
	require.ErrorIs(t, err, kindcode.ErrBusy)

	require.NoError(t, reg.Release(h1))
	require.NoError(t, reg.Release(h2))
}

func TestAcquireReleaseLeavesNoExtraFiles(t *testing.T) {
	reg, err := New(t.TempDir(), 1)
	require.NoError(t, err)

	h, err := reg.Acquire(context.Background(), "u1", true)
	require.NoError(t, err)

	owners, err := reg.Enumerate()
	require.NoError(t, err)
	require.Len(t, owners, 1)

	require.NoError(t, reg.Release(h))

	owners, err = reg.Enumerate()
	require.NoError(t, err)
	require.Empty(t, owners)
}
