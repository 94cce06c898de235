package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEnqueueDequeueFIFO(t *testing.T) {
	q, err := Open(t.TempDir())
	require.NoError(t, err)

	_, err = q.Enqueue(Job{InputPath: "/tmp/a.ts", BaseName: "a"})
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	_, err = q.Enqueue(Job{InputPath: "/tmp/b.ts", BaseName: "b"})
	require.NoError(t, err)

	first, err := q.Dequeue()
	require.NoError(t, err)
	require.NotNil(t, first)
	require.Equal(t, "a", first.Job.BaseName)
	require.NoError(t, q.Succeed(first))

	second, err := q.Dequeue()
	require.NoError(t, err)
	require.NotNil(t, second)
	require.Equal(t, "b", second.Job.BaseName)
	require.NoError(t, q.Succeed(second))

	third, err := q.Dequeue()
	require.NoError(t, err)
	require.Nil(t, third)
}

func TestFailRenamesAsideWithoutRetry(t *testing.T) {
	q, err := Open(t.TempDir())
	require.NoError(t, err)

	_, err = q.Enqueue(Job{InputPath: "/tmp/a.ts", BaseName: "a"})
	require.NoError(t, err)

	entry, err := q.Dequeue()
	require.NoError(t, err)
	require.NoError(t, q.Fail(entry, "transcode exited 1"))

	again, err := q.Dequeue()
	require.NoError(t, err)
	require.Nil(t, again, "a failed job must not be auto-retried")

	entries, err := q.List()
	require.NoError(t, err)
	require.Empty(t, entries, "failed sidecar must not match the *.json glob")
}

func TestSweepInflightRecoversCrashedEncoder(t *testing.T) {
	q, err := Open(t.TempDir())
	require.NoError(t, err)

	_, err = q.Enqueue(Job{InputPath: "/tmp/a.ts", BaseName: "a"})
	require.NoError(t, err)

	entry, err := q.Dequeue()
	require.NoError(t, err)
	require.NotNil(t, entry)

	recovered, err := q.SweepInflight()
	require.NoError(t, err)
	require.Equal(t, 1, recovered)

	again, err := q.Dequeue()
	require.NoError(t, err)
	require.NotNil(t, again)
}

func TestCleanTwiceIsIdempotent(t *testing.T) {
	q, err := Open(t.TempDir())
	require.NoError(t, err)

	n1, err := q.SweepOldFailed(24 * time.Hour)
	require.NoError(t, err)
	n2, err := q.SweepOldFailed(24 * time.Hour)
	require.NoError(t, err)
	require.Equal(t, n1, n2)
	require.Equal(t, 0, n1)
}
