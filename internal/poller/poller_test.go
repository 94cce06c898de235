package poller

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/andrewbalitaan/twitchtool/internal/userlock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func fakeProbe(t *testing.T, liveUsers map[string]bool) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-probe.sh")

	var body string
	for user, live := range liveUsers {
		if live {
			body += fmt.Sprintf("if [ \"$1\" = \"%s\" ]; then exit 0; fi\n", user)
		}
	}
	body += "exit 1\n"

	script := "#!/bin/sh\n" + body
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func fakeDownloadCmd(t *testing.T, marker string) []string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-download.sh")
	script := fmt.Sprintf("#!/bin/sh\necho \"$1\" >> %q\n", marker)
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return []string{path}
}

func baseOptions(t *testing.T) (Options, string) {
	root := t.TempDir()
	marker := filepath.Join(root, "spawned.log")
	return Options{
		UsersFile:        filepath.Join(root, "users.txt"),
		SlotsDir:         filepath.Join(root, "slots"),
		UserLockDir:      filepath.Join(root, "userlocks"),
		RecordLimit:      2,
		LockPath:         filepath.Join(root, "poller.lock"),
		StatusPath:       filepath.Join(root, "poller.status.json"),
		ProbeTimeout:     time.Second,
		ProbeConcurrency: 4,
		Interval:         time.Hour,
		DownloadCmd:      fakeDownloadCmd(t, marker),
	}, marker
}

func writeUsers(t *testing.T, path string, users ...string) {
	t.Helper()
	content := ""
	for _, u := range users {
		content += u + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestPollOnceSpawnsRecorderForLiveUser(t *testing.T) {
	opts, marker := baseOptions(t)
	writeUsers(t, opts.UsersFile, "alice", "bob")
	opts.ProbePath = fakeProbe(t, map[string]bool{"alice": true})

	d, err := New(opts)
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, d.pollOnce(context.Background()))

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(marker)
		return err == nil && len(data) > 0
	}, time.Second, 10*time.Millisecond, "expected the download command to have run for the live user")
}

func TestPollOnceSkipsUserAlreadyLocked(t *testing.T) {
	opts, marker := baseOptions(t)
	writeUsers(t, opts.UsersFile, "alice")
	opts.ProbePath = fakeProbe(t, map[string]bool{"alice": true})

	lk, err := userlock.Acquire(opts.UserLockDir, "alice", true)
	require.NoError(t, err)
	defer lk.Release()

	d, err := New(opts)
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, d.pollOnce(context.Background()))

	time.Sleep(50 * time.Millisecond)
	_, err = os.Stat(marker)
	require.True(t, os.IsNotExist(err), "download command should not run for a user holding an active lock")
}

func TestSecondInstanceFailsSingletonLock(t *testing.T) {
	opts, _ := baseOptions(t)
	writeUsers(t, opts.UsersFile)
	opts.ProbePath = fakeProbe(t, nil)

	d1, err := New(opts)
	require.NoError(t, err)
	defer d1.Close()

	_, err = New(opts)
	require.Error(t, err)
}
