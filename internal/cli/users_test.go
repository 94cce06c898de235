package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUsersAddRemoveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.txt")

	users, err := readUsersFile(path)
	require.NoError(t, err)
	require.Empty(t, users)

	require.NoError(t, writeUsersFile(path, []string{"alice", "bob"}))

	users, err = readUsersFile(path)
	require.NoError(t, err)
	require.Equal(t, []string{"alice", "bob"}, users)
}

func TestReadUsersFileSkipsBlankAndCommentLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.txt")
	content := "alice\n\n# a comment\nbob\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	users, err := readUsersFile(path)
	require.NoError(t, err)
	require.Equal(t, []string{"alice", "bob"}, users)
}

func TestReadUsersFileMissingIsNotAnError(t *testing.T) {
	users, err := readUsersFile(filepath.Join(t.TempDir(), "does-not-exist.txt"))
	require.NoError(t, err)
	require.Empty(t, users)
}
