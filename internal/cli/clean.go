package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/andrewbalitaan/twitchtool/internal/queue"
	"github.com/andrewbalitaan/twitchtool/internal/slots"
	"github.com/andrewbalitaan/twitchtool/internal/userlock"
)

// NewCleanCmd builds `clean`: sweeps stale slot owners, recovers
// crashed in-flight jobs, and removes old .failed sidecars. Idempotent
// — running it twice in a row is equivalent to running it once.
func NewCleanCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Sweep stale slot owners, recover crashed jobs, and prune old failures",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			registry, err := slots.New(deps.SlotsDir, deps.Config.Limits.RecordLimit)
			if err != nil {
				return err
			}
			staleSlots := registry.Sweep()

			q, err := queue.Open(deps.Config.Paths.QueueDir)
			if err != nil {
				return err
			}
			recovered, err := q.SweepInflight()
			if err != nil {
				return err
			}
			removedFailed, err := q.SweepOldFailed(7 * 24 * time.Hour)
			if err != nil {
				return err
			}

			removedTemp := cleanTempResidue(deps.Config.Paths.RecordDir, deps.UserLockDir)

			fmt.Fprintf(os.Stdout, "clean: %d stale slot owners, %d recovered inflight jobs, %d old failures removed, %d temp files removed\n",
				staleSlots, recovered, removedFailed, removedTemp)
			return nil
		},
	}
}

// cleanTempResidue removes leftover segment files from a crashed
// Recorder's temp/ directory. Finished recordings never leave anything
// behind there, so anything found while no per-user recording lock is
// held is residue; while one is held, nothing is removed.
func cleanTempResidue(recordDir, userLockDir string) int {
	if b := filepath.Base(filepath.Clean(recordDir)); b == "Downloads" || b == "Videos" {
		recordDir = filepath.Join(recordDir, "ClipKeeper")
	}
	locks, _ := filepath.Glob(filepath.Join(userLockDir, "*.lock"))
	for _, l := range locks {
		if userlock.IsLocked(userLockDir, strings.TrimSuffix(filepath.Base(l), ".lock")) {
			return 0
		}
	}
	tempDir := filepath.Join(recordDir, "temp")
	entries, err := os.ReadDir(tempDir)
	if err != nil {
		return 0
	}
	removed := 0
	for _, e := range entries {
		if os.Remove(filepath.Join(tempDir, e.Name())) == nil {
			removed++
		}
	}
	return removed
}
