package cli

import (
	"fmt"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/andrewbalitaan/twitchtool/internal/fsstate"
	"github.com/andrewbalitaan/twitchtool/internal/slots"
)

// NewStopCmd builds `stop <slot>`: sends interrupt to the PID currently
// holding the named slot and waits up to 10s for it to exit; with
// --force, a process still running after that wait is killed.
func NewStopCmd(deps *Dependencies) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "stop <slot>",
		Short: "Stop the Recorder holding the given slot index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("slot must be a positive integer: %w", err)
			}

			if index < 1 || index > deps.Config.Limits.RecordLimit {
				return fmt.Errorf("no such slot: %d", index)
			}

			return stopSlot(deps, index, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "send SIGKILL if the Recorder is still running 10s after the interrupt")
	return cmd
}

func stopSlot(deps *Dependencies, index int, force bool) error {
	owner, err := slots.ReadOwner(deps.SlotsDir, index)
	if err != nil {
		return fmt.Errorf("slot %d has no active owner: %w", index, err)
	}
	if err := syscall.Kill(owner.PID, syscall.SIGINT); err != nil {
		return fmt.Errorf("signal pid %d: %w", owner.PID, err)
	}
	for deadline := time.Now().Add(10 * time.Second); time.Now().Before(deadline); time.Sleep(200 * time.Millisecond) {
		if !fsstate.IsProcessAlive(owner.PID) {
			return nil
		}
	}
	if force {
		_ = syscall.Kill(owner.PID, syscall.SIGKILL)
	}
	return nil
}
