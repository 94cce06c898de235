package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/andrewbalitaan/twitchtool/internal/fsstate"
	"github.com/andrewbalitaan/twitchtool/internal/slots"
	"github.com/andrewbalitaan/twitchtool/internal/status"
)

// NewStatusCmd builds `status`: a combined human-readable snapshot of
// slot usage and both daemons' heartbeats.
func NewStatusCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print slot usage and daemon heartbeats",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			registry, err := slots.New(deps.SlotsDir, deps.Config.Limits.RecordLimit)
			if err != nil {
				return err
			}
			owners, _ := registry.Enumerate()

			fmt.Fprintf(os.Stdout, "slots: %d/%d in use\n", len(owners), deps.Config.Limits.RecordLimit)
			for _, o := range owners {
				fmt.Fprintf(os.Stdout, "  pid=%d username=%s started_at=%s\n", o.PID, o.Username, o.StartedAt)
			}

			if es, err := status.ReadEncoder(deps.EncoderStatusPath); err == nil {
				fmt.Fprintf(os.Stdout, "encode daemon: pid=%d alive=%v state=%s current_job=%s\n",
					es.PID, fsstate.IsProcessAlive(es.PID), es.State, es.CurrentJob)
			} else {
				fmt.Fprintln(os.Stdout, "encode daemon: not running")
			}

			if ps, err := status.ReadPoller(deps.PollerStatusPath); err == nil {
				fmt.Fprintf(os.Stdout, "poller daemon: pid=%d alive=%v cycle=%d live_now=%d\n",
					ps.PID, fsstate.IsProcessAlive(ps.PID), ps.CycleCount, ps.LiveNow)
			} else {
				fmt.Fprintln(os.Stdout, "poller daemon: not running")
			}

			return nil
		},
	}
}
