package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/andrewbalitaan/twitchtool/internal/fsstate"
	"github.com/andrewbalitaan/twitchtool/internal/health"
	"github.com/andrewbalitaan/twitchtool/internal/metricsserver"
	"github.com/andrewbalitaan/twitchtool/internal/poller"
	"github.com/andrewbalitaan/twitchtool/internal/status"
)

// NewPollerCmd builds `poller run|stop|status`.
func NewPollerCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "poller",
		Short: "Run or control the Poller Daemon",
	}
	cmd.AddCommand(newPollerRunCmd(deps), newPollerStopCmd(deps), newPollerStatusCmd(deps))
	return cmd
}

func newPollerRunCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the Poller Daemon in the foreground until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			cfg := deps.Config

			d, err := poller.New(poller.Options{
				UsersFile:        cfg.Poller.UsersFile,
				SlotsDir:         deps.SlotsDir,
				UserLockDir:      deps.UserLockDir,
				RecordLimit:      cfg.Limits.RecordLimit,
				LockPath:         deps.PollerLockPath,
				StatusPath:       deps.PollerStatusPath,
				ProbePath:        deps.ProbePath,
				ProbeTimeout:     secondsToDuration(cfg.Poller.TimeoutSeconds),
				ProbeConcurrency: cfg.Poller.ProbeConcurrency,
				Interval:         secondsToDuration(cfg.Poller.IntervalSeconds),
				DownloadCmd:      strings.Fields(cfg.Poller.DownloadCmd),
			})
			if err != nil {
				return err
			}
			defer d.Close()

			metricsSrv, err := metricsserver.Start(cfg.Metrics.ListenAddr,
				health.NewFileChecker("status", deps.PollerStatusPath))
			if err != nil {
				return err
			}
			if metricsSrv != nil {
				defer metricsSrv.Stop(context.Background())
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return d.Run(ctx)
		},
	}
}

func newPollerStopCmd(deps *Dependencies) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop a running Poller Daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			s, err := status.ReadPoller(deps.PollerStatusPath)
			if err != nil {
				return fmt.Errorf("poller daemon is not running: %w", err)
			}
			return signalAndWait(s.PID, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "escalate to SIGKILL immediately instead of waiting")
	return cmd
}

func newPollerStatusCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the Poller Daemon's last heartbeat",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			s, err := status.ReadPoller(deps.PollerStatusPath)
			if err != nil {
				fmt.Fprintln(os.Stdout, "poller daemon: not running")
				return nil
			}
			alive := fsstate.IsProcessAlive(s.PID)
			fmt.Fprintf(os.Stdout, "poller daemon: pid=%d alive=%v cycle=%d live_now=%d spawned_now=%d next_poll=%s\n",
				s.PID, alive, s.CycleCount, s.LiveNow, s.SpawnedNow, s.NextPoll.Format("2006-01-02T15:04:05Z07:00"))
			return nil
		},
	}
}
