package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/andrewbalitaan/twitchtool/internal/encoder"
	"github.com/andrewbalitaan/twitchtool/internal/fsstate"
	"github.com/andrewbalitaan/twitchtool/internal/health"
	"github.com/andrewbalitaan/twitchtool/internal/metricsserver"
	"github.com/andrewbalitaan/twitchtool/internal/status"
)

// NewEncodeDaemonCmd builds `encode-daemon run|stop|status`.
func NewEncodeDaemonCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode-daemon",
		Short: "Run or control the Encode Daemon",
	}
	cmd.AddCommand(newEncodeDaemonRunCmd(deps), newEncodeDaemonStopCmd(deps), newEncodeDaemonStatusCmd(deps))
	return cmd
}

func newEncodeDaemonRunCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the Encode Daemon in the foreground until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			cfg := deps.Config

			d, err := encoder.New(encoder.Options{
				QueueDir:         cfg.Paths.QueueDir,
				SlotsDir:         deps.SlotsDir,
				RecordLimit:      cfg.Limits.RecordLimit,
				LockPath:         deps.EncoderLockPath,
				StatusPath:       deps.EncoderStatusPath,
				PauseFlagPath:    deps.EncoderPausePath,
				FFmpegPath:       deps.FFmpegPath,
				Preset:           cfg.EncodeDaemon.Preset,
				CRF:              cfg.EncodeDaemon.CRF,
				Threads:          cfg.EncodeDaemon.Threads,
				Height:           cfg.EncodeDaemon.Height,
				FPS:              cfg.EncodeDaemon.FPS,
				AudioBitrateKbps: cfg.EncodeDaemon.AudioBitrateKbps,
				Loglevel:         cfg.EncodeDaemon.Loglevel,
				Nice:             cfg.EncodeDaemon.Nice,
			})
			if err != nil {
				return err
			}
			defer d.Close()

			metricsSrv, err := metricsserver.Start(cfg.Metrics.ListenAddr,
				health.NewFileChecker("status", deps.EncoderStatusPath))
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

func newEncodeDaemonStopCmd(deps *Dependencies) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop a running Encode Daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			s, err := status.ReadEncoder(deps.EncoderStatusPath)
			if err != nil {
				return fmt.Errorf("encode daemon is not running: %w", err)
			}
			return signalAndWait(s.PID, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "escalate to SIGKILL immediately instead of waiting")
	return cmd
}

func newEncodeDaemonStatusCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the Encode Daemon's last heartbeat",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			s, err := status.ReadEncoder(deps.EncoderStatusPath)
			if err != nil {
				fmt.Fprintln(os.Stdout, "encode daemon: not running")
				return nil
			}
			alive := fsstate.IsProcessAlive(s.PID)
			fmt.Fprintf(os.Stdout, "encode daemon: pid=%d alive=%v state=%s current_job=%s last_tick=%s\n",
				s.PID, alive, s.State, s.CurrentJob, s.LastTick.Format("2006-01-02T15:04:05Z07:00"))
			return nil
		},
	}
}
