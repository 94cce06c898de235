package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/andrewbalitaan/twitchtool/internal/queue"
	"github.com/andrewbalitaan/twitchtool/internal/recorder"
)

// NewRecordCmd builds the `record <username>` command: one Recorder
// invocation, exiting with the kindcode-mapped exit code of whatever
// Run returns.
func NewRecordCmd(deps *Dependencies) *cobra.Command {
	var quality string
	var failFast bool

	cmd := &cobra.Command{
		Use:   "record <username>",
		Short: "Record one live stream to completion and enqueue it for encoding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			username := args[0]
			cfg := deps.Config

			q := quality
			if q == "" {
				q = cfg.Record.Quality
			}

			opts := recorder.Options{
				Username:             username,
				Quality:              q,
				RetryDelay:           secondsToDuration(cfg.Record.RetryDelaySeconds),
				RetryWindow:          secondsToDuration(cfg.Record.RetryWindowSeconds),
				OutputDir:            cfg.Paths.RecordDir,
				SlotsDir:             deps.SlotsDir,
				UserLockDir:          deps.UserLockDir,
				QueueDir:             cfg.Paths.QueueDir,
				RecordLimit:          cfg.Limits.RecordLimit,
				FailFast:             failFast,
				EnableRemux:          cfg.Record.EnableRemux,
				DeleteTsAfterRemux:   cfg.Record.DeleteTsAfterRemux,
				DeleteInputOnSuccess: cfg.Record.DeleteInputOnSuccess,
				DiskFreeMinBytes:     cfg.Storage.DiskFreeMinBytes,
				CapturePath:          deps.CapturePath,
				MuxPath:              deps.MuxPath,
				EncodeParams: queue.Params{
					Height:           cfg.EncodeDaemon.Height,
					FPS:              cfg.EncodeDaemon.FPS,
					CRF:              cfg.EncodeDaemon.CRF,
					Preset:           cfg.EncodeDaemon.Preset,
					Threads:          cfg.EncodeDaemon.Threads,
					Loglevel:         cfg.EncodeDaemon.Loglevel,
					AudioBitrateKbps: cfg.EncodeDaemon.AudioBitrateKbps,
				},
			}

			// A first SIGINT/SIGTERM asks the capture loop to stop and
			// finalize with whatever it already has. Further SIGINT/SIGTERM
			// stay captured until Run returns, so a repeated signal does
			// not end the process early.
			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return recorder.Run(ctx, opts)
		},
	}

	cmd.Flags().StringVar(&quality, "quality", "", "stream quality passed to the capture tool (overrides config)")
	cmd.Flags().BoolVar(&failFast, "fail-fast", true, "return immediately (exit 3) instead of waiting when no slot is free")

	return cmd
}
