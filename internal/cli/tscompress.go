package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/andrewbalitaan/twitchtool/internal/encoder"
)

// NewTscompressCmd builds `tscompress <files…>`: the batch offline
// transcode helper, running each input synchronously through the same
// ffmpeg invocation the Encode Daemon uses, bypassing the queue.
func NewTscompressCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tscompress <files...>",
		Short: "Transcode one or more files directly, without going through the job queue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			cfg := deps.Config
			ctx := context.Background()

			for _, input := range args {
				output := strings.TrimSuffix(input, filepath.Ext(input)) + "_compressed.mp4"
				fmt.Fprintf(os.Stdout, "transcoding %s -> %s\n", input, output)

				err := encoder.CompressFile(ctx, encoder.CompressOptions{
					FFmpegPath:       deps.FFmpegPath,
					InputPath:        input,
					OutputPath:       output,
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
					return fmt.Errorf("%s: %w", input, err)
				}
			}
			return nil
		},
	}
	return cmd
}
