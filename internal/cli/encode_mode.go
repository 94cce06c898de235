package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewEncodeModeCmd builds `encode-mode on|off|status`: an operator
// switch that forces the Encode Daemon idle without stopping it,
// implemented as the presence of a marker file the daemon checks each
// cycle.
func NewEncodeModeCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode-mode",
		Short: "Pause or resume the Encode Daemon's job processing",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "on",
			Short: "Resume job processing",
			RunE: func(cmd *cobra.Command, args []string) error {
				cmd.SilenceUsage = true
				if err := os.Remove(deps.EncoderPausePath); err != nil && !os.IsNotExist(err) {
					return err
				}
				fmt.Fprintln(os.Stdout, "encode-mode: on")
				return nil
			},
		},
		&cobra.Command{
			Use:   "off",
			Short: "Pause job processing; the daemon keeps running but starts no new jobs",
			RunE: func(cmd *cobra.Command, args []string) error {
				cmd.SilenceUsage = true
				if err := os.WriteFile(deps.EncoderPausePath, nil, 0o644); err != nil {
					return err
				}
				fmt.Fprintln(os.Stdout, "encode-mode: off")
				return nil
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print whether job processing is paused",
			RunE: func(cmd *cobra.Command, args []string) error {
				cmd.SilenceUsage = true
				if _, err := os.Stat(deps.EncoderPausePath); err == nil {
					fmt.Fprintln(os.Stdout, "encode-mode: off (paused)")
				} else {
					fmt.Fprintln(os.Stdout, "encode-mode: on")
				}
				return nil
			},
		},
	)
	return cmd
}
