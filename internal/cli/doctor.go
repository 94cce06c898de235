package cli

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/andrewbalitaan/twitchtool/internal/fsstate"
	"github.com/andrewbalitaan/twitchtool/internal/slots"
)

// NewDoctorCmd builds `doctor`: checks external tool availability and
// runtime directory writability, warns about low free disk space, and
// removes stale slot owner records (the same sweep `clean` starts
// with). It does not inspect the job queue or temp/.
func NewDoctorCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check prerequisites and sweep stale slot owners",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			ok := true

			check := func(name, path string) {
				if _, err := exec.LookPath(path); err != nil {
					fmt.Fprintf(os.Stdout, "[FAIL] %-18s not found on PATH (%s)\n", name, path)
					ok = false
					return
				}
				fmt.Fprintf(os.Stdout, "[ OK ] %-18s found\n", name)
			}
			check("capture tool", deps.CapturePath)
			check("mux tool", deps.MuxPath)
			check("transcoder", deps.FFmpegPath)

			for _, dir := range []string{deps.SlotsDir, deps.UserLockDir, deps.Config.Paths.QueueDir, deps.Config.Paths.RecordDir} {
				if err := fsstate.EnsureDir(dir); err != nil {
					fmt.Fprintf(os.Stdout, "[FAIL] %-18s not writable: %v\n", dir, err)
					ok = false
					continue
				}
				fmt.Fprintf(os.Stdout, "[ OK ] %-18s writable\n", dir)
			}

			if registry, err := slots.New(deps.SlotsDir, deps.Config.Limits.RecordLimit); err == nil {
				fmt.Fprintf(os.Stdout, "[ OK ] %-18s %d stale owner records removed\n", "slots", registry.Sweep())
			}

			if free, err := fsstate.FreeBytes(deps.Config.Paths.RecordDir); err == nil {
				if free < uint64(deps.Config.Storage.DiskFreeMinBytes) {
					fmt.Fprintf(os.Stdout, "[WARN] free disk space %d bytes is below threshold %d\n", free, deps.Config.Storage.DiskFreeMinBytes)
				} else {
					fmt.Fprintf(os.Stdout, "[ OK ] free disk space %d bytes\n", free)
				}
			}

			if ok {
				fmt.Fprintln(os.Stdout, "\nAll prerequisites met.")
			} else {
				fmt.Fprintln(os.Stdout, "\nSome prerequisites are missing; run `clean` or fix the items above.")
			}
			return nil
		},
	}
}
