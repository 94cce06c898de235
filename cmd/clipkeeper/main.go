package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/andrewbalitaan/twitchtool/internal/cli"
	"github.com/andrewbalitaan/twitchtool/internal/kindcode"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := os.Getenv("CLIPKEEPER_CONFIG")
	// A bare --config flag is resolved before cobra parses the rest of
	// argv, since the config path decides which defaults every
	// subcommand's own flags override.
	fs := flag.NewFlagSet("clipkeeper", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.StringVar(&configPath, "config", configPath, "path to the YAML config file")
	_ = fs.Parse(peekConfigArgs(os.Args[1:]))

	deps, err := cli.NewDependencies(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "clipkeeper:", err)
		return kindcode.ExitCodeOf(err)
	}

	root := cli.NewRootCmd(deps)
	root.SetArgs(stripConfigArgs(os.Args[1:]))

	// ExecuteC, rather than Execute, gives back the specific subcommand
	// that failed. Each RunE sets SilenceUsage once argument validation
	// has passed, so a command still showing it false here means cobra
	// itself rejected the invocation (bad flags, wrong arg count) —
	// an argument/usage error, not one of the kindcode-tagged runtime
	// failures RunE bodies return.
	cmd, err := root.ExecuteC()
	if err != nil {
		if !cmd.SilenceUsage {
			return 2
		}
		return kindcode.ExitCodeOf(err)
	}
	return 0
}

// peekConfigArgs extracts a --config flag (either "--config value" or
// "--config=value") so it can be resolved before the rest of argv is
// handed to cobra, which has no concept of a pre-parse config path.
func peekConfigArgs(args []string) []string {
	for i, a := range args {
		if a == "--config" {
			if i+1 < len(args) {
				return args[i : i+2]
			}
			return args[i : i+1]
		}
		if len(a) >= 9 && a[:9] == "--config=" {
			return []string{a}
		}
	}
	return nil
}

// stripConfigArgs removes a --config=value argument from argv before
// handing the rest to cobra, since no subcommand defines that flag
// itself.
func stripConfigArgs(args []string) []string {
	out := make([]string, 0, len(args))
	skipNext := false
	for _, a := range args {
		if skipNext {
			skipNext = false
			continue
		}
		if a == "--config" {
			skipNext = true
			continue
		}
		if len(a) >= 9 && a[:9] == "--config=" {
			continue
		}
		out = append(out, a)
	}
	return out
}
