// Package cli wires the clipkeeper command surface together with
// spf13/cobra, mirroring the nested command/dependency-injection shape
// of the sibling meeting-recorder CLI this tool's command tree is
// grounded on.
package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/andrewbalitaan/twitchtool/internal/config"
	"github.com/andrewbalitaan/twitchtool/internal/fsstate"
	"github.com/andrewbalitaan/twitchtool/internal/log"
	"github.com/andrewbalitaan/twitchtool/internal/version"
)

// Dependencies are the resolved runtime paths and configuration every
// subcommand needs. Built once in main and threaded through every
// NewXCmd constructor.
type Dependencies struct {
	Config     config.Config
	ConfigPath string

	SlotsDir    string
	UserLockDir string

	EncoderLockPath   string
	EncoderStatusPath string
	EncoderPausePath  string
	PollerLockPath    string
	PollerStatusPath  string

	CapturePath string
	MuxPath     string
	ProbePath   string
	FFmpegPath  string
}

// NewDependencies resolves runtime directories and merges configuration
// from the given file path plus environment variables.
func NewDependencies(configPath string) (*Dependencies, error) {
	cfg, err := config.Loader{FilePath: configPath}.Load()
	if err != nil {
		return nil, err
	}

	runtimeRoot := fsstate.RuntimeDir("clipkeeper")

	return &Dependencies{
		Config:            cfg,
		ConfigPath:        configPath,
		SlotsDir:          fsstate.RuntimeDir("clipkeeper-slots"),
		UserLockDir:       fsstate.RuntimeDir("clipkeeper-userlocks"),
		EncoderLockPath:   filepath.Join(runtimeRoot, "encoder.lock"),
		EncoderStatusPath: filepath.Join(runtimeRoot, "encoder.status.json"),
		EncoderPausePath:  filepath.Join(runtimeRoot, "encoder.paused"),
		PollerLockPath:    filepath.Join(runtimeRoot, "poller.lock"),
		PollerStatusPath:  filepath.Join(runtimeRoot, "poller.status.json"),
		CapturePath:       "streamlink",
		MuxPath:           "ffmpeg",
		ProbePath:         "streamlink",
		FFmpegPath:        "ffmpeg",
	}, nil
}

// NewRootCmd builds the full clipkeeper command tree.
func NewRootCmd(deps *Dependencies) *cobra.Command {
	var jsonLogs bool

	root := &cobra.Command{
		Use:   "clipkeeper",
		Short: "Coordinate recording, encoding and polling of live streams",
		Long:  "clipkeeper records live streams via an external capture tool, merges and remuxes segments, queues them for transcoding, and polls a list of usernames for liveness within a bounded concurrency budget.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			var writer io.Writer = os.Stdout
			if !jsonLogs {
				writer = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
			}
			log.Configure(log.Config{Level: deps.Config.Record.Loglevel, Service: "clipkeeper", Output: writer})
		},
	}

	root.Version = version.Version
	root.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "no effect: the logger is configured once at process start, and log output is always structured JSON")

	root.AddCommand(
		NewRecordCmd(deps),
		NewEncodeDaemonCmd(deps),
		NewPollerCmd(deps),
		NewStopCmd(deps),
		NewStatusCmd(deps),
		NewCleanCmd(deps),
		NewDoctorCmd(deps),
		NewUsersCmd(deps),
		NewEncodeModeCmd(deps),
		NewTscompressCmd(deps),
	)

	return root
}
