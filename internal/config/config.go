// Package config loads the tool's configuration from built-in
// defaults, an optional YAML file, environment variables, and CLI
// flags, applied in that order of increasing precedence. Every layer
// is optional; the built-in defaults alone are enough to run.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Paths groups the on-disk locations the core reads from and writes
// to.
type Paths struct {
	QueueDir  string `yaml:"queue_dir"`
	LogsDir   string `yaml:"logs_dir"`
	RecordDir string `yaml:"record_dir"`
}

// Limits groups concurrency caps.
type Limits struct {
	RecordLimit int `yaml:"record_limit"`
}

// Storage groups disk-space policy.
type Storage struct {
	DiskFreeMinBytes int64 `yaml:"disk_free_min_bytes"`
}

// Record groups Recorder behavior.
type Record struct {
	Quality              string `yaml:"quality"`
	RetryDelaySeconds    int    `yaml:"retry_delay"`
	RetryWindowSeconds   int    `yaml:"retry_window"`
	Loglevel             string `yaml:"loglevel"`
	EnableRemux          bool   `yaml:"enable_remux"`
	DeleteTsAfterRemux   bool   `yaml:"delete_ts_after_remux"`
	DeleteInputOnSuccess bool   `yaml:"delete_input_on_success"`
}

// EncodeDaemon groups transcode parameters.
type EncodeDaemon struct {
	Preset           string `yaml:"preset"`
	CRF              int    `yaml:"crf"`
	Threads          int    `yaml:"threads"`
	Height           int    `yaml:"height"`
	FPS              string `yaml:"fps"`
	AudioBitrateKbps int    `yaml:"audio_bitrate_kbps"`
	Loglevel         string `yaml:"loglevel"`
	Nice             bool   `yaml:"nice"`
}

// Poller groups Poller Daemon parameters.
type Poller struct {
	UsersFile        string `yaml:"users_file"`
	IntervalSeconds  int    `yaml:"interval"`
	Quality          string `yaml:"quality"`
	DownloadCmd      string `yaml:"download_cmd"`
	TimeoutSeconds   int    `yaml:"timeout"`
	ProbeConcurrency int    `yaml:"probe_concurrency"`
}

// Metrics groups the optional loopback metrics/health HTTP listener.
type Metrics struct {
	ListenAddr string `yaml:"listen_addr"`
}

// Config is the full, merged configuration tree.
type Config struct {
	Paths        Paths        `yaml:"paths"`
	Limits       Limits       `yaml:"limits"`
	Storage      Storage      `yaml:"storage"`
	Record       Record       `yaml:"record"`
	EncodeDaemon EncodeDaemon `yaml:"encode_daemon"`
	Poller       Poller       `yaml:"poller"`
	Metrics      Metrics      `yaml:"metrics"`
}

const gib = 1 << 30

// Defaults returns the built-in configuration, matching the original
// implementation's defaults tree.
func Defaults() Config {
	home, _ := os.UserHomeDir()
	recordDir := home + "/Videos/TwitchTool"

	return Config{
		Paths: Paths{
			QueueDir:  home + "/.local/state/twitchtool/encode-queue",
			LogsDir:   home + "/.local/state/twitchtool/logs",
			RecordDir: recordDir,
		},
		Limits: Limits{RecordLimit: 6},
		Storage: Storage{DiskFreeMinBytes: 10 * gib},
		Record: Record{
			Quality:              "best",
			RetryDelaySeconds:    60,
			RetryWindowSeconds:   900,
			Loglevel:             "info",
			EnableRemux:          true,
			DeleteTsAfterRemux:   true,
			DeleteInputOnSuccess: false,
		},
		EncodeDaemon: EncodeDaemon{
			Preset:           "medium",
			CRF:              26,
			Threads:          1,
			Height:           480,
			FPS:              "auto",
			AudioBitrateKbps: 128,
			Loglevel:         "info",
			Nice:             true,
		},
		Poller: Poller{
			UsersFile:        home + "/.config/twitchtool/users.txt",
			IntervalSeconds:  300,
			Quality:          "best",
			DownloadCmd:      "clipkeeper record",
			TimeoutSeconds:   15,
			ProbeConcurrency: 10,
		},
	}
}

// LoadFile merges the YAML document at path on top of base. A missing
// file is not an error — it is equivalent to an empty override.
func LoadFile(path string, base Config) (Config, error) {
	if path == "" {
		return base, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return base, nil
		}
		return base, err
	}
	if err := yaml.Unmarshal(data, &base); err != nil {
		return base, err
	}
	return base, nil
}
