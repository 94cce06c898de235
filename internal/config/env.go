package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/andrewbalitaan/twitchtool/internal/log"
)

func envString(key string, cur string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return cur
	}
	logger := log.WithComponent("config")
	logger.Debug().Str("key", key).Str("source", "environment").Msg("overriding from environment")
	return v
}

func envInt(key string, cur int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return cur
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		logger := log.WithComponent("config")
		logger.Warn().Str("key", key).Str("value", v).Msg("invalid integer in environment variable, keeping current value")
		return cur
	}
	return i
}

func envInt64(key string, cur int64) int64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return cur
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		logger := log.WithComponent("config")
		logger.Warn().Str("key", key).Str("value", v).Msg("invalid integer in environment variable, keeping current value")
		return cur
	}
	return i
}

func envBool(key string, cur bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return cur
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	default:
		logger := log.WithComponent("config")
		logger.Warn().Str("key", key).Str("value", v).Msg("invalid boolean in environment variable, keeping current value")
		return cur
	}
}

// ApplyEnv overlays environment variable overrides for every
// configuration key, under the uppercased names named in the
// configuration surface.
func ApplyEnv(cfg Config) Config {
	cfg.Paths.QueueDir = envString("QUEUE_DIR", cfg.Paths.QueueDir)
	cfg.Paths.LogsDir = envString("LOGS_DIR", cfg.Paths.LogsDir)
	cfg.Paths.RecordDir = envString("RECORD_DIR", cfg.Paths.RecordDir)

	cfg.Limits.RecordLimit = envInt("RECORD_LIMIT", cfg.Limits.RecordLimit)

	if gb, ok := os.LookupEnv("DISK_FREE_MIN_GB"); ok && gb != "" {
		if f, err := strconv.ParseFloat(gb, 64); err == nil {
			cfg.Storage.DiskFreeMinBytes = int64(f * gib)
		}
	}
	cfg.Storage.DiskFreeMinBytes = envInt64("DISK_FREE_MIN_BYTES", cfg.Storage.DiskFreeMinBytes)

	cfg.Record.Quality = envString("QUALITY", cfg.Record.Quality)
	cfg.Record.RetryDelaySeconds = envInt("RETRY_DELAY", cfg.Record.RetryDelaySeconds)
	cfg.Record.RetryWindowSeconds = envInt("RETRY_WINDOW", cfg.Record.RetryWindowSeconds)
	cfg.Record.Loglevel = envString("LOGLEVEL", cfg.Record.Loglevel)
	cfg.Record.EnableRemux = envBool("REMUX_ENABLED", cfg.Record.EnableRemux)
	cfg.Record.DeleteTsAfterRemux = envBool("DELETE_TS_AFTER_REMUX", cfg.Record.DeleteTsAfterRemux)
	cfg.Record.DeleteInputOnSuccess = envBool("DELETE_INPUT_ON_SUCCESS", cfg.Record.DeleteInputOnSuccess)

	cfg.EncodeDaemon.Preset = envString("ENCODER_PRESET", cfg.EncodeDaemon.Preset)
	cfg.EncodeDaemon.CRF = envInt("ENCODER_CRF", cfg.EncodeDaemon.CRF)
	cfg.EncodeDaemon.Threads = envInt("ENCODER_THREADS", cfg.EncodeDaemon.Threads)
	cfg.EncodeDaemon.Height = envInt("ENCODER_HEIGHT", cfg.EncodeDaemon.Height)
	cfg.EncodeDaemon.FPS = envString("ENCODER_FPS", cfg.EncodeDaemon.FPS)
	cfg.EncodeDaemon.AudioBitrateKbps = envInt("ENCODER_AUDIO_BITRATE_KBPS", cfg.EncodeDaemon.AudioBitrateKbps)
	cfg.EncodeDaemon.Loglevel = envString("ENCODER_LOGLEVEL", cfg.EncodeDaemon.Loglevel)
	cfg.EncodeDaemon.Nice = envBool("ENCODER_NICE", cfg.EncodeDaemon.Nice)

	cfg.Poller.UsersFile = envString("USERS_FILE", cfg.Poller.UsersFile)
	cfg.Poller.IntervalSeconds = envInt("POLL_INTERVAL", cfg.Poller.IntervalSeconds)
	cfg.Poller.Quality = envString("QUALITY", cfg.Poller.Quality)
	cfg.Poller.DownloadCmd = envString("DOWNLOAD_CMD", cfg.Poller.DownloadCmd)
	cfg.Poller.TimeoutSeconds = envInt("PROBE_TIMEOUT", cfg.Poller.TimeoutSeconds)
	cfg.Poller.ProbeConcurrency = envInt("PROBE_CONCURRENCY", cfg.Poller.ProbeConcurrency)

	cfg.Metrics.ListenAddr = envString("METRICS_LISTEN_ADDR", cfg.Metrics.ListenAddr)

	return cfg
}
