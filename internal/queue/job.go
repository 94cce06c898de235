package queue

// Params is the snapshot of encode parameters captured at enqueue
// time. The running encode daemon's own config values take
// precedence over this snapshot when present (CLI > env > config >
// job snapshot > built-ins).
type Params struct {
	Height           int    `json:"height"`
	FPS              string `json:"fps"`
	CRF              int    `json:"crf"`
	Preset           string `json:"preset"`
	Threads          int    `json:"threads"`
	Loglevel         string `json:"loglevel"`
	AudioBitrateKbps int    `json:"audio_bitrate_kbps"`
}

// Job is the on-disk record an encode job file marshals to and from.
type Job struct {
	ID         string `json:"id"`
	InputPath  string `json:"input_path"`
	BaseName   string `json:"base_name"`
	Username   string `json:"username"`
	Params     Params `json:"params"`
	EnqueuedAt string `json:"enqueued_at"`

	// DeleteInputOnSuccess is carried in the snapshot rather than in
	// Params because it is a queue/lifecycle policy, not an encode
	// parameter the transcoder itself consumes.
	DeleteInputOnSuccess bool `json:"delete_input_on_success"`

	// FailureReason and FailedAt are only set on a job that has been
	// renamed aside after a failed transcode.
	FailureReason string `json:"failure_reason,omitempty"`
	FailedAt      string `json:"failed_at,omitempty"`
}
