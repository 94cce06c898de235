// Package status implements the atomically-rewritten JSON heartbeat
// files the encode daemon and poller daemon publish each cycle, plus
// the readers the status CLI commands use.
package status

import (
	"time"

	"github.com/andrewbalitaan/twitchtool/internal/fsstate"
)

// EncoderState is the encode daemon's current activity.
type EncoderState string

const (
	EncoderIdle    EncoderState = "idle"
	EncoderPaused  EncoderState = "paused"
	EncoderRunning EncoderState = "running"
)

// Encoder is the encode daemon's heartbeat record.
type Encoder struct {
	PID        int          `json:"pid"`
	State      EncoderState `json:"state"`
	CurrentJob string       `json:"current_job,omitempty"`
	LastTick   time.Time    `json:"last_tick"`
}

// Poller is the poller daemon's heartbeat record.
type Poller struct {
	PID         int       `json:"pid"`
	LastPoll    time.Time `json:"last_poll"`
	NextPoll    time.Time `json:"next_poll"`
	CycleCount  int       `json:"cycle_count"`
	LiveNow     int       `json:"live_now"`
	SpawnedNow  int       `json:"spawned_now"`
}

// WriteEncoder atomically rewrites the encoder status file at path.
func WriteEncoder(path string, s Encoder) error {
	return fsstate.WriteJSONAtomic(path, s)
}

// ReadEncoder reads the encoder status file at path.
func ReadEncoder(path string) (Encoder, error) {
	var s Encoder
	err := fsstate.ReadJSON(path, &s)
	return s, err
}

// WritePoller atomically rewrites the poller status file at path.
func WritePoller(path string, s Poller) error {
	return fsstate.WriteJSONAtomic(path, s)
}

// ReadPoller reads the poller status file at path.
func ReadPoller(path string) (Poller, error) {
	var s Poller
	err := fsstate.ReadJSON(path, &s)
	return s, err
}
