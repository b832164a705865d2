package training

import (
	"fmt"
	"time"

	"github.com/ntphong404/rasa-control/internal/publisher"
)

// State is the training lifecycle state.
// Transitions: idle -> training -> completed | failed | stopped.
type State string

const (
	StateIdle      State = "idle"
	StateTraining  State = "training"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateStopped   State = "stopped"
)

// Terminal reports whether the state ends a run.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateStopped
}

// Status describes the single in-flight (or most recently finished) training
// run. It is owned by the Registry; callers only ever see snapshots.
type Status struct {
	IsTraining           bool                            `json:"is_training"`
	State                State                           `json:"status"`
	StartTime            time.Time                       `json:"start_time,omitzero"`
	ModelFile            string                          `json:"model_file,omitempty"`
	ModelName            string                          `json:"model_name,omitempty"`
	ErrorMessage         string                          `json:"error_message,omitempty"`
	UploadResult         *publisher.UploadResult         `json:"upload_result,omitempty"`
	MetadataUpdateResult *publisher.MetadataUpdateResult `json:"metadata_update_result,omitempty"`
}

// Elapsed returns the wall time since the run started, zero when no run has
// ever started.
func (s Status) Elapsed(now time.Time) time.Duration {
	if s.StartTime.IsZero() {
		return 0
	}
	return now.Sub(s.StartTime)
}

// FormatElapsed renders a duration the way operators read it: "3m 42s".
func FormatElapsed(d time.Duration) string {
	secs := int(d.Seconds())
	return fmt.Sprintf("%dm %ds", secs/60, secs%60)
}
