package training

import "errors"

var (
	// ErrAlreadyTraining rejects a train request while a run is active.
	ErrAlreadyTraining = errors.New("training is already in progress")
	// ErrNotTraining rejects a stop request when no run is active.
	ErrNotTraining = errors.New("no training process is currently running")
)

// ValidationError names the request field that failed a precondition.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "missing required field: " + e.Field
}
