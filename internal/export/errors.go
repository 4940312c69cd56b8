package export

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRecords reports an export of an empty view. Nothing is written.
	ErrNoRecords = errors.New("no matching records to export")
	// ErrDeclined reports that the operator did not confirm the export.
	ErrDeclined = errors.New("export declined")
	// ErrNotInteractive reports a prompt that cannot be answered.
	ErrNotInteractive = errors.New("confirmation requires an interactive terminal")
	// ErrQueueFull reports a worker that cannot accept more jobs.
	ErrQueueFull = errors.New("export queue full")
	// ErrStopped reports a job abandoned because the worker stopped.
	ErrStopped = errors.New("export worker stopped")
)

// Stage names the step of an export that failed.
type Stage string

const (
	StageSerialize Stage = "serialize"
	StageWrite     Stage = "write"
)

// StageError distinguishes a failed serialization from a failed write of an
// already serialized document.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("export %s: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

// FailedStage returns the stage recorded in err, if any.
func FailedStage(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}
