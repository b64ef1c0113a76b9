package contract

import (
	"errors"
	"fmt"
)

var (
	ErrModelInvoke   = errors.New("model invoke failed")
	ErrValidation    = errors.New("validation failed")
	ErrOrderNotFound = errors.New("order not found")
	ErrOrderLookup   = errors.New("order lookup failed")
	ErrRetrieval     = errors.New("knowledge retrieval failed")
	ErrCheckpoint    = errors.New("checkpoint failed")
)

// StageError labels a fatal failure with the workflow stage that raised it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// FailedStage returns the stage name carried by err, or "" when err is not a StageError.
func FailedStage(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
