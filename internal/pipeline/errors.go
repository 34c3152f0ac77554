package pipeline

import (
	"errors"
	"fmt"
)

// ErrInvalidParams is returned when required invocation parameters are missing.
var ErrInvalidParams = errors.New("invalid pipeline parameters")

// StageError reports the stage that aborted a run.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
