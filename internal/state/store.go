// Package state persists pipeline run history in SQLite: one row per run
// and one row per stage of that run.
package state

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("not found")

// RunStatus is the outcome of a pipeline run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// StageStatus is the state of one stage within a run.
type StageStatus string

// Stage statuses.
const (
	StageStatusPending StageStatus = "pending"
	StageStatusRunning StageStatus = "running"
	StageStatusSuccess StageStatus = "success"
	StageStatusFailed  StageStatus = "failed"
	StageStatusSkipped StageStatus = "skipped"
)

// Terminal reports whether the stage has finished.
func (s StageStatus) Terminal() bool {
	return s == StageStatusSuccess || s == StageStatusFailed || s == StageStatusSkipped
}

// Run is one pipeline invocation.
type Run struct {
	ID          string     `json:"id" yaml:"id"`
	DatasetName string     `json:"dataset_name" yaml:"dataset_name"`
	DatasetPath string     `json:"dataset_path" yaml:"dataset_path"`
	ConfigPath  string     `json:"config_path" yaml:"config_path"`
	Status      RunStatus  `json:"status" yaml:"status"`
	StartedAt   time.Time  `json:"started_at" yaml:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty" yaml:"error,omitempty"`
}

// RunParams are the invocation parameters recorded with a run.
type RunParams struct {
	DatasetName string
	DatasetPath string
	ConfigPath  string
}

// StageRun is the record of one stage within a run. Details holds the
// stage's JSON-encoded output summary, if any.
type StageRun struct {
	ID          string      `json:"id" yaml:"id"`
	RunID       string      `json:"run_id" yaml:"run_id"`
	Stage       string      `json:"stage" yaml:"stage"`
	Position    int         `json:"position" yaml:"position"`
	Status      StageStatus `json:"status" yaml:"status"`
	StartedAt   *time.Time  `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	Error       string      `json:"error,omitempty" yaml:"error,omitempty"`
	Details     string      `json:"details,omitempty" yaml:"details,omitempty"`
}
