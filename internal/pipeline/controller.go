// Package pipeline sequences one dataset hop: load the zone configuration,
// copy the dataset, validate the copy, run the remote transform and
// validate its output. Stages run in a fixed order and the first failure
// aborts the run.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/zonehop/internal/cluster"
	"github.com/leapstack-labs/zonehop/internal/dataset"
	"github.com/leapstack-labs/zonehop/internal/location"
	"github.com/leapstack-labs/zonehop/internal/metrics"
	"github.com/leapstack-labs/zonehop/internal/state"
	"github.com/leapstack-labs/zonehop/internal/storage"
	"github.com/leapstack-labs/zonehop/internal/validate"
)

// Copier copies a dataset between locations.
type Copier interface {
	Copy(ctx context.Context, src, dst location.Location) (*storage.CopyReport, error)
}

// JobRunner runs the remote transformation job.
type JobRunner interface {
	Run(ctx context.Context, req cluster.JobRequest) (*cluster.Session, error)
}

// History persists runs and their stages.
type History interface {
	CreateRun(ctx context.Context, p state.RunParams) (*state.Run, error)
	CompleteRun(ctx context.Context, id string, status state.RunStatus, errMsg string) error
	CreateStageRuns(ctx context.Context, runID string, stages []string) ([]*state.StageRun, error)
	UpdateStageRun(ctx context.Context, id string, status state.StageStatus, errMsg, details string) error
}

// Deps are the controller's collaborators. History and Metrics are optional.
type Deps struct {
	Stores        storage.Resolver
	Copier        Copier
	Reader        dataset.Reader
	Jobs          JobRunner
	History       History
	Metrics       metrics.Backend
	StrictDecimal bool
	Logger        *slog.Logger
}

// Params are the invocation parameters of one run.
type Params struct {
	AppConfigPath   string `json:"app_config_path"`
	DatasetPath     string `json:"dataset_path"`
	DatasetName     string `json:"dataset_name"`
	SparkConfigPath string `json:"spark_config_path"`
	FinalCodePath   string `json:"final_code_path"`
}

// Validate reports missing required parameters.
func (p Params) Validate() error {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"app_config_path", p.AppConfigPath},
		{"dataset_path", p.DatasetPath},
		{"dataset_name", p.DatasetName},
		{"final_code_path", p.FinalCodePath},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidParams, strings.Join(missing, ", "))
	}
	return nil
}

// StageSummary is the outcome of one stage.
type StageSummary struct {
	Name     string            `json:"name" yaml:"name"`
	Status   state.StageStatus `json:"status" yaml:"status"`
	Duration time.Duration     `json:"duration" yaml:"duration"`
	Error    string            `json:"error,omitempty" yaml:"error,omitempty"`
}

// RunSummary is the outcome of one run.
type RunSummary struct {
	RunID          string              `json:"run_id" yaml:"run_id"`
	Dataset        string              `json:"dataset" yaml:"dataset"`
	Status         state.RunStatus     `json:"status" yaml:"status"`
	Stages         []StageSummary      `json:"stages" yaml:"stages"`
	Copy           *storage.CopyReport `json:"copy,omitempty" yaml:"copy,omitempty"`
	PreValidation  *validate.Report    `json:"pre_validation,omitempty" yaml:"pre_validation,omitempty"`
	Session        *cluster.Session    `json:"session,omitempty" yaml:"session,omitempty"`
	PostValidation *validate.Report    `json:"post_validation,omitempty" yaml:"post_validation,omitempty"`
	Error          string              `json:"error,omitempty" yaml:"error,omitempty"`
}

// Controller runs the hop pipeline.
type Controller struct {
	deps   Deps
	logger *slog.Logger
}

// New creates a controller.
func New(deps Deps) (*Controller, error) {
	switch {
	case deps.Stores == nil:
		return nil, errors.New("pipeline: object stores are required")
	case deps.Copier == nil:
		return nil, errors.New("pipeline: copier is required")
	case deps.Reader == nil:
		return nil, errors.New("pipeline: dataset reader is required")
	case deps.Jobs == nil:
		return nil, errors.New("pipeline: job runner is required")
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Nop()
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	return &Controller{deps: deps, logger: deps.Logger.With("component", "pipeline")}, nil
}

// execution is the state of one Run call.
type execution struct {
	deps    Deps
	params  Params
	pc      *Context
	metrics *metrics.Recorder
	logger  *slog.Logger
}

// Run executes every stage in order and stops at the first failure. The
// returned error is a *StageError wrapping the cause. The summary is
// non-nil once the run has been recorded.
func (c *Controller) Run(ctx context.Context, p Params) (*RunSummary, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	runID, err := c.createRun(ctx, p)
	if err != nil {
		return nil, err
	}
	logger := c.logger.With("run_id", runID, "dataset", p.DatasetName)
	logger.Info("starting run", "dataset_path", p.DatasetPath)

	names := Stages()
	records := c.createStageRuns(ctx, logger, runID, names)

	e := &execution{
		deps:    c.deps,
		params:  p,
		pc:      NewContext(),
		metrics: metrics.NewRecorder(c.deps.Metrics, p.DatasetName),
		logger:  logger,
	}
	summary := &RunSummary{RunID: runID, Dataset: p.DatasetName, Status: state.RunStatusRunning}

	var runErr *StageError
	for i, name := range names {
		if runErr != nil {
			failed := runErr.Stage
			summary.Stages = append(summary.Stages, StageSummary{Name: name, Status: state.StageStatusSkipped})
			c.updateStage(ctx, logger, records[i], state.StageStatusSkipped, fmt.Sprintf("upstream stage %s failed", failed), "")
			continue
		}

		c.updateStage(ctx, logger, records[i], state.StageStatusRunning, "", "")
		logger.Info("stage started", "stage", name)

		start := time.Now()
		out, err := e.stage(name)(ctx)
		elapsed := time.Since(start)
		summary.collect(name, out, err)

		if err == nil {
			err = e.pc.Put(name, out)
		}
		ss := StageSummary{Name: name, Status: state.StageStatusSuccess, Duration: elapsed}
		if err != nil {
			ss.Status = state.StageStatusFailed
			ss.Error = err.Error()
			runErr = &StageError{Stage: name, Err: err}
			logger.Error("stage failed", "stage", name, "duration", elapsed, "error", err)
		} else {
			logger.Info("stage completed", "stage", name, "duration", elapsed)
		}
		summary.Stages = append(summary.Stages, ss)
		e.metrics.RecordStage(name, string(ss.Status), elapsed)
		c.updateStage(ctx, logger, records[i], ss.Status, ss.Error, details(out))
	}

	summary.Status = state.RunStatusCompleted
	if runErr != nil {
		summary.Status = state.RunStatusFailed
		summary.Error = runErr.Error()
	}
	c.completeRun(ctx, logger, runID, summary)

	if err := e.metrics.Flush(); err != nil {
		logger.Warn("failed to flush metrics", "error", err)
	}
	if runErr != nil {
		logger.Info("run failed", "error", runErr.Error(), "completed_stages", e.pc.Keys())
		return summary, runErr
	}
	logger.Info("run completed")
	return summary, nil
}

// collect keeps stage outputs worth reporting. Validation reports and the
// job session are kept even when their stage failed.
func (s *RunSummary) collect(stage string, out any, err error) {
	switch v := out.(type) {
	case *storage.CopyReport:
		if v != nil && err == nil {
			s.Copy = v
		}
	case *validate.Report:
		switch stage {
		case StagePreValidation:
			s.PreValidation = v
		case StagePostValidation:
			s.PostValidation = v
		}
	case *cluster.Session:
		s.Session = v
	}
}

func (c *Controller) createRun(ctx context.Context, p Params) (string, error) {
	if c.deps.History == nil {
		return uuid.New().String(), nil
	}
	run, err := c.deps.History.CreateRun(ctx, state.RunParams{
		DatasetName: p.DatasetName,
		DatasetPath: p.DatasetPath,
		ConfigPath:  p.AppConfigPath,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create run: %w", err)
	}
	return run.ID, nil
}

// createStageRuns returns one record per stage; entries are nil when no
// history is kept or recording failed.
func (c *Controller) createStageRuns(ctx context.Context, logger *slog.Logger, runID string, names []string) []*state.StageRun {
	records := make([]*state.StageRun, len(names))
	if c.deps.History == nil {
		return records
	}
	created, err := c.deps.History.CreateStageRuns(ctx, runID, names)
	if err != nil {
		logger.Warn("failed to record stages", "error", err)
		return records
	}
	copy(records, created)
	return records
}

func (c *Controller) updateStage(ctx context.Context, logger *slog.Logger, rec *state.StageRun, status state.StageStatus, errMsg, details string) {
	if c.deps.History == nil || rec == nil {
		return
	}
	if err := c.deps.History.UpdateStageRun(context.WithoutCancel(ctx), rec.ID, status, errMsg, details); err != nil {
		logger.Warn("failed to record stage status", "stage", rec.Stage, "status", status, "error", err)
	}
}

func (c *Controller) completeRun(ctx context.Context, logger *slog.Logger, runID string, summary *RunSummary) {
	if c.deps.History == nil {
		return
	}
	if err := c.deps.History.CompleteRun(context.WithoutCancel(ctx), runID, summary.Status, summary.Error); err != nil {
		logger.Warn("failed to record run completion", "error", err)
	}
}

// details renders a stage output for the run history.
func details(out any) string {
	if out == nil {
		return ""
	}
	data, err := json.Marshal(out)
	if err != nil || string(data) == "null" {
		return ""
	}
	return string(data)
}
