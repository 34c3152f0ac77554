package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const stageColumns = `id, run_id, stage, position, status, started_at, completed_at, error, details`

// CreateStageRuns records the planned stages of a run as pending, in order,
// within one transaction.
func (s *Store) CreateStageRuns(ctx context.Context, runID string, stages []string) ([]*StageRun, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	out := make([]*StageRun, 0, len(stages))
	for i, stage := range stages {
		sr, err := createStageRun(ctx, tx, runID, stage, i)
		if err != nil {
			return nil, err
		}
		out = append(out, sr)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit stage runs: %w", err)
	}
	return out, nil
}

func createStageRun(ctx context.Context, q querier, runID, stage string, position int) (*StageRun, error) {
	sr := &StageRun{
		ID:       generateID(),
		RunID:    runID,
		Stage:    stage,
		Position: position,
		Status:   StageStatusPending,
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO stage_runs (id, run_id, stage, position, status) VALUES (?, ?, ?, ?, ?)`,
		sr.ID, sr.RunID, sr.Stage, sr.Position, string(sr.Status),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create stage run %s: %w", stage, err)
	}
	return sr, nil
}

// UpdateStageRun moves a stage to status. Entering running stamps the start
// time; entering a terminal status stamps the completion time.
func (s *Store) UpdateStageRun(ctx context.Context, id string, status StageStatus, errMsg, details string) error {
	if s.db == nil {
		return errNotOpened
	}
	now := time.Now().UTC()

	var res sql.Result
	var err error
	switch {
	case status == StageStatusRunning:
		res, err = s.db.ExecContext(ctx,
			`UPDATE stage_runs SET status = ?, started_at = ? WHERE id = ?`,
			string(status), now, id)
	case status.Terminal():
		res, err = s.db.ExecContext(ctx,
			`UPDATE stage_runs SET status = ?, completed_at = ?, error = ?, details = ? WHERE id = ?`,
			string(status), now, nullString(errMsg), nullString(details), id)
	default:
		res, err = s.db.ExecContext(ctx,
			`UPDATE stage_runs SET status = ? WHERE id = ?`,
			string(status), id)
	}
	if err != nil {
		return fmt.Errorf("failed to update stage run: %w", err)
	}
	return requireRow(res, "stage run", id)
}

// ListStageRuns returns a run's stages in execution order.
func (s *Store) ListStageRuns(ctx context.Context, runID string) ([]*StageRun, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+stageColumns+` FROM stage_runs WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stage runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*StageRun
	for rows.Next() {
		sr := &StageRun{}
		var status string
		var startedAt, completedAt sql.NullTime
		var errMsg, details sql.NullString
		if err := rows.Scan(&sr.ID, &sr.RunID, &sr.Stage, &sr.Position, &status, &startedAt, &completedAt, &errMsg, &details); err != nil {
			return nil, fmt.Errorf("failed to scan stage run: %w", err)
		}
		sr.Status = StageStatus(status)
		if startedAt.Valid {
			t := startedAt.Time
			sr.StartedAt = &t
		}
		if completedAt.Valid {
			t := completedAt.Time
			sr.CompletedAt = &t
		}
		sr.Error = errMsg.String
		sr.Details = details.String
		out = append(out, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stage runs: %w", err)
	}
	return out, nil
}
