package commands

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/zonehop/internal/cli/output"
	"github.com/leapstack-labs/zonehop/internal/state"
	"github.com/spf13/cobra"
)

// NewRunsCommand creates the runs command group.
func NewRunsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded pipeline runs",
	}
	cmd.AddCommand(newRunsListCommand(), newRunsShowCommand())
	return cmd
}

func newRunsListCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRunsList(cmd, limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list")
	return cmd
}

func newRunsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a run and its stages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunsShow(cmd, args[0])
		},
	}
}

func runRunsList(cmd *cobra.Command, limit int) error {
	e, err := resolveEnv(cmd)
	if err != nil {
		return err
	}
	store, err := openHistory(e)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if runs == nil {
		runs = []*state.Run{}
	}
	return e.renderer.Render(runs, func(w io.Writer) error {
		if len(runs) == 0 {
			_, _ = fmt.Fprintln(w, "No runs recorded.")
			return nil
		}
		rows := make([]table.Row, 0, len(runs))
		for _, r := range runs {
			rows = append(rows, table.Row{r.ID, r.DatasetName, r.DatasetPath, r.Status, formatTime(&r.StartedAt), runDuration(r)})
		}
		output.Table(w, "", table.Row{"Run", "Dataset", "Path", "Status", "Started", "Duration"}, rows)
		return nil
	})
}

// RunDetail is a run together with its stage records.
type RunDetail struct {
	state.Run `yaml:",inline"`
	Stages    []*state.StageRun `json:"stages" yaml:"stages"`
}

func runRunsShow(cmd *cobra.Command, id string) error {
	e, err := resolveEnv(cmd)
	if err != nil {
		return err
	}
	store, err := openHistory(e)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	run, err := store.GetRun(ctx, id)
	if errors.Is(err, state.ErrNotFound) {
		return fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return err
	}
	stages, err := store.ListStageRuns(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to list stages: %w", err)
	}

	detail := RunDetail{Run: *run, Stages: stages}
	return e.renderer.Render(detail, func(w io.Writer) error {
		_, _ = fmt.Fprintf(w, "Run:      %s\n", run.ID)
		_, _ = fmt.Fprintf(w, "Dataset:  %s (%s)\n", run.DatasetName, run.DatasetPath)
		_, _ = fmt.Fprintf(w, "Config:   %s\n", run.ConfigPath)
		_, _ = fmt.Fprintf(w, "Status:   %s\n", run.Status)
		_, _ = fmt.Fprintf(w, "Started:  %s\n", formatTime(&run.StartedAt))
		if run.Error != "" {
			_, _ = fmt.Fprintf(w, "Error:    %s\n", run.Error)
		}
		_, _ = fmt.Fprintln(w)

		rows := make([]table.Row, 0, len(stages))
		for _, s := range stages {
			rows = append(rows, table.Row{s.Position, s.Stage, s.Status, formatTime(s.StartedAt), formatTime(s.CompletedAt), s.Error})
		}
		output.Table(w, "", table.Row{"#", "Stage", "Status", "Started", "Completed", "Error"}, rows)
		return nil
	})
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}

func runDuration(r *state.Run) string {
	if r.CompletedAt == nil {
		return "-"
	}
	return r.CompletedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
}
