package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/zonehop/internal/cli/output"
	"github.com/leapstack-labs/zonehop/internal/pipeline"
	"github.com/leapstack-labs/zonehop/internal/storage"
	"github.com/spf13/cobra"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	Params pipeline.Params
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Move a dataset through one zone hop",
		Long: `Run the hop pipeline for one dataset:

  1. load the zone configuration
  2. copy the dataset from the source zone to the destination zone
  3. compare per-column non-null counts across the copy
  4. run the transform job on a freshly provisioned cluster
  5. compare counts and declared column types across the transform

Stages run in order and the first failure skips the rest.`,
		Example: `  # Hop a monthly partition
  zonehop run --app-config-path s3://conf/zones.json \
    --dataset-path 2024/01 --dataset-name sales \
    --final-code-path s3://code/transform.py

  # JSON summary for scripting
  zonehop run ... -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Params.AppConfigPath, "app-config-path", "", "URI of the zone configuration document")
	cmd.Flags().StringVar(&opts.Params.DatasetPath, "dataset-path", "", "Dataset path relative to each zone root")
	cmd.Flags().StringVar(&opts.Params.DatasetName, "dataset-name", "", "Dataset name passed to the transform job")
	cmd.Flags().StringVar(&opts.Params.SparkConfigPath, "spark-config-path", "", "URI of the Spark configuration (optional)")
	cmd.Flags().StringVar(&opts.Params.FinalCodePath, "final-code-path", "", "URI of the transform code to run")

	return cmd
}

func runRun(cmd *cobra.Command, opts *RunOptions) error {
	e, err := resolveEnv(cmd)
	if err != nil {
		return err
	}
	if err := opts.Params.Validate(); err != nil {
		return err
	}
	ctx := cmd.Context()

	rs, err := openReaderStack(e)
	if err != nil {
		return err
	}
	defer func() { _ = rs.Close() }()

	history, err := openHistory(e)
	if err != nil {
		return err
	}
	defer func() { _ = history.Close() }()

	backend, err := metricsBackend(e)
	if err != nil {
		return err
	}
	jobs, err := newJobRunner(ctx, e.cfg, e.logger)
	if err != nil {
		return fmt.Errorf("failed to configure cluster: %w", err)
	}

	ctrl, err := pipeline.New(pipeline.Deps{
		Stores:        rs.stores,
		Copier:        storage.NewCopier(rs.stores, e.cfg.Reader.Concurrency, e.logger),
		Reader:        rs.reader,
		Jobs:          jobs,
		History:       history,
		Metrics:       backend,
		StrictDecimal: e.cfg.Validation.StrictDecimal,
		Logger:        e.logger,
	})
	if err != nil {
		return err
	}

	summary, runErr := ctrl.Run(ctx, opts.Params)
	if summary != nil {
		if err := e.renderer.Render(summary, func(w io.Writer) error {
			return renderRunSummary(w, summary)
		}); err != nil {
			return err
		}
	}
	return runErr
}

func renderRunSummary(w io.Writer, s *pipeline.RunSummary) error {
	rows := make([]table.Row, 0, len(s.Stages))
	for _, st := range s.Stages {
		dur := ""
		if st.Duration > 0 {
			dur = st.Duration.Round(time.Millisecond).String()
		}
		rows = append(rows, table.Row{st.Name, st.Status, dur, st.Error})
	}
	title := fmt.Sprintf("Run %s (%s): %s", s.RunID, s.Dataset, s.Status)
	output.Table(w, title, table.Row{"Stage", "Status", "Duration", "Error"}, rows)

	if s.Copy != nil {
		_, _ = fmt.Fprintf(w, "\nCopied %d objects from %s to %s\n", s.Copy.Objects, s.Copy.Source, s.Copy.Destination)
	}
	if s.PreValidation != nil {
		_, _ = fmt.Fprintln(w)
		renderReport(w, "Pre-validation", s.PreValidation)
	}
	if s.Session != nil {
		_, _ = fmt.Fprintf(w, "\nCluster %s, session %s, statement %s\n", s.Session.ClusterID, s.Session.SessionID, s.Session.StatementID)
	}
	if s.PostValidation != nil {
		_, _ = fmt.Fprintln(w)
		renderReport(w, "Post-validation", s.PostValidation)
	}
	return nil
}
