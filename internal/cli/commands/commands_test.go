package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/zonehop/internal/cli/config"
	"github.com/leapstack-labs/zonehop/internal/cli/output"
	"github.com/leapstack-labs/zonehop/internal/cluster"
	"github.com/leapstack-labs/zonehop/internal/pipeline"
	"github.com/leapstack-labs/zonehop/internal/state"
	"github.com/leapstack-labs/zonehop/internal/storage"
	"github.com/leapstack-labs/zonehop/internal/testutil"
	"github.com/leapstack-labs/zonehop/internal/validate"
)

func TestNewRunCommand(t *testing.T) {
	cmd := NewRunCommand()

	assert.Equal(t, "run", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")

	flags := []string{"app-config-path", "dataset-path", "dataset-name", "spark-config-path", "final-code-path"}
	for _, flag := range flags {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestNewValidateCommand(t *testing.T) {
	cmd := NewValidateCommand()

	assert.Equal(t, "validate", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")

	for _, flag := range []string{"reference", "candidate", "type"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestNewRunsCommand(t *testing.T) {
	cmd := NewRunsCommand()

	assert.Equal(t, "runs", cmd.Use)
	names := make([]string, 0, len(cmd.Commands()))
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"list", "show"}, names)

	list, _, err := cmd.Find([]string{"list"})
	require.NoError(t, err)
	assert.NotNil(t, list.Flags().Lookup("limit"))
}

func TestParseTypeFlags(t *testing.T) {
	tests := []struct {
		name    string
		values  []string
		want    []validate.ColumnTypeSpec
		wantErr string
	}{
		{
			name: "sorted by column",
			values: []string{"email=StringType", "amount=DecimalType,2", "tags=ArrayType-StringType"},
			want: []validate.ColumnTypeSpec{
				{Column: "amount", Kind: validate.KindDecimal, Precision: 2},
				{Column: "email", Kind: validate.KindString},
				{Column: "tags", Kind: validate.KindStringArray},
			},
		},
		{name: "none", values: nil, want: []validate.ColumnTypeSpec{}},
		{name: "missing equals", values: []string{"amount"}, wantErr: "want column=Kind"},
		{name: "duplicate column", values: []string{"a=StringType", "a=StringType"}, wantErr: "declared twice"},
		{name: "unknown kind", values: []string{"a=IntType"}, wantErr: "unknown type"},
		{name: "decimal without precision", values: []string{"a=DecimalType"}, wantErr: "requires a precision"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTypeFlags(tt.values)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type testRow struct {
	ID     int64   `parquet:"name=id, type=INT64"`
	Email  *string `parquet:"name=email, type=BYTE_ARRAY, convertedtype=UTF8"`
	Amount *int64  `parquet:"name=amount, type=INT64, convertedtype=DECIMAL, scale=2, precision=10"`
}

func testRows(n, nullEmails int) []testRow {
	rows := make([]testRow, n)
	for i := range rows {
		amount := int64(i*100 + 7)
		rows[i] = testRow{ID: int64(i), Amount: &amount}
		if i >= nullEmails {
			email := fmt.Sprintf("user%d@example.com", i)
			rows[i].Email = &email
		}
	}
	return rows
}

// cliEnv is a workspace with a local object store rooted in a temp dir.
type cliEnv struct {
	cfg   *config.Config
	store *storage.LocalStore
	out   *bytes.Buffer
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		StatePath: filepath.Join(dir, "state", "state.db"),
		Output:    config.OutputJSON,
		Storage:   storage.Config{LocalRoot: filepath.Join(dir, "objects")},
		Reader:    config.ReaderConfig{Type: "parquet", Concurrency: 2},
	}
	return &cliEnv{
		cfg:   cfg,
		store: storage.NewLocalStore(cfg.Storage.LocalRoot),
		out:   new(bytes.Buffer),
	}
}

// execute runs cmd with the environment's config, logger and a JSON renderer.
func (e *cliEnv) execute(t *testing.T, cmd *cobra.Command, args ...string) error {
	t.Helper()
	e.out.Reset()
	ctx := config.WithConfig(context.Background(), e.cfg)
	ctx = config.WithLogger(ctx, testutil.NewTestLoggerWithLevel(t, slog.LevelInfo))
	ctx = output.WithRenderer(ctx, output.NewRendererWithTTY(e.out, new(bytes.Buffer), false, output.ModeJSON))
	// The root command silences usage and errors; mirror that here.
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetOut(e.out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func (e *cliEnv) put(t *testing.T, bucket, key string, data []byte) {
	t.Helper()
	require.NoError(t, e.store.PutObject(context.Background(), bucket, key, data))
}

func TestValidateCommand(t *testing.T) {
	e := newCLIEnv(t)
	e.put(t, "raw", "sales/part-0.parquet", testutil.ParquetBytes(t, testRows(50, 0)))
	e.put(t, "land", "sales/part-0.parquet", testutil.ParquetBytes(t, testRows(50, 0)))
	e.put(t, "lossy", "sales/part-0.parquet", testutil.ParquetBytes(t, testRows(50, 1)))

	t.Run("parity with declared types", func(t *testing.T) {
		err := e.execute(t, NewValidateCommand(),
			"--reference", "file://raw/sales", "--candidate", "file://land/sales",
			"--type", "amount=DecimalType,2", "--type", "email=StringType")
		require.NoError(t, err)

		var report validate.Report
		require.NoError(t, json.Unmarshal(e.out.Bytes(), &report))
		assert.True(t, report.Passed)
		assert.Equal(t, "file://raw/sales", report.Reference)
		require.Len(t, report.Results, 2)
		assert.Equal(t, validate.CheckCounts, report.Results[0].Check)
		assert.Equal(t, validate.CheckDatatypes, report.Results[1].Check)
	})

	t.Run("count mismatch", func(t *testing.T) {
		err := e.execute(t, NewValidateCommand(),
			"--reference", "file://raw/sales", "--candidate", "file://lossy/sales")
		require.ErrorIs(t, err, validate.ErrCountMismatch)

		var mismatch *validate.CountMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, "email", mismatch.Column)
		assert.Equal(t, 50, mismatch.Reference)
		assert.Equal(t, 49, mismatch.Candidate)

		var report validate.Report
		require.NoError(t, json.Unmarshal(e.out.Bytes(), &report))
		assert.False(t, report.Passed)
	})

	t.Run("type mismatch", func(t *testing.T) {
		err := e.execute(t, NewValidateCommand(),
			"--reference", "file://raw/sales", "--candidate", "file://land/sales",
			"--type", "amount=DecimalType,3")
		require.ErrorIs(t, err, validate.ErrTypeMismatch)
	})

	t.Run("bad type flag", func(t *testing.T) {
		err := e.execute(t, NewValidateCommand(),
			"--reference", "file://raw/sales", "--candidate", "file://land/sales",
			"--type", "amount")
		assert.ErrorContains(t, err, "want column=Kind")
	})

	t.Run("bad uri", func(t *testing.T) {
		err := e.execute(t, NewValidateCommand(), "--reference", "raw/sales", "--candidate", "file://land/sales")
		assert.Error(t, err)
	})
}

// stubJobs records the job request and returns a fixed session.
type stubJobs struct {
	req cluster.JobRequest
	err error
}

func (s *stubJobs) Run(_ context.Context, req cluster.JobRequest) (*cluster.Session, error) {
	s.req = req
	if s.err != nil {
		return nil, s.err
	}
	return &cluster.Session{ClusterID: "j-1", SessionID: "0", StatementID: "1"}, nil
}

func stubJobRunner(t *testing.T, jobs pipeline.JobRunner) {
	t.Helper()
	prev := newJobRunner
	newJobRunner = func(context.Context, *config.Config, *slog.Logger) (pipeline.JobRunner, error) {
		return jobs, nil
	}
	t.Cleanup(func() { newJobRunner = prev })
}

const zonesJSON = `{
  "ingest-dataset": {
    "source":      {"data-location": "file://land/ds"},
    "destination": {"data-location": "file://raw/ds"}
  },
  "masked-dataset": {
    "source":      {"data-location": "file://raw/masked"},
    "destination": {"data-location": "file://staging/masked"},
    "transformation-cols": {"amount": "DecimalType,2", "email": "StringType"}
  }
}`

func seedHop(t *testing.T, e *cliEnv) {
	t.Helper()
	rows := testutil.ParquetBytes(t, testRows(20, 2))
	e.put(t, "conf", "zones.json", []byte(zonesJSON))
	e.put(t, "land", "ds/2024/01/sales/part-00000.parquet", rows)
	e.put(t, "raw", "masked/2024/01/part-00000.parquet", rows)
	e.put(t, "staging", "masked/2024/01/part-00000.parquet", rows)
}

var runArgs = []string{
	"--app-config-path", "file://conf/zones.json",
	"--dataset-path", "2024/01/sales",
	"--dataset-name", "sales",
	"--final-code-path", "file://code/transform.py",
}

func TestRunCommand(t *testing.T) {
	e := newCLIEnv(t)
	seedHop(t, e)
	jobs := &stubJobs{}
	stubJobRunner(t, jobs)

	require.NoError(t, e.execute(t, NewRunCommand(), runArgs...))

	var summary pipeline.RunSummary
	require.NoError(t, json.Unmarshal(e.out.Bytes(), &summary))
	assert.Equal(t, state.RunStatusCompleted, summary.Status)
	require.Len(t, summary.Stages, len(pipeline.Stages()))
	assert.Equal(t, "sales", jobs.req.DatasetName)
	assert.Equal(t, "file://code/transform.py", jobs.req.CodePath)

	// The run is recorded and visible through the runs commands.
	require.NoError(t, e.execute(t, NewRunsCommand(), "list"))
	var runs []state.Run
	require.NoError(t, json.Unmarshal(e.out.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, summary.RunID, runs[0].ID)
	assert.Equal(t, state.RunStatusCompleted, runs[0].Status)
}

func TestRunCommand_JobFailure(t *testing.T) {
	e := newCLIEnv(t)
	seedHop(t, e)
	stubJobRunner(t, &stubJobs{err: &cluster.JobError{StatementID: "1", Remote: &cluster.RemoteError{Name: "ValueError", Value: "boom"}}})

	err := e.execute(t, NewRunCommand(), runArgs...)
	var stageErr *pipeline.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, pipeline.StageSubmit, stageErr.Stage)

	var summary pipeline.RunSummary
	require.NoError(t, json.Unmarshal(e.out.Bytes(), &summary))
	assert.Equal(t, state.RunStatusFailed, summary.Status)
}

func TestRunCommand_MissingParams(t *testing.T) {
	e := newCLIEnv(t)
	err := e.execute(t, NewRunCommand(), "--dataset-name", "sales")
	assert.ErrorIs(t, err, pipeline.ErrInvalidParams)
	assert.Empty(t, e.out.String())
}

func TestRunsCommands(t *testing.T) {
	e := newCLIEnv(t)
	ctx := context.Background()

	store := state.NewStore(nil)
	require.NoError(t, store.Open(e.cfg.StatePath))
	run, err := store.CreateRun(ctx, state.RunParams{DatasetName: "sales", DatasetPath: "2024/01", ConfigPath: "s3://conf/zones.json"})
	require.NoError(t, err)
	stages, err := store.CreateStageRuns(ctx, run.ID, pipeline.Stages())
	require.NoError(t, err)
	require.NoError(t, store.UpdateStageRun(ctx, stages[0].ID, state.StageStatusSuccess, "", ""))
	require.NoError(t, store.CompleteRun(ctx, run.ID, state.RunStatusFailed, "stage copy failed: boom"))
	require.NoError(t, store.Close())

	t.Run("list", func(t *testing.T) {
		require.NoError(t, e.execute(t, NewRunsCommand(), "list", "--limit", "5"))
		var runs []state.Run
		require.NoError(t, json.Unmarshal(e.out.Bytes(), &runs))
		require.Len(t, runs, 1)
		assert.Equal(t, run.ID, runs[0].ID)
		assert.Equal(t, state.RunStatusFailed, runs[0].Status)
	})

	t.Run("show", func(t *testing.T) {
		require.NoError(t, e.execute(t, NewRunsCommand(), "show", run.ID))
		var got struct {
			ID     string           `json:"id"`
			Error  string           `json:"error"`
			Stages []state.StageRun `json:"stages"`
		}
		require.NoError(t, json.Unmarshal(e.out.Bytes(), &got))
		assert.Equal(t, run.ID, got.ID)
		assert.Equal(t, "stage copy failed: boom", got.Error)
		require.Len(t, got.Stages, len(pipeline.Stages()))
		assert.Equal(t, state.StageStatusSuccess, got.Stages[0].Status)
		assert.Equal(t, state.StageStatusPending, got.Stages[1].Status)
	})

	t.Run("show unknown", func(t *testing.T) {
		err := e.execute(t, NewRunsCommand(), "show", "nope")
		assert.ErrorContains(t, err, "run nope not found")
	})

	t.Run("show requires id", func(t *testing.T) {
		err := e.execute(t, NewRunsCommand(), "show")
		assert.Error(t, err)
	})
}

func TestCommands_RequireConfig(t *testing.T) {
	cmd := NewRunsCommand()
	cmd.SetArgs([]string{"list"})
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	assert.ErrorContains(t, cmd.Execute(), "configuration not loaded")
}
