package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/zonehop/internal/cli/config"
	"github.com/leapstack-labs/zonehop/internal/cli/output"
	"github.com/leapstack-labs/zonehop/internal/cluster"
	"github.com/leapstack-labs/zonehop/internal/cluster/emr"
	"github.com/leapstack-labs/zonehop/internal/cluster/livy"
	"github.com/leapstack-labs/zonehop/internal/dataset"
	"github.com/leapstack-labs/zonehop/internal/metrics"
	"github.com/leapstack-labs/zonehop/internal/metrics/prompush"
	"github.com/leapstack-labs/zonehop/internal/pipeline"
	"github.com/leapstack-labs/zonehop/internal/state"
	"github.com/leapstack-labs/zonehop/internal/storage"
	"github.com/spf13/cobra"

	// Register dataset readers.
	_ "github.com/leapstack-labs/zonehop/internal/dataset/duckdb"
	_ "github.com/leapstack-labs/zonehop/internal/dataset/parquet"
)

// newJobRunner builds the cluster job runner. Tests replace it to avoid AWS.
var newJobRunner = func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (pipeline.JobRunner, error) {
	provisioner, err := emr.NewFromEnv(ctx, cfg.Cluster.Region, logger)
	if err != nil {
		return nil, err
	}
	sessions := livy.New(livy.Config{
		Scheme:     cfg.Livy.Scheme,
		Port:       cfg.Livy.Port,
		Timeout:    cfg.Livy.RequestTimeout,
		MaxRetries: cfg.Livy.MaxRetries,
		RateLimit:  cfg.Livy.RateLimit,
		Logger:     logger,
	})
	return cluster.NewClient(provisioner, sessions, clusterOptions(cfg, logger)), nil
}

func clusterOptions(cfg *config.Config, logger *slog.Logger) cluster.Options {
	c := cfg.Cluster
	return cluster.Options{
		Cluster: cluster.Spec{
			Region:       c.Region,
			Name:         c.Name,
			WorkerCount:  c.WorkerCount,
			ReleaseLabel: c.ReleaseLabel,
			InstanceType: c.InstanceType,
			ServiceRole:  c.ServiceRole,
			JobFlowRole:  c.JobFlowRole,
			LogURI:       c.LogURI,
			SubnetID:     c.SubnetID,
		},
		SessionKind:        cfg.Livy.SessionKind,
		ReadyTimeout:       c.ReadyTimeout,
		JobTimeout:         c.JobTimeout,
		PollInterval:       c.PollInterval,
		MaxPollInterval:    c.MaxPollInterval,
		MaxTransientErrors: c.MaxTransientErrors,
		KeepAlive:          c.KeepAlive,
		Logger:             logger,
	}
}

// env is the per-command environment resolved from the context.
type env struct {
	cfg      *config.Config
	logger   *slog.Logger
	renderer *output.Renderer
}

func resolveEnv(cmd *cobra.Command) (*env, error) {
	ctx := cmd.Context()
	cfg := config.GetConfig(ctx)
	if cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	return &env{cfg: cfg, logger: config.GetLogger(ctx), renderer: output.FromContext(ctx)}, nil
}

// readerStack is the storage router plus the dataset reader built over it.
type readerStack struct {
	stores *storage.Router
	reader dataset.Reader
}

func (s *readerStack) Close() error {
	if s.reader == nil {
		return nil
	}
	return s.reader.Close()
}

func openReaderStack(e *env) (*readerStack, error) {
	stores, err := storage.NewDefaultRouter(e.cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to configure storage: %w", err)
	}
	reader, err := dataset.NewReader(e.cfg.Reader.Type, dataset.Deps{
		Stores:      stores,
		Logger:      e.logger,
		Concurrency: e.cfg.Reader.Concurrency,
		Params:      e.cfg.Reader.Params,
		Database:    e.cfg.Reader.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s reader: %w", e.cfg.Reader.Type, err)
	}
	return &readerStack{stores: stores, reader: reader}, nil
}

func openHistory(e *env) (*state.Store, error) {
	store := state.NewStore(e.logger)
	if err := store.Open(e.cfg.StatePath); err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	return store, nil
}

func metricsBackend(e *env) (metrics.Backend, error) {
	if e.cfg.Metrics.PushgatewayURL == "" {
		return metrics.Nop(), nil
	}
	b, err := prompush.NewBackend(e.cfg.Metrics.Job, e.cfg.Metrics.PushgatewayURL)
	if err != nil {
		return nil, fmt.Errorf("failed to configure metrics: %w", err)
	}
	return b, nil
}
