package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

var (
	logLevels   = []string{"debug", "info", "warn", "error"}
	logFormats  = []string{"text", "json"}
	outputModes = []string{OutputAuto, OutputTable, OutputJSON, OutputYAML}
	readerTypes = []string{"parquet", "duckdb"}
)

// Validate checks if the configuration is valid. All problems are reported
// together.
func (c *Config) Validate() error {
	var errs []error

	if c.StatePath == "" {
		errs = append(errs, errors.New("state_path is required"))
	}
	if !slices.Contains(outputModes, c.Output) {
		errs = append(errs, fmt.Errorf("output must be one of %s, got %q", strings.Join(outputModes, "|"), c.Output))
	}
	if !slices.Contains(logLevels, strings.ToLower(c.Log.Level)) {
		errs = append(errs, fmt.Errorf("log.level must be one of %s, got %q", strings.Join(logLevels, "|"), c.Log.Level))
	}
	if !slices.Contains(logFormats, strings.ToLower(c.Log.Format)) {
		errs = append(errs, fmt.Errorf("log.format must be one of %s, got %q", strings.Join(logFormats, "|"), c.Log.Format))
	}
	if !slices.Contains(readerTypes, c.Reader.Type) {
		errs = append(errs, fmt.Errorf("reader.type must be one of %s, got %q", strings.Join(readerTypes, "|"), c.Reader.Type))
	}
	if c.Cluster.WorkerCount < 1 {
		errs = append(errs, fmt.Errorf("cluster.worker_count must be at least 1, got %d", c.Cluster.WorkerCount))
	}
	if c.Cluster.ReadyTimeout <= 0 {
		errs = append(errs, fmt.Errorf("cluster.ready_timeout must be positive, got %s", c.Cluster.ReadyTimeout))
	}
	if c.Cluster.JobTimeout < 0 {
		errs = append(errs, fmt.Errorf("cluster.job_timeout must not be negative, got %s", c.Cluster.JobTimeout))
	}
	if c.Cluster.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("cluster.poll_interval must be positive, got %s", c.Cluster.PollInterval))
	}
	if c.Cluster.MaxPollInterval <= 0 {
		errs = append(errs, fmt.Errorf("cluster.max_poll_interval must be positive, got %s", c.Cluster.MaxPollInterval))
	}
	if c.Cluster.MaxTransientErrors < 0 {
		errs = append(errs, fmt.Errorf("cluster.max_transient_errors must not be negative, got %d", c.Cluster.MaxTransientErrors))
	}

	return errors.Join(errs...)
}

// SlogLevel returns the configured log level.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
