// Package config provides configuration management for the zonehop CLI.
//
// Configuration is layered with koanf; later layers override earlier ones:
// built-in defaults, the YAML config file, ZONEHOP_ environment variables
// and finally explicitly set command-line flags.
package config

import (
	"time"

	"github.com/leapstack-labs/zonehop/internal/storage"
)

// Config holds all CLI configuration options.
type Config struct {
	StatePath  string           `koanf:"state_path"`
	Output     string           `koanf:"output"`
	Log        LogConfig        `koanf:"log"`
	Storage    storage.Config   `koanf:"storage"`
	Reader     ReaderConfig     `koanf:"reader"`
	Cluster    ClusterConfig    `koanf:"cluster"`
	Livy       LivyConfig       `koanf:"livy"`
	Validation ValidationConfig `koanf:"validation"`
	Metrics    MetricsConfig    `koanf:"metrics"`
}

// LogConfig controls the root logger.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// ReaderConfig selects and configures the dataset reader.
type ReaderConfig struct {
	Type        string         `koanf:"type"`
	Concurrency int            `koanf:"concurrency"`
	Database    string         `koanf:"database"`
	Params      map[string]any `koanf:"params"`
}

// ClusterConfig describes the transform cluster and how it is polled.
type ClusterConfig struct {
	Region             string        `koanf:"region"`
	Name               string        `koanf:"name"`
	WorkerCount        int           `koanf:"worker_count"`
	ReleaseLabel       string        `koanf:"release_label"`
	InstanceType       string        `koanf:"instance_type"`
	ServiceRole        string        `koanf:"service_role"`
	JobFlowRole        string        `koanf:"job_flow_role"`
	LogURI             string        `koanf:"log_uri"`
	SubnetID           string        `koanf:"subnet_id"`
	ReadyTimeout       time.Duration `koanf:"ready_timeout"`
	JobTimeout         time.Duration `koanf:"job_timeout"`
	PollInterval       time.Duration `koanf:"poll_interval"`
	MaxPollInterval    time.Duration `koanf:"max_poll_interval"`
	MaxTransientErrors int           `koanf:"max_transient_errors"`
	KeepAlive          bool          `koanf:"keep_alive"`
}

// LivyConfig configures the session API client.
type LivyConfig struct {
	Port           int           `koanf:"port"`
	Scheme         string        `koanf:"scheme"`
	SessionKind    string        `koanf:"session_kind"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	RateLimit      float64       `koanf:"rate_limit"`
	MaxRetries     int           `koanf:"max_retries"`
}

// ValidationConfig tunes the validation checks.
type ValidationConfig struct {
	StrictDecimal bool `koanf:"strict_decimal"`
}

// MetricsConfig configures metrics export. An empty PushgatewayURL
// disables it.
type MetricsConfig struct {
	PushgatewayURL string `koanf:"pushgateway_url"`
	Job            string `koanf:"job"`
}

// Default configuration values.
const (
	DefaultStateFile = ".zonehop/state.db"
	DefaultOutput    = "auto" // Auto-detect: TTY=table, non-TTY=json
	DefaultReader    = "parquet"
	EnvPrefix        = "ZONEHOP_"
)

// Output modes.
const (
	OutputAuto  = "auto"
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
)

// defaults returns the built-in configuration layer.
func defaults() map[string]any {
	return map[string]any{
		"state_path":                   DefaultStateFile,
		"output":                       DefaultOutput,
		"log.level":                    "info",
		"log.format":                   "text",
		"storage.endpoint":             "s3.amazonaws.com",
		"storage.region":               "us-east-1",
		"storage.use_ssl":              true,
		"reader.type":                  DefaultReader,
		"reader.concurrency":           4,
		"cluster.region":               "us-east-1",
		"cluster.name":                 "zonehop-transform",
		"cluster.worker_count":         1,
		"cluster.release_label":        "emr-6.15.0",
		"cluster.instance_type":        "m5.xlarge",
		"cluster.service_role":         "EMR_DefaultRole",
		"cluster.job_flow_role":        "EMR_EC2_DefaultRole",
		"cluster.ready_timeout":        "30m",
		"cluster.job_timeout":          "0s",
		"cluster.poll_interval":        "15s",
		"cluster.max_poll_interval":    "1m",
		"cluster.max_transient_errors": 3,
		"cluster.keep_alive":           false,
		"livy.port":                    8998,
		"livy.scheme":                  "http",
		"livy.session_kind":            "pyspark",
		"livy.request_timeout":         "30s",
		"livy.rate_limit":              5.0,
		"livy.max_retries":             3,
		"validation.strict_decimal":    false,
		"metrics.job":                  "zonehop",
	}
}
