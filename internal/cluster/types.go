package cluster

import (
	"context"
	"time"
)

// State is the lifecycle state of one remote job.
type State string

// Job states. Succeeded and Failed are terminal.
const (
	StateRequested    State = "requested"
	StateProvisioning State = "provisioning"
	StateReady        State = "ready"
	StateSubmitting   State = "submitting"
	StateRunning      State = "running"
	StateSucceeded    State = "succeeded"
	StateFailed       State = "failed"
)

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Spec describes the cluster to request.
type Spec struct {
	Region       string
	Name         string
	WorkerCount  int
	ReleaseLabel string
	InstanceType string
	ServiceRole  string
	JobFlowRole  string
	LogURI       string
	SubnetID     string
}

// ClusterPhase is the provider-neutral view of a cluster's state.
type ClusterPhase string

const (
	ClusterStarting   ClusterPhase = "starting"
	ClusterReady      ClusterPhase = "ready"
	ClusterTerminated ClusterPhase = "terminated"
)

// ClusterStatus is one observation of a cluster.
type ClusterStatus struct {
	Phase   ClusterPhase
	Address string
	Reason  string
}

// Provisioner creates, observes and releases compute clusters.
type Provisioner interface {
	CreateCluster(ctx context.Context, spec Spec) (string, error)
	DescribeCluster(ctx context.Context, clusterID string) (ClusterStatus, error)
	TerminateCluster(ctx context.Context, clusterID string) error
}

// SessionPhase is the state of an interactive session.
type SessionPhase string

const (
	SessionStarting SessionPhase = "starting"
	SessionIdle     SessionPhase = "idle"
	SessionBusy     SessionPhase = "busy"
	SessionDead     SessionPhase = "dead"
)

// StatementPhase is the state of a submitted statement.
type StatementPhase string

const (
	StatementPending   StatementPhase = "pending"
	StatementRunning   StatementPhase = "running"
	StatementSucceeded StatementPhase = "succeeded"
	StatementFailed    StatementPhase = "failed"
)

// StatementStatus is one observation of a statement. Remote carries the
// job's own error payload when Phase is StatementFailed.
type StatementStatus struct {
	Phase  StatementPhase
	Remote *RemoteError
}

// SessionAPI drives interactive sessions on a ready cluster.
type SessionAPI interface {
	OpenSession(ctx context.Context, address, kind string) (string, error)
	SessionState(ctx context.Context, address, sessionID string) (SessionPhase, error)
	SubmitStatement(ctx context.Context, address, sessionID, code string) (string, error)
	StatementStatus(ctx context.Context, address, sessionID, statementID string) (StatementStatus, error)
	CloseSession(ctx context.Context, address, sessionID string) error
}

// JobRequest names the code and parameters of one transformation job.
type JobRequest struct {
	DatasetName     string
	DatasetPath     string
	SparkConfigPath string
	CodePath        string
}

// Session is the handle to one remote job.
type Session struct {
	ClusterID   string       `json:"cluster_id" yaml:"cluster_id"`
	Address     string       `json:"address,omitempty" yaml:"address,omitempty"`
	SessionID   string       `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	StatementID string       `json:"statement_id,omitempty" yaml:"statement_id,omitempty"`
	State       State        `json:"state" yaml:"state"`
	Remote      *RemoteError `json:"remote_error,omitempty" yaml:"remote_error,omitempty"`
	StartedAt   time.Time    `json:"started_at" yaml:"started_at"`
	FinishedAt  time.Time    `json:"finished_at,omitzero" yaml:"finished_at,omitempty"`
}
