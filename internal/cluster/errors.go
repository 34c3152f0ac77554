package cluster

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the job lifecycle. Detail types below unwrap to them.
var (
	ErrProvision        = errors.New("cluster provisioning failed")
	ErrProvisionTimeout = errors.New("cluster not ready before timeout")
	ErrSubmission       = errors.New("statement submission failed")
	ErrJobFailed        = errors.New("remote job failed")
)

// ProvisionError reports a rejected cluster request or a cluster that
// terminated before becoming ready.
type ProvisionError struct {
	ClusterID string
	Reason    string
	Err       error
}

func (e *ProvisionError) Error() string {
	var b strings.Builder
	b.WriteString("provision cluster")
	if e.ClusterID != "" {
		b.WriteString(" " + e.ClusterID)
	}
	if e.Reason != "" {
		b.WriteString(": " + e.Reason)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *ProvisionError) Is(target error) bool { return target == ErrProvision }

func (e *ProvisionError) Unwrap() error { return e.Err }

// RemoteError is the error payload reported by the remote job itself.
type RemoteError struct {
	Name      string   `json:"name" yaml:"name"`
	Value     string   `json:"value" yaml:"value"`
	Traceback []string `json:"traceback,omitempty" yaml:"traceback,omitempty"`
}

func (e *RemoteError) Error() string {
	if e.Value == "" {
		return e.Name
	}
	return e.Name + ": " + e.Value
}

// JobError reports a statement that finished unsuccessfully or could no
// longer be observed. Remote is set when the job reported its own failure.
type JobError struct {
	StatementID string
	Remote      *RemoteError
	Err         error
}

func (e *JobError) Error() string {
	switch {
	case e.Remote != nil:
		return fmt.Sprintf("statement %s failed: %s", e.StatementID, e.Remote.Error())
	case e.Err != nil:
		return fmt.Sprintf("statement %s: %v", e.StatementID, e.Err)
	default:
		return fmt.Sprintf("statement %s failed", e.StatementID)
	}
}

func (e *JobError) Is(target error) bool { return target == ErrJobFailed }

func (e *JobError) Unwrap() error {
	if e.Remote != nil {
		return e.Remote
	}
	return e.Err
}
