package cluster

import (
	"context"
	"errors"
	"sync"
	"time"
)

// fakeProvisioner replays a scripted sequence of DescribeCluster results.
// The last entry repeats once the script is exhausted.
type fakeProvisioner struct {
	mu         sync.Mutex
	createErr  error
	describe   []describeStep
	calls      int
	created    []Spec
	terminated []string
}

type describeStep struct {
	status ClusterStatus
	err    error
}

func (f *fakeProvisioner) CreateCluster(_ context.Context, spec Spec) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, spec)
	return "j-TEST", nil
}

func (f *fakeProvisioner) DescribeCluster(context.Context, string) (ClusterStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := min(f.calls, len(f.describe)-1)
	f.calls++
	return f.describe[i].status, f.describe[i].err
}

func (f *fakeProvisioner) TerminateCluster(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	f.terminated = append(f.terminated, id)
	return nil
}

func (f *fakeProvisioner) terminatedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.terminated...)
}

// fakeSessions replays scripted session and statement observations.
type fakeSessions struct {
	mu         sync.Mutex
	openErr    error
	submitErr  error
	sessions   []SessionPhase
	statements []statementStep
	sCalls     int
	stCalls    int
	code       string
	closed     []string
	// block makes StatementStatus wait for context cancellation.
	block bool
}

type statementStep struct {
	status StatementStatus
	err    error
}

func (f *fakeSessions) OpenSession(context.Context, string, string) (string, error) {
	if f.openErr != nil {
		return "", f.openErr
	}
	return "7", nil
}

func (f *fakeSessions) SessionState(context.Context, string, string) (SessionPhase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sessions) == 0 {
		return SessionIdle, nil
	}
	i := min(f.sCalls, len(f.sessions)-1)
	f.sCalls++
	return f.sessions[i], nil
}

func (f *fakeSessions) SubmitStatement(_ context.Context, _, _, code string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.code = code
	return "0", nil
}

func (f *fakeSessions) StatementStatus(ctx context.Context, _, _, _ string) (StatementStatus, error) {
	if f.block {
		<-ctx.Done()
		return StatementStatus{}, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := min(f.stCalls, len(f.statements)-1)
	f.stCalls++
	return f.statements[i].status, f.statements[i].err
}

func (f *fakeSessions) CloseSession(_ context.Context, _, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, id)
	return nil
}

func (f *fakeSessions) statementPolls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stCalls
}

var errFlaky = errors.New("connection reset by peer")

func ready(addr string) describeStep {
	return describeStep{status: ClusterStatus{Phase: ClusterReady, Address: addr}}
}

func starting() describeStep {
	return describeStep{status: ClusterStatus{Phase: ClusterStarting}}
}

func running() statementStep {
	return statementStep{status: StatementStatus{Phase: StatementRunning}}
}

func succeeded() statementStep {
	return statementStep{status: StatementStatus{Phase: StatementSucceeded}}
}

func fastOptions() Options {
	return Options{
		Cluster:            Spec{Region: "eu-west-1", Name: "zonehop-test", WorkerCount: 2},
		ReadyTimeout:       time.Second,
		PollInterval:       time.Millisecond,
		MaxPollInterval:    2 * time.Millisecond,
		MaxTransientErrors: 2,
	}
}
