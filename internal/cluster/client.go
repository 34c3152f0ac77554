// Package cluster drives one remote transformation job from cluster request
// to completion: provisioning, readiness wait, statement submission and
// completion polling. Run wraps the whole lifetime so the cluster is
// released on every exit path.
package cluster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Options configures a Client.
type Options struct {
	Cluster         Spec
	SessionKind     string
	ReadyTimeout    time.Duration
	JobTimeout      time.Duration
	PollInterval    time.Duration
	MaxPollInterval time.Duration
	// MaxTransientErrors is the number of consecutive failed polls tolerated
	// before a phase gives up.
	MaxTransientErrors int
	KeepAlive          bool
	TeardownTimeout    time.Duration
	Logger             *slog.Logger
}

func (o *Options) setDefaults() {
	if o.SessionKind == "" {
		o.SessionKind = "pyspark"
	}
	if o.ReadyTimeout <= 0 {
		o.ReadyTimeout = 30 * time.Minute
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 15 * time.Second
	}
	if o.MaxPollInterval < o.PollInterval {
		o.MaxPollInterval = o.PollInterval
	}
	if o.MaxTransientErrors < 0 {
		o.MaxTransientErrors = 0
	}
	if o.TeardownTimeout <= 0 {
		o.TeardownTimeout = 5 * time.Minute
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
}

// Client is the job session client.
type Client struct {
	provisioner Provisioner
	sessions    SessionAPI
	opts        Options
	logger      *slog.Logger
}

// NewClient creates a client over the given cluster and session APIs.
func NewClient(p Provisioner, s SessionAPI, opts Options) *Client {
	opts.setDefaults()
	return &Client{
		provisioner: p,
		sessions:    s,
		opts:        opts,
		logger:      opts.Logger.With("component", "cluster"),
	}
}

func (c *Client) settings(timeout time.Duration) pollSettings {
	return pollSettings{
		interval:     c.opts.PollInterval,
		maxInterval:  c.opts.MaxPollInterval,
		maxTransient: c.opts.MaxTransientErrors,
		timeout:      timeout,
	}
}

// ProvisionCluster requests a new cluster and returns its id. The configured
// Spec supplies everything except region, name and worker count.
func (c *Client) ProvisionCluster(ctx context.Context, region, name string, workerCount int) (string, error) {
	if workerCount < 1 {
		return "", &ProvisionError{Reason: fmt.Sprintf("worker count must be at least 1, got %d", workerCount)}
	}
	spec := c.opts.Cluster
	spec.Region, spec.Name, spec.WorkerCount = region, name, workerCount

	id, err := c.provisioner.CreateCluster(ctx, spec)
	if err != nil {
		return "", &ProvisionError{Reason: "request rejected", Err: err}
	}
	c.logger.Info("cluster requested", "cluster_id", id, "name", name, "region", region, "workers", workerCount)
	return id, nil
}

// AwaitClusterReady blocks until the cluster reports ready and returns its
// address. A cluster that terminates first fails with a *ProvisionError;
// one still starting after ReadyTimeout fails with ErrProvisionTimeout.
func (c *Client) AwaitClusterReady(ctx context.Context, clusterID string) (string, error) {
	addr, err := poll(ctx, c.settings(c.opts.ReadyTimeout), c.logger, "cluster_ready",
		func(ctx context.Context) (string, error) {
			st, err := c.provisioner.DescribeCluster(ctx, clusterID)
			if err != nil {
				return "", err
			}
			switch st.Phase {
			case ClusterReady:
				if st.Address == "" {
					return "", errPending
				}
				return st.Address, nil
			case ClusterTerminated:
				return "", backoff.Permanent(&ProvisionError{ClusterID: clusterID, Reason: "terminated before ready: " + st.Reason})
			default:
				c.logger.Debug("cluster starting", "cluster_id", clusterID)
				return "", errPending
			}
		})
	if err == nil {
		c.logger.Info("cluster ready", "cluster_id", clusterID, "address", addr)
		return addr, nil
	}

	var pe *ProvisionError
	switch {
	case errors.As(err, &pe):
		return "", err
	case ctx.Err() != nil:
		return "", fmt.Errorf("await cluster %s: %w", clusterID, err)
	default:
		return "", fmt.Errorf("%w: cluster %s after %s: %w", ErrProvisionTimeout, clusterID, c.opts.ReadyTimeout, err)
	}
}

// SubmitStatement opens an interactive session on the cluster at address,
// waits for it to accept work and submits the job statement.
func (c *Client) SubmitStatement(ctx context.Context, address string, req JobRequest) (*Session, error) {
	code, err := RenderStatement(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSubmission, err)
	}

	sessionID, err := c.sessions.OpenSession(ctx, address, c.opts.SessionKind)
	if err != nil {
		return nil, fmt.Errorf("%w: open session on %s: %w", ErrSubmission, address, err)
	}
	sess := &Session{Address: address, SessionID: sessionID, State: StateSubmitting}
	c.logger.Info("session opened", "address", address, "session_id", sessionID)

	_, err = poll(ctx, c.settings(c.opts.ReadyTimeout), c.logger, "session_start",
		func(ctx context.Context) (struct{}, error) {
			phase, err := c.sessions.SessionState(ctx, address, sessionID)
			if err != nil {
				return struct{}{}, err
			}
			switch phase {
			case SessionIdle:
				return struct{}{}, nil
			case SessionDead:
				return struct{}{}, backoff.Permanent(fmt.Errorf("session %s died before accepting work", sessionID))
			default:
				return struct{}{}, errPending
			}
		})
	if err != nil {
		if ctx.Err() != nil {
			return sess, fmt.Errorf("await session %s: %w", sessionID, err)
		}
		return sess, fmt.Errorf("%w: session %s: %w", ErrSubmission, sessionID, err)
	}

	statementID, err := c.sessions.SubmitStatement(ctx, address, sessionID, code)
	if err != nil {
		return sess, fmt.Errorf("%w: session %s rejected statement: %w", ErrSubmission, sessionID, err)
	}
	sess.StatementID = statementID
	sess.State = StateRunning
	c.logger.Info("statement submitted", "session_id", sessionID, "statement_id", statementID, "dataset", req.DatasetName)
	return sess, nil
}

// AwaitCompletion polls the session's statement until it finishes. A
// failed statement returns StateFailed and a *JobError carrying the remote
// error payload.
func (c *Client) AwaitCompletion(ctx context.Context, sess *Session) (State, error) {
	st, err := poll(ctx, c.settings(c.opts.JobTimeout), c.logger, "completion",
		func(ctx context.Context) (StatementStatus, error) {
			st, err := c.sessions.StatementStatus(ctx, sess.Address, sess.SessionID, sess.StatementID)
			if err != nil {
				return st, err
			}
			switch st.Phase {
			case StatementSucceeded, StatementFailed:
				return st, nil
			default:
				return st, errPending
			}
		})
	switch {
	case err == nil && st.Phase == StatementSucceeded:
		c.transition(sess, StateSucceeded)
		return sess.State, nil
	case err == nil:
		c.transition(sess, StateFailed)
		sess.Remote = st.Remote
		c.logger.Error("statement failed", "statement_id", sess.StatementID, "error", st.Remote)
		return sess.State, &JobError{StatementID: sess.StatementID, Remote: st.Remote}
	case ctx.Err() != nil:
		return sess.State, fmt.Errorf("await statement %s: %w", sess.StatementID, err)
	default:
		c.transition(sess, StateFailed)
		return sess.State, &JobError{StatementID: sess.StatementID, Err: err}
	}
}

// Terminate releases the cluster.
func (c *Client) Terminate(ctx context.Context, clusterID string) error {
	if err := c.provisioner.TerminateCluster(ctx, clusterID); err != nil {
		return fmt.Errorf("terminate cluster %s: %w", clusterID, err)
	}
	c.logger.Info("cluster terminated", "cluster_id", clusterID)
	return nil
}

// Run provisions a cluster, submits req and waits for it to finish. The
// returned session is never nil. The cluster is released when Run returns,
// including on panic and cancellation, unless KeepAlive is set.
func (c *Client) Run(ctx context.Context, req JobRequest) (sess *Session, err error) {
	sess = &Session{State: StateRequested, StartedAt: time.Now().UTC()}
	c.transition(sess, StateRequested)
	defer func() {
		if err != nil && !sess.State.Terminal() {
			c.transition(sess, StateFailed)
		}
		sess.FinishedAt = time.Now().UTC()
	}()

	spec := c.opts.Cluster
	clusterID, err := c.ProvisionCluster(ctx, spec.Region, spec.Name, spec.WorkerCount)
	if err != nil {
		return sess, err
	}
	sess.ClusterID = clusterID
	defer c.release(ctx, sess)
	c.transition(sess, StateProvisioning)

	addr, err := c.AwaitClusterReady(ctx, clusterID)
	if err != nil {
		return sess, err
	}
	sess.Address = addr
	c.transition(sess, StateReady)

	c.transition(sess, StateSubmitting)
	submitted, err := c.SubmitStatement(ctx, addr, req)
	if submitted != nil {
		sess.SessionID = submitted.SessionID
		sess.StatementID = submitted.StatementID
	}
	if err != nil {
		return sess, err
	}
	c.transition(sess, StateRunning)

	_, err = c.AwaitCompletion(ctx, sess)
	return sess, err
}

// release closes the session and terminates the cluster with a context
// that outlives the caller's cancellation.
func (c *Client) release(parent context.Context, sess *Session) {
	if c.opts.KeepAlive {
		c.logger.Warn("keeping cluster alive", "cluster_id", sess.ClusterID)
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), c.opts.TeardownTimeout)
	defer cancel()

	if sess.SessionID != "" {
		if err := c.sessions.CloseSession(ctx, sess.Address, sess.SessionID); err != nil {
			c.logger.Warn("failed to close session", "session_id", sess.SessionID, "error", err)
		}
	}
	if err := c.Terminate(ctx, sess.ClusterID); err != nil {
		c.logger.Error("failed to release cluster", "cluster_id", sess.ClusterID, "error", err)
	}
}

func (c *Client) transition(sess *Session, to State) {
	from := sess.State
	sess.State = to
	c.logger.Info("job state", "from", from, "to", to, "cluster_id", sess.ClusterID)
}
