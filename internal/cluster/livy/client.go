// Package livy implements the interactive session API against an Apache
// Livy server running on the cluster's primary node.
package livy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/leapstack-labs/zonehop/internal/cluster"
)

// Config configures the Livy client.
type Config struct {
	// Scheme is "http" or "https" (default: http).
	Scheme string
	// Port Livy listens on (default: 8998).
	Port int
	// Timeout for individual requests (default: 30s).
	Timeout time.Duration
	// MaxRetries for failed requests (default: 3).
	MaxRetries int
	// RateLimit requests per second (default: 5).
	RateLimit float64
	// RateBurst maximum burst size (default: 2).
	RateBurst int
	// Transport allows injecting a custom HTTP transport (for tests).
	Transport http.RoundTripper
	Logger    *slog.Logger
}

// Client is a rate-limited, retrying Livy REST client.
type Client struct {
	cfg         Config
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      *slog.Logger
}

// New creates a Livy client.
func New(cfg Config) *Client {
	if cfg.Scheme == "" {
		cfg.Scheme = "http"
	}
	if cfg.Port == 0 {
		cfg.Port = 8998
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 5
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = 2
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		logger:      cfg.Logger.With("component", "livy"),
	}
}

// baseURL builds the server URL for a cluster address. An address that
// already carries a scheme is used as is.
func (c *Client) baseURL(address string) string {
	if strings.Contains(address, "://") {
		return strings.TrimSuffix(address, "/")
	}
	if _, _, err := net.SplitHostPort(address); err == nil {
		return c.cfg.Scheme + "://" + address
	}
	return c.cfg.Scheme + "://" + net.JoinHostPort(address, strconv.Itoa(c.cfg.Port))
}

type sessionResponse struct {
	ID    int    `json:"id"`
	State string `json:"state"`
}

type statementResponse struct {
	ID     int    `json:"id"`
	State  string `json:"state"`
	Output *struct {
		Status    string   `json:"status"`
		EName     string   `json:"ename"`
		EValue    string   `json:"evalue"`
		Traceback []string `json:"traceback"`
	} `json:"output"`
}

// OpenSession creates an interactive session of the given kind.
func (c *Client) OpenSession(ctx context.Context, address, kind string) (string, error) {
	var out sessionResponse
	if err := c.do(ctx, http.MethodPost, address, "/sessions", map[string]string{"kind": kind}, &out); err != nil {
		return "", err
	}
	return strconv.Itoa(out.ID), nil
}

// SessionState reports the session's lifecycle phase.
func (c *Client) SessionState(ctx context.Context, address, sessionID string) (cluster.SessionPhase, error) {
	var out sessionResponse
	if err := c.do(ctx, http.MethodGet, address, "/sessions/"+sessionID, nil, &out); err != nil {
		return "", err
	}
	return sessionPhase(out.State), nil
}

// SubmitStatement runs code in the session.
func (c *Client) SubmitStatement(ctx context.Context, address, sessionID, code string) (string, error) {
	var out statementResponse
	path := "/sessions/" + sessionID + "/statements"
	if err := c.do(ctx, http.MethodPost, address, path, map[string]string{"code": code}, &out); err != nil {
		return "", err
	}
	return strconv.Itoa(out.ID), nil
}

// StatementStatus reports the statement's phase. A statement whose output
// has status "error" is failed even though Livy reports it available.
func (c *Client) StatementStatus(ctx context.Context, address, sessionID, statementID string) (cluster.StatementStatus, error) {
	var out statementResponse
	path := "/sessions/" + sessionID + "/statements/" + statementID
	if err := c.do(ctx, http.MethodGet, address, path, nil, &out); err != nil {
		return cluster.StatementStatus{}, err
	}

	switch out.State {
	case "waiting":
		return cluster.StatementStatus{Phase: cluster.StatementPending}, nil
	case "running", "cancelling":
		return cluster.StatementStatus{Phase: cluster.StatementRunning}, nil
	case "available":
		if out.Output != nil && out.Output.Status == "error" {
			return cluster.StatementStatus{Phase: cluster.StatementFailed, Remote: &cluster.RemoteError{
				Name:      out.Output.EName,
				Value:     out.Output.EValue,
				Traceback: out.Output.Traceback,
			}}, nil
		}
		return cluster.StatementStatus{Phase: cluster.StatementSucceeded}, nil
	case "error", "cancelled":
		remote := &cluster.RemoteError{Name: "Statement" + strings.ToUpper(out.State[:1]) + out.State[1:]}
		if out.Output != nil {
			remote = &cluster.RemoteError{Name: out.Output.EName, Value: out.Output.EValue, Traceback: out.Output.Traceback}
		}
		return cluster.StatementStatus{Phase: cluster.StatementFailed, Remote: remote}, nil
	default:
		return cluster.StatementStatus{}, fmt.Errorf("unknown statement state %q", out.State)
	}
}

// CloseSession deletes the session. A session that is already gone is not
// an error.
func (c *Client) CloseSession(ctx context.Context, address, sessionID string) error {
	err := c.do(ctx, http.MethodDelete, address, "/sessions/"+sessionID, nil, nil)
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
		return nil
	}
	return err
}

func sessionPhase(state string) cluster.SessionPhase {
	switch state {
	case "idle":
		return cluster.SessionIdle
	case "busy":
		return cluster.SessionBusy
	case "shutting_down", "error", "dead", "killed", "success":
		return cluster.SessionDead
	default:
		// not_started, starting, recovering
		return cluster.SessionStarting
	}
}

// do executes a request with rate limiting and retry, decoding a JSON
// response into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, address, path string, body, out any) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
	}
	url := c.baseURL(address) + path

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		data, err := c.doOnce(ctx, method, url, payload)
		if err == nil {
			if out == nil || len(data) == 0 {
				return nil
			}
			if err := json.Unmarshal(data, out); err != nil {
				return fmt.Errorf("decode %s %s: %w", method, path, err)
			}
			return nil
		}
		lastErr = err
		if !isRetryable(method, err) {
			return err
		}

		backoff := time.Duration(1<<uint(attempt)) * 100 * time.Millisecond
		c.logger.Debug("retrying livy request", "method", method, "path", path, "attempt", attempt+1, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) doOnce(ctx context.Context, method, url string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	// Livy's CSRF protection requires this header on mutating requests.
	req.Header.Set("X-Requested-By", "zonehop")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}
	return data, nil
}

// HTTPError represents an HTTP error response.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// isRetryable reports whether a request should be retried. A 429 is refused
// before any work is done, so it is always retried. Server errors are retried
// only for idempotent methods: a POST answered with a 5xx may still have
// created its session or statement.
func isRetryable(method string, err error) bool {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		return false
	}
	if httpErr.StatusCode == http.StatusTooManyRequests {
		return true
	}
	if httpErr.StatusCode < 500 {
		return false
	}
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodDelete:
		return true
	}
	return false
}

var _ cluster.SessionAPI = (*Client)(nil)
