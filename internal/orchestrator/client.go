// Package orchestrator is a thin client for the remote
// container-orchestration HTTP API. Calls are not retried here; callers
// decide retry or abandon policy.
package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/redlattice/wsm/internal/observability"
)

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// RemoteSession is the identity bundle the orchestration API assigns when a
// session is created.
type RemoteSession struct {
	SessionID   string `json:"session_id"`
	ContainerID string `json:"container_id"`
	UserID      string `json:"user_id"`
	InternalIP  string `json:"internal_ip"`
}

// SnapshotResult is the orchestration API's response to a snapshot create.
type SnapshotResult struct {
	SizeBytes int64 `json:"size_bytes"`
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// Authenticate exchanges the API key for a bearer token. It is called once
// at startup; a 401 mid-flight is not retried automatically, re-running
// Authenticate is the recovery path.
func (c *Client) Authenticate(ctx context.Context) error {
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, "authenticate", http.MethodPost, "/api/auth",
		map[string]string{"api_key": c.apiKey}, &resp); err != nil {
		return err
	}
	c.mu.Lock()
	c.token = resp.Token
	c.mu.Unlock()
	return nil
}

// CreateSession asks the orchestration API for a new container session.
func (c *Client) CreateSession(ctx context.Context, imageRef, cpuLimit, memoryLimit string) (*RemoteSession, error) {
	req := map[string]string{
		"image":        imageRef,
		"cpu_limit":    cpuLimit,
		"memory_limit": memoryLimit,
	}
	var resp RemoteSession
	if err := c.do(ctx, "create_session", http.MethodPost, "/api/sessions", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetSessionStatus returns the remote session's status string
// ("creating", "running", "failed", ...).
func (c *Client) GetSessionStatus(ctx context.Context, sessionID string) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, "get_session_status", http.MethodGet, "/api/sessions/"+sessionID, nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// DeleteSession tears down the remote session. Callers treat this as
// best-effort during reclamation.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	return c.do(ctx, "delete_session", http.MethodDelete, "/api/sessions/"+sessionID, nil, nil)
}

// CreateSnapshot snapshots the remote session under the given name.
func (c *Client) CreateSnapshot(ctx context.Context, sessionID, name string) (*SnapshotResult, error) {
	var resp SnapshotResult
	err := c.do(ctx, "create_snapshot", http.MethodPost,
		"/api/sessions/"+sessionID+"/snapshots", map[string]string{"name": name}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// RestoreSnapshot restores the remote session from a named snapshot.
func (c *Client) RestoreSnapshot(ctx context.Context, sessionID, name string) error {
	return c.do(ctx, "restore_snapshot", http.MethodPost,
		"/api/sessions/"+sessionID+"/snapshots/"+name+"/restore", nil, nil)
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	start := time.Now()
	defer func() {
		observability.OrchestratorRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reqBody = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if tok := c.bearer(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		observability.OrchestratorErrorsTotal.WithLabelValues(op).Inc()
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		observability.OrchestratorErrorsTotal.WithLabelValues(op).Inc()
		var errResp struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(b, &errResp)
		if errResp.Message != "" {
			return fmt.Errorf("%s: remote status %d: %s", op, resp.StatusCode, errResp.Message)
		}
		return fmt.Errorf("%s: remote status %d", op, resp.StatusCode)
	}
	if out != nil {
		if err := json.Unmarshal(b, out); err != nil {
			return fmt.Errorf("%s: decode response: %w", op, err)
		}
	}
	return nil
}
