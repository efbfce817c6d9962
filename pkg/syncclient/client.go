// Package syncclient is the device-side HTTP client for talking to the
// relay: device registration, push/pull, namespace locking, and conflict
// listing, plus a Syncer that drives a full push-then-pull cycle using
// pkg/changeset and pkg/localstore for local state tracking.
package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nous-sync/nse/pkg/models"
)

// Client is the relay API client used by a single device.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// New creates a client pointed at baseURL (e.g. "https://relay.nous.sync").
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithToken returns a copy of the client authenticated with token.
func (c *Client) WithToken(token string) *Client {
	return &Client{baseURL: c.baseURL, httpClient: c.httpClient, token: token}
}

// SetToken sets the authentication token on this client in place.
func (c *Client) SetToken(token string) {
	c.token = token
}

// envelope mirrors relayapi.Envelope; the client only needs to read it.
type envelope struct {
	Status    string          `json:"status"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
}

// problem mirrors relayapi.Problem.
type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

// ProblemError wraps a relay RFC 7807 problem response.
type ProblemError struct {
	Status int
	Title  string
	Detail string
}

func (e *ProblemError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Title, e.Status, e.Detail)
}

// IsConflict reports whether the relay rejected the request with 409.
func (e *ProblemError) IsConflict() bool { return e.Status == http.StatusConflict }

// IsGone reports whether the relay reports the lock as expired (410).
func (e *ProblemError) IsGone() bool { return e.Status == http.StatusGone }

// IsUpgradeRequired reports whether the device's schema version is too old.
func (e *ProblemError) IsUpgradeRequired() bool { return e.Status == http.StatusUpgradeRequired }

// IsIntegrityFailure reports whether the relay rejected the request
// because a checksum/tamper check failed (422).
func (e *ProblemError) IsIntegrityFailure() bool { return e.Status == http.StatusUnprocessableEntity }

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("syncclient: marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("syncclient: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("syncclient: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("syncclient: read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var p problem
		if json.Unmarshal(respBody, &p) == nil && p.Detail != "" {
			return &ProblemError{Status: resp.StatusCode, Title: p.Title, Detail: p.Detail}
		}
		return &ProblemError{Status: resp.StatusCode, Title: http.StatusText(resp.StatusCode), Detail: string(respBody)}
	}

	if result == nil || len(respBody) == 0 {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return fmt.Errorf("syncclient: decode envelope: %w", err)
	}
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, result); err != nil {
		return fmt.Errorf("syncclient: decode data: %w", err)
	}
	return nil
}

// RegisterDevice registers d with the relay and returns the issued token
// and its expiry.
func (c *Client) RegisterDevice(ctx context.Context, d models.Device) (token string, expiresAt time.Time, err error) {
	var resp struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/devices", d, &resp); err != nil {
		return "", time.Time{}, err
	}
	return resp.Token, resp.ExpiresAt, nil
}

// ListDevices lists every device registered in the caller's namespace.
func (c *Client) ListDevices(ctx context.Context) ([]models.Device, error) {
	var devices []models.Device
	if err := c.do(ctx, http.MethodGet, "/api/v1/devices", nil, &devices); err != nil {
		return nil, err
	}
	return devices, nil
}

// RevokeDevice revokes deviceID's registration.
func (c *Client) RevokeDevice(ctx context.Context, deviceID string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/devices/"+deviceID, nil, nil)
}

// PushRequest is the push body; mirrors relayapi.PushRequest.
type PushRequest struct {
	NodeID        string               `json:"node_id"`
	Changes       []models.FieldChange `json:"changes"`
	Vector        models.Vector        `json:"vector"`
	SchemaVersion int                  `json:"schema_version"`
}

// ConflictView mirrors relayapi.ConflictView.
type ConflictView struct {
	Field       string `json:"field"`
	LocalValue  any    `json:"local_value"`
	RemoteValue any    `json:"remote_value"`
}

// AppliedRef mirrors relayapi.AppliedRef.
type AppliedRef struct {
	ID string `json:"id"`
}

// PushResponse mirrors relayapi.PushResponse.
type PushResponse struct {
	Cursor    int64          `json:"cursor"`
	Vector    models.Vector  `json:"vector"`
	Applied   []AppliedRef   `json:"applied,omitempty"`
	Conflicts []ConflictView `json:"conflicts"`
}

// Push sends a local change set to the relay and returns the resolved
// cursor, merged vector, and any unresolved field conflicts.
func (c *Client) Push(ctx context.Context, req PushRequest) (*PushResponse, error) {
	var resp PushResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/sync/push", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PullResult is the decoded pull response.
type PullResult struct {
	Changes       []*models.ChangeSet `json:"changes"`
	NextCursor    int64               `json:"next_cursor"`
	TotalEstimate int64               `json:"total_estimate"`
	BatchNumber   int64               `json:"batch_number"`
}

// Pull fetches every change set past cursor, up to limit (0 uses the
// relay's default batch size).
func (c *Client) Pull(ctx context.Context, cursor int64, limit int) (*PullResult, error) {
	path := fmt.Sprintf("/api/v1/sync/pull?cursor=%d", cursor)
	if limit > 0 {
		path += fmt.Sprintf("&limit=%d", limit)
	}
	var resp PullResult
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AcquireLock acquires the namespace-wide sync lock, returning its expiry.
func (c *Client) AcquireLock(ctx context.Context) (time.Time, error) {
	var resp struct {
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/sync/lock", nil, &resp); err != nil {
		return time.Time{}, err
	}
	return resp.ExpiresAt, nil
}

// ReleaseLock releases the namespace-wide sync lock.
func (c *Client) ReleaseLock(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/sync/lock", nil, nil)
}

// ListConflicts lists unresolved conflicts visible to the caller's namespace.
func (c *Client) ListConflicts(ctx context.Context) ([]*models.UnresolvedConflict, error) {
	var conflicts []*models.UnresolvedConflict
	if err := c.do(ctx, http.MethodGet, "/api/v1/conflicts", nil, &conflicts); err != nil {
		return nil, err
	}
	return conflicts, nil
}

// Health checks relay reachability.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// HealthDetail is the relay's liveness payload: service name, start
// time, and uptime, mirroring internal/cli/health.Response's Data shape.
type HealthDetail struct {
	Service   string `json:"service"`
	StartedAt string `json:"started_at"`
	Uptime    string `json:"uptime"`
	UptimeSec int64  `json:"uptime_sec"`
}

// HealthDetailed checks relay reachability and returns its reported
// uptime, for richer diagnostics than Health's plain reachability check.
func (c *Client) HealthDetailed(ctx context.Context) (*HealthDetail, error) {
	var detail HealthDetail
	if err := c.do(ctx, http.MethodGet, "/health", nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}
