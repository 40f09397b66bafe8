// Package permmirror is a small client SDK that mirrors a user's
// effective permission set locally so callers can gate UI elements and
// actions without a round trip per check. The server remains the
// authority: a mirror only avoids asking the same question twice, and
// Refresh re-pulls the set after role or grant changes.
package permmirror

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Client talks to a Brightwave server and keeps an in-memory mirror of
// the authenticated user's permissions. It is safe for concurrent use.
type Client struct {
	baseURL string
	httpc   *http.Client

	mu    sync.RWMutex
	token string
	user  UserInfo
	perms map[string]struct{}
}

// UserInfo is the identity block returned by the login endpoint.
type UserInfo struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	CompanyID *int64 `json:"company_id,omitempty"`
	UserType  string `json:"user_type"`
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

// WithToken seeds the client with an existing bearer token, skipping Login.
// Call Refresh afterwards to populate the mirror.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a client for the server at baseURL (e.g. "https://api.example.com").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 10 * time.Second},
		perms:   map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string   `json:"token"`
	User  UserInfo `json:"user"`
}

type errorBody struct {
	Error string `json:"error"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("permmirror: server returned %d: %s", e.StatusCode, e.Message)
}

// Login authenticates and pulls the initial permission mirror in the
// same call. The returned token is also stored on the client.
func (c *Client) Login(ctx context.Context, username, password string) (UserInfo, error) {
	var resp loginResponse
	if err := c.do(ctx, http.MethodPost, "/login", loginRequest{Username: username, Password: password}, &resp); err != nil {
		return UserInfo{}, err
	}

	c.mu.Lock()
	c.token = resp.Token
	c.user = resp.User
	c.mu.Unlock()

	if err := c.Refresh(ctx); err != nil {
		return resp.User, err
	}
	return resp.User, nil
}

// Refresh re-fetches the effective permission set from the server and
// replaces the mirror atomically. Call it after an admin changes the
// user's roles or a role's grants.
func (c *Client) Refresh(ctx context.Context) error {
	var names []string
	if err := c.do(ctx, http.MethodGet, "/me/permissions", nil, &names); err != nil {
		return err
	}

	next := make(map[string]struct{}, len(names))
	for _, p := range names {
		next[normalize(p)] = struct{}{}
	}

	c.mu.Lock()
	c.perms = next
	c.mu.Unlock()
	return nil
}

// Can reports whether the mirrored set contains the permission.
// An unknown or empty permission is never granted.
func (c *Client) Can(permission string) bool {
	name := normalize(permission)
	if name == "" {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.perms[name]
	return ok
}

// CanAny reports whether the mirror contains at least one of the permissions.
func (c *Client) CanAny(permissions ...string) bool {
	for _, p := range permissions {
		if c.Can(p) {
			return true
		}
	}
	return false
}

// CanAll reports whether the mirror contains every listed permission.
// An empty list is vacuously true, matching the server-side combinator.
func (c *Client) CanAll(permissions ...string) bool {
	for _, p := range permissions {
		if !c.Can(p) {
			return false
		}
	}
	return true
}

// Permissions returns a copy of the mirrored set in unspecified order.
func (c *Client) Permissions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.perms))
	for p := range c.perms {
		out = append(out, p)
	}
	return out
}

// User returns the identity captured at login.
func (c *Client) User() UserInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Check asks the server directly whether the user holds the permission,
// bypassing the mirror. Use it for destructive actions where a stale
// mirror is not acceptable.
func (c *Client) Check(ctx context.Context, permission string) (bool, error) {
	req := struct {
		Permission string `json:"permission"`
	}{Permission: permission}
	var resp struct {
		Allowed bool `json:"allowed"`
	}
	if err := c.do(ctx, http.MethodPost, "/check-permission", req, &resp); err != nil {
		return false, err
	}
	return resp.Allowed, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	u, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return fmt.Errorf("permmirror: build url: %w", err)
	}

	var payload *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("permmirror: encode request: %w", err)
		}
		payload = bytes.NewReader(raw)
	} else {
		payload = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, payload)
	if err != nil {
		return fmt.Errorf("permmirror: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("permmirror: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr errorBody
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error == "" {
			apiErr.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("permmirror: decode response: %w", err)
	}
	return nil
}

func normalize(permission string) string {
	return strings.ToLower(strings.TrimSpace(permission))
}
