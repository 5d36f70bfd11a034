// Package client is a typed HTTP client for the civic reports API.
//
// A Client carries a session.State: Register and Login store the returned
// identity and token in it, and every later call sends that token as a
// bearer credential.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/civicwatch/civic-reports/pkg/session"
)

const defaultTimeout = 15 * time.Second

type Client struct {
	baseURL string
	http    *http.Client
	session *session.State
}

type Option func(*Client)

// WithHTTPClient replaces the default client (15s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithSession sets where identity and token are kept. Defaults to an
// in-memory session.
func WithSession(s *session.State) Option {
	return func(c *Client) { c.session = s }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.session == nil {
		c.session = session.New(session.NewMemoryStore())
	}
	return c
}

// Session exposes the state backing this client.
func (c *Client) Session() *session.State { return c.session }

// ── Auth ──────────────────────────────────────────────────────────────────────

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	var res AuthResult
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", nil, req, &res, false); err != nil {
		return nil, err
	}
	return &res, c.remember(&res)
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	body := map[string]string{"email": email, "password": password}
	var res AuthResult
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, body, &res, false); err != nil {
		return nil, err
	}
	return &res, c.remember(&res)
}

// Logout clears the local session. With revokeRemote it first asks the
// server to revoke the token; local state is cleared even if that fails.
func (c *Client) Logout(ctx context.Context, revokeRemote bool) error {
	var remoteErr error
	if revokeRemote && c.session.Token() != "" {
		remoteErr = c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil, nil, true)
	}
	if err := c.session.Clear(); err != nil {
		return err
	}
	return remoteErr
}

// Me fetches the caller's current identity and refreshes the session copy,
// so a role changed by an admin shows up locally.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, nil, &u, true); err != nil {
		return nil, err
	}
	if err := c.session.Set(toIdentity(&u), c.session.Token()); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) remember(res *AuthResult) error {
	if res.User == nil || res.Token == "" {
		return fmt.Errorf("auth response missing user or token")
	}
	return c.session.Set(toIdentity(res.User), res.Token)
}

func toIdentity(u *User) *session.Identity {
	return &session.Identity{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// ── Admin ─────────────────────────────────────────────────────────────────────

func (c *Client) ListUsers(ctx context.Context) ([]*User, error) {
	var users []*User
	if err := c.do(ctx, http.MethodGet, "/api/admin/users", nil, nil, &users, true); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) GetUser(ctx context.Context, id string) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/api/admin/users/"+url.PathEscape(id), nil, nil, &u, true); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) UpdateUser(ctx context.Context, id string, update UserUpdate) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodPut, "/api/admin/users/"+url.PathEscape(id), nil, update, &u, true); err != nil {
		return nil, err
	}
	return &u, nil
}

// ── Issues ────────────────────────────────────────────────────────────────────

func (c *Client) CreateIssue(ctx context.Context, req CreateIssueRequest) (*Issue, error) {
	var issue Issue
	if err := c.do(ctx, http.MethodPost, "/api/issues", nil, req, &issue, true); err != nil {
		return nil, err
	}
	return &issue, nil
}

func (c *Client) ListIssues(ctx context.Context, opts ListIssuesOptions) (*IssuePage, error) {
	q := url.Values{}
	setIfNotEmpty(q, "status", opts.Status)
	setIfNotEmpty(q, "category", opts.Category)
	setIfNotEmpty(q, "user_id", opts.UserID)
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}

	var page IssuePage
	if err := c.do(ctx, http.MethodGet, "/api/issues", q, nil, &page, true); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) GetIssue(ctx context.Context, id string) (*Issue, error) {
	var issue Issue
	if err := c.do(ctx, http.MethodGet, "/api/issues/"+url.PathEscape(id), nil, nil, &issue, true); err != nil {
		return nil, err
	}
	return &issue, nil
}

func (c *Client) UpdateIssueStatus(ctx context.Context, id, status, note string) (*Issue, error) {
	body := map[string]string{"status": status}
	if note != "" {
		body["note"] = note
	}
	var issue Issue
	if err := c.do(ctx, http.MethodPatch, "/api/issues/"+url.PathEscape(id)+"/status", nil, body, &issue, true); err != nil {
		return nil, err
	}
	return &issue, nil
}

func setIfNotEmpty(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

// ── Transport ─────────────────────────────────────────────────────────────────

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any, authed bool) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		token := c.session.Token()
		if token == "" {
			return ErrNotSignedIn
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
