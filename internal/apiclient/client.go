// Package apiclient talks to the booking API on behalf of the command line
// client. It is the session store's identity provider and role lookup, and
// it persists the token pair in the local store.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"teslabooking/internal/httputil"
	"teslabooking/internal/model"
	"teslabooking/internal/session"
)

// refreshSkew refreshes access tokens a little before they expire.
const refreshSkew = 30 * time.Second

// APIError is a non-2xx answer carrying the server's error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
	Fields  map[string][]string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned status %d", e.Status)
	}
	return fmt.Sprintf("api returned status %d: %s", e.Status, e.Message)
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithLanguage sets the function consulted for the Accept-Language header
// of every request.
func WithLanguage(lang func() string) Option {
	return func(cl *Client) {
		cl.lang = lang
	}
}

// Client is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	storage    session.Storage
	lang       func() string
	now        func() time.Time
	logger     *slog.Logger

	mu        sync.Mutex
	sess      *session.Session
	loaded    bool
	listeners map[int]func(session.Event)
	nextID    int
}

func New(baseURL string, storage session.Storage, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		storage:    storage,
		now:        time.Now,
		logger:     slog.Default().With("component", "apiclient"),
		listeners:  make(map[int]func(session.Event)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SignIn exchanges credentials for a session. Wrong credentials wrap
// session.ErrInvalidCredentials.
func (c *Client) SignIn(ctx context.Context, email, password string) (*session.Session, error) {
	var resp model.SessionResponse
	err := c.do(ctx, http.MethodPost, "/auth/v1/token", model.SignInRequest{Email: email, Password: password}, &resp, false)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: %s", session.ErrInvalidCredentials, apiErr.Message)
		}
		return nil, err
	}
	return c.establish(&resp, session.EventSignedIn)
}

// SignUp registers and signs in. A taken address wraps model.ErrEmailExists.
func (c *Client) SignUp(ctx context.Context, email, password string) (*session.Session, error) {
	var resp model.SessionResponse
	err := c.do(ctx, http.MethodPost, "/auth/v1/signup", model.SignUpRequest{Email: email, Password: password}, &resp, false)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Code == model.CodeEmailExists {
			return nil, fmt.Errorf("%w: %s", model.ErrEmailExists, apiErr.Message)
		}
		return nil, err
	}
	return c.establish(&resp, session.EventSignedIn)
}

// SignOut revokes the refresh token remotely and always drops the local
// session. The remote error, if any, is returned.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	c.ensureLoadedLocked()
	sess := c.sess
	c.mu.Unlock()

	var err error
	if sess != nil {
		err = c.do(ctx, http.MethodPost, "/auth/v1/logout", model.LogoutRequest{RefreshToken: sess.RefreshToken}, nil, false)
	}
	c.replace(nil, session.EventSignedOut)
	return err
}

// CurrentSession returns the persisted session, refreshing it when the
// access token has expired. A session the server no longer accepts is
// dropped and nil is returned.
func (c *Client) CurrentSession(ctx context.Context) (*session.Session, error) {
	c.mu.Lock()
	c.ensureLoadedLocked()
	sess := c.sess
	c.mu.Unlock()

	if sess == nil {
		return nil, nil
	}
	if !sess.Expired(c.now().Add(refreshSkew)) {
		return sess, nil
	}
	refreshed, err := c.Refresh(ctx)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			return nil, nil
		}
		return nil, err
	}
	return refreshed, nil
}

// Refresh rotates the token pair. When the server rejects the refresh token
// the local session is dropped and SESSION_EXPIRED is emitted.
func (c *Client) Refresh(ctx context.Context) (*session.Session, error) {
	c.mu.Lock()
	c.ensureLoadedLocked()
	sess := c.sess
	c.mu.Unlock()
	if sess == nil {
		return nil, &APIError{Status: http.StatusUnauthorized, Code: httputil.ErrCodeUnauthorized, Message: "not signed in"}
	}

	var resp model.SessionResponse
	err := c.do(ctx, http.MethodPost, "/auth/v1/refresh", model.RefreshRequest{RefreshToken: sess.RefreshToken}, &resp, false)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			c.replace(nil, session.EventSessionExpired)
		}
		return nil, err
	}
	return c.establish(&resp, session.EventTokenRefreshed)
}

func (c *Client) OnAuthStateChange(fn func(session.Event)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Roles returns the caller's roles. The server answers for the bearer of
// the access token, so userID only guards against a stale session.
func (c *Client) Roles(ctx context.Context, userID string) ([]string, error) {
	c.mu.Lock()
	c.ensureLoadedLocked()
	sess := c.sess
	c.mu.Unlock()
	if sess == nil || sess.User.ID != userID {
		return nil, nil
	}

	var resp model.RolesResponse
	if err := c.do(ctx, http.MethodGet, "/rest/v1/roles", nil, &resp, true); err != nil {
		return nil, err
	}
	return resp.Roles, nil
}

func (c *Client) establish(resp *model.SessionResponse, event session.EventType) (*session.Session, error) {
	if resp.User == nil || resp.AccessToken == "" {
		return nil, errors.New("session response without user or token")
	}
	sess := &session.Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    time.Unix(resp.ExpiresAt, 0),
		User:         session.Principal{ID: resp.User.ID, Email: resp.User.Email},
	}
	c.replace(sess, event)
	return sess, nil
}

// replace swaps the session, persists it and emits event to the listeners.
func (c *Client) replace(sess *session.Session, event session.EventType) {
	c.mu.Lock()
	c.sess = sess
	c.loaded = true
	listeners := make([]func(session.Event), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	c.persist(sess)
	for _, fn := range listeners {
		fn(session.Event{Type: event, Session: sess})
	}
}

func (c *Client) persist(sess *session.Session) {
	if sess == nil {
		if err := c.storage.Delete(session.SessionStorageKey); err != nil {
			c.logger.Warn("delete session failed", "error", err)
		}
		return
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		c.logger.Warn("encode session failed", "error", err)
		return
	}
	if err := c.storage.Set(session.SessionStorageKey, string(raw)); err != nil {
		c.logger.Warn("persist session failed", "error", err)
	}
}

// ensureLoadedLocked reads the persisted session on first use. c.mu must
// be held.
func (c *Client) ensureLoadedLocked() {
	if c.loaded {
		return
	}
	c.loaded = true

	raw, ok, err := c.storage.Get(session.SessionStorageKey)
	if err != nil {
		c.logger.Warn("read session failed", "error", err)
		return
	}
	if !ok || raw == "" {
		return
	}
	var sess session.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil || sess.AccessToken == "" {
		c.logger.Warn("discarding unreadable session", "error", err)
		return
	}
	c.sess = &sess
}

// accessToken returns a usable access token, refreshing it when needed.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	sess, err := c.CurrentSession(ctx)
	if err != nil {
		return "", err
	}
	if sess == nil {
		return "", &APIError{Status: http.StatusUnauthorized, Code: httputil.ErrCodeUnauthorized, Message: "not signed in"}
	}
	return sess.AccessToken, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any, auth bool) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.lang != nil {
		if lang := c.lang(); lang != "" {
			req.Header.Set("Accept-Language", lang)
		}
	}
	if auth {
		token, err := c.accessToken(ctx)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// do sends a JSON request and decodes a JSON answer into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, body, out any, auth bool) error {
	req, err := c.newRequest(ctx, method, path, body, auth)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{Status: resp.StatusCode}

	var env httputil.ErrorResponse
	if err := json.Unmarshal(raw, &env); err == nil && env.Error.Code != "" {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
		apiErr.Fields = env.Error.Fields
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(raw))
	return apiErr
}
