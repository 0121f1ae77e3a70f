// Copyright (c) 2025 Hyperbase
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package hyperbase is the client library for a Hyperbase server.
//
// Client owns the session (bootstrap, sign-in, sign-out) and the
// account-level endpoints. Everything below an account is reached through
// scoped handles: ProjectClient, then CollectionClient, BucketClient,
// TokenClient and LogClient. A handle captures its parent and the last record
// the server returned for it; it does not refresh itself. Once a handle's
// Delete succeeds, every further call on it returns errors.ErrDeleted.
package hyperbase

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"hyperbase/cli/internal/backend"
	herrors "hyperbase/cli/internal/errors"
	"hyperbase/cli/internal/session"
)

// profileTimeout bounds the background profile fetch that follows a sign-in.
const profileTimeout = 30 * time.Second

// ErrNotAdmin is returned by Bootstrap when the stored token belongs to a non-administrator.
var ErrNotAdmin = herrors.New(herrors.KindValidation, "session token does not belong to an administrator")

// Config configures a Client.
type Config struct {
	BaseURL string
	// BaseWSURL defaults to BaseURL with its scheme mapped to ws or wss.
	BaseWSURL string
	// Storage persists the token and base URLs; nil keeps them in memory.
	Storage    session.Storage
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to one Hyperbase server on behalf of one session.
type Client struct {
	gw         *backend.Gateway
	state      *session.State
	log        *slog.Logger
	httpClient *http.Client

	mu        sync.RWMutex
	baseWSURL string

	profiles sync.WaitGroup
}

// New creates a Client. It does not touch the network; call Bootstrap to
// restore a persisted session.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base url is required")
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	wsURL := cfg.BaseWSURL
	if wsURL == "" {
		wsURL = WSURL(cfg.BaseURL)
	}

	c := &Client{
		state:      session.New(cfg.Storage),
		log:        log,
		httpClient: cfg.HTTPClient,
		baseWSURL:  strings.TrimRight(wsURL, "/"),
	}
	c.gw = backend.New(backend.Config{
		BaseURL:    cfg.BaseURL,
		HTTPClient: cfg.HTTPClient,
		Token:      c.state.Token,
		Logger:     log,
	})
	return c, nil
}

// WSURL maps an http(s) base URL to its ws(s) counterpart.
func WSURL(baseURL string) string {
	switch {
	case strings.HasPrefix(baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(baseURL, "https://")
	case strings.HasPrefix(baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(baseURL, "http://")
	}
	return baseURL
}

// Session returns the observable session state.
func (c *Client) Session() *session.State { return c.state }

// Token returns the current session token.
func (c *Client) Token() string { return c.state.Token() }

func (c *Client) BaseURL() string { return c.gw.BaseURL() }

func (c *Client) BaseWSURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseWSURL
}

// SetBaseURLs points the client at another server and persists the choice.
// An empty wsURL is derived from baseURL.
func (c *Client) SetBaseURLs(baseURL, wsURL string) error {
	if wsURL == "" {
		wsURL = WSURL(baseURL)
	}
	c.gw.SetBaseURL(baseURL)
	c.mu.Lock()
	c.baseWSURL = strings.TrimRight(wsURL, "/")
	c.mu.Unlock()

	storage := c.state.Storage()
	if err := storage.Set(session.KeyBaseURL, c.gw.BaseURL()); err != nil {
		return fmt.Errorf("persist base url: %w", err)
	}
	if err := storage.Set(session.KeyBaseWSURL, c.BaseWSURL()); err != nil {
		return fmt.Errorf("persist base ws url: %w", err)
	}
	return nil
}

// Bootstrap restores the persisted session. A stored token is introspected by
// the server and accepted only for administrators. Any failure other than a
// cancellation clears the stored token. The session is marked ready when
// Bootstrap returns, whatever the outcome.
func (c *Client) Bootstrap(ctx context.Context) (err error) {
	defer c.state.MarkReady()
	defer func() {
		if err == nil || herrors.IsAborted(err) {
			return
		}
		if cerr := c.state.Clear(); cerr != nil {
			c.log.Warn("clear session after failed bootstrap", "error", cerr)
		}
	}()

	if err := c.adoptBaseURLs(); err != nil {
		return err
	}

	stored, err := c.state.Storage().Get(session.KeyToken)
	if err != nil {
		return fmt.Errorf("read persisted token: %w", err)
	}
	if stored == "" {
		return nil
	}

	data, err := backend.Call[tokenData](ctx, c.gw, backend.Request{
		Method: http.MethodGet,
		Path:   "auth/token",
		Token:  stored,
	})
	if err != nil {
		return err
	}
	token := data.Token
	if token == "" {
		token = stored
	}

	claims, err := session.DecodeClaims(token)
	if err != nil {
		return herrors.Wrap(herrors.KindValidation, "invalid session token", err)
	}
	if !claims.IsAdmin() {
		return ErrNotAdmin
	}

	profile, err := c.fetchProfile(ctx, "admin", token)
	if err != nil {
		return err
	}
	if err := c.state.Authenticate(token, claims); err != nil {
		return err
	}
	c.state.SetProfile(token, profile)
	c.log.Debug("session restored", "admin", claims.Identity)
	return nil
}

func (c *Client) adoptBaseURLs() error {
	storage := c.state.Storage()

	baseURL, err := storage.Get(session.KeyBaseURL)
	if err != nil {
		return fmt.Errorf("read persisted base url: %w", err)
	}
	if baseURL != "" && baseURL != c.gw.BaseURL() {
		c.gw.SetBaseURL(baseURL)
		if err := storage.Set(session.KeyBaseURL, baseURL); err != nil {
			return fmt.Errorf("persist base url: %w", err)
		}
	}

	wsURL, err := storage.Get(session.KeyBaseWSURL)
	if err != nil {
		return fmt.Errorf("read persisted base ws url: %w", err)
	}
	if wsURL != "" && wsURL != c.BaseWSURL() {
		c.mu.Lock()
		c.baseWSURL = strings.TrimRight(wsURL, "/")
		c.mu.Unlock()
		if err := storage.Set(session.KeyBaseWSURL, wsURL); err != nil {
			return fmt.Errorf("persist base ws url: %w", err)
		}
	}
	return nil
}

type tokenData struct {
	Token string `json:"token"`
}

type idData struct {
	ID string `json:"id"`
}

// AdminSignUp registers an administrator and returns the pending registration id.
func (c *Client) AdminSignUp(ctx context.Context, email, password string) (string, error) {
	out, err := backend.Call[idData](ctx, c.gw, backend.Request{
		Method: http.MethodPost,
		Path:   "auth/register",
		Body:   map[string]string{"email": email, "password": password},
	})
	return out.ID, err
}

// AdminSignUpVerify confirms a registration with the emailed code.
func (c *Client) AdminSignUpVerify(ctx context.Context, id, code string) error {
	_, err := c.gw.Do(ctx, backend.Request{
		Method: http.MethodPost,
		Path:   "auth/verify-registration",
		Body:   map[string]string{"id": id, "code": code},
	})
	return err
}

// RequestPasswordReset emails a reset code and returns the reset id.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	out, err := backend.Call[idData](ctx, c.gw, backend.Request{
		Method: http.MethodPost,
		Path:   "auth/request-password-reset",
		Body:   map[string]string{"email": email},
	})
	return out.ID, err
}

// ConfirmPasswordReset sets a new password using the emailed code.
func (c *Client) ConfirmPasswordReset(ctx context.Context, id, code, password string) error {
	_, err := c.gw.Do(ctx, backend.Request{
		Method: http.MethodPost,
		Path:   "auth/confirm-password-reset",
		Body:   map[string]string{"id": id, "code": code, "password": password},
	})
	return err
}

// AdminSignIn signs an administrator in with email and password.
func (c *Client) AdminSignIn(ctx context.Context, email, password string) (string, error) {
	out, err := backend.Call[tokenData](ctx, c.gw, backend.Request{
		Method: http.MethodPost,
		Path:   "auth/password-based",
		Body:   map[string]string{"email": email, "password": password},
	})
	if err != nil {
		return "", err
	}
	return out.Token, c.signIn(out.Token)
}

// UserSignIn signs a collection user in with a project token.
func (c *Client) UserSignIn(ctx context.Context, creds UserCredentials) (string, error) {
	out, err := backend.Call[tokenData](ctx, c.gw, backend.Request{
		Method: http.MethodPost,
		Path:   "auth/token-based",
		Body:   creds,
	})
	if err != nil {
		return "", err
	}
	return out.Token, c.signIn(out.Token)
}

// signIn stores token and fetches the matching profile in the background.
func (c *Client) signIn(token string) error {
	if token == "" {
		return &herrors.TransportError{Op: "sign in", URL: c.gw.URL("auth", nil), Err: stderrors.New("server returned no token")}
	}
	claims, err := session.DecodeClaims(token)
	if err != nil {
		return herrors.Wrap(herrors.KindValidation, "invalid session token", err)
	}
	if err := c.state.Authenticate(token, claims); err != nil {
		return err
	}

	path := "user"
	if claims.IsAdmin() {
		path = "admin"
	}
	c.profiles.Add(1)
	go func() {
		defer c.profiles.Done()
		ctx, cancel := context.WithTimeout(context.Background(), profileTimeout)
		defer cancel()
		profile, err := c.fetchProfile(ctx, path, token)
		if err != nil {
			c.log.Warn("fetch profile after sign in", "error", err)
			return
		}
		c.state.SetProfile(token, profile)
	}()
	return nil
}

// WaitProfile blocks until background profile fetches have finished.
func (c *Client) WaitProfile() { c.profiles.Wait() }

// SignOut forgets the session locally. The server is not contacted.
func (c *Client) SignOut() error {
	return c.state.Clear()
}

func (c *Client) fetchProfile(ctx context.Context, path, token string) (map[string]any, error) {
	return backend.Call[map[string]any](ctx, c.gw, backend.Request{
		Method: http.MethodGet,
		Path:   path,
		Token:  token,
	})
}

// AdminData returns the signed-in administrator's profile.
func (c *Client) AdminData(ctx context.Context) (*Admin, error) {
	if c.Token() == "" {
		return nil, herrors.ErrNotAuthenticated
	}
	return call[*Admin](ctx, c.gw, http.MethodGet, "admin", nil)
}

// UserData returns the signed-in user's record.
func (c *Client) UserData(ctx context.Context) (map[string]any, error) {
	if c.Token() == "" {
		return nil, herrors.ErrNotAuthenticated
	}
	return call[map[string]any](ctx, c.gw, http.MethodGet, "user", nil)
}

// RegistrationInfo reports whether administrator sign-up is open.
func (c *Client) RegistrationInfo(ctx context.Context) (*RegistrationInfo, error) {
	return call[*RegistrationInfo](ctx, c.gw, http.MethodGet, "info/admin-registration", nil)
}

// CreateProject creates a project and returns its handle.
func (c *Client) CreateProject(ctx context.Context, name string) (*ProjectClient, error) {
	p, err := call[Project](ctx, c.gw, http.MethodPost, "project", map[string]string{"name": name})
	if err != nil {
		return nil, err
	}
	return newProjectClient(c, p), nil
}

// Project fetches a project and returns its handle.
func (c *Client) Project(ctx context.Context, id string) (*ProjectClient, error) {
	id, err := checkID("project_id", id)
	if err != nil {
		return nil, err
	}
	p, err := call[Project](ctx, c.gw, http.MethodGet, "project/"+id, nil)
	if err != nil {
		return nil, err
	}
	return newProjectClient(c, p), nil
}

// Projects lists the administrator's projects.
func (c *Client) Projects(ctx context.Context) ([]Project, error) {
	return call[[]Project](ctx, c.gw, http.MethodGet, "projects", nil)
}

// call is the common shape of a JSON request.
func call[T any](ctx context.Context, gw *backend.Gateway, method, path string, body any) (T, error) {
	return backend.Call[T](ctx, gw, request(method, path, body))
}

func request(method, path string, body any) backend.Request {
	return backend.Request{Method: method, Path: path, Body: body}
}

// checkID normalizes a UUID so it can be placed in a path.
func checkID(field, id string) (string, error) {
	u, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", &herrors.ValidationError{Field: field, Reason: herrors.ReasonInvalidID}
	}
	return u.String(), nil
}
