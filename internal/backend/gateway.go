// Copyright (c) 2025 Hyperbase
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package backend is the HTTP gateway to a Hyperbase server.
// Every request is sent under the /api/rest prefix with the session token as a
// bearer credential, and every JSON response is read as an envelope of
// { data, error, pagination }. Failures are classified using the kinds of the
// internal/errors package so callers never inspect raw HTTP responses.
//
// The gateway does not retry. Retry and backoff belong to the caller.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	herrors "hyperbase/cli/internal/errors"
	"hyperbase/cli/internal/logging"
)

// APIPrefix is the path prefix of every REST endpoint.
const APIPrefix = "/api/rest/"

// Config configures a Gateway.
type Config struct {
	// BaseURL is the server origin, e.g. "http://localhost:8080".
	BaseURL string
	// HTTPClient defaults to a client with a 30 second timeout.
	HTTPClient *http.Client
	// Token returns the current session token; "" sends no credential.
	Token func() string
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Gateway sends requests to the Hyperbase REST API.
type Gateway struct {
	mu      sync.RWMutex
	baseURL string

	client *http.Client
	token  func() string
	log    *slog.Logger
}

// Request describes one call to the REST API.
type Request struct {
	Method string
	// Path is relative to the API prefix; a leading slash is optional.
	Path  string
	Query url.Values
	// Body is encoded as JSON when non-nil.
	Body any
	// Multipart takes precedence over Body.
	Multipart *Multipart
	Header    http.Header
	// Token overrides the session token for this request.
	Token string
}

// Pagination accompanies list responses.
type Pagination struct {
	Count int64 `json:"count"`
	Total int64 `json:"total"`
}

// Envelope is the body of every JSON response.
type Envelope struct {
	Data       json.RawMessage       `json:"data"`
	Error      *herrors.ServiceError `json:"error,omitempty"`
	Pagination *Pagination           `json:"pagination,omitempty"`
}

// New creates a Gateway.
func New(cfg Config) *Gateway {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	token := cfg.Token
	if token == nil {
		token = func() string { return "" }
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Gateway{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  client,
		token:   token,
		log:     log,
	}
}

// BaseURL returns the server origin requests are sent to.
func (g *Gateway) BaseURL() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.baseURL
}

// SetBaseURL points the gateway at another server origin.
func (g *Gateway) SetBaseURL(baseURL string) {
	g.mu.Lock()
	g.baseURL = strings.TrimRight(baseURL, "/")
	g.mu.Unlock()
}

// URL returns the absolute URL of path under the API prefix.
func (g *Gateway) URL(path string, query url.Values) string {
	u := g.BaseURL() + APIPrefix + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// Do sends req and reads the response envelope.
// A non-2xx status yields a *errors.ServiceError built from the envelope.
func (g *Gateway) Do(ctx context.Context, req Request) (*Envelope, error) {
	resp, err := g.send(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	env, err := g.readEnvelope(req, resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		return nil, serviceError(resp, env)
	}
	return env, nil
}

// Open sends req and returns the raw response of a successful call, for binary
// downloads. The caller must close the body.
func (g *Gateway) Open(ctx context.Context, req Request) (*http.Response, error) {
	resp, err := g.send(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 == 2 {
		return resp, nil
	}
	defer resp.Body.Close()
	env, err := g.readEnvelope(req, resp)
	if err != nil {
		return nil, err
	}
	return nil, serviceError(resp, env)
}

// Head sends a HEAD request and returns the response headers.
func (g *Gateway) Head(ctx context.Context, req Request) (http.Header, error) {
	req.Method = http.MethodHead
	req.Body = nil
	req.Multipart = nil
	resp, err := g.send(ctx, req)
	if err != nil {
		return nil, err
	}
	resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, serviceError(resp, nil)
	}
	return resp.Header, nil
}

func (g *Gateway) send(ctx context.Context, req Request) (*http.Response, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	target := g.URL(req.Path, req.Query)

	body, contentType, err := encodeBody(req)
	if err != nil {
		return nil, &herrors.TransportError{Op: req.Method, URL: logging.Mask(target), Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		if c, ok := body.(io.Closer); ok {
			c.Close()
		}
		return nil, &herrors.TransportError{Op: req.Method, URL: logging.Mask(target), Err: err}
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}
	token := req.Token
	if token == "" {
		token = g.token()
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := g.client.Do(httpReq)
	if err != nil {
		if stderrors.Is(err, context.Canceled) || stderrors.Is(ctx.Err(), context.Canceled) {
			return nil, herrors.Wrap(herrors.KindAborted, herrors.ErrAborted.Message, err)
		}
		g.log.DebugContext(ctx, "request failed", "method", req.Method, "url", logging.Mask(target), "error", err)
		return nil, &herrors.TransportError{Op: req.Method, URL: logging.Mask(target), Err: err}
	}
	g.log.DebugContext(ctx, "request",
		"method", req.Method,
		"url", logging.Mask(target),
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)
	return resp, nil
}

func encodeBody(req Request) (io.Reader, string, error) {
	if req.Multipart != nil {
		return req.Multipart.encode()
	}
	if req.Body == nil {
		return nil, "", nil
	}
	b, err := json.Marshal(req.Body)
	if err != nil {
		return nil, "", fmt.Errorf("encode request body: %w", err)
	}
	return bytes.NewReader(b), "application/json", nil
}

func (g *Gateway) readEnvelope(req Request, resp *http.Response) (*Envelope, error) {
	target := logging.Mask(resp.Request.URL.String())
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if stderrors.Is(err, context.Canceled) {
			return nil, herrors.Wrap(herrors.KindAborted, herrors.ErrAborted.Message, err)
		}
		return nil, &herrors.TransportError{Op: req.Method, URL: target, Err: err}
	}
	env := &Envelope{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return env, nil
	}
	if err := json.Unmarshal(raw, env); err != nil {
		return nil, &herrors.TransportError{
			Op:  req.Method,
			URL: target,
			Err: fmt.Errorf("unexpected response (status %d): %w", resp.StatusCode, err),
		}
	}
	return env, nil
}

func serviceError(resp *http.Response, env *Envelope) error {
	if env != nil && env.Error != nil {
		e := *env.Error
		e.StatusCode = resp.StatusCode
		return &e
	}
	return &herrors.ServiceError{
		Status:     http.StatusText(resp.StatusCode),
		Message:    resp.Status,
		StatusCode: resp.StatusCode,
	}
}

// Decode unmarshals the data member of env into T.
// An absent or null data member yields the zero value.
func Decode[T any](env *Envelope) (T, error) {
	var out T
	if env == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return out, &herrors.TransportError{Op: "decode", URL: "", Err: err}
	}
	return out, nil
}

// Call sends req and decodes the data member of the response into T.
func Call[T any](ctx context.Context, g *Gateway, req Request) (T, error) {
	env, err := g.Do(ctx, req)
	if err != nil {
		var zero T
		return zero, err
	}
	return Decode[T](env)
}
