// Copyright (c) 2025 Hyperbase
// Licensed under the MIT License. See LICENSE file in the project root for details.

package hyperbase

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/coder/websocket"

	herrors "hyperbase/cli/internal/errors"
	"hyperbase/cli/internal/schema"
)

// CollectionCreate describes a new collection.
type CollectionCreate struct {
	Name            string        `json:"name"`
	SchemaFields    schema.Schema `json:"schema_fields"`
	OptAuthColumnID bool          `json:"opt_auth_column_id"`
	OptTTL          *int64        `json:"opt_ttl,omitempty"`
}

// BucketCreate describes a new bucket.
type BucketCreate struct {
	Name   string `json:"name"`
	OptTTL *int64 `json:"opt_ttl,omitempty"`
}

// ProjectClient is a handle on one project.
type ProjectClient struct {
	client *Client

	mu      sync.RWMutex
	project Project
	deleted atomic.Bool

	logsOnce sync.Once
	logs     *LogClient
}

func newProjectClient(c *Client, p Project) *ProjectClient {
	return &ProjectClient{client: c, project: p}
}

func (p *ProjectClient) ID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.project.ID
}

// Project returns the last record the server returned for this project.
func (p *ProjectClient) Project() Project {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.project
}

func (p *ProjectClient) guard() error {
	if p.deleted.Load() {
		return herrors.ErrDeleted
	}
	return nil
}

func (p *ProjectClient) path(parts ...string) string {
	return strings.Join(append([]string{"project", p.ID()}, parts...), "/")
}

// Update renames the project.
func (p *ProjectClient) Update(ctx context.Context, name string) error {
	if err := p.guard(); err != nil {
		return err
	}
	out, err := call[Project](ctx, p.client.gw, http.MethodPatch, p.path(), map[string]string{"name": name})
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.project = out
	p.mu.Unlock()
	return nil
}

// Delete removes the project. The handle is unusable afterwards.
func (p *ProjectClient) Delete(ctx context.Context) error {
	if err := p.guard(); err != nil {
		return err
	}
	if _, err := p.client.gw.Do(ctx, request(http.MethodDelete, p.path(), nil)); err != nil {
		return err
	}
	p.deleted.Store(true)
	if l := p.openedLogs(); l != nil {
		l.Unsubscribe(websocket.StatusNormalClosure, "project deleted")
	}
	return nil
}

func (p *ProjectClient) CreateCollection(ctx context.Context, in CollectionCreate) (*CollectionClient, error) {
	if err := p.guard(); err != nil {
		return nil, err
	}
	for _, name := range in.SchemaFields.Names() {
		if !in.SchemaFields[name].Kind.Valid() {
			return nil, &herrors.ValidationError{Field: name, Reason: herrors.ReasonUnknownKind}
		}
	}
	out, err := call[Collection](ctx, p.client.gw, http.MethodPost, p.path("collection"), in)
	if err != nil {
		return nil, err
	}
	return newCollectionClient(p, out), nil
}

func (p *ProjectClient) Collection(ctx context.Context, id string) (*CollectionClient, error) {
	if err := p.guard(); err != nil {
		return nil, err
	}
	id, err := checkID("collection_id", id)
	if err != nil {
		return nil, err
	}
	out, err := call[Collection](ctx, p.client.gw, http.MethodGet, p.path("collection", id), nil)
	if err != nil {
		return nil, err
	}
	return newCollectionClient(p, out), nil
}

func (p *ProjectClient) Collections(ctx context.Context) ([]Collection, error) {
	if err := p.guard(); err != nil {
		return nil, err
	}
	return call[[]Collection](ctx, p.client.gw, http.MethodGet, p.path("collections"), nil)
}

func (p *ProjectClient) CreateBucket(ctx context.Context, in BucketCreate) (*BucketClient, error) {
	if err := p.guard(); err != nil {
		return nil, err
	}
	out, err := call[Bucket](ctx, p.client.gw, http.MethodPost, p.path("bucket"), in)
	if err != nil {
		return nil, err
	}
	return newBucketClient(p, out), nil
}

func (p *ProjectClient) Bucket(ctx context.Context, id string) (*BucketClient, error) {
	if err := p.guard(); err != nil {
		return nil, err
	}
	id, err := checkID("bucket_id", id)
	if err != nil {
		return nil, err
	}
	out, err := call[Bucket](ctx, p.client.gw, http.MethodGet, p.path("bucket", id), nil)
	if err != nil {
		return nil, err
	}
	return newBucketClient(p, out), nil
}

func (p *ProjectClient) Buckets(ctx context.Context) ([]Bucket, error) {
	if err := p.guard(); err != nil {
		return nil, err
	}
	return call[[]Bucket](ctx, p.client.gw, http.MethodGet, p.path("buckets"), nil)
}

func (p *ProjectClient) CreateToken(ctx context.Context, in TokenCreate) (*TokenClient, error) {
	if err := p.guard(); err != nil {
		return nil, err
	}
	out, err := call[Token](ctx, p.client.gw, http.MethodPost, p.path("token"), in)
	if err != nil {
		return nil, err
	}
	return newTokenClient(p, out), nil
}

func (p *ProjectClient) Token(ctx context.Context, id string) (*TokenClient, error) {
	if err := p.guard(); err != nil {
		return nil, err
	}
	id, err := checkID("token_id", id)
	if err != nil {
		return nil, err
	}
	out, err := call[Token](ctx, p.client.gw, http.MethodGet, p.path("token", id), nil)
	if err != nil {
		return nil, err
	}
	return newTokenClient(p, out), nil
}

func (p *ProjectClient) Tokens(ctx context.Context) ([]Token, error) {
	if err := p.guard(); err != nil {
		return nil, err
	}
	return call[[]Token](ctx, p.client.gw, http.MethodGet, p.path("tokens"), nil)
}

// Logs returns the handle on the project's log feed. Every call returns the
// same handle, so the project holds at most one feed connection.
func (p *ProjectClient) Logs() *LogClient {
	p.logsOnce.Do(func() {
		l := &LogClient{project: p}
		l.channel.HTTPClient = p.client.httpClient
		l.channel.Logger = p.client.log
		p.mu.Lock()
		p.logs = l
		p.mu.Unlock()
	})
	return p.openedLogs()
}

func (p *ProjectClient) openedLogs() *LogClient {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.logs
}
