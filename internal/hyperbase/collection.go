// Copyright (c) 2025 Hyperbase
// Licensed under the MIT License. See LICENSE file in the project root for details.

package hyperbase

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/coder/websocket"

	"hyperbase/cli/internal/backend"
	herrors "hyperbase/cli/internal/errors"
	"hyperbase/cli/internal/schema"
	"hyperbase/cli/internal/stream"
)

// CollectionClient is a handle on one collection and its records.
type CollectionClient struct {
	project *ProjectClient

	mu         sync.RWMutex
	collection Collection
	deleted    atomic.Bool

	channel stream.Channel
}

func newCollectionClient(p *ProjectClient, col Collection) *CollectionClient {
	c := &CollectionClient{project: p, collection: col}
	c.channel.HTTPClient = p.client.httpClient
	c.channel.Logger = p.client.log
	return c
}

func (c *CollectionClient) ID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.collection.ID
}

// Collection returns the last record the server returned for this collection.
func (c *CollectionClient) Collection() Collection {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.collection
}

// Schema returns the cached field schema.
func (c *CollectionClient) Schema() schema.Schema {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.collection.SchemaFields
}

// Project returns the parent handle.
func (c *CollectionClient) Project() *ProjectClient { return c.project }

func (c *CollectionClient) guard() error {
	if c.deleted.Load() {
		return herrors.ErrDeleted
	}
	return c.project.guard()
}

func (c *CollectionClient) path(parts ...string) string {
	return c.project.path(append([]string{"collection", c.ID()}, parts...)...)
}

func (c *CollectionClient) Update(ctx context.Context, in CollectionUpdate) error {
	if err := c.guard(); err != nil {
		return err
	}
	out, err := call[Collection](ctx, c.project.client.gw, http.MethodPatch, c.path(), in)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.collection = out
	c.mu.Unlock()
	return nil
}

// Delete removes the collection and closes its subscription.
func (c *CollectionClient) Delete(ctx context.Context) error {
	if err := c.guard(); err != nil {
		return err
	}
	if _, err := c.project.client.gw.Do(ctx, request(http.MethodDelete, c.path(), nil)); err != nil {
		return err
	}
	c.deleted.Store(true)
	c.channel.Unsubscribe(websocket.StatusNormalClosure, "collection deleted")
	return nil
}

// Validate checks record against the cached schema without sending it.
func (c *CollectionClient) Validate(record map[string]any) (map[string]any, error) {
	return schema.Validate(record, c.Schema())
}

func (c *CollectionClient) InsertOne(ctx context.Context, record map[string]any) (Record, error) {
	if err := c.guard(); err != nil {
		return nil, err
	}
	data, err := c.Validate(record)
	if err != nil {
		return nil, err
	}
	return call[Record](ctx, c.project.client.gw, http.MethodPost, c.path("record"), data)
}

func (c *CollectionClient) FindOne(ctx context.Context, id string) (Record, error) {
	if err := c.guard(); err != nil {
		return nil, err
	}
	id, err := checkID(schema.FieldID, id)
	if err != nil {
		return nil, err
	}
	return call[Record](ctx, c.project.client.gw, http.MethodGet, c.path("record", id), nil)
}

func (c *CollectionClient) UpdateOne(ctx context.Context, id string, record map[string]any) (Record, error) {
	if err := c.guard(); err != nil {
		return nil, err
	}
	id, err := checkID(schema.FieldID, id)
	if err != nil {
		return nil, err
	}
	data, err := c.Validate(record)
	if err != nil {
		return nil, err
	}
	return call[Record](ctx, c.project.client.gw, http.MethodPatch, c.path("record", id), data)
}

func (c *CollectionClient) DeleteOne(ctx context.Context, id string) error {
	if err := c.guard(); err != nil {
		return err
	}
	id, err := checkID(schema.FieldID, id)
	if err != nil {
		return err
	}
	_, err = c.project.client.gw.Do(ctx, request(http.MethodDelete, c.path("record", id), nil))
	return err
}

// FindMany queries records. A nil query selects everything the server returns by default.
func (c *CollectionClient) FindMany(ctx context.Context, q *Query) (*RecordPage, error) {
	if err := c.guard(); err != nil {
		return nil, err
	}
	body := Query{}
	if q != nil {
		body = *q
	}
	env, err := c.project.client.gw.Do(ctx, request(http.MethodPost, c.path("records"), body))
	if err != nil {
		return nil, err
	}
	records, err := backend.Decode[[]Record](env)
	if err != nil {
		return nil, err
	}
	page := &RecordPage{Records: records}
	if env.Pagination != nil {
		page.Pagination = *env.Pagination
	}
	return page, nil
}

// Subscribe opens the collection's change feed, replacing any open one.
// The current session token is embedded in the URL, so a new sign-in needs a
// new Subscribe.
func (c *CollectionClient) Subscribe(ctx context.Context, cb stream.Callbacks) error {
	if err := c.guard(); err != nil {
		return err
	}
	client := c.project.client
	return c.channel.Subscribe(ctx, stream.URL(client.BaseWSURL(), c.path(), client.Token()), cb)
}

// Unsubscribe closes the change feed if open.
func (c *CollectionClient) Unsubscribe(code websocket.StatusCode, reason string) {
	c.channel.Unsubscribe(code, reason)
}
