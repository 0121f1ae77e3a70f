// Copyright (c) 2025 Hyperbase
// Licensed under the MIT License. See LICENSE file in the project root for details.

package hyperbase

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"

	herrors "hyperbase/cli/internal/errors"
)

// TokenClient is a handle on one project token and its access rules.
type TokenClient struct {
	project *ProjectClient

	mu      sync.RWMutex
	token   Token
	deleted atomic.Bool
}

func newTokenClient(p *ProjectClient, t Token) *TokenClient {
	return &TokenClient{project: p, token: t}
}

func (t *TokenClient) ID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.token.ID
}

// Token returns the last record the server returned for this token.
func (t *TokenClient) Token() Token {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.token
}

func (t *TokenClient) guard() error {
	if t.deleted.Load() {
		return herrors.ErrDeleted
	}
	return t.project.guard()
}

func (t *TokenClient) path(parts ...string) string {
	return t.project.path(append([]string{"token", t.ID()}, parts...)...)
}

func (t *TokenClient) Update(ctx context.Context, in TokenUpdate) error {
	if err := t.guard(); err != nil {
		return err
	}
	out, err := call[Token](ctx, t.project.client.gw, http.MethodPatch, t.path(), in)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.token = out
	t.mu.Unlock()
	return nil
}

func (t *TokenClient) Delete(ctx context.Context) error {
	if err := t.guard(); err != nil {
		return err
	}
	if _, err := t.project.client.gw.Do(ctx, request(http.MethodDelete, t.path(), nil)); err != nil {
		return err
	}
	t.deleted.Store(true)
	return nil
}

func (t *TokenClient) CollectionRules(ctx context.Context) ([]CollectionRule, error) {
	if err := t.guard(); err != nil {
		return nil, err
	}
	return call[[]CollectionRule](ctx, t.project.client.gw, http.MethodGet, t.path("collection_rules"), nil)
}

// CreateCollectionRule grants the token access to a collection.
func (t *TokenClient) CreateCollectionRule(ctx context.Context, collectionID string, rule Rule) (*CollectionRule, error) {
	if err := t.guard(); err != nil {
		return nil, err
	}
	collectionID, err := checkID("collection_id", collectionID)
	if err != nil {
		return nil, err
	}
	if err := checkRule(rule); err != nil {
		return nil, err
	}
	body := struct {
		CollectionID string `json:"collection_id"`
		Rule
	}{collectionID, rule}
	return call[*CollectionRule](ctx, t.project.client.gw, http.MethodPost, t.path("collection_rule"), body)
}

func (t *TokenClient) UpdateCollectionRule(ctx context.Context, ruleID string, rule Rule) (*CollectionRule, error) {
	if err := t.guard(); err != nil {
		return nil, err
	}
	ruleID, err := checkID("rule_id", ruleID)
	if err != nil {
		return nil, err
	}
	if err := checkRule(rule); err != nil {
		return nil, err
	}
	return call[*CollectionRule](ctx, t.project.client.gw, http.MethodPatch, t.path("collection_rule", ruleID), rule)
}

func (t *TokenClient) DeleteCollectionRule(ctx context.Context, ruleID string) error {
	if err := t.guard(); err != nil {
		return err
	}
	ruleID, err := checkID("rule_id", ruleID)
	if err != nil {
		return err
	}
	_, err = t.project.client.gw.Do(ctx, request(http.MethodDelete, t.path("collection_rule", ruleID), nil))
	return err
}

func (t *TokenClient) BucketRules(ctx context.Context) ([]BucketRule, error) {
	if err := t.guard(); err != nil {
		return nil, err
	}
	return call[[]BucketRule](ctx, t.project.client.gw, http.MethodGet, t.path("bucket_rules"), nil)
}

// CreateBucketRule grants the token access to a bucket.
func (t *TokenClient) CreateBucketRule(ctx context.Context, bucketID string, rule Rule) (*BucketRule, error) {
	if err := t.guard(); err != nil {
		return nil, err
	}
	bucketID, err := checkID("bucket_id", bucketID)
	if err != nil {
		return nil, err
	}
	if err := checkRule(rule); err != nil {
		return nil, err
	}
	body := struct {
		BucketID string `json:"bucket_id"`
		Rule
	}{bucketID, rule}
	return call[*BucketRule](ctx, t.project.client.gw, http.MethodPost, t.path("bucket_rule"), body)
}

func (t *TokenClient) UpdateBucketRule(ctx context.Context, ruleID string, rule Rule) (*BucketRule, error) {
	if err := t.guard(); err != nil {
		return nil, err
	}
	ruleID, err := checkID("rule_id", ruleID)
	if err != nil {
		return nil, err
	}
	if err := checkRule(rule); err != nil {
		return nil, err
	}
	return call[*BucketRule](ctx, t.project.client.gw, http.MethodPatch, t.path("bucket_rule", ruleID), rule)
}

func (t *TokenClient) DeleteBucketRule(ctx context.Context, ruleID string) error {
	if err := t.guard(); err != nil {
		return err
	}
	ruleID, err := checkID("rule_id", ruleID)
	if err != nil {
		return err
	}
	_, err = t.project.client.gw.Do(ctx, request(http.MethodDelete, t.path("bucket_rule", ruleID), nil))
	return err
}

func checkRule(r Rule) error {
	checks := []struct {
		name string
		p    Permission
	}{
		{"find_one", r.FindOne},
		{"find_many", r.FindMany},
		{"update_one", r.UpdateOne},
		{"delete_one", r.DeleteOne},
	}
	for _, c := range checks {
		if !c.p.Valid() {
			return herrors.TypeMismatch(c.name)
		}
	}
	return nil
}
