// Copyright (c) 2025 Hyperbase
// Licensed under the MIT License. See LICENSE file in the project root for details.

package hyperbase

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"

	"hyperbase/cli/internal/backend"
	herrors "hyperbase/cli/internal/errors"
)

// BucketClient is a handle on one bucket and its files.
type BucketClient struct {
	project *ProjectClient

	mu      sync.RWMutex
	bucket  Bucket
	deleted atomic.Bool
}

func newBucketClient(p *ProjectClient, b Bucket) *BucketClient {
	return &BucketClient{project: p, bucket: b}
}

func (b *BucketClient) ID() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bucket.ID
}

// Bucket returns the last record the server returned for this bucket.
func (b *BucketClient) Bucket() Bucket {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bucket
}

func (b *BucketClient) guard() error {
	if b.deleted.Load() {
		return herrors.ErrDeleted
	}
	return b.project.guard()
}

func (b *BucketClient) path(parts ...string) string {
	return b.project.path(append([]string{"bucket", b.ID()}, parts...)...)
}

func (b *BucketClient) gw() *backend.Gateway { return b.project.client.gw }

func (b *BucketClient) Update(ctx context.Context, in BucketUpdate) error {
	if err := b.guard(); err != nil {
		return err
	}
	out, err := call[Bucket](ctx, b.gw(), http.MethodPatch, b.path(), in)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.bucket = out
	b.mu.Unlock()
	return nil
}

func (b *BucketClient) Delete(ctx context.Context) error {
	if err := b.guard(); err != nil {
		return err
	}
	if _, err := b.gw().Do(ctx, request(http.MethodDelete, b.path(), nil)); err != nil {
		return err
	}
	b.deleted.Store(true)
	return nil
}

// Upload stores a file in the bucket.
func (b *BucketClient) Upload(ctx context.Context, in FileUpload) (*File, error) {
	if err := b.guard(); err != nil {
		return nil, err
	}
	if in.Content == nil {
		return nil, herrors.MissingField("file")
	}
	return backend.Call[*File](ctx, b.gw(), backend.Request{
		Method: http.MethodPost,
		Path:   b.path("file"),
		Multipart: &backend.Multipart{
			FileName:    in.FileName,
			ContentType: in.ContentType,
			Content:     in.Content,
			Name:        in.Name,
		},
	})
}

func (b *BucketClient) filePath(id string) (string, error) {
	id, err := checkID("file_id", id)
	if err != nil {
		return "", err
	}
	return b.path("file", id), nil
}

// File returns the metadata of a stored file.
func (b *BucketClient) File(ctx context.Context, id string) (*File, error) {
	if err := b.guard(); err != nil {
		return nil, err
	}
	p, err := b.filePath(id)
	if err != nil {
		return nil, err
	}
	return call[*File](ctx, b.gw(), http.MethodGet, p, nil)
}

// Stat returns the headers of a file's content without downloading it.
func (b *BucketClient) Stat(ctx context.Context, id string) (http.Header, error) {
	if err := b.guard(); err != nil {
		return nil, err
	}
	p, err := b.filePath(id)
	if err != nil {
		return nil, err
	}
	return b.gw().Head(ctx, backend.Request{Path: p, Query: url.Values{"data": {"true"}}})
}

// Download streams a file's content. The caller must close the reader.
func (b *BucketClient) Download(ctx context.Context, id string) (io.ReadCloser, error) {
	if err := b.guard(); err != nil {
		return nil, err
	}
	p, err := b.filePath(id)
	if err != nil {
		return nil, err
	}
	resp, err := b.gw().Open(ctx, backend.Request{
		Method: http.MethodGet,
		Path:   p,
		Query:  url.Values{"data": {"true"}},
		Header: http.Header{"Accept": {"*/*"}},
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// DownloadURL returns a link to a file's content authorized by the current
// session token, for opening outside this client.
func (b *BucketClient) DownloadURL(id string) (string, error) {
	if err := b.guard(); err != nil {
		return "", err
	}
	p, err := b.filePath(id)
	if err != nil {
		return "", err
	}
	q := url.Values{"data": {"true"}}
	if token := b.project.client.Token(); token != "" {
		q.Set("token", token)
	}
	return b.gw().URL(p, q), nil
}

func (b *BucketClient) RenameFile(ctx context.Context, id, name string) (*File, error) {
	if err := b.guard(); err != nil {
		return nil, err
	}
	p, err := b.filePath(id)
	if err != nil {
		return nil, err
	}
	return call[*File](ctx, b.gw(), http.MethodPatch, p, map[string]string{"file_name": name})
}

func (b *BucketClient) DeleteFile(ctx context.Context, id string) error {
	if err := b.guard(); err != nil {
		return err
	}
	p, err := b.filePath(id)
	if err != nil {
		return err
	}
	_, err = b.gw().Do(ctx, request(http.MethodDelete, p, nil))
	return err
}

// Files lists the bucket's files, newest first.
func (b *BucketClient) Files(ctx context.Context, q FileQuery) (*FilePage, error) {
	if err := b.guard(); err != nil {
		return nil, err
	}
	query, err := pageQuery("file", q.BeforeID, q.Limit)
	if err != nil {
		return nil, err
	}
	env, err := b.gw().Do(ctx, backend.Request{Method: http.MethodGet, Path: b.path("files"), Query: query})
	if err != nil {
		return nil, err
	}
	files, err := backend.Decode[[]File](env)
	if err != nil {
		return nil, err
	}
	page := &FilePage{Files: files}
	if env.Pagination != nil {
		page.Pagination = *env.Pagination
	}
	return page, nil
}

// pageQuery builds before_id/limit paging parameters.
func pageQuery(kind, beforeID string, limit int) (url.Values, error) {
	q := url.Values{}
	if beforeID != "" {
		id, err := checkID("before_"+kind+"_id", beforeID)
		if err != nil {
			return nil, err
		}
		q.Set("before_id", id)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q, nil
}
