// Copyright (c) 2025 Hyperbase
// Licensed under the MIT License. See LICENSE file in the project root for details.

package hyperbase

import (
	"context"
	"net/http"

	"github.com/coder/websocket"

	"hyperbase/cli/internal/backend"
	"hyperbase/cli/internal/stream"
)

// LogClient reads a project's logs and follows new entries.
type LogClient struct {
	project *ProjectClient
	channel stream.Channel
}

func (l *LogClient) path() string { return l.project.path("logs") }

// List returns a page of log entries older than q.BeforeID.
func (l *LogClient) List(ctx context.Context, q LogQuery) (*LogPage, error) {
	if err := l.project.guard(); err != nil {
		return nil, err
	}
	query, err := pageQuery("log", q.BeforeID, q.Limit)
	if err != nil {
		return nil, err
	}
	env, err := l.project.client.gw.Do(ctx, backend.Request{Method: http.MethodGet, Path: l.path(), Query: query})
	if err != nil {
		return nil, err
	}
	logs, err := backend.Decode[[]Log](env)
	if err != nil {
		return nil, err
	}
	page := &LogPage{Logs: logs}
	if env.Pagination != nil {
		page.Pagination = *env.Pagination
	}
	return page, nil
}

// Subscribe follows new log entries, replacing any open feed.
func (l *LogClient) Subscribe(ctx context.Context, cb stream.Callbacks) error {
	if err := l.project.guard(); err != nil {
		return err
	}
	client := l.project.client
	return l.channel.Subscribe(ctx, stream.URL(client.BaseWSURL(), l.path(), client.Token()), cb)
}

func (l *LogClient) Unsubscribe(code websocket.StatusCode, reason string) {
	l.channel.Unsubscribe(code, reason)
}
