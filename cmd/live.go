// Copyright (c) 2025 Hyperbase
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"fmt"
	"sync"
	"time"

	"atomicgo.dev/cursor"
	"github.com/coder/websocket"
	"github.com/pterm/pterm"

	"hyperbase/cli/internal/logging"
	"hyperbase/cli/internal/stream"
)

// feed is a handle with a change feed.
type feed interface {
	Subscribe(ctx context.Context, cb stream.Callbacks) error
	Unsubscribe(code websocket.StatusCode, reason string)
}

// follow runs a live view of f until ctx is cancelled (Ctrl-C) or the server
// closes the feed. A server-side close is explained to the user.
func follow(ctx context.Context, f feed, title string, onMessage func(stream.Message)) error {
	closed := make(chan struct{})
	var (
		once   sync.Once
		code   websocket.StatusCode
		reason string
	)
	cb := stream.Callbacks{
		OnOpen:    func() { pterm.Info.Println(title + " (Ctrl-C to stop)") },
		OnMessage: onMessage,
		OnError:   func(err error) { logger.Debug("feed error", "error", err) },
		OnClose: func(c websocket.StatusCode, r string) {
			once.Do(func() {
				code, reason = c, r
				close(closed)
			})
		},
	}

	cursor.Hide()
	defer cursor.Show()
	if err := f.Subscribe(ctx, cb); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		f.Unsubscribe(websocket.StatusNormalClosure, "client closed")
		pterm.Println()
	case <-closed:
		logging.PresentStreamClose(code, reason)
	}
	return nil
}

// progressArea redraws one status line in place, at most every 100ms.
type progressArea struct {
	mu   sync.Mutex
	area *pterm.AreaPrinter
	last time.Time
}

func startProgressArea() *progressArea {
	cursor.Hide()
	area, err := pterm.DefaultArea.WithRemoveWhenDone(true).Start()
	if err != nil {
		cursor.Show()
		return &progressArea{}
	}
	return &progressArea{area: area}
}

func (p *progressArea) Update(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.area == nil || time.Since(p.last) < 100*time.Millisecond {
		return
	}
	p.last = time.Now()
	p.area.Update(fmt.Sprintf(format, args...))
}

func (p *progressArea) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.area != nil {
		_ = p.area.Stop()
		p.area = nil
		cursor.Show()
	}
}
