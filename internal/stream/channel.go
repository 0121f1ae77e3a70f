// Copyright (c) 2025 Hyperbase
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package stream implements the read-only change feed a resource handle opens
// against the server's subscribe endpoint.
//
// A Channel owns at most one websocket connection. Subscribing while a
// connection is open closes the old connection first, so a handle never leaks
// connections. Callbacks run on the channel's read goroutine in order: OnOpen,
// any number of OnMessage and OnError, then OnClose exactly once per connection.
// Callbacks must not call Subscribe or Unsubscribe on the same channel
// synchronously.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/coder/websocket"

	herrors "hyperbase/cli/internal/errors"
	"hyperbase/cli/internal/logging"
)

// ReadLimit bounds the size of a single inbound frame.
const ReadLimit = 1 << 20

// Message is one inbound frame.
type Message struct {
	Type websocket.MessageType
	Data []byte
}

// Decode unmarshals a JSON frame into v.
func (m Message) Decode(v any) error {
	return json.Unmarshal(m.Data, v)
}

// Callbacks receive the events of one subscription. Nil callbacks are skipped.
type Callbacks struct {
	OnOpen    func()
	OnMessage func(Message)
	OnError   func(error)
	OnClose   func(code websocket.StatusCode, reason string)
}

// Channel is a single, replaceable subscription.
type Channel struct {
	// HTTPClient is used for the opening handshake; nil means http.DefaultClient.
	HTTPClient *http.Client
	// Logger defaults to slog.Default().
	Logger *slog.Logger

	op  sync.Mutex // serializes Subscribe and Unsubscribe
	mu  sync.Mutex
	sub *subscription
}

type subscription struct {
	conn   *websocket.Conn
	cancel context.CancelFunc
	done   chan struct{}

	mu          sync.Mutex
	local       bool
	localCode   websocket.StatusCode
	localReason string
}

// URL builds the subscribe endpoint of resource path under baseWSURL.
func URL(baseWSURL, path, token string) string {
	u := strings.TrimRight(baseWSURL, "/") + "/api/rest/" + strings.Trim(path, "/") + "/subscribe"
	if token != "" {
		u += "?token=" + url.QueryEscape(token)
	}
	return u
}

// IsOpen reports whether a connection is currently held.
func (c *Channel) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sub != nil
}

// Subscribe opens a connection to target, closing any open one first.
// ctx bounds the opening handshake only; the connection lives until
// Unsubscribe or until the server closes it.
func (c *Channel) Subscribe(ctx context.Context, target string, cb Callbacks) error {
	c.op.Lock()
	defer c.op.Unlock()

	c.closeCurrent(websocket.StatusNormalClosure, "resubscribe")

	conn, _, err := websocket.Dial(ctx, target, &websocket.DialOptions{HTTPClient: c.HTTPClient})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return herrors.Wrap(herrors.KindAborted, herrors.ErrAborted.Message, err)
		}
		return &herrors.TransportError{Op: "subscribe", URL: logging.Mask(target), Err: err}
	}
	conn.SetReadLimit(ReadLimit)

	readCtx, cancel := context.WithCancel(context.Background())
	sub := &subscription{conn: conn, cancel: cancel, done: make(chan struct{})}

	c.mu.Lock()
	c.sub = sub
	c.mu.Unlock()

	c.logger().Debug("subscribed", "url", logging.Mask(target))
	go c.readLoop(readCtx, sub, cb)
	return nil
}

// Unsubscribe closes the open connection with code and reason and waits for its
// OnClose callback. It is a no-op when nothing is open. A failed close handshake
// still drops the connection.
func (c *Channel) Unsubscribe(code websocket.StatusCode, reason string) {
	c.op.Lock()
	defer c.op.Unlock()
	c.closeCurrent(code, reason)
}

func (c *Channel) closeCurrent(code websocket.StatusCode, reason string) {
	c.mu.Lock()
	sub := c.sub
	c.sub = nil
	c.mu.Unlock()
	if sub == nil {
		return
	}

	sub.mu.Lock()
	sub.local = true
	sub.localCode = code
	sub.localReason = reason
	sub.mu.Unlock()

	if err := sub.conn.Close(code, reason); err != nil {
		c.logger().Debug("close handshake failed", "error", err)
		_ = sub.conn.CloseNow()
	}
	sub.cancel()
	<-sub.done
}

func (c *Channel) readLoop(ctx context.Context, sub *subscription, cb Callbacks) {
	defer close(sub.done)

	if cb.OnOpen != nil {
		cb.OnOpen()
	}
	for {
		typ, data, err := sub.conn.Read(ctx)
		if err == nil {
			if cb.OnMessage != nil {
				cb.OnMessage(Message{Type: typ, Data: data})
			}
			continue
		}

		sub.mu.Lock()
		local, code, reason := sub.local, sub.localCode, sub.localReason
		sub.mu.Unlock()

		if !local {
			code = websocket.CloseStatus(err)
			var ce websocket.CloseError
			if errors.As(err, &ce) {
				reason = ce.Reason
			}
			if code == -1 {
				code = websocket.StatusAbnormalClosure
				if cb.OnError != nil {
					cb.OnError(&herrors.TransportError{Op: "read", URL: "", Err: err})
				}
			}
			// The server went away on its own; drop our reference.
			c.mu.Lock()
			if c.sub == sub {
				c.sub = nil
			}
			c.mu.Unlock()
			_ = sub.conn.CloseNow()
		}
		if cb.OnClose != nil {
			cb.OnClose(code, reason)
		}
		return
	}
}

func (c *Channel) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
