// Copyright (c) 2025 Hyperbase
// Licensed under the MIT License. See LICENSE file in the project root for details.

package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/require"

	herrors "hyperbase/cli/internal/errors"
)

type feedServer struct {
	opened atomic.Int32
	closed chan websocket.StatusCode
	// goAway makes the server close every connection right after the greeting.
	goAway bool
}

func (f *feedServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.CloseNow()

	n := f.opened.Add(1)
	ctx := r.Context()
	_ = wsjson.Write(ctx, conn, map[string]any{"seq": n, "token": r.URL.Query().Get("token")})

	if f.goAway {
		_ = conn.Close(websocket.StatusGoingAway, "bye")
		return
	}
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			f.closed <- websocket.CloseStatus(err)
			return
		}
	}
}

func newFeed(t *testing.T, goAway bool) (*feedServer, string) {
	t.Helper()
	f := &feedServer{closed: make(chan websocket.StatusCode, 8), goAway: goAway}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, "ws" + strings.TrimPrefix(srv.URL, "http")
}

type recorder struct {
	mu       sync.Mutex
	events   []string
	messages chan Message
}

func newRecorder() *recorder {
	return &recorder{messages: make(chan Message, 8)}
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) callbacks(tag string) Callbacks {
	return Callbacks{
		OnOpen:    func() { r.add(tag + ":open") },
		OnMessage: func(m Message) { r.messages <- m },
		OnError:   func(error) { r.add(tag + ":error") },
		OnClose: func(code websocket.StatusCode, reason string) {
			r.add(tag + ":close:" + code.String() + ":" + reason)
		},
	}
}

func waitMessage(t *testing.T, r *recorder) Message {
	t.Helper()
	select {
	case m := <-r.messages:
		return m
	case <-time.After(5 * time.Second):
		t.Fatal("no message received")
		return Message{}
	}
}

func TestURL(t *testing.T) {
	require.Equal(t,
		"ws://h/api/rest/project/p/collection/c/subscribe?token=abc",
		URL("ws://h/", "/project/p/collection/c", "abc"))
	require.Equal(t, "ws://h/api/rest/x/subscribe", URL("ws://h", "x", ""))
}

func TestSubscribeDeliversMessages(t *testing.T) {
	_, base := newFeed(t, false)
	rec := newRecorder()
	var ch Channel

	require.NoError(t, ch.Subscribe(context.Background(), URL(base, "feed", "tok"), rec.callbacks("a")))
	require.True(t, ch.IsOpen())

	var payload struct {
		Seq   int    `json:"seq"`
		Token string `json:"token"`
	}
	require.NoError(t, waitMessage(t, rec).Decode(&payload))
	require.Equal(t, 1, payload.Seq)
	require.Equal(t, "tok", payload.Token)

	ch.Unsubscribe(websocket.StatusNormalClosure, "done")
	require.False(t, ch.IsOpen())
	require.Equal(t, []string{"a:open", "a:close:StatusNormalClosure:done"}, rec.snapshot())
}

func TestResubscribeClosesPreviousExactlyOnce(t *testing.T) {
	feed, base := newFeed(t, false)
	rec := newRecorder()
	var ch Channel
	target := URL(base, "feed", "tok")

	require.NoError(t, ch.Subscribe(context.Background(), target, rec.callbacks("first")))
	waitMessage(t, rec)
	require.NoError(t, ch.Subscribe(context.Background(), target, rec.callbacks("second")))
	waitMessage(t, rec)

	select {
	case code := <-feed.closed:
		require.Equal(t, websocket.StatusNormalClosure, code)
	case <-time.After(5 * time.Second):
		t.Fatal("first connection was not closed")
	}
	require.Equal(t, int32(2), feed.opened.Load())
	require.Equal(t, []string{
		"first:open",
		"first:close:StatusNormalClosure:resubscribe",
		"second:open",
	}, rec.snapshot())

	ch.Unsubscribe(websocket.StatusNormalClosure, "")
	select {
	case <-feed.closed:
	case <-time.After(5 * time.Second):
		t.Fatal("second connection was not closed")
	}
	require.Len(t, feed.closed, 0, "no connection may be closed twice")
}

func TestUnsubscribeWhenClosedIsNoop(t *testing.T) {
	var ch Channel
	ch.Unsubscribe(websocket.StatusNormalClosure, "")
	ch.Unsubscribe(websocket.StatusGoingAway, "again")
	require.False(t, ch.IsOpen())
}

func TestServerCloseIsReported(t *testing.T) {
	_, base := newFeed(t, true)
	rec := newRecorder()
	closed := make(chan struct{})
	cb := rec.callbacks("a")
	onClose := cb.OnClose
	cb.OnClose = func(code websocket.StatusCode, reason string) {
		onClose(code, reason)
		close(closed)
	}

	var ch Channel
	require.NoError(t, ch.Subscribe(context.Background(), URL(base, "feed", ""), cb))

	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("close callback not delivered")
	}
	require.Equal(t, []string{"a:open", "a:close:StatusGoingAway:bye"}, rec.snapshot())
	require.False(t, ch.IsOpen())
}

func TestSubscribeUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	var ch Channel
	err := ch.Subscribe(context.Background(), URL(base, "feed", ""), Callbacks{})
	require.Equal(t, herrors.KindTransport, herrors.KindOf(err))
	require.False(t, ch.IsOpen())
}
