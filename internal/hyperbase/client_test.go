// Copyright (c) 2025 Hyperbase
// Licensed under the MIT License. See LICENSE file in the project root for details.

package hyperbase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	herrors "hyperbase/cli/internal/errors"
	"hyperbase/cli/internal/schema"
	"hyperbase/cli/internal/session"
	"hyperbase/cli/internal/stream"
)

const (
	projectID    = "0f8fad5b-d9cb-469f-a165-70867728950e"
	collectionID = "7c9e6679-7425-40de-944b-e07fc1f90ae7"
	recordID     = "16fd2706-8baf-433b-82eb-8c7fada847da"
	bucketID     = "886313e1-3b8a-5372-9b90-0c9aee199e5d"
	fileID       = "a8098c1a-f86e-11da-bd1a-00112444be1e"
	tokenID      = "6fa459ea-ee8a-3ca4-894e-db77e160355e"
)

func mintToken(t *testing.T, kind session.Role) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":   "e1d1b8a0-1c2d-4e5f-8a9b-0c1d2e3f4a5b",
		"kind": string(kind),
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test"))
	require.NoError(t, err)
	return signed
}

// fakeServer is a minimal Hyperbase REST API.
type fakeServer struct {
	t   *testing.T
	mux *http.ServeMux

	mu    sync.Mutex
	hits  map[string]int
	auths map[string]string
}

func newFakeServer(t *testing.T) (*fakeServer, *httptest.Server) {
	t.Helper()
	f := &fakeServer{t: t, mux: http.NewServeMux(), hits: map[string]int{}, auths: map[string]string{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		f.mu.Lock()
		f.hits[key]++
		f.auths[key] = r.Header.Get("Authorization")
		f.mu.Unlock()
		f.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeServer) handle(pattern string, status int, data any) {
	f.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, status, data)
	})
}

func (f *fakeServer) hitCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[key]
}

func (f *fakeServer) auth(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.auths[key]
}

func writeEnvelope(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if status/100 != 2 {
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]string{
			"status": http.StatusText(status), "message": "failed",
		}})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func newTestClient(t *testing.T, srv *httptest.Server, storage session.Storage) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: srv.URL, Storage: storage})
	require.NoError(t, err)
	return c
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestWSURL(t *testing.T) {
	require.Equal(t, "ws://localhost:8080", WSURL("http://localhost:8080"))
	require.Equal(t, "wss://api.example.com", WSURL("https://api.example.com"))
}

func TestBootstrapWithoutToken(t *testing.T) {
	f, srv := newFakeServer(t)
	f.handle("GET /api/rest/admin", http.StatusOK, map[string]string{"id": "a"})
	c := newTestClient(t, srv, session.NewMemoryStorage(nil))

	require.NoError(t, c.Bootstrap(context.Background()))

	snap := c.Session().Snapshot()
	require.True(t, snap.Ready)
	require.False(t, snap.Authenticated)
	require.Zero(t, f.hitCount("GET /api/rest/admin"))
	require.Zero(t, f.hitCount("GET /api/rest/auth/token"))
}

func TestBootstrapRestoresAdmin(t *testing.T) {
	f, srv := newFakeServer(t)
	stored := mintToken(t, session.RoleAdmin)
	f.handle("GET /api/rest/auth/token", http.StatusOK, map[string]string{"token": stored})
	f.handle("GET /api/rest/admin", http.StatusOK, map[string]string{"email": "root@example.com"})

	storage := session.NewMemoryStorage(map[string]string{session.KeyToken: stored})
	c := newTestClient(t, srv, storage)

	require.NoError(t, c.Bootstrap(context.Background()))

	snap := c.Session().Snapshot()
	require.True(t, snap.Ready)
	require.True(t, snap.Authenticated)
	require.Equal(t, "root@example.com", snap.Profile["email"])
	require.Equal(t, "Bearer "+stored, f.auth("GET /api/rest/auth/token"))
	require.Equal(t, 1, f.hitCount("GET /api/rest/admin"))
}

func TestBootstrapRejectsNonAdmin(t *testing.T) {
	f, srv := newFakeServer(t)
	userToken := mintToken(t, session.RoleUser)
	f.handle("GET /api/rest/auth/token", http.StatusOK, map[string]string{"token": userToken})

	storage := session.NewMemoryStorage(map[string]string{session.KeyToken: userToken})
	c := newTestClient(t, srv, storage)

	err := c.Bootstrap(context.Background())
	require.ErrorIs(t, err, ErrNotAdmin)

	snap := c.Session().Snapshot()
	require.True(t, snap.Ready)
	require.False(t, snap.Authenticated)
	persisted, _ := storage.Get(session.KeyToken)
	require.Empty(t, persisted)
	require.Zero(t, f.hitCount("GET /api/rest/admin"))
}

func TestBootstrapClearsTokenOnServiceError(t *testing.T) {
	f, srv := newFakeServer(t)
	f.handle("GET /api/rest/auth/token", http.StatusUnauthorized, nil)

	storage := session.NewMemoryStorage(map[string]string{session.KeyToken: "expired"})
	c := newTestClient(t, srv, storage)

	err := c.Bootstrap(context.Background())
	require.Equal(t, herrors.KindService, herrors.KindOf(err))
	persisted, _ := storage.Get(session.KeyToken)
	require.Empty(t, persisted)
	require.True(t, c.Session().Snapshot().Ready)
}

func TestBootstrapAbortKeepsToken(t *testing.T) {
	_, srv := newFakeServer(t)
	storage := session.NewMemoryStorage(map[string]string{session.KeyToken: "kept"})
	c := newTestClient(t, srv, storage)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Bootstrap(ctx)
	require.True(t, herrors.IsAborted(err))

	persisted, _ := storage.Get(session.KeyToken)
	require.Equal(t, "kept", persisted)
	require.True(t, c.Session().Snapshot().Ready)
}

func TestBootstrapAdoptsPersistedBaseURL(t *testing.T) {
	_, srv := newFakeServer(t)
	storage := session.NewMemoryStorage(map[string]string{
		session.KeyBaseURL:   srv.URL,
		session.KeyBaseWSURL: "ws://elsewhere:9000",
	})
	c, err := New(Config{BaseURL: "http://default:8080", Storage: storage})
	require.NoError(t, err)

	require.NoError(t, c.Bootstrap(context.Background()))
	require.Equal(t, srv.URL, c.BaseURL())
	require.Equal(t, "ws://elsewhere:9000", c.BaseWSURL())
}

func TestAdminSignInFetchesProfile(t *testing.T) {
	f, srv := newFakeServer(t)
	token := mintToken(t, session.RoleAdmin)
	f.mux.HandleFunc("POST /api/rest/auth/password-based", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "secret" {
			writeEnvelope(w, http.StatusUnauthorized, nil)
			return
		}
		writeEnvelope(w, http.StatusOK, map[string]string{"token": token})
	})
	f.handle("GET /api/rest/admin", http.StatusOK, map[string]string{"email": "root@example.com"})

	storage := session.NewMemoryStorage(nil)
	c := newTestClient(t, srv, storage)

	_, err := c.AdminSignIn(context.Background(), "root@example.com", "wrong")
	require.Equal(t, herrors.KindService, herrors.KindOf(err))
	require.False(t, c.Session().Snapshot().Authenticated)

	got, err := c.AdminSignIn(context.Background(), "root@example.com", "secret")
	require.NoError(t, err)
	require.Equal(t, token, got)
	require.True(t, c.Session().Snapshot().Authenticated)
	persisted, _ := storage.Get(session.KeyToken)
	require.Equal(t, token, persisted)

	c.WaitProfile()
	require.Equal(t, "root@example.com", c.Session().Snapshot().Profile["email"])
	require.Equal(t, "Bearer "+token, f.auth("GET /api/rest/admin"))

	require.NoError(t, c.SignOut())
	require.False(t, c.Session().Snapshot().Authenticated)
	persisted, _ = storage.Get(session.KeyToken)
	require.Empty(t, persisted)
}

func TestUserSignInFetchesUserRecord(t *testing.T) {
	f, srv := newFakeServer(t)
	token := mintToken(t, session.RoleUser)
	f.handle("POST /api/rest/auth/token-based", http.StatusOK, map[string]string{"token": token})
	f.handle("GET /api/rest/user", http.StatusOK, map[string]string{"_id": recordID})

	c := newTestClient(t, srv, nil)
	_, err := c.UserSignIn(context.Background(), UserCredentials{
		TokenID: tokenID, Token: "t", CollectionID: collectionID, Data: map[string]any{"email": "u@x"},
	})
	require.NoError(t, err)

	c.WaitProfile()
	require.Equal(t, recordID, c.Session().Snapshot().Profile["_id"])
	require.Zero(t, f.hitCount("GET /api/rest/admin"))

	user, err := c.UserData(context.Background())
	require.NoError(t, err)
	require.Equal(t, recordID, user["_id"])
}

func TestSetBaseURLsPersists(t *testing.T) {
	_, srv := newFakeServer(t)
	storage := session.NewMemoryStorage(nil)
	c := newTestClient(t, srv, storage)

	require.NoError(t, c.SetBaseURLs("https://hb.example.com/", ""))
	require.Equal(t, "https://hb.example.com", c.BaseURL())
	require.Equal(t, "wss://hb.example.com", c.BaseWSURL())

	persisted, _ := storage.Get(session.KeyBaseURL)
	require.Equal(t, "https://hb.example.com", persisted)
	persisted, _ = storage.Get(session.KeyBaseWSURL)
	require.Equal(t, "wss://hb.example.com", persisted)
}

func TestAccountEndpoints(t *testing.T) {
	f, srv := newFakeServer(t)
	f.handle("POST /api/rest/auth/register", http.StatusOK, map[string]string{"id": "reg-1"})
	f.handle("POST /api/rest/auth/verify-registration", http.StatusOK, nil)
	f.handle("POST /api/rest/auth/request-password-reset", http.StatusOK, map[string]string{"id": "reset-1"})
	f.handle("POST /api/rest/auth/confirm-password-reset", http.StatusOK, nil)
	f.handle("GET /api/rest/info/admin-registration", http.StatusOK, map[string]bool{"is_enabled": true})

	c := newTestClient(t, srv, nil)
	ctx := context.Background()

	id, err := c.AdminSignUp(ctx, "a@b.c", "pw")
	require.NoError(t, err)
	require.Equal(t, "reg-1", id)
	require.NoError(t, c.AdminSignUpVerify(ctx, id, "123456"))

	id, err = c.RequestPasswordReset(ctx, "a@b.c")
	require.NoError(t, err)
	require.Equal(t, "reset-1", id)
	require.NoError(t, c.ConfirmPasswordReset(ctx, id, "123456", "new"))

	info, err := c.RegistrationInfo(ctx)
	require.NoError(t, err)
	require.True(t, info.IsEnabled)

	_, err = c.AdminData(ctx)
	require.ErrorIs(t, err, herrors.ErrNotAuthenticated)
}

func TestProjectHandle(t *testing.T) {
	f, srv := newFakeServer(t)
	f.handle("POST /api/rest/project", http.StatusOK, Project{ID: projectID, Name: "demo"})
	f.handle("PATCH /api/rest/project/"+projectID, http.StatusOK, Project{ID: projectID, Name: "renamed"})
	f.handle("DELETE /api/rest/project/"+projectID, http.StatusOK, nil)
	f.handle("GET /api/rest/projects", http.StatusOK, []Project{{ID: projectID, Name: "demo"}})

	c := newTestClient(t, srv, nil)
	ctx := context.Background()

	p, err := c.CreateProject(ctx, "demo")
	require.NoError(t, err)
	require.Equal(t, projectID, p.ID())

	list, err := c.Projects(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, p.Update(ctx, "renamed"))
	require.Equal(t, "renamed", p.Project().Name)

	require.NoError(t, p.Delete(ctx))
	require.ErrorIs(t, p.Delete(ctx), herrors.ErrDeleted)
	_, err = p.Collections(ctx)
	require.ErrorIs(t, err, herrors.ErrDeleted)
	require.Equal(t, 1, f.hitCount("DELETE /api/rest/project/"+projectID))
}

func TestInvalidIDNeverReachesServer(t *testing.T) {
	f, srv := newFakeServer(t)
	c := newTestClient(t, srv, nil)

	_, err := c.Project(context.Background(), "../admin")
	var verr *herrors.ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, herrors.ReasonInvalidID, verr.Reason)

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Empty(t, f.hits)
}

func newProjectFixture(t *testing.T) (*fakeServer, *ProjectClient) {
	t.Helper()
	f, srv := newFakeServer(t)
	f.handle("GET /api/rest/project/"+projectID, http.StatusOK, Project{ID: projectID})
	c := newTestClient(t, srv, nil)
	p, err := c.Project(context.Background(), projectID)
	require.NoError(t, err)
	return f, p
}

func TestCollectionRecords(t *testing.T) {
	f, p := newProjectFixture(t)
	base := "/api/rest/project/" + projectID + "/collection/" + collectionID
	f.handle("GET "+base, http.StatusOK, Collection{
		ID: collectionID,
		SchemaFields: schema.Schema{
			"name":   {Kind: schema.KindString, Required: true},
			"age":    {Kind: schema.KindInt},
			"active": {Kind: schema.KindBoolean, Required: true},
		},
	})
	var inserted map[string]any
	f.mux.HandleFunc("POST "+base+"/record", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&inserted))
		inserted["_id"] = recordID
		writeEnvelope(w, http.StatusOK, inserted)
	})
	f.handle("GET "+base+"/record/"+recordID, http.StatusOK, map[string]any{"_id": recordID, "name": "ada"})
	f.handle("PATCH "+base+"/record/"+recordID, http.StatusOK, map[string]any{"_id": recordID, "name": "eve"})
	f.handle("DELETE "+base+"/record/"+recordID, http.StatusOK, nil)
	var query map[string]any
	f.mux.HandleFunc("POST "+base+"/records", func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		query = map[string]any{}
		require.NoError(t, json.Unmarshal(raw, &query))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data":[{"_id":"`+recordID+`"}],"pagination":{"count":1,"total":3}}`)
	})

	ctx := context.Background()
	col, err := p.Collection(ctx, collectionID)
	require.NoError(t, err)

	_, err = col.InsertOne(ctx, map[string]any{"age": "12"})
	var verr *herrors.ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, herrors.ReasonMissingField, verr.Reason)
	require.Equal(t, "name", verr.Field)
	require.Zero(t, f.hitCount("POST "+base+"/record"))

	rec, err := col.InsertOne(ctx, map[string]any{"name": "ada", "age": "12"})
	require.NoError(t, err)
	require.Equal(t, recordID, rec["_id"])
	require.Equal(t, float64(12), inserted["age"])
	require.Equal(t, false, inserted["active"])

	rec, err = col.FindOne(ctx, recordID)
	require.NoError(t, err)
	require.Equal(t, "ada", rec["name"])

	rec, err = col.UpdateOne(ctx, recordID, map[string]any{"name": "eve", "active": true})
	require.NoError(t, err)
	require.Equal(t, "eve", rec["name"])

	require.NoError(t, col.DeleteOne(ctx, recordID))

	page, err := col.FindMany(ctx, &Query{Fields: []string{"name"}, Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	require.Equal(t, int64(3), page.Pagination.Total)
	require.Equal(t, map[string]any{"fields": []any{"name"}, "limit": float64(10)}, query)

	_, err = col.FindMany(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, query)
}

func TestCollectionDeleteIsTerminal(t *testing.T) {
	f, p := newProjectFixture(t)
	base := "/api/rest/project/" + projectID + "/collection/" + collectionID
	f.handle("GET "+base, http.StatusOK, Collection{ID: collectionID})
	f.handle("DELETE "+base, http.StatusOK, nil)

	ctx := context.Background()
	col, err := p.Collection(ctx, collectionID)
	require.NoError(t, err)
	require.NoError(t, col.Delete(ctx))

	_, err = col.FindOne(ctx, recordID)
	require.ErrorIs(t, err, herrors.ErrDeleted)
	_, err = col.FindMany(ctx, nil)
	require.ErrorIs(t, err, herrors.ErrDeleted)
}

func TestCollectionUpdateReplacesCache(t *testing.T) {
	f, p := newProjectFixture(t)
	base := "/api/rest/project/" + projectID + "/collection/" + collectionID
	f.handle("GET "+base, http.StatusOK, Collection{ID: collectionID, Name: "old"})
	f.handle("PATCH "+base, http.StatusOK, Collection{ID: collectionID, Name: "new"})

	ctx := context.Background()
	col, err := p.Collection(ctx, collectionID)
	require.NoError(t, err)

	name := "new"
	require.NoError(t, col.Update(ctx, CollectionUpdate{Name: &name}))
	require.Equal(t, "new", col.Collection().Name)
}

func TestCancelledUpdateKeepsCache(t *testing.T) {
	f, p := newProjectFixture(t)
	f.handle("PATCH /api/rest/project/"+projectID, http.StatusOK, Project{ID: projectID, Name: "changed"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.Update(ctx, "changed")
	require.True(t, herrors.IsAborted(err))
	require.Empty(t, p.Project().Name)
}

func TestBucketFiles(t *testing.T) {
	f, p := newProjectFixture(t)
	base := "/api/rest/project/" + projectID + "/bucket/" + bucketID
	f.handle("GET "+base, http.StatusOK, Bucket{ID: bucketID, Name: "media"})
	f.mux.HandleFunc("POST "+base+"/file", func(w http.ResponseWriter, r *http.Request) {
		file, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		content, _ := io.ReadAll(file)
		writeEnvelope(w, http.StatusOK, File{
			ID: fileID, FileName: r.FormValue("file_name"), Size: int64(len(content)), ContentType: hdr.Header.Get("Content-Type"),
		})
	})
	f.mux.HandleFunc(base+"/file/"+fileID, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Query().Get("data") == "true":
			w.Header().Set("Content-Type", "text/plain")
			if r.Method == http.MethodGet {
				_, _ = io.WriteString(w, "hello")
			}
		case r.Method == http.MethodPatch:
			writeEnvelope(w, http.StatusOK, File{ID: fileID, FileName: "renamed.txt"})
		case r.Method == http.MethodDelete:
			writeEnvelope(w, http.StatusOK, nil)
		default:
			writeEnvelope(w, http.StatusOK, File{ID: fileID, FileName: "a.txt"})
		}
	})
	f.mux.HandleFunc("GET "+base+"/files", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, fileID, r.URL.Query().Get("before_id"))
		require.Equal(t, "5", r.URL.Query().Get("limit"))
		writeEnvelope(w, http.StatusOK, []File{{ID: fileID}})
	})

	ctx := context.Background()
	b, err := p.Bucket(ctx, bucketID)
	require.NoError(t, err)

	up, err := b.Upload(ctx, FileUpload{FileName: "a.txt", ContentType: "text/plain", Content: strings.NewReader("hello"), Name: "greeting.txt"})
	require.NoError(t, err)
	require.Equal(t, "greeting.txt", up.FileName)
	require.Equal(t, int64(5), up.Size)

	meta, err := b.File(ctx, fileID)
	require.NoError(t, err)
	require.Equal(t, "a.txt", meta.FileName)

	hdr, err := b.Stat(ctx, fileID)
	require.NoError(t, err)
	require.Equal(t, "text/plain", hdr.Get("Content-Type"))

	rc, err := b.Download(ctx, fileID)
	require.NoError(t, err)
	content, _ := io.ReadAll(rc)
	rc.Close()
	require.Equal(t, "hello", string(content))

	renamed, err := b.RenameFile(ctx, fileID, "renamed.txt")
	require.NoError(t, err)
	require.Equal(t, "renamed.txt", renamed.FileName)

	page, err := b.Files(ctx, FileQuery{BeforeID: fileID, Limit: 5})
	require.NoError(t, err)
	require.Len(t, page.Files, 1)

	require.NoError(t, b.DeleteFile(ctx, fileID))

	link, err := b.DownloadURL(fileID)
	require.NoError(t, err)
	require.Contains(t, link, base+"/file/"+fileID+"?data=true")
}

func TestTokenRules(t *testing.T) {
	f, p := newProjectFixture(t)
	base := "/api/rest/project/" + projectID + "/token/" + tokenID
	f.handle("GET "+base, http.StatusOK, Token{ID: tokenID, Name: "web"})
	var created map[string]any
	f.mux.HandleFunc("POST "+base+"/collection_rule", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&created))
		writeEnvelope(w, http.StatusOK, CollectionRule{ID: recordID, CollectionID: collectionID})
	})
	f.handle("GET "+base+"/bucket_rules", http.StatusOK, []BucketRule{{ID: recordID, BucketID: bucketID}})

	ctx := context.Background()
	tok, err := p.Token(ctx, tokenID)
	require.NoError(t, err)

	rule := Rule{FindOne: PermissionAll, FindMany: PermissionSelfMade, InsertOne: true, UpdateOne: PermissionNone, DeleteOne: PermissionNone}
	cr, err := tok.CreateCollectionRule(ctx, collectionID, rule)
	require.NoError(t, err)
	require.Equal(t, collectionID, cr.CollectionID)
	require.Equal(t, collectionID, created["collection_id"])
	require.Equal(t, "self_made", created["find_many"])

	rule.DeleteOne = "everything"
	_, err = tok.CreateCollectionRule(ctx, collectionID, rule)
	var verr *herrors.ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, "delete_one", verr.Field)

	rules, err := tok.BucketRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
}

func TestLogsList(t *testing.T) {
	f, p := newProjectFixture(t)
	f.mux.HandleFunc("GET /api/rest/project/"+projectID+"/logs", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "20", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data":[{"id":"l1","kind":"warn","message":"slow"}],"pagination":{"count":1,"total":1}}`)
	})

	page, err := p.Logs().List(context.Background(), LogQuery{Limit: 20})
	require.NoError(t, err)
	require.Len(t, page.Logs, 1)
	require.Equal(t, LogWarn, page.Logs[0].Kind)
}

func TestProjectOwnsOneLogFeed(t *testing.T) {
	f, p := newProjectFixture(t)
	f.handle("DELETE /api/rest/project/"+projectID, http.StatusOK, nil)
	closed := make(chan websocket.StatusCode, 1)
	f.mux.HandleFunc("GET /api/rest/project/"+projectID+"/logs/subscribe", func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()
		for {
			if _, _, err := conn.Read(r.Context()); err != nil {
				closed <- websocket.CloseStatus(err)
				return
			}
		}
	})

	require.Same(t, p.Logs(), p.Logs())

	gone := make(chan struct{})
	err := p.Logs().Subscribe(context.Background(), stream.Callbacks{
		OnClose: func(websocket.StatusCode, string) { close(gone) },
	})
	require.NoError(t, err)

	require.NoError(t, p.Delete(context.Background()))
	select {
	case code := <-closed:
		require.Equal(t, websocket.StatusNormalClosure, code)
	case <-time.After(5 * time.Second):
		t.Fatal("log feed still open after the project was deleted")
	}
	<-gone

	err = p.Logs().Subscribe(context.Background(), stream.Callbacks{})
	require.ErrorIs(t, err, herrors.ErrDeleted)
}
