// Copyright (c) 2025 Hyperbase
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, kind Role) string {
	t.Helper()
	claims := jwt.MapClaims{
		"id":   "7d1c0b7e-4a40-4c2e-8a43-3f4c5e9a2b11",
		"kind": string(kind),
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	if kind != RoleAdmin {
		claims["user"] = map[string]any{
			"collection_id": "c8a0f5d2-2f64-4d5b-9b1e-0c9d7e3f4a21",
			"id":            "1b2c3d4e-5f60-4718-9a0b-1c2d3e4f5a6b",
		}
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return signed
}

func TestDecodeClaims(t *testing.T) {
	tests := []struct {
		name     string
		kind     Role
		wantUser bool
	}{
		{name: "admin", kind: RoleAdmin},
		{name: "user", kind: RoleUser, wantUser: true},
		{name: "anonymous", kind: RoleUserAnonymous, wantUser: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := DecodeClaims(signedToken(t, tt.kind))
			require.NoError(t, err)
			require.Equal(t, tt.kind, c.Kind)
			require.Equal(t, tt.kind == RoleAdmin, c.IsAdmin())
			require.Equal(t, tt.wantUser, c.User != nil)
			require.NotNil(t, c.ExpiresAt)
		})
	}
}

func TestDecodeClaimsRejectsGarbage(t *testing.T) {
	_, err := DecodeClaims("not-a-token")
	require.Error(t, err)

	unknown, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"kind": "Root"}).SignedString([]byte("k"))
	require.NoError(t, err)
	_, err = DecodeClaims(unknown)
	require.Error(t, err)
}

func TestAuthenticateAndClear(t *testing.T) {
	storage := NewMemoryStorage(nil)
	st := New(storage)

	var snaps []Snapshot
	cancel := st.Subscribe(func(s Snapshot) { snaps = append(snaps, s) })
	defer cancel()
	require.Len(t, snaps, 1, "subscribe delivers the current snapshot")

	token := signedToken(t, RoleAdmin)
	claims, err := DecodeClaims(token)
	require.NoError(t, err)
	require.NoError(t, st.Authenticate(token, claims))

	persisted, _ := storage.Get(KeyToken)
	require.Equal(t, token, persisted)
	require.True(t, st.Snapshot().Authenticated)
	require.True(t, snaps[len(snaps)-1].Authenticated)

	require.True(t, st.SetProfile(token, map[string]any{"email": "a@b.c"}))
	require.Equal(t, "a@b.c", st.Snapshot().Profile["email"])

	require.NoError(t, st.Clear())
	persisted, _ = storage.Get(KeyToken)
	require.Empty(t, persisted)
	snap := st.Snapshot()
	require.False(t, snap.Authenticated)
	require.Empty(t, snap.Token)
	require.Nil(t, snap.Profile)
}

func TestSetProfileIgnoresStaleToken(t *testing.T) {
	st := New(nil)
	require.NoError(t, st.Authenticate("first", nil))
	require.NoError(t, st.Authenticate("second", nil))

	require.False(t, st.SetProfile("first", map[string]any{"id": 1}))
	require.Nil(t, st.Snapshot().Profile)

	require.NoError(t, st.Clear())
	require.False(t, st.SetProfile("second", map[string]any{"id": 2}))
}

type failingStorage struct{ MemoryStorage }

func (f *failingStorage) Set(string, string) error { return errors.New("disk full") }

func TestAuthenticatePersistFailureLeavesStateUntouched(t *testing.T) {
	st := New(&failingStorage{})

	require.Error(t, st.Authenticate("tok", nil))
	require.False(t, st.Snapshot().Authenticated)
	require.Empty(t, st.Token())
}

func TestReadyLatch(t *testing.T) {
	st := New(nil)
	require.False(t, st.Snapshot().Ready)

	st.MarkReady()
	require.NoError(t, st.Clear())
	require.True(t, st.Snapshot().Ready)
}

func TestSubscribeCancel(t *testing.T) {
	st := New(nil)
	calls := 0
	cancel := st.Subscribe(func(Snapshot) { calls++ })
	cancel()
	cancel()

	st.MarkReady()
	require.Equal(t, 1, calls)
}

func TestSnapshotProfileIsCopy(t *testing.T) {
	st := New(nil)
	require.NoError(t, st.Authenticate("tok", nil))
	st.SetProfile("tok", map[string]any{"name": "ada"})

	snap := st.Snapshot()
	snap.Profile["name"] = "eve"
	require.Equal(t, "ada", st.Snapshot().Profile["name"])
}
