// Copyright (c) 2025 Hyperbase
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package keychain stores the CLI's secrets in the OS credential store: the
// session token and the DSN of the last Postgres import source.
//
// macOS uses the security(1) command when available; everything else goes
// through github.com/99designs/keyring with native backends only. There is no
// plaintext file fallback.
package keychain

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/99designs/keyring"
)

// ServiceName identifies our keychain/credential store namespace.
const ServiceName = "hyperbase"

// Keys used for storing secrets in the OS keychain.
const (
	KeyToken     = "session_token"
	KeyImportDSN = "import_dsn"
)

var (
	globalManager *Manager
	mu            sync.Mutex
)

// store is a flat string key/value secret store. A missing key reads as "".
type store interface {
	Set(key, value string) error
	Get(key string) (string, error)
	Delete(key string) error
}

// Manager provides thread-safe access to the OS keychain.
type Manager struct {
	mu    sync.RWMutex
	store store
}

// NewManager opens the platform credential store.
func NewManager() (*Manager, error) {
	if runtime.GOOS == "darwin" {
		if sec, err := newSecurityBackend(); err == nil {
			return &Manager{store: sec}, nil
		}
		// fall through to keyring
	}
	ring, err := openRing()
	if err != nil {
		return nil, err
	}
	return NewWithKeyring(ring), nil
}

// NewWithKeyring wraps an already opened keyring, such as
// keyring.NewArrayKeyring in tests.
func NewWithKeyring(ring keyring.Keyring) *Manager {
	return &Manager{store: ringStore{ring}}
}

// GetManager returns the process-wide manager, opening it on first use.
// A failed open is retried on the next call.
func GetManager() (*Manager, error) {
	mu.Lock()
	defer mu.Unlock()
	if globalManager != nil {
		return globalManager, nil
	}
	m, err := NewManager()
	if err != nil {
		return nil, err
	}
	globalManager = m
	return m, nil
}

func openRing() (keyring.Keyring, error) {
	var allowed []keyring.BackendType
	switch runtime.GOOS {
	case "darwin":
		allowed = []keyring.BackendType{keyring.KeychainBackend, keyring.PassBackend}
	case "windows":
		allowed = []keyring.BackendType{keyring.WinCredBackend}
	case "linux", "freebsd", "openbsd":
		allowed = []keyring.BackendType{keyring.SecretServiceBackend, keyring.KWalletBackend, keyring.PassBackend}
	default:
		return nil, fmt.Errorf("secure storage not supported on %s", runtime.GOOS)
	}

	ring, err := keyring.Open(keyring.Config{
		ServiceName:     ServiceName,
		AllowedBackends: allowed,
		PassPrefix:      ServiceName,
		WinCredPrefix:   ServiceName,
		KWalletAppID:    ServiceName,
		KWalletFolder:   ServiceName,
	})
	if err != nil {
		return nil, fmt.Errorf("open credential store: %w", err)
	}
	return ring, nil
}

// Get returns the secret stored under key, or "" when there is none.
func (m *Manager) Get(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.store.Get(key)
}

// Set stores value under key. An empty value deletes the key.
func (m *Manager) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if value == "" {
		return m.store.Delete(key)
	}
	return m.store.Set(key, value)
}

// Delete removes key. Removing a missing key is not an error.
func (m *Manager) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Delete(key)
}

func (m *Manager) SaveToken(token string) error { return m.Set(KeyToken, token) }
func (m *Manager) LoadToken() (string, error)   { return m.Get(KeyToken) }
func (m *Manager) ClearToken() error            { return m.Delete(KeyToken) }

func (m *Manager) SaveImportDSN(dsn string) error { return m.Set(KeyImportDSN, dsn) }
func (m *Manager) LoadImportDSN() (string, error) { return m.Get(KeyImportDSN) }
func (m *Manager) ClearImportDSN() error          { return m.Delete(KeyImportDSN) }

// ClearAll removes every secret the CLI stores.
func (m *Manager) ClearAll() error {
	return errors.Join(m.ClearToken(), m.ClearImportDSN())
}

type ringStore struct {
	ring keyring.Keyring
}

func (r ringStore) Set(key, value string) error {
	return r.ring.Set(keyring.Item{Key: key, Data: []byte(value), Label: ServiceName + " " + key})
}

func (r ringStore) Get(key string) (string, error) {
	it, err := r.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(it.Data), nil
}

func (r ringStore) Delete(key string) error {
	err := r.ring.Remove(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil
	}
	return err
}
