// Copyright (c) 2025 Hyperbase
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package auth persists the CLI session between invocations.
//
// Store implements session.Storage by splitting the keys by sensitivity: the
// token goes to the OS keychain, the server URLs go to config.json.
package auth

import (
	"fmt"
	"sync"

	"hyperbase/cli/internal/config"
	"hyperbase/cli/internal/keychain"
	"hyperbase/cli/internal/session"
)

// Secrets is the credential store holding the session token.
type Secrets interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// Settings reads and writes the non-secret configuration.
type Settings interface {
	// Load returns the effective configuration, environment included.
	Load() (config.Config, error)
	// Update applies fn to the on-disk configuration and saves it.
	Update(fn func(*config.Config)) error
}

// Store is the CLI's session.Storage.
type Store struct {
	secrets  Secrets
	settings Settings

	mu     sync.Mutex
	pinned map[string]string
}

var _ session.Storage = (*Store)(nil)

// NewStore combines a credential store and a settings file.
func NewStore(secrets Secrets, settings Settings) *Store {
	return &Store{secrets: secrets, settings: settings, pinned: map[string]string{}}
}

// Open returns a Store backed by the OS keychain and the XDG config file.
func Open() (*Store, error) {
	km, err := keychain.GetManager()
	if err != nil {
		return nil, err
	}
	return NewStore(km, FileSettings{}), nil
}

// Pin fixes the value of a URL key for the life of the Store without
// persisting it, so command-line flags win over the saved configuration.
func (s *Store) Pin(key, value string) {
	if value == "" {
		return
	}
	s.mu.Lock()
	s.pinned[key] = value
	s.mu.Unlock()
}

func (s *Store) pin(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.pinned[key]
	return v, ok
}

func (s *Store) Get(key string) (string, error) {
	if key == session.KeyToken {
		return s.secrets.Get(keychain.KeyToken)
	}
	if v, ok := s.pin(key); ok {
		return v, nil
	}
	c, err := s.settings.Load()
	if err != nil {
		return "", err
	}
	switch key {
	case session.KeyBaseURL:
		return c.BaseURL, nil
	case session.KeyBaseWSURL:
		return c.BaseWSURL, nil
	}
	return "", fmt.Errorf("unknown session key %q", key)
}

func (s *Store) Set(key, value string) error {
	if key == session.KeyToken {
		return s.secrets.Set(keychain.KeyToken, value)
	}
	if _, ok := s.pin(key); ok {
		s.mu.Lock()
		s.pinned[key] = value
		s.mu.Unlock()
		return nil
	}
	switch key {
	case session.KeyBaseURL:
		return s.settings.Update(func(c *config.Config) { c.BaseURL = value })
	case session.KeyBaseWSURL:
		return s.settings.Update(func(c *config.Config) { c.BaseWSURL = value })
	}
	return fmt.Errorf("unknown session key %q", key)
}

// Delete removes the token. URL keys fall back to their defaults.
func (s *Store) Delete(key string) error {
	if key == session.KeyToken {
		return s.secrets.Delete(keychain.KeyToken)
	}
	d := config.Default()
	switch key {
	case session.KeyBaseURL:
		return s.Set(key, d.BaseURL)
	case session.KeyBaseWSURL:
		return s.Set(key, d.BaseWSURL)
	}
	return fmt.Errorf("unknown session key %q", key)
}

// FileSettings is Settings over internal/config.
type FileSettings struct{}

func (FileSettings) Load() (config.Config, error) { return config.Load() }

func (FileSettings) Update(fn func(*config.Config)) error {
	c, err := config.LoadFile()
	if err != nil {
		return err
	}
	fn(&c)
	return config.Save(c)
}
