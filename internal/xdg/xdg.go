// Package xdg resolves the XDG base directories used by the hyperbase CLI.
//
// Only non-secret files live here (config.json); the session token is kept in
// the OS credential store by internal/keychain.
package xdg

import (
	"os"
	"path/filepath"
)

// AppName is the directory name used under every XDG base.
const AppName = "hyperbase"

// ConfigDir returns $XDG_CONFIG_HOME/hyperbase, falling back to
// ~/.config/hyperbase. The directory is created 0700 if missing.
func ConfigDir() (string, error) {
	return ensure("XDG_CONFIG_HOME", ".config")
}

// StateDir returns $XDG_STATE_HOME/hyperbase, falling back to
// ~/.local/state/hyperbase. The directory is created 0700 if missing.
func StateDir() (string, error) {
	return ensure("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

func ensure(env, fallback string) (string, error) {
	base := os.Getenv(env)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, fallback)
	}
	dir := filepath.Join(base, AppName)
	if err := os.MkdirAll(dir, 0o700); err != nil { // private dir
		return "", err
	}
	return dir, nil
}
