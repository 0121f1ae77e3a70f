// Copyright (c) 2025 Hyperbase
// Licensed under the MIT License. See LICENSE file in the project root for details.

//go:build darwin

package keychain

import (
	"bytes"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// securityBackend talks to the login keychain through the security(1) command,
// which works on macOS releases where the keyring library's cgo bindings fail.
type securityBackend struct{}

func newSecurityBackend() (*securityBackend, error) {
	if _, err := exec.LookPath("security"); err != nil {
		return nil, fmt.Errorf("security command not found: %w", err)
	}
	return &securityBackend{}, nil
}

func (s *securityBackend) Set(key, value string) error {
	var stderr bytes.Buffer
	cmd := exec.Command("security", "add-generic-password",
		"-a", ServiceName,
		"-s", key,
		"-w", value,
		"-U", // update if exists
	)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		slog.Debug("keychain set failed", "key", key, "stderr", strings.TrimSpace(stderr.String()))
		return fmt.Errorf("store %q in keychain: %s: %w", key, strings.TrimSpace(stderr.String()), err)
	}
	return nil
}

func (s *securityBackend) Get(key string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.Command("security", "find-generic-password",
		"-a", ServiceName,
		"-s", key,
		"-w", // print the password only
	)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if notFound(stderr.String()) {
			return "", nil
		}
		return "", fmt.Errorf("read %q from keychain: %s: %w", key, strings.TrimSpace(stderr.String()), err)
	}
	value := strings.TrimSpace(stdout.String())
	slog.Debug("keychain read", "key", key, "length", len(value))
	return value, nil
}

func (s *securityBackend) Delete(key string) error {
	var stderr bytes.Buffer
	cmd := exec.Command("security", "delete-generic-password", "-a", ServiceName, "-s", key)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if notFound(stderr.String()) {
			return nil
		}
		return fmt.Errorf("delete %q from keychain: %s: %w", key, strings.TrimSpace(stderr.String()), err)
	}
	return nil
}

func notFound(stderr string) bool {
	return strings.Contains(stderr, "could not be found")
}
