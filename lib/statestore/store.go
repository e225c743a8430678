// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package statestore

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/bureau-foundation/bunq/lib/clock"
)

// File names inside a state directory.
const (
	FilePrivateKey        = "private"
	FilePublicKey         = "public"
	FileAPIKey            = "api_key"
	FileInstallationToken = "installation_token"
	FileServerPublicKey   = "server_public_key"
	FileSessionToken      = "session_token"
	FileManifest          = "manifest.cbor"
)

// Files lists every file a state directory may hold, in export order.
var Files = []string{
	FilePrivateKey,
	FilePublicKey,
	FileAPIKey,
	FileInstallationToken,
	FileServerPublicKey,
	FileSessionToken,
	FileManifest,
}

// ErrNotFound is returned when a state file does not exist.
var ErrNotFound = errors.New("statestore: not found")

// Options configures [Open]. Zero values select the real clock and
// slog.Default().
type Options struct {
	// Environment names the bunq environment ("sandbox" or
	// "production") the directory is used against. It is recorded on
	// installation and checked by CheckEnvironment.
	Environment string

	Clock  clock.Clock
	Logger *slog.Logger
}

// Store is a state directory.
type Store struct {
	directory   string
	environment string
	clock       clock.Clock
	logger      *slog.Logger
}

// Open returns a Store rooted at directory, creating it if needed.
func Open(directory string, options Options) (*Store, error) {
	if directory == "" {
		return nil, fmt.Errorf("statestore: directory is required")
	}
	if err := os.MkdirAll(directory, 0o700); err != nil {
		return nil, fmt.Errorf("statestore: creating %s: %w", directory, err)
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return &Store{
		directory:   directory,
		environment: options.Environment,
		clock:       options.Clock,
		logger:      options.Logger,
	}, nil
}

// Directory returns the root path.
func (s *Store) Directory() string { return s.directory }

func (s *Store) path(name string) (string, error) {
	if !slices.Contains(Files, name) {
		return "", fmt.Errorf("statestore: unknown file %q", name)
	}
	return filepath.Join(s.directory, name), nil
}

// Read returns the contents of name, or an error wrapping ErrNotFound.
func (s *Store) Read(name string) ([]byte, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("statestore: reading %s: %w", name, err)
	}
	return data, nil
}

// Has reports whether name exists.
func (s *Store) Has(name string) bool {
	path, err := s.path(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Write replaces name with data atomically.
func (s *Store) Write(name string, data []byte) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	temporaryPath := path + ".tmp"

	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("statestore: creating temporary file for %s: %w", name, err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("statestore: writing %s: %w", name, err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("statestore: syncing %s: %w", name, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("statestore: closing %s: %w", name, err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("statestore: replacing %s: %w", name, err)
	}
	s.logger.Debug("state file written", "file", name, "bytes", len(data))
	return nil
}

// Remove deletes name. Removing a missing file is not an error.
func (s *Store) Remove(name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("statestore: removing %s: %w", name, err)
	}
	return nil
}
