// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package statestore

import (
	"errors"
	"fmt"
	"slices"

	"github.com/bureau-foundation/bunq/lib/bundle"
)

// ErrExists is returned by Import when the directory already holds a
// key pair and overwrite was not requested.
var ErrExists = errors.New("statestore: state already exists")

// Export snapshots every present state file into a bundle.
func (s *Store) Export() (*bundle.Bundle, error) {
	manifest, err := s.Manifest()
	if err != nil {
		return nil, err
	}
	files := make(map[string][]byte)
	for _, name := range Files {
		data, err := s.Read(name)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		files[name] = data
	}
	if _, ok := files[FilePrivateKey]; !ok {
		return nil, fmt.Errorf("%w: %s (nothing to export)", ErrNotFound, FilePrivateKey)
	}
	return &bundle.Bundle{
		Version:     bundle.FormatVersion,
		CreatedAt:   s.clock.Now(),
		Environment: manifest.Environment,
		Files:       files,
	}, nil
}

// Import writes every file in b. Names outside Files are rejected
// before anything is written. Existing files not present in b are
// removed so the directory matches the bundle exactly.
func (s *Store) Import(b *bundle.Bundle, overwrite bool) error {
	for _, name := range b.Names() {
		if !slices.Contains(Files, name) {
			return fmt.Errorf("statestore: bundle holds unknown file %q", name)
		}
	}
	if _, ok := b.Files[FilePrivateKey]; !ok {
		return fmt.Errorf("statestore: bundle holds no private key")
	}
	if !overwrite && s.Has(FilePrivateKey) {
		return fmt.Errorf("%w in %s", ErrExists, s.directory)
	}
	if s.environment != "" && b.Environment != "" && b.Environment != s.environment {
		return fmt.Errorf("statestore: bundle holds %s state, not %s", b.Environment, s.environment)
	}

	for _, name := range Files {
		content, ok := b.Files[name]
		if !ok {
			if err := s.Remove(name); err != nil {
				return err
			}
			continue
		}
		if err := s.Write(name, content); err != nil {
			return err
		}
	}
	s.logger.Info("state imported", "directory", s.directory, "files", len(b.Files))
	return nil
}
