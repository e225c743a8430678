// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package statestore

import (
	"errors"
	"fmt"
	"time"

	"github.com/bureau-foundation/bunq/lib/codec"
)

// Manifest records what the token files in a state directory belong
// to. Zero values mean the step has not happened.
type Manifest struct {
	Environment        string    `cbor:"environment,omitempty"`
	Fingerprint        string    `cbor:"fingerprint,omitempty"`
	KeyCreatedAt       time.Time `cbor:"key_created_at"`
	InstallationID     int64     `cbor:"installation_id,omitempty"`
	InstalledAt        time.Time `cbor:"installed_at"`
	DeviceID           int64     `cbor:"device_id,omitempty"`
	DeviceRegisteredAt time.Time `cbor:"device_registered_at"`
	SessionID          int64     `cbor:"session_id,omitempty"`
	SessionStartedAt   time.Time `cbor:"session_started_at"`
	UserID             int64     `cbor:"user_id,omitempty"`
	UserName           string    `cbor:"user_name,omitempty"`
}

// Manifest reads the manifest. A directory without one yields an empty
// manifest, not an error.
func (s *Store) Manifest() (*Manifest, error) {
	data, err := s.Read(FileManifest)
	if errors.Is(err, ErrNotFound) {
		return &Manifest{}, nil
	}
	if err != nil {
		return nil, err
	}
	var manifest Manifest
	if err := codec.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("statestore: decoding manifest: %w", err)
	}
	return &manifest, nil
}

// UpdateManifest applies update to the current manifest and writes it
// back.
func (s *Store) UpdateManifest(update func(*Manifest)) error {
	manifest, err := s.Manifest()
	if err != nil {
		return err
	}
	update(manifest)
	data, err := codec.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("statestore: encoding manifest: %w", err)
	}
	return s.Write(FileManifest, data)
}

func (manifest *Manifest) clearSession() {
	manifest.SessionID = 0
	manifest.SessionStartedAt = time.Time{}
	manifest.UserID = 0
	manifest.UserName = ""
}

// CheckEnvironment fails when the directory was installed against a
// different environment than the store was opened for. Sandbox tokens
// are meaningless to production and the reverse.
func (s *Store) CheckEnvironment() error {
	if s.environment == "" {
		return nil
	}
	manifest, err := s.Manifest()
	if err != nil {
		return err
	}
	if manifest.Environment != "" && manifest.Environment != s.environment {
		return fmt.Errorf("statestore: %s holds %s state, not %s", s.directory, manifest.Environment, s.environment)
	}
	return nil
}
