// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package statestore

import (
	"bytes"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/bureau-foundation/bunq/lib/bunq"
	"github.com/bureau-foundation/bunq/lib/keys"
)

// SaveKeyPair writes a new client key pair, sealing the private key
// under passphrase when it is non-empty. Tokens from a previous key
// are removed: they are bound to the old key and would only produce
// signature errors.
func (s *Store) SaveKeyPair(pair *keys.Pair, passphrase []byte) error {
	encoded, err := keys.EncodePrivateKey(pair.Private, passphrase)
	if err != nil {
		return fmt.Errorf("statestore: %w", err)
	}
	defer clear(encoded)
	if err := s.Write(FilePrivateKey, encoded); err != nil {
		return err
	}
	if err := s.Write(FilePublicKey, []byte(pair.PublicPEM)); err != nil {
		return err
	}
	for _, name := range []string{FileInstallationToken, FileServerPublicKey, FileSessionToken} {
		if err := s.Remove(name); err != nil {
			return err
		}
	}
	now := s.clock.Now()
	return s.UpdateManifest(func(manifest *Manifest) {
		environment := manifest.Environment
		*manifest = Manifest{Environment: environment, Fingerprint: pair.Fingerprint, KeyCreatedAt: now}
	})
}

// PrivateKey loads and, if sealed, opens the private key.
func (s *Store) PrivateKey(passphrase []byte) (*rsa.PrivateKey, error) {
	data, err := s.Read(FilePrivateKey)
	if err != nil {
		return nil, err
	}
	defer clear(data)
	privateKey, err := keys.ParsePrivateKey(data, passphrase)
	if err != nil {
		return nil, fmt.Errorf("statestore: %w", err)
	}
	return privateKey, nil
}

// KeyProtected reports whether the stored private key is sealed under
// a passphrase.
func (s *Store) KeyProtected() (bool, error) {
	data, err := s.Read(FilePrivateKey)
	if err != nil {
		return false, err
	}
	defer clear(data)
	return keys.IsProtected(data), nil
}

// SaveInstallation records a completed installation. Device and
// session state from an earlier installation is cleared.
func (s *Store) SaveInstallation(result *bunq.InstallResult) error {
	if err := s.Write(FileInstallationToken, []byte(result.Token)); err != nil {
		return err
	}
	if err := s.Write(FileServerPublicKey, []byte(result.ServerPublicKeyPEM)); err != nil {
		return err
	}
	if err := s.Remove(FileSessionToken); err != nil {
		return err
	}
	now := s.clock.Now()
	return s.UpdateManifest(func(manifest *Manifest) {
		if s.environment != "" {
			manifest.Environment = s.environment
		}
		manifest.InstallationID = result.ID
		manifest.InstalledAt = now
		manifest.DeviceID = 0
		manifest.DeviceRegisteredAt = time.Time{}
		manifest.clearSession()
	})
}

// SaveDevice records a registered device-server id.
func (s *Store) SaveDevice(deviceID int64) error {
	now := s.clock.Now()
	return s.UpdateManifest(func(manifest *Manifest) {
		manifest.DeviceID = deviceID
		manifest.DeviceRegisteredAt = now
	})
}

// SaveSession records a started session and its token.
func (s *Store) SaveSession(session *bunq.Session) error {
	if err := s.Write(FileSessionToken, []byte(session.Token)); err != nil {
		return err
	}
	now := s.clock.Now()
	return s.UpdateManifest(func(manifest *Manifest) {
		manifest.SessionID = session.ID
		manifest.SessionStartedAt = now
		manifest.UserID = session.UserID
		manifest.UserName = ""
		if session.User != nil {
			manifest.UserName = session.User.Name()
		}
	})
}

// SaveAPIKey stores the bunq API key.
func (s *Store) SaveAPIKey(apiKey []byte) error {
	trimmed := bytes.TrimSpace(apiKey)
	if len(trimmed) == 0 {
		return fmt.Errorf("statestore: API key is empty")
	}
	return s.Write(FileAPIKey, trimmed)
}

// Credentials assembles credentials for an API call. The session token
// is used when present, the installation token otherwise, and no token
// before installation. The server public key is attached when known.
func (s *Store) Credentials(passphrase []byte) (bunq.Credentials, error) {
	credentials, err := s.baseCredentials(passphrase)
	if err != nil {
		return bunq.Credentials{}, err
	}
	for _, name := range []string{FileSessionToken, FileInstallationToken} {
		token, err := s.readToken(name)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return bunq.Credentials{}, err
		}
		return credentials.WithToken(token), nil
	}
	return credentials, nil
}

// InstallationCredentials assembles credentials carrying the
// installation token, as device registration and session start
// require. It fails with ErrNotFound before installation.
func (s *Store) InstallationCredentials(passphrase []byte) (bunq.Credentials, error) {
	credentials, err := s.baseCredentials(passphrase)
	if err != nil {
		return bunq.Credentials{}, err
	}
	token, err := s.readToken(FileInstallationToken)
	if err != nil {
		return bunq.Credentials{}, err
	}
	if credentials.ServerPublicKey() == nil {
		return bunq.Credentials{}, fmt.Errorf("%w: %s", ErrNotFound, FileServerPublicKey)
	}
	return credentials.WithToken(token), nil
}

func (s *Store) baseCredentials(passphrase []byte) (bunq.Credentials, error) {
	privateKey, err := s.PrivateKey(passphrase)
	if err != nil {
		return bunq.Credentials{}, err
	}
	publicPEM, err := s.Read(FilePublicKey)
	if err != nil {
		return bunq.Credentials{}, err
	}
	credentials, err := bunq.NewCredentials(privateKey, string(publicPEM))
	if err != nil {
		return bunq.Credentials{}, err
	}

	serverPEM, err := s.Read(FileServerPublicKey)
	if errors.Is(err, ErrNotFound) {
		return credentials, nil
	}
	if err != nil {
		return bunq.Credentials{}, err
	}
	serverKey, err := keys.ParsePublicKey(serverPEM)
	if err != nil {
		return bunq.Credentials{}, fmt.Errorf("statestore: %s: %w", FileServerPublicKey, err)
	}
	return credentials.WithServerPublicKey(serverKey), nil
}

func (s *Store) readToken(name string) (string, error) {
	data, err := s.Read(name)
	if err != nil {
		return "", err
	}
	token := string(bytes.TrimSpace(data))
	if token == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrNotFound, name)
	}
	return token, nil
}
