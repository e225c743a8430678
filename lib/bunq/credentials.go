// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bunq

import (
	"crypto/rsa"
	"fmt"
)

// Credentials is the key material and token a call is made with. The
// zero value is unusable; construct with [NewCredentials]. Credentials
// is a value type with unexported fields: the With* methods return
// modified copies and never change the receiver, so one value can be
// shared freely between goroutines.
type Credentials struct {
	privateKey      *rsa.PrivateKey
	publicKeyPEM    string
	serverPublicKey *rsa.PublicKey
	token           string
}

// NewCredentials creates credentials for a client key pair. The public
// PEM is what the installation call registers with the server.
func NewCredentials(privateKey *rsa.PrivateKey, publicKeyPEM string) (Credentials, error) {
	if privateKey == nil {
		return Credentials{}, fmt.Errorf("bunq: credentials require a private key")
	}
	if publicKeyPEM == "" {
		return Credentials{}, fmt.Errorf("bunq: credentials require a public key PEM")
	}
	return Credentials{privateKey: privateKey, publicKeyPEM: publicKeyPEM}, nil
}

// WithToken returns a copy carrying token as the authentication header
// value. The installation token authenticates device registration and
// session start; the session token authenticates everything else.
func (credentials Credentials) WithToken(token string) Credentials {
	credentials.token = token
	return credentials
}

// WithServerPublicKey returns a copy that verifies responses against
// serverPublicKey.
func (credentials Credentials) WithServerPublicKey(serverPublicKey *rsa.PublicKey) Credentials {
	credentials.serverPublicKey = serverPublicKey
	return credentials
}

// PrivateKey returns the signing key.
func (credentials Credentials) PrivateKey() *rsa.PrivateKey { return credentials.privateKey }

// PublicKeyPEM returns the client public key in SPKI PEM form.
func (credentials Credentials) PublicKeyPEM() string { return credentials.publicKeyPEM }

// ServerPublicKey returns the key responses are verified against, or
// nil before installation.
func (credentials Credentials) ServerPublicKey() *rsa.PublicKey { return credentials.serverPublicKey }

// Token returns the authentication token, or "" before installation.
func (credentials Credentials) Token() string { return credentials.token }

func (credentials Credentials) valid() error {
	if credentials.privateKey == nil {
		return fmt.Errorf("bunq: credentials have no private key (use NewCredentials)")
	}
	return nil
}
