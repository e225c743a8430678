// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bunq

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bureau-foundation/bunq/lib/keys"
)

// InstallResult is the outcome of [Client.Install].
type InstallResult struct {
	// ID is the installation id.
	ID int64

	// Token is the installation token.
	Token string

	// ServerPublicKeyPEM is the server key as received, for
	// persistence.
	ServerPublicKeyPEM string

	// Credentials carries the installation token and the parsed server
	// public key. Use it for device registration and session start.
	Credentials Credentials
}

// Session is the outcome of [Client.StartSession].
type Session struct {
	ID     int64
	Token  string
	UserID int64

	// User is the account holder the session acts for, or nil if the
	// response named no user entity.
	User User

	// Credentials carries the session token. Use it for every call
	// after bootstrap.
	Credentials Credentials
}

// BootstrapOptions configures [Client.Bootstrap]. APIKey is required.
type BootstrapOptions struct {
	APIKey       string
	Description  string
	PermittedIPs []string

	// Installed and DeviceRegistered run after their step succeeds and
	// before the next one starts; an error from either stops the
	// bootstrap. Callers persist progress from them.
	Installed        func(*InstallResult) error
	DeviceRegistered func(deviceID int64) error
}

// BootstrapResult is the outcome of [Client.Bootstrap].
type BootstrapResult struct {
	Installation *InstallResult
	DeviceID     int64
	Session      *Session
}

// Install registers the credentials' public key. The response is
// positional: Id, Token, ServerPublicKey. It is not signature-checked:
// the key it would be checked against arrives in the same response.
func (client *Client) Install(ctx context.Context, credentials Credentials) (*InstallResult, error) {
	response, err := client.Installation(ctx, credentials, InstallationOptions{Method: http.MethodPost})
	if err != nil {
		return nil, err
	}
	envelope, err := DecodeResponse(response)
	if err != nil {
		return nil, fmt.Errorf("bunq: installation: %w", err)
	}

	token, err := At[*Token](envelope, 1)
	if err != nil {
		return nil, fmt.Errorf("bunq: installation: %w", err)
	}
	serverKey, err := At[*ServerPublicKey](envelope, 2)
	if err != nil {
		return nil, fmt.Errorf("bunq: installation: %w", err)
	}
	parsedKey, err := keys.ParsePublicKey([]byte(serverKey.ServerPublicKey))
	if err != nil {
		return nil, fmt.Errorf("bunq: installation server public key: %w", err)
	}

	result := &InstallResult{
		Token:              token.Token,
		ServerPublicKeyPEM: serverKey.ServerPublicKey,
		Credentials:        credentials.WithToken(token.Token).WithServerPublicKey(parsedKey),
	}
	if id, err := At[*ID](envelope, 0); err == nil {
		result.ID = id.ID
	}

	client.logger.Info("bunq installation created", "installation_id", result.ID)
	return result, nil
}

// RegisterDevice registers the calling key pair as a device-server
// under the installation token. Returns the new device id.
func (client *Client) RegisterDevice(ctx context.Context, credentials Credentials, body DeviceServerBody) (int64, error) {
	response, err := client.DeviceServer(ctx, credentials, DeviceServerOptions{Method: http.MethodPost, Body: &body})
	if err != nil {
		return 0, err
	}
	envelope, err := client.VerifiedEnvelope(credentials, response)
	if err != nil {
		return 0, fmt.Errorf("bunq: device registration: %w", err)
	}
	id, err := Find[*ID](envelope)
	if err != nil {
		return 0, fmt.Errorf("bunq: device registration: %w", err)
	}

	client.logger.Info("bunq device registered", "device_id", id.ID, "description", body.Description)
	return id.ID, nil
}

// StartSession opens a session for apiKey under the installation
// token. The response is positional: Id, Token, then a user entity
// whose kind depends on the account.
func (client *Client) StartSession(ctx context.Context, credentials Credentials, apiKey string) (*Session, error) {
	response, err := client.SessionServer(ctx, credentials, SessionServerOptions{
		Method: http.MethodPost,
		Body:   &SessionServerBody{Secret: apiKey},
	})
	if err != nil {
		return nil, err
	}
	envelope, err := client.VerifiedEnvelope(credentials, response)
	if err != nil {
		return nil, fmt.Errorf("bunq: session start: %w", err)
	}

	token, err := At[*Token](envelope, 1)
	if err != nil {
		return nil, fmt.Errorf("bunq: session start: %w", err)
	}

	session := &Session{
		Token:       token.Token,
		Credentials: credentials.WithToken(token.Token),
	}
	if id, err := At[*ID](envelope, 0); err == nil {
		session.ID = id.ID
	}
	if user, err := Find[User](envelope); err == nil {
		session.User = user
		session.UserID = user.UserID()
	}

	client.logger.Info("bunq session started", "session_id", session.ID, "user_id", session.UserID)
	return session, nil
}

// Bootstrap runs installation, device registration and session start
// in order and stops at the first failure.
func (client *Client) Bootstrap(ctx context.Context, credentials Credentials, options BootstrapOptions) (*BootstrapResult, error) {
	if options.APIKey == "" {
		return nil, &MissingParameterError{Operation: "bootstrap", Parameter: "API key"}
	}

	installation, err := client.Install(ctx, credentials)
	if err != nil {
		return nil, err
	}
	if options.Installed != nil {
		if err := options.Installed(installation); err != nil {
			return nil, err
		}
	}
	deviceID, err := client.RegisterDevice(ctx, installation.Credentials, DeviceServerBody{
		Description:  options.Description,
		Secret:       options.APIKey,
		PermittedIPs: options.PermittedIPs,
	})
	if err != nil {
		return nil, err
	}
	if options.DeviceRegistered != nil {
		if err := options.DeviceRegistered(deviceID); err != nil {
			return nil, err
		}
	}
	session, err := client.StartSession(ctx, installation.Credentials, options.APIKey)
	if err != nil {
		return nil, err
	}
	return &BootstrapResult{
		Installation: installation,
		DeviceID:     deviceID,
		Session:      session,
	}, nil
}

// VerifiedEnvelope checks the response signature and then decodes it.
// Error envelopes are verified too.
func (client *Client) VerifiedEnvelope(credentials Credentials, response *Response) (*Envelope, error) {
	if err := client.Verify(credentials, response); err != nil {
		return nil, err
	}
	return DecodeResponse(response)
}
