// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bunq

import (
	"context"
	"net/http"
	"slices"
	"strconv"
)

// PermittedIPStatusActive is the status a new permitted IP gets when
// the caller does not choose one.
const PermittedIPStatusActive = "ACTIVE"

// Options for each resource operation. Method selects the verb; an ID
// of 0 means absent. Bodies are only consulted for POST.

// InstallationOptions selects an installation call.
type InstallationOptions struct {
	Method string
	ID     int64
}

// DeviceOptions selects a device call.
type DeviceOptions struct {
	Method string
	ID     int64
}

// DeviceServerOptions selects a device-server call.
type DeviceServerOptions struct {
	Method string
	ID     int64
	Body   *DeviceServerBody
}

// DeviceServerBody registers the calling key pair as a device. Secret
// is the API key.
type DeviceServerBody struct {
	Description  string   `json:"description"`
	Secret       string   `json:"secret"`
	PermittedIPs []string `json:"permitted_ips,omitempty"`
}

// SessionServerOptions selects a session-server call.
type SessionServerOptions struct {
	Method string
	Body   *SessionServerBody
}

// SessionServerBody opens a session for the API key in Secret.
type SessionServerBody struct {
	Secret string `json:"secret"`
}

// UserOptions selects a user call.
type UserOptions struct {
	Method string
	ID     int64
}

// MonetaryAccountOptions selects a monetary-account call. UserID is
// required.
type MonetaryAccountOptions struct {
	Method string
	UserID int64
	ID     int64
}

// CredentialPasswordIPOptions selects a credential-password-ip call.
// UserID is required.
type CredentialPasswordIPOptions struct {
	Method string
	UserID int64
	ID     int64
}

// PermittedIPOptions selects a permitted-IP call. UserID and
// CredentialID are required.
type PermittedIPOptions struct {
	Method       string
	UserID       int64
	CredentialID int64
	Body         *PermittedIPBody
}

// PermittedIPBody adds an IP to a credential. An empty Status is sent
// as PermittedIPStatusActive.
type PermittedIPBody struct {
	IP     string `json:"ip"`
	Status string `json:"status"`
}

// operation names a resource and its method allow-list.
type operation struct {
	name    string
	methods []string
}

var (
	operationInstallation          = operation{"installation", []string{http.MethodPost, http.MethodGet}}
	operationInstallationServerKey = operation{"installation server-public-key", []string{http.MethodGet}}
	operationDevice                = operation{"device", []string{http.MethodGet}}
	operationDeviceServer          = operation{"device-server", []string{http.MethodPost, http.MethodGet}}
	operationSessionServer         = operation{"session-server", []string{http.MethodPost}}
	operationUser                  = operation{"user", []string{http.MethodGet}}
	operationMonetaryAccount       = operation{"monetary-account", []string{http.MethodGet}}
	operationCredentialPasswordIP  = operation{"credential-password-ip", []string{http.MethodGet}}
	operationPermittedIP           = operation{"permitted-ip", []string{http.MethodGet, http.MethodPost}}
)

func (op operation) allow(method string) error {
	if slices.Contains(op.methods, method) {
		return nil
	}
	return &UnsupportedMethodError{Operation: op.name, Method: method, Allowed: op.methods}
}

func (op operation) require(parameter string, present bool) error {
	if present {
		return nil
	}
	return &MissingParameterError{Operation: op.name, Parameter: parameter}
}

// withID appends "/{id}" when id is set.
func withID(path string, id int64) string {
	if id == 0 {
		return path
	}
	return path + "/" + strconv.FormatInt(id, 10)
}

func userPath(userID int64) string {
	return "/user/" + strconv.FormatInt(userID, 10)
}

// Installation registers the credentials' public key (POST) or reads
// installations (GET, optionally by id). POST is the only call that
// may run with credentials carrying no token.
func (client *Client) Installation(ctx context.Context, credentials Credentials, options InstallationOptions) (*Response, error) {
	if err := operationInstallation.allow(options.Method); err != nil {
		return nil, err
	}
	if options.Method == http.MethodPost {
		return client.Do(ctx, credentials, options.Method, "/installation", map[string]string{
			"client_public_key": credentials.PublicKeyPEM(),
		})
	}
	return client.Do(ctx, credentials, options.Method, withID("/installation", options.ID), nil)
}

// InstallationServerPublicKey reads the server public key of an
// installation. ID is required.
func (client *Client) InstallationServerPublicKey(ctx context.Context, credentials Credentials, options InstallationOptions) (*Response, error) {
	if err := operationInstallationServerKey.allow(options.Method); err != nil {
		return nil, err
	}
	if err := operationInstallationServerKey.require("installation id", options.ID != 0); err != nil {
		return nil, err
	}
	return client.Do(ctx, credentials, options.Method, withID("/installation", options.ID)+"/server-public-key", nil)
}

// Device lists devices or reads one by id.
func (client *Client) Device(ctx context.Context, credentials Credentials, options DeviceOptions) (*Response, error) {
	if err := operationDevice.allow(options.Method); err != nil {
		return nil, err
	}
	return client.Do(ctx, credentials, options.Method, withID("/device", options.ID), nil)
}

// DeviceServer registers a device (POST, Body required) or reads
// device-servers (GET, optionally by id).
func (client *Client) DeviceServer(ctx context.Context, credentials Credentials, options DeviceServerOptions) (*Response, error) {
	if err := operationDeviceServer.allow(options.Method); err != nil {
		return nil, err
	}
	if options.Method == http.MethodPost {
		if err := operationDeviceServer.require("body", options.Body != nil); err != nil {
			return nil, err
		}
		return client.Do(ctx, credentials, options.Method, "/device-server", options.Body)
	}
	return client.Do(ctx, credentials, options.Method, withID("/device-server", options.ID), nil)
}

// SessionServer opens a session. Body is required.
func (client *Client) SessionServer(ctx context.Context, credentials Credentials, options SessionServerOptions) (*Response, error) {
	if err := operationSessionServer.allow(options.Method); err != nil {
		return nil, err
	}
	if err := operationSessionServer.require("body", options.Body != nil); err != nil {
		return nil, err
	}
	return client.Do(ctx, credentials, options.Method, "/session-server", options.Body)
}

// User lists users or reads one by id.
func (client *Client) User(ctx context.Context, credentials Credentials, options UserOptions) (*Response, error) {
	if err := operationUser.allow(options.Method); err != nil {
		return nil, err
	}
	return client.Do(ctx, credentials, options.Method, withID("/user", options.ID), nil)
}

// MonetaryAccount lists a user's monetary accounts or reads one by id.
func (client *Client) MonetaryAccount(ctx context.Context, credentials Credentials, options MonetaryAccountOptions) (*Response, error) {
	if err := operationMonetaryAccount.allow(options.Method); err != nil {
		return nil, err
	}
	if err := operationMonetaryAccount.require("user id", options.UserID != 0); err != nil {
		return nil, err
	}
	return client.Do(ctx, credentials, options.Method, withID(userPath(options.UserID)+"/monetary-account", options.ID), nil)
}

// CredentialPasswordIP lists a user's IP-restricted credentials or
// reads one by id.
func (client *Client) CredentialPasswordIP(ctx context.Context, credentials Credentials, options CredentialPasswordIPOptions) (*Response, error) {
	if err := operationCredentialPasswordIP.allow(options.Method); err != nil {
		return nil, err
	}
	if err := operationCredentialPasswordIP.require("user id", options.UserID != 0); err != nil {
		return nil, err
	}
	return client.Do(ctx, credentials, options.Method, withID(userPath(options.UserID)+"/credential-password-ip", options.ID), nil)
}

// PermittedIP lists (GET) or adds (POST, Body required) the IPs allowed
// to use a credential.
func (client *Client) PermittedIP(ctx context.Context, credentials Credentials, options PermittedIPOptions) (*Response, error) {
	if err := operationPermittedIP.allow(options.Method); err != nil {
		return nil, err
	}
	if err := operationPermittedIP.require("user id", options.UserID != 0); err != nil {
		return nil, err
	}
	if err := operationPermittedIP.require("credential id", options.CredentialID != 0); err != nil {
		return nil, err
	}
	path := withID(userPath(options.UserID)+"/credential-password-ip", options.CredentialID) + "/ip"

	if options.Method == http.MethodPost {
		if err := operationPermittedIP.require("body", options.Body != nil); err != nil {
			return nil, err
		}
		body := *options.Body
		if body.Status == "" {
			body.Status = PermittedIPStatusActive
		}
		return client.Do(ctx, credentials, options.Method, path, body)
	}
	return client.Do(ctx, credentials, options.Method, path, nil)
}
