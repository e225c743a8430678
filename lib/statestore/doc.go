// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package statestore keeps the client key pair and bunq tokens in a
// directory, one value per file:
//
//	private             client private key PEM, sealed when a passphrase is set
//	public              client public key PEM
//	api_key             bunq API key
//	installation_token  token from POST /installation
//	server_public_key   server key PEM from POST /installation
//	session_token       token from POST /session-server
//	manifest.cbor       ids, timestamps and key fingerprint
//
// Every write goes through a temporary file and a rename, so a crash
// never leaves a half-written token behind. Files are created 0600 and
// the directory 0700.
//
// [Store.Credentials] assembles [bunq.Credentials] from whatever the
// directory holds, preferring the session token over the installation
// token. [Store.Export] and [Store.Import] convert between a directory
// and a [bundle.Bundle].
package statestore
