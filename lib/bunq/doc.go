// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package bunq is a signing client for the bunq public REST API.
//
// Every request is signed with the client's RSA key (see lib/signature)
// and every response can be checked against the server public key
// handed out at installation. The client itself holds no session
// state: callers pass an immutable [Credentials] value into each call,
// and derive new values as the bootstrap progresses:
//
//	creds, _ := bunq.NewCredentials(pair.Private, pair.PublicPEM)
//	installation, _ := client.Install(ctx, creds)            // installation token + server key
//	_, _ = client.RegisterDevice(ctx, installation.Credentials, device)
//	session, _ := client.StartSession(ctx, installation.Credentials, apiKey)
//	accounts, _ := client.MonetaryAccount(ctx, session.Credentials, bunq.MonetaryAccountOptions{
//		Method: http.MethodGet,
//		UserID: session.UserID,
//	})
//
// [Client.Do] is the generic call: it returns the raw response without
// interpreting the status code. The resource operations ([Client.Installation],
// [Client.DeviceServer], [Client.MonetaryAccount], ...) check the method
// against a per-resource allow-list and validate required identifiers
// before anything is signed. [Client.Verify] checks the server
// signature and [DecodeEnvelope] turns the "Response" array into typed
// entities.
//
// There are no retries, no token refresh, and no rate limiting. A
// failed verification is fatal to the operation that produced it.
package bunq
