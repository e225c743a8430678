// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package signature implements the bunq request-signing and
// response-verification protocol.
//
// Outgoing requests are signed over a canonical string built from the
// method, the versioned request URI, the signable headers sorted by
// key, and the body:
//
//	POST /v1/installation
//	Cache-Control: no-cache
//	User-Agent: bunq-client/1.0
//	X-Bunq-Client-Request-Id: a1b2c3d
//	X-Bunq-Geolocation: 0 0 0 00 NL
//	X-Bunq-Language: en_US
//	X-Bunq-Region: en_US
//
//	{"client_public_key":"-----BEGIN PUBLIC KEY-----\n..."}
//
// A header is signable when its name starts with [VendorPrefix] or is
// exactly Cache-Control or User-Agent. Key comparison is ordinal and
// case-sensitive; callers pass header names in their canonical MIME
// form.
//
// Server responses are verified over a narrower string: the status
// code, the client request id, the client response id, a blank line,
// and the body. No other response headers participate. The two shapes
// differ on purpose: the server computes its signature this way, so
// the asymmetry must be kept for the signatures to match.
//
// Both directions use RSASSA-PKCS1-v1_5 with SHA-256 and standard
// base64 for the header value. Key material arrives already parsed;
// decrypting a passphrase-protected key is the job of lib/keys.
package signature
