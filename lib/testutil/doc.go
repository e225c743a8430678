// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for bunq packages.
//
// [FakeBunq] is a TLS server that behaves like the bunq API as far as
// signing goes: it checks every request signature against the client
// key, signs every response with its own server key and echoes the
// request id. It learns the client key from the installation request,
// as the real server does, so an end-to-end test can start from an
// empty state directory. Routes are canned bodies keyed by method and
// path; unrouted paths get a signed 404 error envelope.
//
// [RSAKey] hands out 2048-bit keys cached by name for the life of the
// test binary, since generating them dominates test time otherwise.
//
// [EnvelopeJSON] builds {"Response":[...]} bodies from kind/value
// pairs.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil
