// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package bundle moves a bunq state directory between machines as a
// single encrypted text blob.
//
// A [Bundle] is the set of state files plus a creation timestamp. [Seal]
// encodes it as deterministic CBOR, optionally compresses it with LZ4
// or zstd, encrypts the result to one or more age X25519 recipients and
// returns standard base64 text that survives copy and paste. [Open]
// reverses each step with an age identity.
//
// Identities come from [GenerateIdentity]; the secret half is held in a
// [secret.Buffer] and only ever leaves it as the string that age's
// parser requires.
//
// Sealed plaintext layout, before encryption:
//
//	byte 0     compression tag (0 none, 1 lz4, 2 zstd)
//	bytes 1-4  uncompressed length, big endian
//	bytes 5-   payload
package bundle
