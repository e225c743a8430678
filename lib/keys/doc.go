// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package keys manages the client's RSA credential pair: generation,
// PEM encoding, passphrase protection of the private key on disk, and
// fingerprints that identify a key pair.
//
// The public key travels to the server during installation as an SPKI
// "PUBLIC KEY" PEM block. The private key never leaves the client. On
// disk it is either a plain PKCS#8 block (empty passphrase) or a
// "BUNQ ENCRYPTED PRIVATE KEY" block: the PKCS#8 DER sealed with
// XChaCha20-Poly1305 under a key derived from the passphrase with
// scrypt. The scrypt parameters and salt travel in the PEM headers, so
// a file stays readable if the defaults change.
//
// [ParsePrivateKey] also accepts PKCS#1 blocks and legacy RFC 1423
// encrypted PEM, which is what older bunq tooling produced.
//
// The passphrase is always a caller input. Nothing in this package (or
// in lib/signature, which consumes the parsed key) holds a built-in
// secret.
package keys
