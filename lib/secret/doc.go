// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds key passphrases, bunq API keys, derived sealing
// keys and age identities in memory that never reaches the Go heap.
//
// [Buffer] is backed by an anonymous mmap region that is mlocked and
// marked MADV_DONTDUMP. Close zeroes and unmaps it; any access after
// Close panics.
//
// Constructors:
//
//   - [New] allocates a zero-filled buffer
//   - [NewFromBytes] copies into protected memory and zeros the source
//   - [ReadFile] reads a trimmed secret from a file or stdin
//
// [Buffer.Equal] compares in constant time; the CLI uses it to confirm
// a passphrase typed twice. [Zero] clears heap slices that briefly held
// secret material.
package secret
