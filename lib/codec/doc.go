// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the module's one CBOR configuration.
//
// JSON is the wire format of the bunq API and of CLI output. CBOR is
// used for what this module writes for itself: the state directory
// manifest and the payload of exported state bundles. Both go through
// this package so they encode identically.
//
//	data, err := codec.Marshal(manifest)
//	err = codec.Unmarshal(data, &manifest)
//
// Types that are only ever CBOR use `cbor` struct tags. fxamacker/cbor
// falls back to `json` tags, so a type shared with JSON output carries
// `json` tags only. Never put both on one field.
package codec
