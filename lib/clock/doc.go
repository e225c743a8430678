// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Code that records timestamps (the state directory manifest, for one)
// takes a Clock instead of calling time.Now directly. Production wires
// Real(); tests wire Fake() and move time explicitly:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	store, _ := statestore.Open(dir, statestore.Options{Clock: c})
//	c.Advance(time.Hour)
//
// The client performs no retries, refresh or backoff, so nothing in the
// module waits on a timer; the interface covers reading the time only.
package clock
