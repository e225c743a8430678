// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil bounds HTTP response reads.
//
// A bunq response body is signed as a whole, so it has to be buffered
// before the signature can be checked. ReadResponse caps that buffer at
// MaxResponseSize and reports an over-long body as an error instead of
// truncating it, since a truncated body could never verify anyway.
package netutil

import (
	"errors"
	"fmt"
	"io"
)

// MaxResponseSize is the largest response body ReadResponse accepts:
// 32 MiB. Paged bunq listings are a few hundred kilobytes at most.
const MaxResponseSize int64 = 32 << 20

// ErrResponseTooLarge is returned when a body exceeds the read limit.
var ErrResponseTooLarge = errors.New("response body too large")

// ReadResponse reads body up to MaxResponseSize bytes.
func ReadResponse(body io.Reader) ([]byte, error) {
	return readLimited(body, MaxResponseSize)
}

func readLimited(body io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, limit)
	}
	return data, nil
}
