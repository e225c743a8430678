// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bundle

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/bureau-foundation/bunq/lib/codec"
)

// FormatVersion is written into every bundle. Open rejects bundles
// with a different version.
const FormatVersion = 1

// Bundle is a snapshot of a state directory.
type Bundle struct {
	Version     int               `cbor:"version"`
	CreatedAt   time.Time         `cbor:"created_at"`
	Environment string            `cbor:"environment,omitempty"`
	Files       map[string][]byte `cbor:"files"`
}

// Names returns the file names in sorted order.
func (b *Bundle) Names() []string {
	return slices.Sorted(maps.Keys(b.Files))
}

// Size returns the total length of all file contents.
func (b *Bundle) Size() int {
	total := 0
	for _, content := range b.Files {
		total += len(content)
	}
	return total
}

// Wipe zeroes every file content in place. Call it once an opened
// bundle has been written to disk.
func (b *Bundle) Wipe() {
	for _, content := range b.Files {
		clear(content)
	}
}

func (b *Bundle) encode() ([]byte, error) {
	if b.Version == 0 {
		copied := *b
		copied.Version = FormatVersion
		b = &copied
	}
	if len(b.Files) == 0 {
		return nil, fmt.Errorf("bundle: no files to seal")
	}
	data, err := codec.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("bundle: encoding: %w", err)
	}
	return data, nil
}

func decode(data []byte) (*Bundle, error) {
	var b Bundle
	if err := codec.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("bundle: decoding: %w", err)
	}
	if b.Version != FormatVersion {
		return nil, fmt.Errorf("bundle: unsupported format version %d", b.Version)
	}
	return &b, nil
}
