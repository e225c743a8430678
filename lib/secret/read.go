// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// MaxFileSize bounds what ReadFile accepts. Passphrases, API keys and
// age identities are all far smaller.
const MaxFileSize = 64 << 10

// ErrEmpty is returned for a secret that is empty after trimming.
var ErrEmpty = errors.New("secret: empty")

// ReadFile reads a secret from path, or from stdin when path is "-".
// Leading and trailing whitespace is dropped, so files written with
// echo work. The caller closes the returned Buffer.
func ReadFile(path string, stdin io.Reader) (*Buffer, error) {
	source := stdin
	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("secret: %w", err)
		}
		defer file.Close()
		source = file
	}
	if source == nil {
		return nil, fmt.Errorf("secret: no stdin to read from")
	}

	data, err := io.ReadAll(io.LimitReader(source, MaxFileSize+1))
	defer Zero(data)
	if err != nil {
		return nil, fmt.Errorf("secret: reading %s: %w", path, err)
	}
	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("secret: %s is larger than %d bytes", path, MaxFileSize)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrEmpty
	}
	return NewFromBytes(trimmed)
}
