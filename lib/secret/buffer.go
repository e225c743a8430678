// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// Buffer is a passphrase, API key or age identity held in its own
// anonymous mapping. The pages are locked against swap and left out of
// core dumps. Close wipes and unmaps them.
//
// A Buffer must not be copied. Reading a closed Buffer panics.
type Buffer struct {
	mu     sync.Mutex
	region []byte
	size   int
	closed bool
}

// New returns a zero-filled Buffer of size bytes. The caller closes it.
func New(size int) (*Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("secret: size must be positive, got %d", size)
	}
	region, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("secret: mmap: %w", err)
	}
	if err := protect(region); err != nil {
		unix.Munmap(region)
		return nil, err
	}
	return &Buffer{region: region, size: size}, nil
}

func protect(region []byte) error {
	if err := unix.Mlock(region); err != nil {
		return fmt.Errorf("secret: mlock: %w", err)
	}
	if err := unix.Madvise(region, unix.MADV_DONTDUMP); err != nil {
		unix.Munlock(region)
		return fmt.Errorf("secret: madvise: %w", err)
	}
	return nil
}

// NewFromBytes moves source into a new Buffer: the bytes are copied
// and source is wiped.
func NewFromBytes(source []byte) (*Buffer, error) {
	if len(source) == 0 {
		return nil, ErrEmpty
	}
	buffer, err := New(len(source))
	if err != nil {
		Zero(source)
		return nil, err
	}
	copy(buffer.region, source)
	Zero(source)
	return buffer, nil
}

// Zero wipes data in place.
func Zero(data []byte) {
	clear(data)
}

func (b *Buffer) contents() []byte {
	if b.closed {
		panic("secret: buffer used after Close")
	}
	return b.region[:b.size]
}

// Bytes returns the secret itself, not a copy. The slice is only valid
// until Close.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.contents()
}

// String copies the secret onto the heap. It exists for APIs that only
// take strings, such as the device-server request body.
func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.contents())
}

// Equal compares b and other in constant time. A nil other is never
// equal.
func (b *Buffer) Equal(other *Buffer) bool {
	if other == nil {
		return false
	}
	return subtle.ConstantTimeCompare(b.Bytes(), other.Bytes()) == 1
}

// Len returns the secret's size in bytes.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Close wipes and releases the buffer. Calling it again does nothing.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	Zero(b.region)

	var errs []error
	if err := unix.Munlock(b.region); err != nil {
		errs = append(errs, fmt.Errorf("secret: munlock: %w", err))
	}
	if err := unix.Munmap(b.region); err != nil {
		errs = append(errs, fmt.Errorf("secret: munmap: %w", err))
	}
	b.region = nil
	return errors.Join(errs...)
}
