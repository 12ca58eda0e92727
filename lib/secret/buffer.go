// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// Buffer is a locked, dump-excluded memory region holding one secret.
// Must not be copied. Reads after Close panic.
type Buffer struct {
	mu     sync.Mutex
	data   []byte
	closed bool
}

// New allocates a zero-filled buffer of size bytes.
func New(size int) (*Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("secret: buffer size must be positive, got %d", size)
	}

	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("secret: mmap: %w", err)
	}
	if err := unix.Mlock(data); err != nil {
		unix.Munmap(data)
		return nil, fmt.Errorf("secret: mlock: %w", err)
	}
	if err := unix.Madvise(data, unix.MADV_DONTDUMP); err != nil {
		unix.Munlock(data)
		unix.Munmap(data)
		return nil, fmt.Errorf("secret: madvise(MADV_DONTDUMP): %w", err)
	}
	return &Buffer{data: data}, nil
}

// NewFromBytes copies source into a new Buffer and zeroes source.
func NewFromBytes(source []byte) (*Buffer, error) {
	if len(source) == 0 {
		return nil, fmt.Errorf("secret: empty source")
	}
	buffer, err := New(len(source))
	if err != nil {
		Zero(source)
		return nil, err
	}
	copy(buffer.data, source)
	Zero(source)
	return buffer, nil
}

// Bytes returns the protected region itself. Do not retain the slice
// past Close.
func (buffer *Buffer) Bytes() []byte {
	buffer.mu.Lock()
	defer buffer.mu.Unlock()
	if buffer.closed {
		panic("secret: read from closed buffer")
	}
	return buffer.data
}

// String returns a heap copy of the secret. Use only where an API
// demands a string, such as an Authorization header value.
func (buffer *Buffer) String() string {
	buffer.mu.Lock()
	defer buffer.mu.Unlock()
	if buffer.closed {
		panic("secret: read from closed buffer")
	}
	return string(buffer.data)
}

// Len returns the secret length, or 0 after Close.
func (buffer *Buffer) Len() int {
	buffer.mu.Lock()
	defer buffer.mu.Unlock()
	return len(buffer.data)
}

// Close zeroes, unlocks and unmaps the region. Idempotent.
func (buffer *Buffer) Close() error {
	buffer.mu.Lock()
	defer buffer.mu.Unlock()
	if buffer.closed {
		return nil
	}
	buffer.closed = true

	Zero(buffer.data)
	var firstErr error
	if err := unix.Munlock(buffer.data); err != nil {
		firstErr = fmt.Errorf("secret: munlock: %w", err)
	}
	if err := unix.Munmap(buffer.data); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("secret: munmap: %w", err)
	}
	buffer.data = nil
	return firstErr
}

// Zero overwrites data with zeros.
func Zero(data []byte) {
	for index := range data {
		data[index] = 0
	}
}
