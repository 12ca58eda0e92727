// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrEmpty is returned when a secret source holds only whitespace.
var ErrEmpty = errors.New("secret: empty secret")

// ReadFromPath reads a secret from path, or the first line of stdin when
// path is "-". Surrounding whitespace is trimmed; the heap copy is
// zeroed before returning.
func ReadFromPath(path string) (*Buffer, error) {
	if path == "-" {
		return readFirstLine(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("secret: %w", err)
	}
	return fromTrimmed(data)
}

// FromEnv moves the value of the environment variable name into a
// Buffer. Returns (nil, nil) when the variable is unset or blank so
// callers can fall through to the next source.
func FromEnv(name string) (*Buffer, error) {
	value, ok := os.LookupEnv(name)
	if !ok || len(bytes.TrimSpace([]byte(value))) == 0 {
		return nil, nil
	}
	return fromTrimmed([]byte(value))
}

func readFirstLine(reader io.Reader) (*Buffer, error) {
	scanner := bufio.NewScanner(reader)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("secret: reading stdin: %w", err)
		}
		return nil, ErrEmpty
	}
	return fromTrimmed(scanner.Bytes())
}

func fromTrimmed(data []byte) (*Buffer, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		Zero(data)
		return nil, ErrEmpty
	}
	buffer, err := NewFromBytes(trimmed)
	Zero(data)
	return buffer, err
}
