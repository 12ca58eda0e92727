// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

// MaxResponseSize bounds JSON envelope reads: 8 MiB.
const MaxResponseSize int64 = 8 << 20

// MaxPrefixSize bounds reads of error and interstitial pages: 64 KiB.
const MaxPrefixSize int64 = 64 << 10

// ReadResponse reads body up to MaxResponseSize bytes.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// DecodeResponse reads body up to MaxResponseSize bytes and
// JSON-decodes it into v.
func DecodeResponse(body io.Reader, v any) error {
	data, err := ReadResponse(body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding response body: %w", err)
	}
	return nil
}

// ReadPrefix reads at most limit bytes of body. Read errors after some
// bytes arrived are dropped: a partial page is still classifiable.
func ReadPrefix(body io.Reader, limit int64) []byte {
	data, _ := io.ReadAll(io.LimitReader(body, limit))
	return data
}

// FirstLine returns the first non-empty line of data, trimmed.
func FirstLine(data []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 4096), len(data)+1)
	for scanner.Scan() {
		if line := bytes.TrimSpace(scanner.Bytes()); len(line) > 0 {
			return string(line)
		}
	}
	return ""
}

// ContainsAny reports whether data contains any of markers.
func ContainsAny(data []byte, markers []string) bool {
	for _, marker := range markers {
		if marker != "" && bytes.Contains(data, []byte(marker)) {
			return true
		}
	}
	return false
}

// IsConnectionError reports whether err looks like a transport-level
// failure (reset, refused, broken pipe, unexpected EOF, network
// timeout) rather than an application error.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.ECONNRESET || errno == syscall.ECONNREFUSED || errno == syscall.EPIPE
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
