// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package powmodule

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"
)

var (
	wasmMagic = []byte{0x00, 'a', 's', 'm'}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Digest returns the lowercase hex BLAKE3-256 digest of wasm. This is
// the value to pin in configuration.
func Digest(wasm []byte) string {
	sum := blake3.Sum256(wasm)
	return hex.EncodeToString(sum[:])
}

// ReadModuleFile reads a module binary from path. Files starting with
// the zstd frame magic are decompressed. When digest is non-empty the
// decompressed bytes must hash to it (see Digest), otherwise the file
// is rejected as corrupt or substituted.
func ReadModuleFile(path, digest string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("powmodule: reading %s: %w", path, err)
	}

	if bytes.HasPrefix(data, zstdMagic) {
		decoder, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("powmodule: creating zstd decoder: %w", err)
		}
		defer decoder.Close()

		data, err = decoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("powmodule: decompressing %s: %w", path, err)
		}
	}

	if !bytes.HasPrefix(data, wasmMagic) {
		return nil, fmt.Errorf("powmodule: %s is not a WebAssembly module", path)
	}

	if digest != "" {
		actual := Digest(data)
		if !strings.EqualFold(actual, digest) {
			return nil, fmt.Errorf("powmodule: %s digest mismatch: got %s, want %s", path, actual, digest)
		}
	}

	return data, nil
}

// LoadFile is ReadModuleFile followed by Load.
func LoadFile(ctx context.Context, path, digest string, options Options) (*Module, error) {
	wasm, err := ReadModuleFile(path, digest)
	if err != nil {
		return nil, err
	}
	return Load(ctx, wasm, options)
}
