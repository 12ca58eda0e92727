// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build information for the dsk binary.
//
// Release builds inject the fields with -ldflags:
//
//	go build -ldflags "-X github.com/xtekky/deepseek4free/lib/version.GitCommit=$(git rev-parse --short HEAD)" ./cmd/dsk
//
// Development builds fall back to the VCS stamp the Go toolchain embeds.
package version
