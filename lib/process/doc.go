// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds entrypoint helpers shared by dsk binaries.
package process
