// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the small command framework behind dsk: a tree of
// [Command] values with pflag flag sets, help rendering, typo
// suggestions for commands and flags, and the command logger.
//
// Handlers return errors. An error implementing ExitCode() int (see
// [ExitError]) selects the process exit status; anything else exits 1.
package cli
