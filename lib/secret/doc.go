// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds the bearer token and age identities outside the
// Go heap.
//
// A [Buffer] is an anonymous mmap region, locked against swap (mlock)
// and excluded from core dumps (MADV_DONTDUMP). Close zeroes and
// unmaps it. Because the garbage collector never sees the region, the
// token cannot be copied around the heap by compaction or survive in a
// crash dump.
//
// Constructors: [New], [NewFromBytes] (zeroes the source),
// [ReadFromPath] (file or stdin) and [FromEnv] (environment variable).
package secret
