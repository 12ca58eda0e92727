// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts the time operations used by retry and refresh
// loops so tests can drive them deterministically.
//
// Production code takes a [Clock] and is given [Real]. Tests give it a
// [FakeClock] from [Fake] and move time forward explicitly:
//
//	fake := clock.Fake(start)
//	go func() { result <- client.CreateSession(ctx) }()
//	fake.WaitForTimers(1) // the retry loop is now sleeping
//	fake.Advance(time.Second)
//
// Nothing in this package starts goroutines of its own.
package clock
