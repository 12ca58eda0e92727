// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds helpers shared by package tests. Every channel
// wait in a test goes through [RequireReceive] or [RequireClosed] so a
// wedged goroutine fails the test with a message instead of hanging the
// run.
package testutil
