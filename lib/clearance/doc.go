// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clearance manages the anti-bot cookies that let requests
// past the Cloudflare interstitial.
//
// A [Snapshot] is one complete cookie set plus the User-Agent of the
// browser that earned it. The two are only valid together: the
// clearance cookie is bound to the fingerprint and agent string that
// solved the challenge.
//
// [Cell] holds the current snapshot for a client. Readers get the whole
// snapshot, refreshers replace the whole snapshot; no reader ever sees
// a mix of old and new cookies.
//
// [Store] persists snapshots to the cookie file, optionally sealed with
// age. [ServiceRefresher] asks the out-of-process browser service for a
// new snapshot. [SaveOnRefresh] joins the two so every refresh is
// written back to disk.
package clearance
