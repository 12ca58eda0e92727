// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package impersonate builds the HTTP transport that presents a desktop
// browser's TLS and HTTP/2 fingerprint.
//
// Cloudflare scores the TLS ClientHello and the HTTP/2 SETTINGS frame
// before any cookie is looked at. A clearance cookie earned by a real
// Chrome is only honored while the fingerprint keeps matching, so every
// request to the chat API goes through a client built here.
//
// The client has no timeout. Responses are long-lived event streams;
// callers bound latency with their context.
package impersonate
