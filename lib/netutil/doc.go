// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil bounds every non-streaming response body read.
//
// JSON envelopes from the chat API and the clearance service are read
// through [ReadResponse] or [DecodeResponse], which stop at
// [MaxResponseSize]. Error and challenge pages are read through
// [ReadPrefix], which stops much earlier: only the first few kilobytes
// are ever needed to classify them. Streaming bodies are never passed
// here.
package netutil
