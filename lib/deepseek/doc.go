// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package deepseek is a client for the DeepSeek web chat API.
//
// The API is gated twice. Every request to the completion endpoint
// carries a proof-of-work answer for a challenge fetched immediately
// before it, and every request passes Cloudflare's bot screening,
// which requires a clearance cookie bound to the client's TLS
// fingerprint.
//
// A [Client] runs each gated call as a small state machine:
//
//	fetch challenge -> solve -> send -> classify response
//	   ^                                   |
//	   +---- refresh clearance, wait <-----+ bot challenge page
//
// A Cloudflare interstitial sends the machine back to the start after
// a cookie refresh, at most Config.BotChallengeAttempts times in total.
// A 401 or 429 ends the call at once, without a refresh. Everything
// that crosses the package boundary is an *apierror.Error.
//
// [Client.SendMessage] returns a [DeltaStream] over the server-sent
// event body. The stream is pull-based: nothing is read until the
// caller asks, and closing the stream (or breaking out of
// [DeltaStream.All]) closes the connection. A delta whose finish
// reason is "stop" ends the stream even if the server keeps sending.
package deepseek
