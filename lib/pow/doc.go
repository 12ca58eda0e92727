// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package pow turns server-issued proof-of-work challenges into the
// encoded response token carried in the x-ds-pow-response header.
//
// The numeric search is delegated to a [Hasher] (in production a
// *powmodule.Module). Everything else in the token is copied verbatim
// from the challenge: the server verifies the signature over those
// fields, so the solver must not normalize or reorder their values.
//
// A challenge is single-use. Callers fetch a fresh [Challenge] for
// every gated request and never cache a [Token].
package pow
