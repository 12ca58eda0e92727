// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package apierror defines the typed failure vocabulary shared by the
// chat client, the proof-of-work solver, and the clearance cookie
// machinery.
//
// Every failure that crosses a public call boundary (session creation,
// challenge fetch, message send, stream iteration) is an [*Error] whose
// [Kind] tells the caller what to do next:
//
//   - [KindAuthentication]: the bearer token is bad or expired. Stop.
//   - [KindRateLimit]: back off and retry the call later.
//   - [KindBotBlocked]: the anti-bot challenge survived every cookie
//     refresh the client was allowed to attempt.
//   - [KindProtocol]: the server answered with something unexpected.
//     StatusCode and Body carry the evidence.
//   - [KindPowUnsolvable]: the hashing module found no answer.
//   - [KindStreamDecode]: the event stream broke mid-flight.
//   - [KindCookieRefresh]: the out-of-process cookie harvester failed.
//   - [KindNetwork]: the transport failed before a response arrived.
//
// Callers match kinds with errors.Is against the exported sentinels
// ([ErrAuthentication], [ErrRateLimit], ...) or with [KindOf].
//
// This package has no internal dependencies.
package apierror
