// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed encrypts the clearance cookie file at rest with age.
//
// Sealed files are ASCII-armored age payloads addressed to one or more
// x25519 recipients, so they remain hand-inspectable and diff cleanly.
// [IsSealed] tells a sealed file from a plaintext one by its armor
// header, which lets the cookie store read either form.
//
// Identities are held in [secret.Buffer] values and are never copied
// into long-lived heap strings.
package sealed
