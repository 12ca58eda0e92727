// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// dsk is a terminal client for the DeepSeek chat web API.
//
// Usage:
//
//	dsk chat [--session ID] [--parent ID] [--thinking] [--search] PROMPT
//	dsk session
//	dsk cookies refresh|show|keygen
//	dsk version
//
// Configuration comes from the YAML file named by --config or
// DSK_CONFIG; without either, built-in defaults apply. The bearer token
// is read from --token-file, then DEEPSEEK_AUTH_TOKEN (a .env file in
// the working directory is loaded first), then token_file in the
// config, then an interactive prompt.
//
// Exit status reflects the failure class: 2 for usage errors, 3 for a
// rejected token, 4 when rate limited, 5 when blocked by the bot
// challenge, 6 when the cookie service failed, 7 when the
// proof-of-work could not be solved, 8 for network failures, 9 for
// protocol and stream errors, 130 when interrupted.
package main
