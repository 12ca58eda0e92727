// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package deepseek

import (
	http "github.com/bogdanfinn/fhttp"
)

// Client identity the web app presents. The server rejects unknown
// combinations, so these track the web client rather than this
// package's version.
const (
	AppVersion     = "20241129.1"
	ClientLocale   = "en_US"
	ClientPlatform = "web"
	ClientVersion  = "1.0.0-always"
)

// PowHeader carries the encoded proof-of-work token.
const PowHeader = "x-ds-pow-response"

// headerOrder is the wire order of request headers, matching the web
// app. Headers absent from a request are skipped.
var headerOrder = []string{
	"accept",
	"authorization",
	"content-type",
	"cookie",
	"user-agent",
	"x-app-version",
	"x-client-locale",
	"x-client-platform",
	"x-client-version",
	PowHeader,
}

// BuildHeaders returns the headers every API request carries: the
// bearer token, the client identity fields, and, when powToken is
// non-empty, the proof-of-work header. It has no side effects.
func BuildHeaders(bearer, powToken string) http.Header {
	header := http.Header{}
	header.Set("authorization", "Bearer "+bearer)
	header.Set("content-type", "application/json")
	header.Set("x-app-version", AppVersion)
	header.Set("x-client-locale", ClientLocale)
	header.Set("x-client-platform", ClientPlatform)
	header.Set("x-client-version", ClientVersion)
	if powToken != "" {
		header.Set(PowHeader, powToken)
	}
	header[http.HeaderOrderKey] = headerOrder
	return header
}
