// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clearance

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync/atomic"
)

// ClearanceCookie is the cookie Cloudflare issues once a challenge is
// solved.
const ClearanceCookie = "cf_clearance"

// Snapshot is a cookie set and the User-Agent it was issued to. The
// JSON form is the cookie file format.
type Snapshot struct {
	Cookies   map[string]string `json:"cookies"`
	UserAgent string            `json:"user_agent"`
}

// Empty reports whether the snapshot carries no cookies.
func (snapshot Snapshot) Empty() bool {
	return len(snapshot.Cookies) == 0
}

// HasClearance reports whether the Cloudflare clearance cookie is
// present.
func (snapshot Snapshot) HasClearance() bool {
	return snapshot.Cookies[ClearanceCookie] != ""
}

// CookieHeader renders the Cookie request header value. Names are
// sorted so the header is stable across calls.
func (snapshot Snapshot) CookieHeader() string {
	var builder strings.Builder
	for _, name := range slices.Sorted(maps.Keys(snapshot.Cookies)) {
		if builder.Len() > 0 {
			builder.WriteString("; ")
		}
		builder.WriteString(name)
		builder.WriteByte('=')
		builder.WriteString(snapshot.Cookies[name])
	}
	return builder.String()
}

// Names returns the cookie names, sorted. Values are never logged.
func (snapshot Snapshot) Names() []string {
	return slices.Sorted(maps.Keys(snapshot.Cookies))
}

func (snapshot Snapshot) clone() Snapshot {
	return Snapshot{Cookies: maps.Clone(snapshot.Cookies), UserAgent: snapshot.UserAgent}
}

// Cell holds the current snapshot. The zero value holds an empty
// snapshot. Safe for concurrent use.
type Cell struct {
	current atomic.Pointer[Snapshot]
}

// NewCell returns a Cell holding initial.
func NewCell(initial Snapshot) *Cell {
	cell := &Cell{}
	cell.Replace(initial)
	return cell
}

// Load returns the current snapshot. The returned map is shared with
// other readers and must not be modified.
func (cell *Cell) Load() Snapshot {
	if snapshot := cell.current.Load(); snapshot != nil {
		return *snapshot
	}
	return Snapshot{}
}

// Replace installs snapshot as a whole. The cell keeps its own copy.
func (cell *Cell) Replace(snapshot Snapshot) {
	copied := snapshot.clone()
	cell.current.Store(&copied)
}

// Refresher obtains a new snapshot, typically by solving a browser
// challenge. Implementations block for as long as that takes.
type Refresher interface {
	Refresh(ctx context.Context) (Snapshot, error)
}

// RefresherFunc adapts a function to Refresher.
type RefresherFunc func(ctx context.Context) (Snapshot, error)

// Refresh calls function(ctx).
func (function RefresherFunc) Refresh(ctx context.Context) (Snapshot, error) {
	return function(ctx)
}
