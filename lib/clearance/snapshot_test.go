// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clearance

import (
	"fmt"
	"strings"
	"sync"
	"testing"
)

func TestCookieHeaderSorted(t *testing.T) {
	t.Parallel()

	snapshot := Snapshot{Cookies: map[string]string{
		"cf_clearance": "abc",
		"__cf_bm":      "xyz",
		"ds_session":   "s",
	}}
	want := "__cf_bm=xyz; cf_clearance=abc; ds_session=s"
	if got := snapshot.CookieHeader(); got != want {
		t.Errorf("CookieHeader() = %q, want %q", got, want)
	}
	if !snapshot.HasClearance() {
		t.Error("HasClearance() = false with cf_clearance present")
	}
	if (Snapshot{}).CookieHeader() != "" {
		t.Error("empty snapshot produced a cookie header")
	}
}

func TestCellReplaceCopies(t *testing.T) {
	t.Parallel()

	cookies := map[string]string{"cf_clearance": "first"}
	cell := NewCell(Snapshot{Cookies: cookies, UserAgent: "UA/1"})
	cookies["cf_clearance"] = "mutated"

	if got := cell.Load().Cookies["cf_clearance"]; got != "first" {
		t.Errorf("cell observed caller mutation: %q", got)
	}

	var zero Cell
	if !zero.Load().Empty() {
		t.Error("zero Cell is not empty")
	}
}

// Readers must always see a cookie set and user agent from the same
// refresh.
func TestCellWholeReplacement(t *testing.T) {
	t.Parallel()

	cell := NewCell(snapshotGeneration(0))

	var waitGroup sync.WaitGroup
	stop := make(chan struct{})
	errs := make(chan string, 1)

	for range 4 {
		waitGroup.Add(1)
		go func() {
			defer waitGroup.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snapshot := cell.Load()
				generation := strings.TrimPrefix(snapshot.UserAgent, "UA/")
				for name, value := range snapshot.Cookies {
					if value != generation {
						select {
						case errs <- fmt.Sprintf("cookie %s=%s mixed with user agent %s", name, value, snapshot.UserAgent):
						default:
						}
						return
					}
				}
			}
		}()
	}

	for generation := 1; generation <= 200; generation++ {
		cell.Replace(snapshotGeneration(generation))
	}
	close(stop)
	waitGroup.Wait()

	select {
	case message := <-errs:
		t.Fatal(message)
	default:
	}
}

func snapshotGeneration(generation int) Snapshot {
	value := fmt.Sprint(generation)
	return Snapshot{
		Cookies:   map[string]string{"cf_clearance": value, "__cf_bm": value},
		UserAgent: "UA/" + value,
	}
}
