// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"testing"
	"time"
)

// recorder captures Fatalf instead of stopping the test.
type recorder struct {
	failed  bool
	message string
}

func (r *recorder) Helper() {}

func (r *recorder) Fatalf(format string, args ...any) {
	r.failed = true
	r.message = fmt.Sprintf(format, args...)
	panic(r)
}

func capture(function func(*recorder)) (result *recorder) {
	result = &recorder{}
	defer func() {
		if value := recover(); value != nil && value != result {
			panic(value)
		}
	}()
	function(result)
	return result
}

func TestRequireReceiveValue(t *testing.T) {
	channel := make(chan int, 1)
	channel <- 7
	if got := RequireReceive(t, channel, time.Second, "value"); got != 7 {
		t.Errorf("RequireReceive = %d, want 7", got)
	}
}

func TestRequireReceiveTimeout(t *testing.T) {
	result := capture(func(r *recorder) {
		RequireReceive(r, make(chan int), 10*time.Millisecond, "waiting for %s", "nothing")
	})
	if !result.failed {
		t.Fatal("RequireReceive did not fail on timeout")
	}
	if want := "timed out after 10ms: waiting for nothing"; result.message != want {
		t.Errorf("message = %q, want %q", result.message, want)
	}
}

func TestRequireReceiveClosed(t *testing.T) {
	channel := make(chan int)
	close(channel)
	result := capture(func(r *recorder) { RequireReceive(r, channel, time.Second) })
	if !result.failed {
		t.Fatal("RequireReceive did not fail on a closed channel")
	}
}

func TestRequireClosed(t *testing.T) {
	channel := make(chan struct{})
	close(channel)
	RequireClosed(t, channel, time.Second, "closed channel")
}
