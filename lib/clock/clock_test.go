// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xtekky/deepseek4free/lib/testutil"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeAfterFiresOnAdvance(t *testing.T) {
	t.Parallel()
	fake := Fake(epoch)

	channel := fake.After(time.Second)
	select {
	case <-channel:
		t.Fatal("After fired before Advance")
	default:
	}

	fake.Advance(999 * time.Millisecond)
	if fake.PendingCount() != 1 {
		t.Fatalf("PendingCount = %d before deadline, want 1", fake.PendingCount())
	}

	fake.Advance(time.Millisecond)
	fired := testutil.RequireReceive(t, channel, 5*time.Second, "waiting for After")
	if !fired.Equal(epoch.Add(time.Second)) {
		t.Errorf("fired at %v, want %v", fired, epoch.Add(time.Second))
	}
	if fake.PendingCount() != 0 {
		t.Errorf("PendingCount = %d after firing, want 0", fake.PendingCount())
	}
}

func TestFakeAfterNonPositive(t *testing.T) {
	t.Parallel()
	fake := Fake(epoch)
	testutil.RequireReceive(t, fake.After(0), 5*time.Second, "zero-duration After")
}

func TestSleepWithFake(t *testing.T) {
	t.Parallel()
	fake := Fake(epoch)

	done := make(chan error, 1)
	go func() { done <- Sleep(context.Background(), fake, 2*time.Second) }()

	fake.WaitForTimers(1)
	fake.Advance(2 * time.Second)
	if err := testutil.RequireReceive(t, done, 5*time.Second, "waiting for Sleep"); err != nil {
		t.Errorf("Sleep = %v, want nil", err)
	}
}

func TestSleepCancelled(t *testing.T) {
	t.Parallel()
	fake := Fake(epoch)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Sleep(ctx, fake, time.Hour) }()

	fake.WaitForTimers(1)
	cancel()
	err := testutil.RequireReceive(t, done, 5*time.Second, "waiting for cancelled Sleep")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Sleep = %v, want context.Canceled", err)
	}
}

func TestRealClock(t *testing.T) {
	t.Parallel()
	before := time.Now()
	if Real().Now().Before(before) {
		t.Error("Real().Now() is before time.Now()")
	}
	testutil.RequireReceive(t, Real().After(time.Millisecond), 5*time.Second, "real After")
}
