// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sort"
	"sync"
	"time"
)

// FakeClock is a Clock whose time moves only when Advance is called.
// Safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	waiters []*fakeWaiter
	changed *sync.Cond
}

type fakeWaiter struct {
	deadline time.Time
	channel  chan time.Time
}

// Fake returns a FakeClock reading initial.
func Fake(initial time.Time) *FakeClock {
	clock := &FakeClock{current: initial}
	clock.changed = sync.NewCond(&clock.mu)
	return clock
}

// Now returns the fake time.
func (clock *FakeClock) Now() time.Time {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	return clock.current
}

// After registers a waiter that fires when the clock is advanced to or
// past now+d.
func (clock *FakeClock) After(d time.Duration) <-chan time.Time {
	clock.mu.Lock()
	defer clock.mu.Unlock()

	channel := make(chan time.Time, 1)
	if d <= 0 {
		channel <- clock.current
		return channel
	}
	clock.waiters = append(clock.waiters, &fakeWaiter{
		deadline: clock.current.Add(d),
		channel:  channel,
	})
	clock.changed.Broadcast()
	return channel
}

// Advance moves the clock forward by d and fires, in deadline order,
// every waiter whose deadline has been reached.
func (clock *FakeClock) Advance(d time.Duration) {
	clock.mu.Lock()
	defer clock.mu.Unlock()

	clock.current = clock.current.Add(d)
	sort.SliceStable(clock.waiters, func(i, j int) bool {
		return clock.waiters[i].deadline.Before(clock.waiters[j].deadline)
	})

	remaining := clock.waiters[:0]
	for _, waiter := range clock.waiters {
		if waiter.deadline.After(clock.current) {
			remaining = append(remaining, waiter)
			continue
		}
		waiter.channel <- clock.current
	}
	clock.waiters = remaining
	clock.changed.Broadcast()
}

// PendingCount returns the number of waiters that have not fired.
func (clock *FakeClock) PendingCount() int {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	return len(clock.waiters)
}

// WaitForTimers blocks until at least count waiters are pending. Use it
// to synchronize with a goroutine that is about to sleep on the clock.
func (clock *FakeClock) WaitForTimers(count int) {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	for len(clock.waiters) < count {
		clock.changed.Wait()
	}
}
