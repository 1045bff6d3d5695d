// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"slices"
	"sync"
	"time"
)

// FakeClock is a Clock that moves only when Advance is called. Safe
// for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	timers  []fakeTimer // sorted by deadline, then registration order
	nextSeq uint64
	changed *sync.Cond
}

type fakeTimer struct {
	deadline time.Time
	seq      uint64
	fire     chan time.Time
}

// Fake returns a FakeClock reading initial.
func Fake(initial time.Time) *FakeClock {
	fake := &FakeClock{now: initial}
	fake.changed = sync.NewCond(&fake.mu)
	return fake
}

// Now returns the fake time.
func (fake *FakeClock) Now() time.Time {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	return fake.now
}

// After registers a timer for now+d. Non-positive durations fire
// without registering.
func (fake *FakeClock) After(d time.Duration) <-chan time.Time {
	fake.mu.Lock()
	defer fake.mu.Unlock()

	fire := make(chan time.Time, 1)
	if d <= 0 {
		fire <- fake.now
		return fire
	}

	timer := fakeTimer{deadline: fake.now.Add(d), seq: fake.nextSeq, fire: fire}
	fake.nextSeq++
	index, _ := slices.BinarySearchFunc(fake.timers, timer, compareTimers)
	fake.timers = slices.Insert(fake.timers, index, timer)
	fake.changed.Broadcast()
	return fire
}

func compareTimers(a, b fakeTimer) int {
	if c := a.deadline.Compare(b.deadline); c != 0 {
		return c
	}
	switch {
	case a.seq < b.seq:
		return -1
	case a.seq > b.seq:
		return 1
	}
	return 0
}

// Advance moves the clock forward by d and fires, in deadline order,
// every timer that has come due.
func (fake *FakeClock) Advance(d time.Duration) {
	fake.mu.Lock()
	fake.now = fake.now.Add(d)
	now := fake.now
	due := 0
	for due < len(fake.timers) && !fake.timers[due].deadline.After(now) {
		due++
	}
	fired := slices.Clone(fake.timers[:due])
	fake.timers = slices.Delete(fake.timers, 0, due)
	fake.mu.Unlock()

	for _, timer := range fired {
		timer.fire <- now
	}
}

// NextDeadline returns the earliest pending deadline.
func (fake *FakeClock) NextDeadline() (time.Time, bool) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.timers) == 0 {
		return time.Time{}, false
	}
	return fake.timers[0].deadline, true
}

// WaitForTimers blocks until at least n timers are pending. Call it
// before Advance so the goroutine under test has registered its wait.
func (fake *FakeClock) WaitForTimers(n int) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	for len(fake.timers) < n {
		fake.changed.Wait()
	}
}

// PendingCount returns the number of timers not yet fired.
func (fake *FakeClock) PendingCount() int {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	return len(fake.timers)
}
