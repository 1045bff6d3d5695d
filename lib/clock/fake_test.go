// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func ready(channel <-chan time.Time) (time.Time, bool) {
	select {
	case fired := <-channel:
		return fired, true
	default:
		return time.Time{}, false
	}
}

func TestFakeNowMovesOnlyOnAdvance(t *testing.T) {
	fake := Fake(epoch)
	if !fake.Now().Equal(epoch) {
		t.Fatalf("Now() = %v", fake.Now())
	}
	fake.Advance(1500 * time.Millisecond)
	if want := epoch.Add(1500 * time.Millisecond); !fake.Now().Equal(want) {
		t.Fatalf("Now() = %v, want %v", fake.Now(), want)
	}
}

func TestFakeReconnectDelay(t *testing.T) {
	fake := Fake(epoch)
	delay := fake.After(3 * time.Second)

	fake.Advance(2999 * time.Millisecond)
	if _, fired := ready(delay); fired {
		t.Fatal("delay fired early")
	}

	fake.Advance(time.Millisecond)
	fired, ok := ready(delay)
	if !ok {
		t.Fatal("delay did not fire at its deadline")
	}
	if want := epoch.Add(3 * time.Second); !fired.Equal(want) {
		t.Errorf("fired with %v, want %v", fired, want)
	}
	if fake.PendingCount() != 0 {
		t.Errorf("PendingCount = %d", fake.PendingCount())
	}
}

func TestFakeNonPositiveAfterIsImmediate(t *testing.T) {
	fake := Fake(epoch)
	for _, d := range []time.Duration{0, -time.Minute} {
		if _, ok := ready(fake.After(d)); !ok {
			t.Errorf("After(%v) not ready", d)
		}
	}
	if fake.PendingCount() != 0 {
		t.Error("non-positive After registered a timer")
	}
}

func TestFakeNextDeadlineOrdersTimers(t *testing.T) {
	fake := Fake(epoch)
	if _, ok := fake.NextDeadline(); ok {
		t.Fatal("NextDeadline reported a timer on a fresh clock")
	}

	late := fake.After(5 * time.Second)
	early := fake.After(time.Second)
	if next, _ := fake.NextDeadline(); !next.Equal(epoch.Add(time.Second)) {
		t.Errorf("NextDeadline = %v, want epoch+1s", next)
	}

	fake.Advance(2 * time.Second)
	if _, ok := ready(early); !ok {
		t.Error("early timer did not fire")
	}
	if _, ok := ready(late); ok {
		t.Error("late timer fired early")
	}
	if next, _ := fake.NextDeadline(); !next.Equal(epoch.Add(5 * time.Second)) {
		t.Errorf("NextDeadline = %v, want epoch+5s", next)
	}
}

func TestFakeWaitForTimers(t *testing.T) {
	fake := Fake(epoch)
	done := make(chan struct{})
	go func() {
		<-fake.After(time.Second)
		close(done)
	}()

	fake.WaitForTimers(1)
	fake.Advance(time.Second)

	select {
	case <-done:
	case <-time.After(5 * time.Second): //nolint:realclock test hang prevention
		t.Fatal("waiting goroutine not released by Advance")
	}
}
