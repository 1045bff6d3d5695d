// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock is the time source behind parley's reconnect delays,
// channel status timestamps, and saved_at fields in the state file.
//
// Production code takes a [Clock] and is wired with [Real]. Tests pass
// [Fake] and move time by hand:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go supervisor.Run(ctx)
//	fake.WaitForTimers(1)         // the supervisor is waiting out its delay
//	fake.Advance(3 * time.Second) // the next dial starts
package clock
