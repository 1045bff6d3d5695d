// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds helpers shared by parley's package tests.
//
// [RequireReceive] and [RequireClosed] are the only places the suite
// waits on the wall clock, and only as a hang guard. Reconnect delays
// and other protocol timing go through the fake in lib/clock.
package testutil
