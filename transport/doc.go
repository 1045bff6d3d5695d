// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport keeps parley's two real-time channels connected.
//
// A [Supervisor] owns one logical channel. It dials through a [Dialer],
// reads frames on its own goroutine, decodes them, and delivers events
// and state transitions in order on a bounded channel
// ([Supervisor.Deliveries]). When a connection fails to open or drops,
// the supervisor waits a fixed delay and dials again; cancelling the
// context passed to [Supervisor.Run] closes the live connection before
// Run returns and suppresses any further attempt. Two supervisors share
// nothing, so one channel's failure never touches the other.
//
// State progresses Connecting, Open, then Reconnecting (on failure) or
// Closing (on cancellation), ending in Closed when Run returns.
//
// Frames that fail to decode are logged and skipped. A corrupt frame
// never ends a connection.
//
// Outbound frames go through [Supervisor.Send], which enqueues onto a
// per-connection writer goroutine and never blocks on the network. Send
// returns [ErrNotConnected] when no connection is open.
//
// [ChatDialer] opens the duplex chat channel as a websocket. [FeedDialer]
// opens the work-item feed as a streaming HTTP response, decompressing
// gzip or zstd bodies. Both attach the bearer credential at dial time.
package transport
