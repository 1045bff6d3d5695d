// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package protocol defines the wire model shared by parley's two
// real-time channels and the decoders that turn raw transport data
// into typed events.
//
// The duplex chat channel carries one JSON object per websocket text
// message. The work-item feed is a line-delimited byte stream in which
// each frame is prefixed with "data: ". Both use a "type" field as the
// discriminant.
//
// Inbound events are closed tagged unions: [ChatEvent] and [FeedEvent]
// are interfaces with unexported marker methods, so only the variants
// declared here satisfy them. Decoding validates required fields; a
// frame that is not valid JSON or lacks a required field produces an
// error wrapping [ErrMalformedFrame]. Unknown fields are ignored and an
// unknown discriminant decodes to [Unknown] rather than failing, so
// dispatch stays total as the server protocol grows.
//
// [FrameDecoder] is the failure-containment boundary for the feed: it
// buffers partial lines across reads, discards lines without the data
// prefix, and drops oversized frames without losing synchronization.
package protocol
