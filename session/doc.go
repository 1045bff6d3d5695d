// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package session implements the client-side state machine of one chat
// session: the ordered message log, the streaming buffer, the active
// conversation identity, the conversation list, and the tracker for
// multi-agent orchestrations.
//
// A [Session] is driven from a single goroutine. Inbound events arrive
// through [Session.Apply]; user intents arrive through the command
// methods. Neither blocks on I/O: outbound frames go to a [Sender] that
// queues them, the durable conversation id goes to a persist.Store, and
// conversation-list refreshes are requested from a [Refresher] that
// performs the fetch elsewhere and reports back via
// [Session.SetConversations].
//
// Conversation switches are split in two. [Session.BeginSwitch] records
// the target; the caller fetches history off the session goroutine and
// hands the result to [Session.CompleteSwitch]. A completion for a
// target that is no longer pending is ignored, so rapid switching can
// never install stale history.
package session
