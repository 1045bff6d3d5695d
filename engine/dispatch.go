// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/bureau-foundation/parley/protocol"
	"github.com/bureau-foundation/parley/session"
	"github.com/bureau-foundation/parley/workitem"
)

// Change is a set of flags naming the parts of the view that changed.
type Change uint8

const (
	ChangeSession Change = 1 << iota
	ChangeWorkItems
	ChangeConversations
	ChangeConnection
)

// Has reports whether every flag in flag is set.
func (change Change) Has(flag Change) bool {
	return change&flag == flag
}

func (change Change) String() string {
	if change == 0 {
		return "none"
	}
	var parts []string
	for _, named := range []struct {
		flag Change
		name string
	}{
		{ChangeSession, "session"},
		{ChangeWorkItems, "work_items"},
		{ChangeConversations, "conversations"},
		{ChangeConnection, "connection"},
	} {
		if change.Has(named.flag) {
			parts = append(parts, named.name)
		}
	}
	return strings.Join(parts, "|")
}

// Dispatcher routes decoded events to the session and the work-item
// aggregator. Not safe for concurrent use.
type Dispatcher struct {
	session *session.Session
	items   *workitem.Aggregator
	logger  *slog.Logger
}

// NewDispatcher returns a dispatcher over session and items.
func NewDispatcher(session *session.Session, items *workitem.Aggregator, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{session: session, items: items, logger: logger}
}

// DispatchChat applies one chat event and returns what it changed.
func (dispatcher *Dispatcher) DispatchChat(event protocol.ChatEvent) Change {
	switch event := event.(type) {
	case protocol.StreamStart, protocol.StreamChunk, protocol.MessageEvent,
		protocol.SystemEvent, protocol.ErrorEvent, protocol.ConversationSet,
		protocol.SubAgentStart, protocol.SubAgentProgress, protocol.SubAgentComplete:
		dispatcher.session.Apply(event)
		return ChangeSession
	case protocol.StreamEnd:
		dispatcher.session.Apply(event)
		return ChangeSession | ChangeConversations
	case protocol.ConversationRenamed:
		dispatcher.session.Apply(event)
		return ChangeConversations
	case protocol.Ping:
		dispatcher.session.Apply(event)
		return 0
	case protocol.Pong:
		return 0
	case protocol.WorkItemUpdate:
		dispatcher.session.Apply(event)
		dispatcher.items.Apply(event)
		return ChangeSession | ChangeWorkItems
	case protocol.Unknown:
		dispatcher.logger.Debug("ignoring unknown chat event", "type", event.Type)
		return 0
	default:
		dispatcher.logger.Warn("unhandled chat event", "type", fmt.Sprintf("%T", event))
		return 0
	}
}

// DispatchFeed applies one feed event and returns what it changed.
func (dispatcher *Dispatcher) DispatchFeed(event protocol.FeedEvent) Change {
	switch event := event.(type) {
	case protocol.Snapshot, protocol.WorkItemUpdate:
		dispatcher.items.Apply(event)
		return ChangeWorkItems
	case protocol.Unknown:
		dispatcher.logger.Debug("ignoring unknown feed event", "type", event.Type)
		return 0
	default:
		dispatcher.logger.Warn("unhandled feed event", "type", fmt.Sprintf("%T", event))
		return 0
	}
}
