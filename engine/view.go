// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"

	"github.com/bureau-foundation/parley/protocol"
	"github.com/bureau-foundation/parley/session"
	"github.com/bureau-foundation/parley/workitem"
)

// View is a consistent copy of the engine state, safe to read from any
// goroutine.
type View struct {
	ConversationID string
	PendingSwitch  string
	Messages       []protocol.Message
	Streaming      bool
	Conversations  []protocol.Conversation

	// Orchestration is valid when HasOrchestration is true.
	Orchestration    session.Orchestration
	HasOrchestration bool

	// ActiveWork counts work items announced on the chat channel and
	// not yet finished.
	ActiveWork int

	WorkItems      []workitem.Node
	Orphans        []protocol.WorkItem
	WorkItemCounts workitem.Counts
	WorkItemsStale bool

	Chat ChannelStatus
	Feed ChannelStatus
}

// Snapshot returns the current state.
func (engine *Engine) Snapshot(ctx context.Context) (View, error) {
	var view View
	err := engine.do(ctx, func() {
		view = engine.view()
	})
	return view, err
}

func (engine *Engine) view() View {
	orchestration, hasOrchestration := engine.session.Orchestration()
	return View{
		ConversationID:   engine.session.ConversationID(),
		PendingSwitch:    engine.session.PendingSwitch(),
		Messages:         engine.session.Messages(),
		Streaming:        engine.session.Streaming(),
		Conversations:    engine.session.Conversations(),
		Orchestration:    orchestration,
		HasOrchestration: hasOrchestration,
		ActiveWork:       engine.session.ActiveWork(),
		WorkItems:        engine.items.Forest(),
		Orphans:          engine.items.Orphans(),
		WorkItemCounts:   engine.items.Counts(),
		WorkItemsStale:   engine.items.Stale(),
		Chat:             engine.chatStatus,
		Feed:             engine.feedStatus,
	}
}
