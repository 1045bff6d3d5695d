// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/parley/platform"
	"github.com/bureau-foundation/parley/protocol"
)

// SendMessage appends a user message and transmits it. It reports
// false when the text is blank, a reply is still streaming, or a
// conversation switch has not finished loading.
func (engine *Engine) SendMessage(ctx context.Context, text string) (bool, error) {
	var accepted bool
	err := engine.do(ctx, func() {
		accepted = engine.session.SendMessage(text)
		if accepted {
			engine.notify(ChangeSession)
		}
	})
	return accepted, err
}

// SwitchConversation starts loading conversationID. The history fetch
// runs off the loop; subscribers see ChangeSession when it lands. It
// reports false when conversationID is blank or already active.
func (engine *Engine) SwitchConversation(ctx context.Context, conversationID string) (bool, error) {
	var started bool
	err := engine.do(ctx, func() {
		started = engine.session.BeginSwitch(conversationID)
		if started {
			engine.notify(ChangeSession)
			engine.loadHistory(conversationID)
		}
	})
	return started, err
}

// NewSession clears the conversation and asks the server for a fresh
// one on the next message.
func (engine *Engine) NewSession(ctx context.Context) error {
	return engine.do(ctx, func() {
		engine.session.NewSession()
		engine.notify(ChangeSession)
	})
}

// Abort stops the reply in progress.
func (engine *Engine) Abort(ctx context.Context) error {
	return engine.do(ctx, func() {
		engine.session.Abort()
		engine.notify(ChangeSession)
	})
}

// DeleteConversation deletes conversationID on the platform and drops
// it from the list. Deleting the active conversation starts a new
// session.
func (engine *Engine) DeleteConversation(ctx context.Context, conversationID string) error {
	if engine.platform == nil {
		return errNoPlatform
	}
	if err := engine.platform.DeleteConversation(ctx, conversationID); err != nil {
		return fmt.Errorf("engine: deleting conversation %s: %w", conversationID, err)
	}
	return engine.do(ctx, func() {
		change := ChangeConversations
		if engine.session.ConversationDeleted(conversationID) {
			change |= ChangeSession
		}
		engine.notify(change)
	})
}

// RefreshConversations reloads the conversation list in the
// background.
func (engine *Engine) RefreshConversations(ctx context.Context) error {
	return engine.do(ctx, engine.refreshConversations)
}

// Search runs a full-text search on the platform. Failures are logged
// and yield no results.
func (engine *Engine) Search(ctx context.Context, query string) []platform.SearchResult {
	if engine.platform == nil {
		return nil
	}
	results, err := engine.platform.Search(ctx, query)
	if err != nil {
		engine.logger.Warn("search failed", "query", query, "error", err)
		return nil
	}
	return results
}

// FilterConversations fuzzy-matches pattern against the loaded
// conversation list.
func (engine *Engine) FilterConversations(ctx context.Context, pattern string) ([]protocol.Conversation, error) {
	var conversations []protocol.Conversation
	if err := engine.do(ctx, func() {
		conversations = engine.session.Conversations()
	}); err != nil {
		return nil, err
	}
	return platform.FilterConversations(conversations, pattern), nil
}

// restore loads the history of the conversation restored from the
// store, if any. Runs on the loop.
func (engine *Engine) restore() {
	if conversationID, ok := engine.session.BeginRestore(); ok {
		engine.logger.Info("restoring conversation", "conversation_id", conversationID)
		engine.loadHistory(conversationID)
	}
}

// loadHistory fetches the messages of conversationID off the loop and
// completes the pending switch with them. Runs on the loop.
func (engine *Engine) loadHistory(conversationID string) {
	if engine.platform == nil {
		engine.session.CompleteSwitch(conversationID, nil, errNoPlatform)
		engine.notify(ChangeSession)
		return
	}
	engine.goIO(func(ctx context.Context) {
		history, err := engine.platform.ConversationMessages(ctx, conversationID)
		engine.post(ctx, func() {
			if engine.session.CompleteSwitch(conversationID, history, err) {
				engine.notify(ChangeSession)
			}
		})
	})
}

// refreshConversations reloads the list off the loop. Only the result
// of the latest request is installed. Runs on the loop.
func (engine *Engine) refreshConversations() {
	if engine.platform == nil {
		return
	}
	engine.refreshGeneration++
	generation := engine.refreshGeneration
	engine.goIO(func(ctx context.Context) {
		conversations, err := engine.platform.ListConversations(ctx)
		engine.post(ctx, func() {
			if generation != engine.refreshGeneration {
				return
			}
			if err != nil {
				engine.logger.Warn("refreshing conversation list failed", "error", err)
				return
			}
			engine.session.SetConversations(conversations)
			engine.notify(ChangeConversations)
		})
	})
}
