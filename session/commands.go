// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"slices"
	"strings"

	"github.com/bureau-foundation/parley/protocol"
)

// SendMessage appends a user message and transmits it. It returns false
// without changing anything when text is blank, a reply is still
// streaming, or a conversation switch is still loading. Any
// orchestration from the previous turn is cleared.
func (session *Session) SendMessage(text string) bool {
	if session.streaming || session.pendingSwitch != "" || strings.TrimSpace(text) == "" {
		return false
	}

	session.orchestration = nil
	session.appendMessage(protocol.Message{Role: protocol.RoleUser, Content: text})

	if err := session.send(protocol.ChatFrame(text), "chat"); err != nil {
		session.appendMessage(protocol.Message{Role: protocol.RoleSystem, Content: undeliveredNotice})
	}
	return true
}

// BeginSwitch records conversationID as the switch target. It returns
// false when there is nothing to fetch: the id is empty or already
// active with no other switch pending.
func (session *Session) BeginSwitch(conversationID string) bool {
	if conversationID == "" {
		return false
	}
	if conversationID == session.conversationID && session.pendingSwitch == "" {
		return false
	}
	session.pendingSwitch = conversationID
	return true
}

// BeginRestore marks the restored conversation as the switch target so
// its history can be installed through CompleteSwitch. It returns false
// for a fresh session or when a switch is already pending.
func (session *Session) BeginRestore() (string, bool) {
	if session.conversationID == "" || session.pendingSwitch != "" {
		return "", false
	}
	session.pendingSwitch = session.conversationID
	return session.conversationID, true
}

// CompleteSwitch installs the fetched history for a pending switch. On
// success the log is replaced, the id adopted and persisted, and the
// server told which conversation is active. On failure the session
// resets to blank and the persisted id is cleared. A completion for a
// target other than the pending one is ignored and reported as false.
func (session *Session) CompleteSwitch(conversationID string, history []protocol.Message, fetchErr error) bool {
	if conversationID == "" || conversationID != session.pendingSwitch {
		return false
	}
	session.pendingSwitch = ""
	session.endStream()
	session.orchestration = nil

	if fetchErr != nil {
		session.logger.Warn("loading conversation history failed, starting blank",
			"conversation_id", conversationID, "error", fetchErr)
		session.messages = nil
		session.conversationID = ""
		session.clearPersisted()
		return true
	}

	session.messages = slices.Clone(history)
	session.conversationID = ""
	session.adoptConversation(conversationID)
	session.send(protocol.SetConversationFrame(conversationID), "set_conversation")
	return true
}

// NewSession clears the conversation and asks the server to allocate a
// fresh one on the next message.
func (session *Session) NewSession() {
	session.messages = nil
	session.endStream()
	session.orchestration = nil
	session.pendingSwitch = ""
	session.conversationID = ""
	session.clearPersisted()
	session.send(protocol.SetConversationFrame(""), "set_conversation")
}

// Abort asks the server to stop the current reply and stops streaming
// locally. The orchestration is kept but marked inactive.
func (session *Session) Abort() {
	session.send(protocol.AbortFrame(), "abort")
	session.endStream()
	session.deactivateOrchestration()
}

// Interrupt ends an in-flight reply after the chat channel drops. The
// partial text stays in the log and any orchestration is marked
// inactive. It reports whether anything changed.
func (session *Session) Interrupt() bool {
	active := session.orchestration != nil && session.orchestration.Active
	if !session.streaming && !active {
		return false
	}
	session.endStream()
	session.deactivateOrchestration()
	return true
}

// SetConversations replaces the conversation list.
func (session *Session) SetConversations(conversations []protocol.Conversation) {
	session.conversations = slices.Clone(conversations)
}

// ConversationDeleted removes a conversation from the list. Deleting
// the active conversation starts a new session; the result reports
// whether that happened.
func (session *Session) ConversationDeleted(conversationID string) bool {
	session.conversations = slices.DeleteFunc(session.conversations, func(conversation protocol.Conversation) bool {
		return conversation.ID == conversationID
	})
	if conversationID != "" && conversationID == session.conversationID {
		session.NewSession()
		return true
	}
	return false
}
