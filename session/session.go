// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/bureau-foundation/parley/persist"
	"github.com/bureau-foundation/parley/protocol"
)

// undeliveredNotice is appended when a user message cannot be handed to
// the chat channel.
const undeliveredNotice = "message not delivered: chat channel is not connected"

// Sender transmits an encoded frame on the duplex chat channel. It must
// not block on the network.
type Sender interface {
	Send(frame []byte) error
}

// Refresher schedules a reload of the conversation list. The result is
// delivered later through SetConversations.
type Refresher interface {
	RefreshConversations()
}

// Config holds the collaborators of a Session.
type Config struct {
	// Sender carries outbound frames. Required.
	Sender Sender

	// Store persists the active conversation id. Nil keeps it in
	// memory.
	Store persist.Store

	// Refresher is asked to reload the conversation list after each
	// completed reply. Nil disables refreshes.
	Refresher Refresher

	// Logger receives diagnostics. Nil uses slog.Default().
	Logger *slog.Logger
}

// Orchestration is a multi-agent synthesis in progress, or the last one
// when Active is false.
type Orchestration struct {
	ID       string
	Strategy string
	Active   bool
	Agents   []protocol.SubAgent
}

func (orchestration *Orchestration) clone() Orchestration {
	result := *orchestration
	result.Agents = slices.Clone(orchestration.Agents)
	return result
}

func (orchestration *Orchestration) agent(id string) *protocol.SubAgent {
	for index := range orchestration.Agents {
		if orchestration.Agents[index].ID == id {
			return &orchestration.Agents[index]
		}
	}
	return nil
}

// Session is the state of one chat session. Not safe for concurrent
// use.
type Session struct {
	sender    Sender
	store     persist.Store
	refresher Refresher
	logger    *slog.Logger

	messages []protocol.Message

	// streamIndex is the position of the in-flight assistant message
	// while streaming is true. A message or system event arriving
	// mid-stream is appended after it; later chunks still land here.
	streaming   bool
	streamIndex int
	buffer      strings.Builder

	conversationID string
	conversations  []protocol.Conversation
	pendingSwitch  string

	orchestration *Orchestration

	// activeWork holds ids of work items registered in a non-terminal
	// state and not yet seen terminal.
	activeWork map[string]struct{}
}

// New creates a session and restores the persisted conversation id. It
// does not load that conversation's history.
func New(config Config) *Session {
	if config.Store == nil {
		config.Store = persist.NewMemoryStore()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	session := &Session{
		sender:     config.Sender,
		store:      config.Store,
		refresher:  config.Refresher,
		logger:     config.Logger,
		activeWork: make(map[string]struct{}),
	}

	conversationID, err := session.store.Get()
	if err != nil {
		session.logger.Warn("discarding persisted session", "error", err)
		if errors.Is(err, persist.ErrCorruptState) {
			session.clearPersisted()
		}
		conversationID = ""
	}
	session.conversationID = conversationID
	return session
}

// Messages returns a copy of the message log.
func (session *Session) Messages() []protocol.Message {
	return slices.Clone(session.messages)
}

// Streaming reports whether an assistant reply is in flight.
func (session *Session) Streaming() bool {
	return session.streaming
}

// ConversationID returns the active conversation id, "" for a fresh
// session.
func (session *Session) ConversationID() string {
	return session.conversationID
}

// PendingSwitch returns the target of an unfinished switch, or "".
func (session *Session) PendingSwitch() string {
	return session.pendingSwitch
}

// Conversations returns a copy of the conversation list.
func (session *Session) Conversations() []protocol.Conversation {
	return slices.Clone(session.conversations)
}

// Orchestration returns a copy of the current orchestration. The second
// result is false when there is none.
func (session *Session) Orchestration() (Orchestration, bool) {
	if session.orchestration == nil {
		return Orchestration{}, false
	}
	return session.orchestration.clone(), true
}

// ActiveWork returns the number of work items registered and not yet
// finished.
func (session *Session) ActiveWork() int {
	return len(session.activeWork)
}

// ResumeFrame returns the set_conversation frame that re-attaches the
// active conversation after the chat channel (re)opens. The second
// result is false for a fresh session.
func (session *Session) ResumeFrame() ([]byte, bool) {
	if session.conversationID == "" {
		return nil, false
	}
	return protocol.SetConversationFrame(session.conversationID), true
}

func (session *Session) send(frame []byte, what string) error {
	if err := session.sender.Send(frame); err != nil {
		session.logger.Warn("chat frame not sent", "frame", what, "error", err)
		return err
	}
	return nil
}

func (session *Session) adoptConversation(conversationID string) {
	if conversationID == "" || conversationID == session.conversationID {
		return
	}
	session.conversationID = conversationID
	if err := session.store.Set(conversationID); err != nil {
		session.logger.Warn("persisting conversation id failed",
			"conversation_id", conversationID, "error", err)
	}
}

func (session *Session) clearPersisted() {
	if err := session.store.Clear(); err != nil {
		session.logger.Warn("clearing persisted conversation id failed", "error", err)
	}
}

func (session *Session) patchTitle(conversationID, title string) {
	for index := range session.conversations {
		if session.conversations[index].ID == conversationID {
			session.conversations[index].Title = title
			return
		}
	}
}

func (session *Session) deactivateOrchestration() {
	if session.orchestration != nil {
		session.orchestration.Active = false
	}
}

func (session *Session) endStream() {
	session.streaming = false
	session.buffer.Reset()
}

func (session *Session) appendMessage(message protocol.Message) {
	session.messages = append(session.messages, message)
}
