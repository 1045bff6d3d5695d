// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"github.com/bureau-foundation/parley/protocol"
)

// Apply updates the session for one inbound chat event. Events the
// session has no handler for are ignored.
func (session *Session) Apply(event protocol.ChatEvent) {
	switch event := event.(type) {
	case protocol.StreamStart:
		session.streamStart(event)
	case protocol.StreamChunk:
		session.streamChunk(event)
	case protocol.StreamEnd:
		session.streamEnd(event)
	case protocol.MessageEvent:
		session.appendMessage(protocol.Message{Role: event.Role, Content: event.Content, ModelUsed: event.Model})
	case protocol.SystemEvent:
		session.appendMessage(protocol.Message{Role: protocol.RoleSystem, Content: event.Content})
	case protocol.ErrorEvent:
		session.errorEvent(event)
	case protocol.ConversationSet:
		session.adoptConversation(event.ConversationID)
	case protocol.ConversationRenamed:
		session.patchTitle(event.ConversationID, event.Title)
	case protocol.Ping:
		session.send(protocol.PongFrame(), "pong")
	case protocol.SubAgentStart:
		session.subAgentStart(event)
	case protocol.SubAgentProgress:
		session.subAgentProgress(event)
	case protocol.SubAgentComplete:
		session.subAgentComplete(event)
	case protocol.WorkItemUpdate:
		session.trackWork(event)
	}
}

func (session *Session) streamStart(event protocol.StreamStart) {
	session.buffer.Reset()
	session.appendMessage(protocol.Message{Role: protocol.RoleAssistant, ModelUsed: event.Model})
	session.streamIndex = len(session.messages) - 1
	session.streaming = true
}

func (session *Session) streamChunk(event protocol.StreamChunk) {
	if !session.streaming {
		session.logger.Debug("stream chunk outside a stream ignored")
		return
	}
	session.buffer.WriteString(event.Content)
	session.messages[session.streamIndex].Content = session.buffer.String()
}

func (session *Session) streamEnd(event protocol.StreamEnd) {
	session.endStream()
	session.deactivateOrchestration()

	session.adoptConversation(event.ConversationID)
	if event.Title != "" {
		target := event.ConversationID
		if target == "" {
			target = session.conversationID
		}
		session.patchTitle(target, event.Title)
	}
	if session.refresher != nil {
		session.refresher.RefreshConversations()
	}
}

func (session *Session) errorEvent(event protocol.ErrorEvent) {
	session.appendMessage(protocol.Message{Role: protocol.RoleSystem, Content: event.Content})
	session.endStream()
	session.deactivateOrchestration()
}

func (session *Session) subAgentStart(event protocol.SubAgentStart) {
	orchestration := &Orchestration{
		ID:       event.OrchestrationID,
		Strategy: event.Strategy,
		Active:   true,
		Agents:   make([]protocol.SubAgent, 0, len(event.SubAgents)),
	}
	for _, agent := range event.SubAgents {
		if orchestration.agent(agent.ID) != nil {
			continue
		}
		agent.Status = protocol.SubAgentPending
		agent.Content = ""
		agent.DurationMS = nil
		orchestration.Agents = append(orchestration.Agents, agent)
	}
	session.orchestration = orchestration
}

func (session *Session) subAgentProgress(event protocol.SubAgentProgress) {
	if session.orchestration == nil {
		return
	}
	agent := session.orchestration.agent(event.SubAgentID)
	if agent == nil {
		return
	}
	advance(agent, protocol.SubAgentRunning)
	if event.Role != "" {
		agent.Role = event.Role
	}
	if event.Content != "" {
		agent.Content = event.Content
	}
}

func (session *Session) subAgentComplete(event protocol.SubAgentComplete) {
	if session.orchestration == nil {
		return
	}
	agent := session.orchestration.agent(event.SubAgentID)
	if agent == nil {
		return
	}
	advance(agent, event.Status)
	if event.Model != "" {
		agent.Model = event.Model
	}
	if event.Content != "" {
		agent.Content = event.Content
	}
	if event.DurationMS != nil {
		duration := *event.DurationMS
		agent.DurationMS = &duration
	}
}

// advance moves agent to status unless that would be a regression or a
// change between terminal outcomes.
func advance(agent *protocol.SubAgent, status protocol.SubAgentStatus) {
	if status.Rank() > agent.Status.Rank() {
		agent.Status = status
	}
}

func (session *Session) trackWork(event protocol.WorkItemUpdate) {
	if event.Item.Status.Terminal() {
		delete(session.activeWork, event.Item.ID)
		return
	}
	if event.Event == protocol.WorkItemRegistered {
		session.activeWork[event.Item.ID] = struct{}{}
	}
}
