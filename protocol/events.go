// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedFrame marks a frame that could not be decoded into an
// event: invalid JSON, a missing discriminant, or a missing required
// field. Callers skip such frames; they never terminate a channel.
var ErrMalformedFrame = errors.New("protocol: malformed frame")

// ChatEvent is an inbound event on the duplex chat channel.
type ChatEvent interface {
	chatEvent()
}

// FeedEvent is an inbound event on the work-item feed.
type FeedEvent interface {
	feedEvent()
}

// StreamStart begins a new streamed assistant reply.
type StreamStart struct {
	Model string
}

// StreamChunk carries the next piece of the streamed reply.
type StreamChunk struct {
	Content string
}

// StreamEnd closes the streamed reply. ConversationID and Title are
// set when the server allocated or renamed the conversation.
type StreamEnd struct {
	ConversationID string
	Title          string
}

// MessageEvent is a complete, non-streamed message.
type MessageEvent struct {
	Role    Role
	Content string
	Model   string
}

// SystemEvent is a server notice shown as a system message.
type SystemEvent struct {
	Content string
}

// ErrorEvent is a protocol-level error. It terminates the in-progress
// stream but not the connection.
type ErrorEvent struct {
	Content string
}

// ConversationSet tells the client which conversation is active.
type ConversationSet struct {
	ConversationID string
}

// ConversationRenamed reports a new title for a conversation.
type ConversationRenamed struct {
	ConversationID string
	Title          string
}

// Ping is a server liveness probe. The client answers with a pong.
type Ping struct{}

// Pong is a liveness acknowledgment from the server.
type Pong struct{}

// SubAgentStart begins a multi-agent orchestration.
type SubAgentStart struct {
	OrchestrationID string
	Strategy        string
	SubAgents       []SubAgent
}

// SubAgentProgress reports that a sub-agent is running. Empty Role or
// Content means "unchanged".
type SubAgentProgress struct {
	SubAgentID string
	Role       string
	Content    string
}

// SubAgentComplete reports a sub-agent's outcome. Status is always
// completed or failed.
type SubAgentComplete struct {
	SubAgentID string
	Status     SubAgentStatus
	Model      string
	Content    string
	DurationMS *int64
}

// WorkItemUpdate upserts one work item. It arrives on both channels.
type WorkItemUpdate struct {
	Item  WorkItem
	Event WorkItemEvent
}

// Snapshot replaces the whole work-item set.
type Snapshot struct {
	Items []WorkItem
}

// Unknown is any event whose discriminant this client does not know.
type Unknown struct {
	Type string
}

func (StreamStart) chatEvent()         {}
func (StreamChunk) chatEvent()         {}
func (StreamEnd) chatEvent()           {}
func (MessageEvent) chatEvent()        {}
func (SystemEvent) chatEvent()         {}
func (ErrorEvent) chatEvent()          {}
func (ConversationSet) chatEvent()     {}
func (ConversationRenamed) chatEvent() {}
func (Ping) chatEvent()                {}
func (Pong) chatEvent()                {}
func (SubAgentStart) chatEvent()       {}
func (SubAgentProgress) chatEvent()    {}
func (SubAgentComplete) chatEvent()    {}
func (WorkItemUpdate) chatEvent()      {}
func (Unknown) chatEvent()             {}

func (Snapshot) feedEvent()       {}
func (WorkItemUpdate) feedEvent() {}
func (Unknown) feedEvent()        {}

// wireEvent is the union of every inbound field. Pointer fields
// distinguish "absent" from "empty" for required-field checks.
type wireEvent struct {
	Type            string          `json:"type"`
	Model           string          `json:"model"`
	Content         *string         `json:"content"`
	Role            string          `json:"role"`
	ConversationID  *string         `json:"conv_id"`
	Title           *string         `json:"title"`
	OrchestrationID string          `json:"orchestration_id"`
	Strategy        string          `json:"strategy"`
	SubAgents       *[]wireSubAgent `json:"sub_agents"`
	SubAgentID      string          `json:"sub_agent_id"`
	SubAgentStatus  SubAgentStatus  `json:"sub_agent_status"`
	DurationMS      *int64          `json:"duration_ms"`
	Item            *WorkItem       `json:"item"`
	Event           WorkItemEvent   `json:"event"`
	Items           *[]WorkItem     `json:"items"`
}

type wireSubAgent struct {
	ID    string `json:"id"`
	Role  string `json:"role"`
	Model string `json:"model"`
}

func malformed(eventType, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrMalformedFrame, eventType, fmt.Sprintf(format, args...))
}

func parseWire(data []byte) (*wireEvent, error) {
	var wire wireEvent
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if wire.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	}
	return &wire, nil
}

func stringValue(pointer *string) string {
	if pointer == nil {
		return ""
	}
	return *pointer
}

// DecodeChatEvent decodes one chat channel frame.
func DecodeChatEvent(data []byte) (ChatEvent, error) {
	wire, err := parseWire(data)
	if err != nil {
		return nil, err
	}

	switch wire.Type {
	case "stream_start":
		return StreamStart{Model: wire.Model}, nil

	case "stream_chunk":
		if wire.Content == nil {
			return nil, malformed(wire.Type, "missing content")
		}
		return StreamChunk{Content: *wire.Content}, nil

	case "stream_end":
		return StreamEnd{
			ConversationID: stringValue(wire.ConversationID),
			Title:          stringValue(wire.Title),
		}, nil

	case "message":
		role := Role(wire.Role)
		if role == "" {
			role = RoleAssistant
		}
		return MessageEvent{Role: role, Content: stringValue(wire.Content), Model: wire.Model}, nil

	case "system":
		return SystemEvent{Content: stringValue(wire.Content)}, nil

	case "error":
		return ErrorEvent{Content: stringValue(wire.Content)}, nil

	case "conversation_set":
		if stringValue(wire.ConversationID) == "" {
			return nil, malformed(wire.Type, "missing conv_id")
		}
		return ConversationSet{ConversationID: *wire.ConversationID}, nil

	case "conversation_renamed":
		if stringValue(wire.ConversationID) == "" {
			return nil, malformed(wire.Type, "missing conv_id")
		}
		if wire.Title == nil {
			return nil, malformed(wire.Type, "missing title")
		}
		return ConversationRenamed{ConversationID: *wire.ConversationID, Title: *wire.Title}, nil

	case "ping":
		return Ping{}, nil

	case "pong":
		return Pong{}, nil

	case "sub_agent_start":
		if wire.SubAgents == nil {
			return nil, malformed(wire.Type, "missing sub_agents")
		}
		agents := make([]SubAgent, 0, len(*wire.SubAgents))
		for index, agent := range *wire.SubAgents {
			if agent.ID == "" {
				return nil, malformed(wire.Type, "sub_agents[%d] missing id", index)
			}
			agents = append(agents, SubAgent{
				ID:     agent.ID,
				Role:   agent.Role,
				Model:  agent.Model,
				Status: SubAgentPending,
			})
		}
		return SubAgentStart{
			OrchestrationID: wire.OrchestrationID,
			Strategy:        wire.Strategy,
			SubAgents:       agents,
		}, nil

	case "sub_agent_progress":
		if wire.SubAgentID == "" {
			return nil, malformed(wire.Type, "missing sub_agent_id")
		}
		return SubAgentProgress{
			SubAgentID: wire.SubAgentID,
			Role:       wire.Role,
			Content:    stringValue(wire.Content),
		}, nil

	case "sub_agent_complete":
		if wire.SubAgentID == "" {
			return nil, malformed(wire.Type, "missing sub_agent_id")
		}
		if wire.SubAgentStatus != SubAgentCompleted && wire.SubAgentStatus != SubAgentFailed {
			return nil, malformed(wire.Type, "sub_agent_status %q is not completed or failed", wire.SubAgentStatus)
		}
		return SubAgentComplete{
			SubAgentID: wire.SubAgentID,
			Status:     wire.SubAgentStatus,
			Model:      wire.Model,
			Content:    stringValue(wire.Content),
			DurationMS: wire.DurationMS,
		}, nil

	case "work_item_update":
		update, err := decodeWorkItemUpdate(wire)
		if err != nil {
			return nil, err
		}
		return update, nil
	}

	return Unknown{Type: wire.Type}, nil
}

// DecodeFeedEvent decodes the payload of one feed frame, with the data
// prefix already removed.
func DecodeFeedEvent(data []byte) (FeedEvent, error) {
	wire, err := parseWire(data)
	if err != nil {
		return nil, err
	}

	switch wire.Type {
	case "snapshot":
		if wire.Items == nil {
			return nil, malformed(wire.Type, "missing items")
		}
		for index, item := range *wire.Items {
			if item.ID == "" {
				return nil, malformed(wire.Type, "items[%d] missing id", index)
			}
		}
		return Snapshot{Items: *wire.Items}, nil

	case "work_item_update":
		update, err := decodeWorkItemUpdate(wire)
		if err != nil {
			return nil, err
		}
		return update, nil
	}

	return Unknown{Type: wire.Type}, nil
}

func decodeWorkItemUpdate(wire *wireEvent) (WorkItemUpdate, error) {
	if wire.Item == nil || wire.Item.ID == "" {
		return WorkItemUpdate{}, malformed(wire.Type, "missing item.id")
	}
	event := wire.Event
	if event == "" {
		event = WorkItemUpdated
	}
	return WorkItemUpdate{Item: *wire.Item, Event: event}, nil
}
