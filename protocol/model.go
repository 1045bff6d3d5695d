// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import "encoding/json"

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one entry in a conversation's message log.
type Message struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	ModelUsed string `json:"model_used,omitempty"`
}

// Conversation is a server-side conversation record. Timestamps are
// RFC 3339 strings exactly as the server sent them.
type Conversation struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
	MessageCount int    `json:"message_count"`
}

// WorkItemKind classifies a work item.
type WorkItemKind string

const (
	KindAgent         WorkItemKind = "agent"
	KindSubAgent      WorkItemKind = "sub_agent"
	KindOrchestration WorkItemKind = "orchestration"
	KindPlan          WorkItemKind = "plan"
	KindPlanStep      WorkItemKind = "plan_step"
	KindTask          WorkItemKind = "task"
	KindReminder      WorkItemKind = "reminder"
)

// WorkItemStatus is the lifecycle status of a work item.
type WorkItemStatus string

const (
	WorkPending   WorkItemStatus = "pending"
	WorkRunning   WorkItemStatus = "running"
	WorkCompleted WorkItemStatus = "completed"
	WorkFailed    WorkItemStatus = "failed"
	WorkCancelled WorkItemStatus = "cancelled"
)

// Terminal reports whether the status ends the item's lifecycle.
func (status WorkItemStatus) Terminal() bool {
	switch status {
	case WorkCompleted, WorkFailed, WorkCancelled:
		return true
	}
	return false
}

// WorkItem is a unit of tracked work on the platform. Items form a
// forest through ParentID; an empty ParentID marks a root.
type WorkItem struct {
	ID             string          `json:"id"`
	Kind           WorkItemKind    `json:"kind"`
	Title          string          `json:"title"`
	Status         WorkItemStatus  `json:"status"`
	ParentID       string          `json:"parent_id,omitempty"`
	ConversationID string          `json:"conv_id,omitempty"`
	Model          string          `json:"model,omitempty"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	CreatedAt      string          `json:"created_at"`
	StartedAt      string          `json:"started_at,omitempty"`
	CompletedAt    string          `json:"completed_at,omitempty"`
}

// SubAgentStatus is the status of one sub-agent in an orchestration.
type SubAgentStatus string

const (
	SubAgentPending   SubAgentStatus = "pending"
	SubAgentRunning   SubAgentStatus = "running"
	SubAgentCompleted SubAgentStatus = "completed"
	SubAgentFailed    SubAgentStatus = "failed"
)

// Rank orders statuses along pending, running, then the two terminal
// outcomes. A sub-agent only ever moves to a strictly higher rank.
func (status SubAgentStatus) Rank() int {
	switch status {
	case SubAgentPending:
		return 0
	case SubAgentRunning:
		return 1
	case SubAgentCompleted, SubAgentFailed:
		return 2
	}
	return -1
}

// SubAgent is one participant of a multi-agent orchestration.
type SubAgent struct {
	ID         string         `json:"id"`
	Role       string         `json:"role"`
	Model      string         `json:"model"`
	Status     SubAgentStatus `json:"status"`
	Content    string         `json:"content"`
	DurationMS *int64         `json:"duration_ms,omitempty"`
}

// WorkItemEvent says whether a work_item_update registers a new item
// or updates a known one.
type WorkItemEvent string

const (
	WorkItemRegistered WorkItemEvent = "registered"
	WorkItemUpdated    WorkItemEvent = "updated"
)
