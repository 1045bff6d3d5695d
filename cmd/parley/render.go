// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/bureau-foundation/parley/engine"
	"github.com/bureau-foundation/parley/protocol"
	"github.com/bureau-foundation/parley/transport"
	"github.com/bureau-foundation/parley/workitem"
)

// renderer prints the difference between successive views as plain
// lines. Streamed replies are printed incrementally as chunks arrive.
type renderer struct {
	out io.Writer

	conversationID string
	first          protocol.Message
	printed        int

	// streamed is the number of sanitized bytes of the current
	// message already written. streaming is true once its prefix has
	// been written; midLine is true while the cursor is not at the
	// start of a line.
	streamed  int
	streaming bool
	midLine   bool

	orchestrationID string
	agentStatus     map[string]protocol.SubAgentStatus

	chatState transport.State
	feedState transport.State
	haveState bool
}

func newRenderer(out io.Writer) *renderer {
	return &renderer{out: out, agentStatus: make(map[string]protocol.SubAgentStatus)}
}

// sanitize removes terminal escape sequences from server text.
func sanitize(text string) string {
	return ansi.Strip(text)
}

func (r *renderer) render(view engine.View) {
	r.renderConnection(view)
	r.renderMessages(view)
	r.renderOrchestration(view)
}

func (r *renderer) renderConnection(view engine.View) {
	if r.haveState && view.Chat.State == r.chatState && view.Feed.State == r.feedState {
		return
	}
	if !r.haveState || view.Chat.State != r.chatState {
		r.line(channelLine("chat", view.Chat))
	}
	if r.haveState && view.Feed.State != r.feedState {
		r.line(channelLine("feed", view.Feed))
	}
	r.chatState = view.Chat.State
	r.feedState = view.Feed.State
	r.haveState = true
}

func channelLine(name string, status engine.ChannelStatus) string {
	if status.Err != nil && status.State == transport.StateReconnecting {
		return fmt.Sprintf("[%s %s: %v]", name, status.State, status.Err)
	}
	return fmt.Sprintf("[%s %s]", name, status.State)
}

func (r *renderer) renderMessages(view engine.View) {
	if r.replaced(view) {
		r.finishStream()
		r.printed = 0
		if view.ConversationID != "" {
			r.line(fmt.Sprintf("--- conversation %s ---", view.ConversationID))
		} else {
			r.line("--- new conversation ---")
		}
	}
	r.conversationID = view.ConversationID
	if len(view.Messages) > 0 {
		r.first = view.Messages[0]
	} else {
		r.first = protocol.Message{}
	}

	for index := r.printed; index < len(view.Messages); index++ {
		message := view.Messages[index]
		text := sanitize(message.Content)
		inFlight := view.Streaming && index == len(view.Messages)-1

		if !r.streaming {
			r.prefix(message)
			r.streaming = true
			r.streamed = 0
		}
		if r.streamed < len(text) {
			if !r.midLine {
				r.prefix(message)
			}
			io.WriteString(r.out, text[r.streamed:])
			r.streamed = len(text)
		}
		if inFlight {
			return
		}
		r.finishStream()
		r.printed++
	}
}

// replaced reports whether the message log was swapped out rather than
// extended since the last render.
func (r *renderer) replaced(view engine.View) bool {
	if len(view.Messages) < r.printed {
		return true
	}
	if r.conversationID != "" && view.ConversationID != r.conversationID {
		return true
	}
	return r.printed > 0 && view.Messages[0] != r.first
}

func (r *renderer) prefix(message protocol.Message) {
	fmt.Fprintf(r.out, "%s> ", roleLabel(message))
	r.midLine = true
}

func (r *renderer) finishStream() {
	if r.midLine {
		io.WriteString(r.out, "\n")
	}
	r.midLine = false
	r.streaming = false
	r.streamed = 0
}

func (r *renderer) renderOrchestration(view engine.View) {
	if !view.HasOrchestration {
		return
	}
	orchestration := view.Orchestration
	if orchestration.ID != r.orchestrationID {
		r.orchestrationID = orchestration.ID
		clear(r.agentStatus)
		r.line(fmt.Sprintf("[orchestration %s: %d agents]", orchestration.Strategy, len(orchestration.Agents)))
	}
	for _, agent := range orchestration.Agents {
		if r.agentStatus[agent.ID] == agent.Status {
			continue
		}
		r.agentStatus[agent.ID] = agent.Status
		label := agent.Role
		if label == "" {
			label = agent.ID
		}
		r.line(fmt.Sprintf("  %s: %s", sanitize(label), agent.Status))
	}
}

// line writes text on its own line. A reply that is still streaming
// resumes on a fresh line after it.
func (r *renderer) line(text string) {
	if r.midLine {
		io.WriteString(r.out, "\n")
		r.midLine = false
	}
	fmt.Fprintln(r.out, text)
}

func roleLabel(message protocol.Message) string {
	switch message.Role {
	case protocol.RoleUser:
		return "you"
	case protocol.RoleAssistant:
		if message.ModelUsed != "" {
			return "assistant [" + sanitize(message.ModelUsed) + "]"
		}
		return "assistant"
	default:
		return string(message.Role)
	}
}

// writeConversations lists conversations one per line.
func writeConversations(out io.Writer, active string, conversations []protocol.Conversation) {
	if len(conversations) == 0 {
		fmt.Fprintln(out, "no conversations")
		return
	}
	for _, conversation := range conversations {
		marker := " "
		if conversation.ID == active {
			marker = "*"
		}
		title := sanitize(conversation.Title)
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(out, "%s %s  %s  %s\n", marker, conversation.ID, title, conversation.UpdatedAt)
	}
}

// writeWorkItems prints the status summary and the work-item forest.
func writeWorkItems(out io.Writer, view engine.View) {
	counts := view.WorkItemCounts
	summary := fmt.Sprintf("work items: %d total, %d running, %d pending, %d completed, %d failed, %d cancelled",
		counts.Total, counts.Running, counts.Pending, counts.Completed, counts.Failed, counts.Cancelled)
	if view.WorkItemsStale {
		summary += " (stale)"
	}
	fmt.Fprintln(out, summary)

	var walk func(nodes []workitem.Node, depth int)
	walk = func(nodes []workitem.Node, depth int) {
		for _, node := range nodes {
			title := sanitize(node.Item.Title)
			if title == "" {
				title = node.Item.ID
			}
			line := fmt.Sprintf("%s- [%s] %s", strings.Repeat("  ", depth), node.Item.Status, title)
			if len(node.Children) > 0 {
				done := 0
				for _, child := range node.Children {
					if child.Item.Status.Terminal() {
						done++
					}
				}
				line += fmt.Sprintf(" (%d/%d)", done, len(node.Children))
			}
			fmt.Fprintln(out, line)
			walk(node.Children, depth+1)
		}
	}
	walk(view.WorkItems, 0)

	for _, orphan := range view.Orphans {
		fmt.Fprintf(out, "? [%s] %s (parent %s not yet known)\n", orphan.Status, orphan.ID, orphan.ParentID)
	}
}
