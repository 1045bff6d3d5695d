// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package platform

import (
	"testing"

	"github.com/bureau-foundation/parley/protocol"
)

func conversationIDs(conversations []protocol.Conversation) []string {
	result := make([]string, len(conversations))
	for index, conversation := range conversations {
		result[index] = conversation.ID
	}
	return result
}

func TestFilterConversations(t *testing.T) {
	conversations := []protocol.Conversation{
		{ID: "c1", Title: "Deploy checklist", UpdatedAt: "2026-01-01T00:00:00Z"},
		{ID: "c2", Title: "Lunch ideas", UpdatedAt: "2026-01-05T00:00:00Z"},
		{ID: "c3", Title: "deploy checklist", UpdatedAt: "2026-01-09T00:00:00Z"},
		{ID: "c4", Title: "", UpdatedAt: "2026-01-03T00:00:00Z"},
	}

	t.Run("blank pattern keeps everything", func(t *testing.T) {
		got := FilterConversations(conversations, " ")
		if len(got) != len(conversations) {
			t.Errorf("got %v", conversationIDs(got))
		}
	})

	t.Run("non-matching titles dropped", func(t *testing.T) {
		got := conversationIDs(FilterConversations(conversations, "dply"))
		if len(got) != 2 {
			t.Fatalf("got %v, want the two deploy conversations", got)
		}
	})

	t.Run("ties ordered by most recent update", func(t *testing.T) {
		got := conversationIDs(FilterConversations(conversations, "DEPLOY"))
		if len(got) != 2 || got[0] != "c3" || got[1] != "c1" {
			t.Errorf("got %v, want [c3 c1]", got)
		}
	})

	t.Run("untitled conversations match on id", func(t *testing.T) {
		got := conversationIDs(FilterConversations(conversations, "c4"))
		if len(got) != 1 || got[0] != "c4" {
			t.Errorf("got %v, want [c4]", got)
		}
	})

	t.Run("no match", func(t *testing.T) {
		if got := FilterConversations(conversations, "zzz"); len(got) != 0 {
			t.Errorf("got %v", conversationIDs(got))
		}
	})
}
