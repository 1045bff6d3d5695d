// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeChatEvent(t *testing.T) {
	t.Parallel()

	duration := int64(1200)
	tests := []struct {
		name  string
		input string
		want  ChatEvent
	}{
		{"stream_start", `{"type":"stream_start","model":"m1"}`, StreamStart{Model: "m1"}},
		{"stream_chunk", `{"type":"stream_chunk","content":"Hel"}`, StreamChunk{Content: "Hel"}},
		{"stream_chunk empty content", `{"type":"stream_chunk","content":""}`, StreamChunk{}},
		{"stream_end bare", `{"type":"stream_end"}`, StreamEnd{}},
		{"stream_end with conversation", `{"type":"stream_end","conv_id":"c1","title":"Greeting"}`,
			StreamEnd{ConversationID: "c1", Title: "Greeting"}},
		{"message defaults to assistant", `{"type":"message","content":"hi"}`,
			MessageEvent{Role: RoleAssistant, Content: "hi"}},
		{"message with role", `{"type":"message","role":"user","content":"q","model":"m"}`,
			MessageEvent{Role: RoleUser, Content: "q", Model: "m"}},
		{"system", `{"type":"system","content":"restarting"}`, SystemEvent{Content: "restarting"}},
		{"error", `{"type":"error","content":"rate limited"}`, ErrorEvent{Content: "rate limited"}},
		{"conversation_set", `{"type":"conversation_set","conv_id":"c2"}`, ConversationSet{ConversationID: "c2"}},
		{"conversation_renamed", `{"type":"conversation_renamed","conv_id":"c2","title":"T"}`,
			ConversationRenamed{ConversationID: "c2", Title: "T"}},
		{"ping", `{"type":"ping"}`, Ping{}},
		{"pong", `{"type":"pong"}`, Pong{}},
		{"sub_agent_progress", `{"type":"sub_agent_progress","sub_agent_id":"a1","content":"draft"}`,
			SubAgentProgress{SubAgentID: "a1", Content: "draft"}},
		{"unknown type", `{"type":"typing_indicator","who":"x"}`, Unknown{Type: "typing_indicator"}},
		{"outbound type echoed back", `{"type":"abort"}`, Unknown{Type: "abort"}},
		{"unknown fields ignored", `{"type":"stream_start","model":"m","extra":{"deep":true}}`, StreamStart{Model: "m"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := DecodeChatEvent([]byte(test.input))
			if err != nil {
				t.Fatalf("DecodeChatEvent: %v", err)
			}
			if got != test.want {
				t.Errorf("got %#v, want %#v", got, test.want)
			}
		})
	}

	t.Run("sub_agent_start", func(t *testing.T) {
		got, err := DecodeChatEvent([]byte(`{"type":"sub_agent_start","orchestration_id":"o1","strategy":"fanout",
			"sub_agents":[{"id":"a1","role":"writer","model":"m"},{"id":"a2"}]}`))
		if err != nil {
			t.Fatalf("DecodeChatEvent: %v", err)
		}
		start, ok := got.(SubAgentStart)
		if !ok {
			t.Fatalf("got %T, want SubAgentStart", got)
		}
		if start.OrchestrationID != "o1" || start.Strategy != "fanout" || len(start.SubAgents) != 2 {
			t.Fatalf("unexpected start: %+v", start)
		}
		if start.SubAgents[0] != (SubAgent{ID: "a1", Role: "writer", Model: "m", Status: SubAgentPending}) {
			t.Errorf("first agent = %+v", start.SubAgents[0])
		}
		if start.SubAgents[1].Status != SubAgentPending {
			t.Errorf("second agent not seeded pending: %+v", start.SubAgents[1])
		}
	})

	t.Run("sub_agent_complete", func(t *testing.T) {
		got, err := DecodeChatEvent([]byte(`{"type":"sub_agent_complete","sub_agent_id":"a1",
			"sub_agent_status":"failed","model":"m2","content":"x","duration_ms":1200}`))
		if err != nil {
			t.Fatalf("DecodeChatEvent: %v", err)
		}
		complete := got.(SubAgentComplete)
		if complete.SubAgentID != "a1" || complete.Status != SubAgentFailed || complete.Model != "m2" {
			t.Errorf("unexpected complete: %+v", complete)
		}
		if complete.DurationMS == nil || *complete.DurationMS != duration {
			t.Errorf("DurationMS = %v, want %d", complete.DurationMS, duration)
		}
	})

	t.Run("work_item_update", func(t *testing.T) {
		got, err := DecodeChatEvent([]byte(`{"type":"work_item_update","event":"registered",
			"item":{"id":"w1","kind":"task","title":"t","status":"running","parent_id":"w0","metadata":{"k":1}}}`))
		if err != nil {
			t.Fatalf("DecodeChatEvent: %v", err)
		}
		update := got.(WorkItemUpdate)
		if update.Event != WorkItemRegistered || update.Item.ID != "w1" || update.Item.ParentID != "w0" {
			t.Errorf("unexpected update: %+v", update)
		}
		var metadata map[string]int
		if err := json.Unmarshal(update.Item.Metadata, &metadata); err != nil || metadata["k"] != 1 {
			t.Errorf("metadata = %s", update.Item.Metadata)
		}
	})
}

func TestDecodeChatEventMalformed(t *testing.T) {
	t.Parallel()

	inputs := map[string]string{
		"invalid json":                     `{"type":"stream_chunk",`,
		"not an object":                    `["stream_chunk"]`,
		"missing type":                     `{"content":"x"}`,
		"chunk without content":            `{"type":"stream_chunk"}`,
		"conversation_set without id":      `{"type":"conversation_set"}`,
		"renamed without title":            `{"type":"conversation_renamed","conv_id":"c"}`,
		"start without agents":             `{"type":"sub_agent_start"}`,
		"start agent without id":           `{"type":"sub_agent_start","sub_agents":[{"role":"r"}]}`,
		"progress without id":              `{"type":"sub_agent_progress"}`,
		"complete with bad status":         `{"type":"sub_agent_complete","sub_agent_id":"a","sub_agent_status":"running"}`,
		"complete without status":          `{"type":"sub_agent_complete","sub_agent_id":"a"}`,
		"work item update without item":    `{"type":"work_item_update"}`,
		"work item update without item id": `{"type":"work_item_update","item":{"title":"x"}}`,
	}
	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			event, err := DecodeChatEvent([]byte(input))
			if !errors.Is(err, ErrMalformedFrame) {
				t.Fatalf("err = %v, want ErrMalformedFrame", err)
			}
			if event != nil {
				t.Errorf("event = %#v, want nil", event)
			}
		})
	}
}

func TestDecodeFeedEvent(t *testing.T) {
	t.Parallel()

	t.Run("snapshot", func(t *testing.T) {
		got, err := DecodeFeedEvent([]byte(`{"type":"snapshot","items":[{"id":"w1","status":"pending"},{"id":"w2","parent_id":"w1"}]}`))
		if err != nil {
			t.Fatalf("DecodeFeedEvent: %v", err)
		}
		snapshot := got.(Snapshot)
		if len(snapshot.Items) != 2 || snapshot.Items[1].ParentID != "w1" {
			t.Errorf("unexpected snapshot: %+v", snapshot)
		}
	})

	t.Run("empty snapshot", func(t *testing.T) {
		got, err := DecodeFeedEvent([]byte(`{"type":"snapshot","items":[]}`))
		if err != nil {
			t.Fatalf("DecodeFeedEvent: %v", err)
		}
		if snapshot := got.(Snapshot); snapshot.Items == nil || len(snapshot.Items) != 0 {
			t.Errorf("unexpected snapshot: %#v", snapshot)
		}
	})

	t.Run("update defaults to updated", func(t *testing.T) {
		got, err := DecodeFeedEvent([]byte(`{"type":"work_item_update","item":{"id":"w1"}}`))
		if err != nil {
			t.Fatalf("DecodeFeedEvent: %v", err)
		}
		if update := got.(WorkItemUpdate); update.Event != WorkItemUpdated {
			t.Errorf("Event = %q, want updated", update.Event)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		got, err := DecodeFeedEvent([]byte(`{"type":"heartbeat"}`))
		if err != nil {
			t.Fatalf("DecodeFeedEvent: %v", err)
		}
		if got != (Unknown{Type: "heartbeat"}) {
			t.Errorf("got %#v", got)
		}
	})

	for name, input := range map[string]string{
		"snapshot without items":           `{"type":"snapshot"}`,
		"snapshot item without id":         `{"type":"snapshot","items":[{"title":"x"}]}`,
		"garbage":                          `data: nope`,
		"work item update without item":    `{"type":"work_item_update"}`,
		"work item update without item id": `{"type":"work_item_update","item":{"title":"x"}}`,
	} {
		t.Run(name, func(t *testing.T) {
			event, err := DecodeFeedEvent([]byte(input))
			if !errors.Is(err, ErrMalformedFrame) {
				t.Errorf("err = %v, want ErrMalformedFrame", err)
			}
			if event != nil {
				t.Errorf("event = %#v alongside an error, want nil", event)
			}
		})
	}
}

func TestStatusHelpers(t *testing.T) {
	t.Parallel()

	for status, terminal := range map[WorkItemStatus]bool{
		WorkPending: false, WorkRunning: false,
		WorkCompleted: true, WorkFailed: true, WorkCancelled: true,
		"paused": false,
	} {
		if status.Terminal() != terminal {
			t.Errorf("%q.Terminal() = %v", status, !terminal)
		}
	}

	if !(SubAgentPending.Rank() < SubAgentRunning.Rank() && SubAgentRunning.Rank() < SubAgentCompleted.Rank()) {
		t.Error("sub-agent ranks are not increasing")
	}
	if SubAgentCompleted.Rank() != SubAgentFailed.Rank() {
		t.Error("terminal outcomes should share a rank")
	}
}
