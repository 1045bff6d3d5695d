// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"testing"

	"github.com/bureau-foundation/parley/protocol"
)

func startEvent(ids ...string) protocol.SubAgentStart {
	event := protocol.SubAgentStart{OrchestrationID: "o1", Strategy: "parallel"}
	for _, id := range ids {
		event.SubAgents = append(event.SubAgents, protocol.SubAgent{ID: id, Role: "writer", Model: "m", Status: protocol.SubAgentPending})
	}
	return event
}

func requireAgent(t *testing.T, session *Session, id string) protocol.SubAgent {
	t.Helper()
	orchestration, ok := session.Orchestration()
	if !ok {
		t.Fatal("no orchestration")
	}
	for _, agent := range orchestration.Agents {
		if agent.ID == id {
			return agent
		}
	}
	t.Fatalf("agent %q not found in %+v", id, orchestration.Agents)
	return protocol.SubAgent{}
}

func TestSubAgentFailedScenario(t *testing.T) {
	fixture := newFixture(t)
	fixture.apply(
		protocol.SubAgentStart{SubAgents: []protocol.SubAgent{{ID: "a1", Role: "writer", Model: "m"}}},
		protocol.SubAgentComplete{SubAgentID: "a1", Status: protocol.SubAgentFailed},
	)

	if agent := requireAgent(t, fixture.session, "a1"); agent.Status != protocol.SubAgentFailed {
		t.Errorf("a1 status = %q, want failed", agent.Status)
	}
}

func TestSubAgentLifecycle(t *testing.T) {
	fixture := newFixture(t)
	duration := int64(850)
	fixture.apply(
		startEvent("a1", "a2"),
		protocol.SubAgentProgress{SubAgentID: "a1", Role: "critic", Content: "thinking"},
	)

	agent := requireAgent(t, fixture.session, "a1")
	if agent.Status != protocol.SubAgentRunning || agent.Role != "critic" || agent.Content != "thinking" {
		t.Fatalf("after progress: %+v", agent)
	}

	fixture.apply(protocol.SubAgentComplete{SubAgentID: "a1", Status: protocol.SubAgentCompleted, Model: "m2", Content: "done", DurationMS: &duration})
	agent = requireAgent(t, fixture.session, "a1")
	if agent.Status != protocol.SubAgentCompleted || agent.Model != "m2" || agent.Content != "done" {
		t.Fatalf("after complete: %+v", agent)
	}
	if agent.DurationMS == nil || *agent.DurationMS != 850 {
		t.Errorf("DurationMS = %v", agent.DurationMS)
	}
	duration = 1
	if *requireAgent(t, fixture.session, "a1").DurationMS != 850 {
		t.Error("stored duration aliases the event")
	}

	if agent := requireAgent(t, fixture.session, "a2"); agent.Status != protocol.SubAgentPending {
		t.Errorf("a2 status = %q, want pending", agent.Status)
	}
}

func TestSubAgentStatusNeverRegresses(t *testing.T) {
	fixture := newFixture(t)
	fixture.apply(
		startEvent("a1"),
		protocol.SubAgentComplete{SubAgentID: "a1", Status: protocol.SubAgentCompleted},
		protocol.SubAgentProgress{SubAgentID: "a1", Content: "late progress"},
		protocol.SubAgentComplete{SubAgentID: "a1", Status: protocol.SubAgentFailed},
	)

	agent := requireAgent(t, fixture.session, "a1")
	if agent.Status != protocol.SubAgentCompleted {
		t.Errorf("status = %q, want completed", agent.Status)
	}
	if agent.Content != "late progress" {
		t.Errorf("content = %q; content patches still apply", agent.Content)
	}
}

func TestSubAgentUnmatchedIDIsNoOp(t *testing.T) {
	fixture := newFixture(t)
	fixture.apply(startEvent("a1"))
	before, _ := fixture.session.Orchestration()

	fixture.apply(
		protocol.SubAgentProgress{SubAgentID: "ghost", Content: "x"},
		protocol.SubAgentComplete{SubAgentID: "ghost", Status: protocol.SubAgentCompleted},
	)

	after, _ := fixture.session.Orchestration()
	if len(after.Agents) != 1 || after.Agents[0] != before.Agents[0] {
		t.Errorf("orchestration changed: before %+v, after %+v", before, after)
	}
}

func TestSubAgentEventsWithoutOrchestration(t *testing.T) {
	fixture := newFixture(t)
	fixture.apply(
		protocol.SubAgentProgress{SubAgentID: "a1"},
		protocol.SubAgentComplete{SubAgentID: "a1", Status: protocol.SubAgentFailed},
	)
	if _, ok := fixture.session.Orchestration(); ok {
		t.Error("orchestration created by progress or complete")
	}
}

func TestSubAgentStartReplacesWholesaleAndDeduplicates(t *testing.T) {
	fixture := newFixture(t)
	fixture.apply(
		startEvent("a1"),
		protocol.SubAgentComplete{SubAgentID: "a1", Status: protocol.SubAgentCompleted},
		protocol.SubAgentStart{OrchestrationID: "o2", SubAgents: []protocol.SubAgent{
			{ID: "b1", Status: protocol.SubAgentRunning},
			{ID: "b1"},
			{ID: "b2"},
		}},
	)

	orchestration, _ := fixture.session.Orchestration()
	if orchestration.ID != "o2" || !orchestration.Active || len(orchestration.Agents) != 2 {
		t.Fatalf("orchestration = %+v", orchestration)
	}
	for _, agent := range orchestration.Agents {
		if agent.Status != protocol.SubAgentPending {
			t.Errorf("agent %s seeded as %q, want pending", agent.ID, agent.Status)
		}
	}
}

func TestOrchestrationLifecycleAcrossTurns(t *testing.T) {
	fixture := newFixture(t)
	fixture.apply(startEvent("a1"), protocol.StreamStart{}, protocol.StreamEnd{})

	orchestration, ok := fixture.session.Orchestration()
	if !ok || orchestration.Active {
		t.Fatalf("after stream_end: %+v, %v; want preserved and inactive", orchestration, ok)
	}

	fixture.session.SendMessage("next question")
	if _, ok := fixture.session.Orchestration(); ok {
		t.Error("sending a message did not clear the orchestration")
	}
}

func TestOrchestrationCopyIsIsolated(t *testing.T) {
	fixture := newFixture(t)
	fixture.apply(startEvent("a1"))

	copied, _ := fixture.session.Orchestration()
	copied.Agents[0].Status = protocol.SubAgentFailed

	if agent := requireAgent(t, fixture.session, "a1"); agent.Status != protocol.SubAgentPending {
		t.Errorf("mutating the copy changed session state: %q", agent.Status)
	}
}
