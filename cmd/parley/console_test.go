// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/parley/engine"
	"github.com/bureau-foundation/parley/lib/testutil"
	"github.com/bureau-foundation/parley/protocol"
	"github.com/bureau-foundation/parley/transport"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line      string
		want      command
		isCommand bool
	}{
		{"/new", command{name: "new"}, true},
		{"  /switch  c42 ", command{name: "switch", arg: "c42"}, true},
		{"/SEARCH budget review", command{name: "search", arg: "budget review"}, true},
		{"hello /new", command{}, false},
		{"", command{}, false},
	}
	for _, test := range tests {
		got, isCommand := parseCommand(test.line)
		if got != test.want || isCommand != test.isCommand {
			t.Errorf("parseCommand(%q) = %+v, %v; want %+v, %v", test.line, got, isCommand, test.want, test.isCommand)
		}
	}
}

// disconnectedChat never connects.
type disconnectedChat struct {
	deliveries chan transport.Delivery[protocol.ChatEvent]
}

func (chat *disconnectedChat) Run(ctx context.Context) {
	<-ctx.Done()
	close(chat.deliveries)
}

func (chat *disconnectedChat) Deliveries() <-chan transport.Delivery[protocol.ChatEvent] {
	return chat.deliveries
}

func (chat *disconnectedChat) Send([]byte) error {
	return transport.ErrNotConnected
}

func startEngine(t *testing.T) (*engine.Engine, context.Context) {
	t.Helper()
	eng, err := engine.New(engine.Config{
		Chat:   &disconnectedChat{deliveries: make(chan transport.Delivery[protocol.ChatEvent])},
		Logger: testutil.DiscardLogger(),
	})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		testutil.RequireReceive(t, done, 5*time.Second, "engine did not stop")
	})
	return eng, ctx
}

func TestConsoleCommands(t *testing.T) {
	eng, ctx := startEngine(t)

	input := strings.NewReader("/help\n/items\n/bogus\n/switch\nhello\n/quit\nnever sent\n")
	var out bytes.Buffer
	if err := newConsole(eng, input, &out, false).Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	output := out.String()
	for _, want := range []string{
		"/switch <id>",
		"work items: 0 total",
		"error: unknown command /bogus",
		"error: usage: /switch",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
	if strings.Contains(output, "> /") {
		t.Error("prompt printed for non-interactive input")
	}

	view, err := eng.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(view.Messages) != 2 || view.Messages[0].Content != "hello" || view.Messages[1].Role != protocol.RoleSystem {
		t.Errorf("messages = %+v, want hello plus undelivered notice", view.Messages)
	}
}

func TestConsoleEndsAtEOF(t *testing.T) {
	eng, ctx := startEngine(t)
	var out bytes.Buffer
	if err := newConsole(eng, strings.NewReader("/new\n"), &out, false).Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestRejectedSendNotice(t *testing.T) {
	if got := rejectedSendNotice(engine.View{PendingSwitch: "c7"}); !strings.Contains(got, "still loading conversation c7") {
		t.Errorf("pending switch notice = %q", got)
	}
	if got := rejectedSendNotice(engine.View{Streaming: true}); !strings.Contains(got, "/abort") {
		t.Errorf("streaming notice = %q", got)
	}
}
