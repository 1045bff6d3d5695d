// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bureau-foundation/parley/lib/secret"
	"github.com/bureau-foundation/parley/lib/testutil"
	"github.com/bureau-foundation/parley/protocol"
)

func websocketURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func mustToken(t *testing.T, value string) *secret.Buffer {
	t.Helper()
	token, err := secret.NewFromString(value)
	if err != nil {
		t.Fatalf("NewFromString: %v", err)
	}
	t.Cleanup(func() { token.Close() })
	return token
}

func TestChatDialerRoundTrip(t *testing.T) {
	authorization := make(chan string, 1)
	received := make(chan string, 4)

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authorization <- r.Header.Get("Authorization")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"stream_start","model":"m1"}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`))
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			received <- string(data)
		}
	}))
	defer server.Close()

	supervisor, err := NewSupervisor(Config[protocol.ChatEvent]{
		Name:   "chat",
		Dialer: &ChatDialer{URL: websocketURL(server), Token: mustToken(t, "chat-token")},
		Decode: protocol.DecodeChatEvent,
		Logger: testutil.DiscardLogger(),
	})
	if err != nil {
		t.Fatalf("NewSupervisor: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		supervisor.Run(ctx)
	}()
	defer func() {
		cancel()
		testutil.RequireClosed(t, done, testTimeout, "supervisor did not stop")
	}()

	if got := testutil.RequireReceive(t, authorization, testTimeout); got != "Bearer chat-token" {
		t.Errorf("Authorization = %q", got)
	}

	var events []protocol.ChatEvent
	for len(events) < 2 {
		delivery := testutil.RequireReceive(t, supervisor.Deliveries(), testTimeout, "waiting for chat event")
		if delivery.Transition {
			continue
		}
		events = append(events, delivery.Event)
	}
	if start, ok := events[0].(protocol.StreamStart); !ok || start.Model != "m1" {
		t.Errorf("first event = %#v, want stream_start m1", events[0])
	}
	if _, ok := events[1].(protocol.Ping); !ok {
		t.Fatalf("second event = %#v, want ping", events[1])
	}

	if err := supervisor.Send(protocol.PongFrame()); err != nil {
		t.Fatalf("Send pong: %v", err)
	}
	if got := testutil.RequireReceive(t, received, testTimeout); got != `{"type":"pong"}` {
		t.Errorf("server received %q, want pong frame", got)
	}
}

func TestChatDialerRejectedHandshake(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	defer server.Close()

	dialer := &ChatDialer{URL: websocketURL(server), HandshakeTimeout: time.Second}
	_, err := dialer.Dial(context.Background())
	if err == nil {
		t.Fatal("expected handshake error")
	}
	if !strings.Contains(err.Error(), "401") || !strings.Contains(err.Error(), "bad token") {
		t.Errorf("error = %v, want status and body", err)
	}
}
