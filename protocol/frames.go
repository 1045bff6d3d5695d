// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import "encoding/json"

type chatFrame struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type setConversationFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conv_id,omitempty"`
}

type typeOnlyFrame struct {
	Type string `json:"type"`
}

// ChatFrame is the outbound frame carrying a user message.
func ChatFrame(text string) []byte {
	return encodeFrame(chatFrame{Type: "chat", Text: text})
}

// SetConversationFrame tells the server which conversation is active.
// An empty id asks the server to allocate a fresh conversation on the
// next message.
func SetConversationFrame(conversationID string) []byte {
	return encodeFrame(setConversationFrame{Type: "set_conversation", ConversationID: conversationID})
}

// AbortFrame asks the server to stop the in-progress reply.
func AbortFrame() []byte {
	return encodeFrame(typeOnlyFrame{Type: "abort"})
}

// PongFrame answers a server ping.
func PongFrame() []byte {
	return encodeFrame(typeOnlyFrame{Type: "pong"})
}

// encodeFrame panics on failure: the frame structs above contain only
// strings and cannot fail to marshal.
func encodeFrame(frame any) []byte {
	data, err := json.Marshal(frame)
	if err != nil {
		panic("protocol: encoding outbound frame: " + err.Error())
	}
	return data
}
