// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil holds network helpers shared by the platform client
// and the connection supervisor.
//
// Response helpers bound request/response reads (conversation lists,
// message histories, search results) at MaxResponseSize. They are not
// for the work-item feed, which is a long-lived stream consumed frame
// by frame. IsExpectedCloseError classifies read errors that mean
// "the peer went away" rather than "something is broken".
package netutil

import (
	"encoding/json"
	"fmt"
	"io"
)

// MaxResponseSize bounds a single REST response body: 32 MB. A long
// conversation history is the largest legitimate response and is far
// below this.
const MaxResponseSize int64 = 32 << 20

// ReadResponse reads a response body up to MaxResponseSize bytes.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// DecodeResponse reads a response body (up to MaxResponseSize) and
// JSON-decodes it into v.
func DecodeResponse(body io.Reader, v any) error {
	data, err := ReadResponse(body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	return json.Unmarshal(data, v)
}

// ErrorBody returns an error response body as a string for diagnostics.
// Read errors are ignored; a partial body is still useful.
func ErrorBody(body io.Reader) string {
	data, _ := ReadResponse(body)
	return string(data)
}
