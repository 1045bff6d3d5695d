// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"strings"
	"testing"
	"time"
)

type recordingTB struct {
	failure string
}

func (*recordingTB) Helper() {}

func (r *recordingTB) Fatalf(format string, args ...any) {
	r.failure = describe(append([]any{format}, args...))
}

func TestRequireReceiveReturnsValue(t *testing.T) {
	ch := make(chan string, 1)
	ch <- "stream_start"
	if got := RequireReceive(t, ch, time.Second, "waiting for event"); got != "stream_start" {
		t.Errorf("got %q", got)
	}
}

func TestRequireReceiveReportsClosedChannel(t *testing.T) {
	ch := make(chan int)
	close(ch)
	var recorder recordingTB
	RequireReceive(&recorder, ch, time.Second, "delivery %d", 3)
	if recorder.failure != "delivery 3: channel closed" {
		t.Errorf("failure = %q", recorder.failure)
	}
}

func TestRequireReceiveTimesOut(t *testing.T) {
	var recorder recordingTB
	RequireReceive(&recorder, make(chan int), 10*time.Millisecond, "idle")
	if !strings.HasPrefix(recorder.failure, "idle: nothing received") {
		t.Errorf("failure = %q", recorder.failure)
	}
}

func TestRequireClosed(t *testing.T) {
	done := make(chan struct{})
	close(done)
	RequireClosed(t, done, time.Second)

	var recorder recordingTB
	RequireClosed(&recorder, make(chan struct{}), 10*time.Millisecond)
	if !strings.HasPrefix(recorder.failure, "wait failed: still open") {
		t.Errorf("failure = %q", recorder.failure)
	}
}
