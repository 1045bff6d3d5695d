// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package engine runs the client core: one loop that owns the chat
// session and the work-item aggregator and applies, in arrival order,
// the deliveries of the chat and feed supervisors together with
// commands from the user interface.
//
// All state mutation happens on the loop goroutine. Collaborator I/O
// (history fetches, conversation list refreshes) runs on separate
// goroutines and posts its result back to the loop, so a slow platform
// never stalls event processing.
//
//	eng, err := engine.New(engine.Config{Chat: chat, Feed: feed, Platform: client})
//	go eng.Run(ctx)
//	changes := eng.Subscribe()
//	for range changes {
//	    view, _ := eng.Snapshot(ctx)
//	    render(view)
//	}
package engine
