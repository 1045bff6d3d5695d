// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/parley/lib/clock"
	"github.com/bureau-foundation/parley/persist"
	"github.com/bureau-foundation/parley/platform"
	"github.com/bureau-foundation/parley/protocol"
	"github.com/bureau-foundation/parley/session"
	"github.com/bureau-foundation/parley/transport"
	"github.com/bureau-foundation/parley/workitem"
)

// SubscriberBufferSize is the capacity of each Subscribe channel.
// Changes that do not fit are dropped; the subscriber catches up on
// its next Snapshot.
const SubscriberBufferSize = 64

// commandQueueSize bounds commands waiting for the loop.
const commandQueueSize = 64

// ErrStopped is returned by commands issued after Run has returned.
var ErrStopped = errors.New("engine: stopped")

// errNoPlatform is the fetch error used when no platform client is
// configured.
var errNoPlatform = errors.New("engine: no platform client configured")

// ChatChannel is the duplex chat channel. *transport.Supervisor
// satisfies it.
type ChatChannel interface {
	Run(ctx context.Context)
	Deliveries() <-chan transport.Delivery[protocol.ChatEvent]
	Send(frame []byte) error
}

// FeedChannel is the read-only work-item feed. *transport.Supervisor
// satisfies it.
type FeedChannel interface {
	Run(ctx context.Context)
	Deliveries() <-chan transport.Delivery[protocol.FeedEvent]
}

// Platform is the REST collaborator. *platform.Client satisfies it.
type Platform interface {
	ListConversations(ctx context.Context) ([]protocol.Conversation, error)
	ConversationMessages(ctx context.Context, conversationID string) ([]protocol.Message, error)
	DeleteConversation(ctx context.Context, conversationID string) error
	Search(ctx context.Context, query string) ([]platform.SearchResult, error)
}

// Config holds the collaborators of an Engine.
type Config struct {
	// Chat is the duplex chat channel. Required.
	Chat ChatChannel

	// Feed is the work-item feed. Nil runs without one; work items
	// then arrive only on the chat channel.
	Feed FeedChannel

	// Platform serves history, the conversation list, deletion, and
	// search. Nil disables them: switches fail open and lists stay
	// empty.
	Platform Platform

	// Store persists the active conversation id. Nil keeps it in
	// memory.
	Store persist.Store

	// Clock stamps channel state changes. Nil uses the real clock.
	Clock clock.Clock

	// Logger receives diagnostics. Nil uses slog.Default().
	Logger *slog.Logger
}

// ChannelStatus is the last known state of one channel.
type ChannelStatus struct {
	State transport.State
	// Since is when the channel entered State.
	Since time.Time
	// Err is the cause of the last disconnect while reconnecting.
	Err error
}

// Engine owns the session and the work-item aggregator and serializes
// every mutation onto the goroutine running Run.
type Engine struct {
	chat     ChatChannel
	feed     FeedChannel
	platform Platform
	clock    clock.Clock
	logger   *slog.Logger

	// Loop-owned state. Touched only by the Run goroutine.
	session           *session.Session
	items             *workitem.Aggregator
	dispatcher        *Dispatcher
	chatStatus        ChannelStatus
	feedStatus        ChannelStatus
	refreshGeneration uint64
	runCtx            context.Context
	pendingIO         sync.WaitGroup

	commands chan func()
	started  atomic.Bool
	stopped  chan struct{}

	subscribersMu sync.Mutex
	subscribers   []chan Change
}

// loopRefresher lets the session request a list refresh from inside
// the loop.
type loopRefresher struct {
	engine *Engine
}

func (refresher loopRefresher) RefreshConversations() {
	refresher.engine.refreshConversations()
}

// New validates config and builds an engine. The persisted
// conversation id is restored immediately; its history is loaded once
// Run starts.
func New(config Config) (*Engine, error) {
	if config.Chat == nil {
		return nil, fmt.Errorf("engine: Chat is required")
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	engine := &Engine{
		chat:     config.Chat,
		feed:     config.Feed,
		platform: config.Platform,
		clock:    config.Clock,
		logger:   config.Logger,
		items:    workitem.New(),
		commands: make(chan func(), commandQueueSize),
		stopped:  make(chan struct{}),
	}
	engine.session = session.New(session.Config{
		Sender:    config.Chat,
		Store:     config.Store,
		Refresher: loopRefresher{engine: engine},
		Logger:    config.Logger.With("component", "session"),
	})
	engine.dispatcher = NewDispatcher(engine.session, engine.items, config.Logger)
	return engine, nil
}

// Run starts both channels and processes their deliveries and all
// commands until ctx is cancelled. It returns once both channels have
// shut down and pending collaborator calls have finished.
func (engine *Engine) Run(ctx context.Context) error {
	if !engine.started.CompareAndSwap(false, true) {
		return fmt.Errorf("engine: Run called more than once")
	}
	defer close(engine.stopped)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	engine.runCtx = ctx

	now := engine.clock.Now()
	engine.chatStatus = ChannelStatus{State: transport.StateConnecting, Since: now}
	engine.feedStatus = ChannelStatus{State: transport.StateConnecting, Since: now}

	var channels sync.WaitGroup
	chatDeliveries := engine.chat.Deliveries()
	channels.Add(1)
	go func() {
		defer channels.Done()
		engine.chat.Run(ctx)
	}()

	var feedDeliveries <-chan transport.Delivery[protocol.FeedEvent]
	if engine.feed != nil {
		feedDeliveries = engine.feed.Deliveries()
		channels.Add(1)
		go func() {
			defer channels.Done()
			engine.feed.Run(ctx)
		}()
	} else {
		engine.feedStatus = ChannelStatus{State: transport.StateClosed, Since: now}
	}

	engine.restore()
	engine.refreshConversations()

	for chatDeliveries != nil || feedDeliveries != nil {
		select {
		case delivery, ok := <-chatDeliveries:
			if !ok {
				chatDeliveries = nil
				continue
			}
			engine.handleChat(delivery)
		case delivery, ok := <-feedDeliveries:
			if !ok {
				feedDeliveries = nil
				continue
			}
			engine.handleFeed(delivery)
		case command := <-engine.commands:
			command()
		}
	}

	cancel()
	channels.Wait()
	engine.pendingIO.Wait()
	return nil
}

// Subscribe returns a channel that receives a Change after each batch
// of mutations. A full channel drops changes rather than stalling the
// loop.
func (engine *Engine) Subscribe() <-chan Change {
	engine.subscribersMu.Lock()
	defer engine.subscribersMu.Unlock()
	channel := make(chan Change, SubscriberBufferSize)
	engine.subscribers = append(engine.subscribers, channel)
	return channel
}

func (engine *Engine) notify(change Change) {
	if change == 0 {
		return
	}
	engine.subscribersMu.Lock()
	subscribers := engine.subscribers
	engine.subscribersMu.Unlock()

	for _, subscriber := range subscribers {
		select {
		case subscriber <- change:
		default:
		}
	}
}

func (engine *Engine) handleChat(delivery transport.Delivery[protocol.ChatEvent]) {
	if !delivery.Transition {
		engine.notify(engine.dispatcher.DispatchChat(delivery.Event))
		return
	}

	engine.chatStatus = ChannelStatus{State: delivery.State, Since: engine.clock.Now(), Err: delivery.Err}
	change := ChangeConnection
	switch delivery.State {
	case transport.StateOpen:
		if frame, ok := engine.session.ResumeFrame(); ok {
			if err := engine.chat.Send(frame); err != nil {
				engine.logger.Warn("re-attaching conversation failed", "error", err)
			}
		}
	case transport.StateReconnecting:
		if engine.session.Interrupt() {
			change |= ChangeSession
		}
	}
	engine.notify(change)
}

func (engine *Engine) handleFeed(delivery transport.Delivery[protocol.FeedEvent]) {
	if !delivery.Transition {
		engine.notify(engine.dispatcher.DispatchFeed(delivery.Event))
		return
	}

	engine.feedStatus = ChannelStatus{State: delivery.State, Since: engine.clock.Now(), Err: delivery.Err}
	change := ChangeConnection
	if delivery.State == transport.StateReconnecting && !engine.items.Stale() {
		engine.items.MarkStale()
		change |= ChangeWorkItems
	}
	engine.notify(change)
}

// do runs fn on the loop and waits for it to finish.
func (engine *Engine) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	command := func() {
		fn()
		close(done)
	}

	select {
	case engine.commands <- command:
	case <-ctx.Done():
		return ctx.Err()
	case <-engine.stopped:
		return ErrStopped
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-engine.stopped:
		select {
		case <-done:
			return nil
		default:
			return ErrStopped
		}
	}
}

// goIO runs fn on its own goroutine with the run context. fn posts its
// result back with post.
func (engine *Engine) goIO(fn func(ctx context.Context)) {
	ctx := engine.runCtx
	engine.pendingIO.Add(1)
	go func() {
		defer engine.pendingIO.Done()
		fn(ctx)
	}()
}

// post queues fn for the loop. It is dropped if the engine is
// shutting down.
func (engine *Engine) post(ctx context.Context, fn func()) {
	select {
	case engine.commands <- fn:
	case <-ctx.Done():
	}
}
