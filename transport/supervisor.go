// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/parley/lib/clock"
	"github.com/bureau-foundation/parley/lib/netutil"
)

// DefaultReconnectDelay is the fixed wait between a failed or dropped
// connection and the next attempt.
const DefaultReconnectDelay = 3 * time.Second

// DefaultQueueSize is the capacity of the delivery and outbound queues.
const DefaultQueueSize = 256

var (
	// ErrNotConnected is returned by Send when no connection is open.
	ErrNotConnected = errors.New("transport: channel is not connected")

	// ErrQueueFull is returned by Send when the outbound queue is full.
	ErrQueueFull = errors.New("transport: outbound queue is full")

	// ErrReadOnly is returned by Send on a channel whose connections
	// cannot carry outbound frames.
	ErrReadOnly = errors.New("transport: channel is read-only")
)

// State is the lifecycle state of a supervised channel.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateReconnecting
	StateClosing
	StateClosed
)

func (state State) String() string {
	switch state {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateReconnecting:
		return "reconnecting"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int32(state))
}

// Conn is one established connection.
type Conn interface {
	// ReadFrame blocks until the next complete frame arrives. Any
	// error ends the connection.
	ReadFrame() ([]byte, error)

	// Close releases the connection and unblocks a pending ReadFrame.
	// It must be safe to call more than once.
	Close() error
}

// FrameWriter is implemented by connections that carry outbound frames.
type FrameWriter interface {
	WriteFrame(frame []byte) error
}

// Dialer opens a connection.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context) (Conn, error)

// Dial implements Dialer.
func (function DialerFunc) Dial(ctx context.Context) (Conn, error) {
	return function(ctx)
}

// Delivery is one item on a supervisor's delivery channel: either a
// decoded event or, when Transition is true, a state change.
type Delivery[E any] struct {
	Event E

	Transition bool
	State      State
	// Err is the cause of a Reconnecting transition.
	Err error

	// ConnectionID identifies the connection attempt that produced
	// this delivery.
	ConnectionID string
}

// Config configures a Supervisor.
type Config[E any] struct {
	// Name labels log lines ("chat", "feed").
	Name string

	// Dialer opens connections. Required.
	Dialer Dialer

	// Decode turns a frame into an event. Required. Errors are logged
	// and the frame skipped.
	Decode func(frame []byte) (E, error)

	// ReconnectDelay defaults to DefaultReconnectDelay.
	ReconnectDelay time.Duration

	// QueueSize bounds the delivery and outbound queues. Defaults to
	// DefaultQueueSize.
	QueueSize int

	// Clock drives the reconnect delay. Nil uses the real clock.
	Clock clock.Clock

	// Logger receives diagnostics. Nil uses slog.Default().
	Logger *slog.Logger
}

// Supervisor keeps one channel connected. Construct with
// NewSupervisor, then call Run exactly once.
type Supervisor[E any] struct {
	name           string
	dialer         Dialer
	decode         func([]byte) (E, error)
	reconnectDelay time.Duration
	queueSize      int
	clock          clock.Clock
	logger         *slog.Logger

	deliveries chan Delivery[E]
	state      atomic.Int32

	// outboundMu guards outbound and writable. outbound is non-nil
	// only while a connection is open.
	outboundMu sync.Mutex
	outbound   chan []byte
	writable   bool
}

// NewSupervisor validates config and returns a supervisor in the
// Connecting state.
func NewSupervisor[E any](config Config[E]) (*Supervisor[E], error) {
	if config.Dialer == nil {
		return nil, fmt.Errorf("transport: Dialer is required")
	}
	if config.Decode == nil {
		return nil, fmt.Errorf("transport: Decode is required")
	}
	if config.Name == "" {
		config.Name = "channel"
	}
	if config.ReconnectDelay <= 0 {
		config.ReconnectDelay = DefaultReconnectDelay
	}
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultQueueSize
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Supervisor[E]{
		name:           config.Name,
		dialer:         config.Dialer,
		decode:         config.Decode,
		reconnectDelay: config.ReconnectDelay,
		queueSize:      config.QueueSize,
		clock:          config.Clock,
		logger:         config.Logger.With("channel", config.Name),
		deliveries:     make(chan Delivery[E], config.QueueSize),
	}, nil
}

// Deliveries returns the ordered stream of events and state changes.
// It is closed when Run returns.
func (supervisor *Supervisor[E]) Deliveries() <-chan Delivery[E] {
	return supervisor.deliveries
}

// State returns the current lifecycle state.
func (supervisor *Supervisor[E]) State() State {
	return State(supervisor.state.Load())
}

// Send enqueues frame for the open connection. It never blocks.
func (supervisor *Supervisor[E]) Send(frame []byte) error {
	supervisor.outboundMu.Lock()
	defer supervisor.outboundMu.Unlock()

	if supervisor.outbound == nil {
		return ErrNotConnected
	}
	if !supervisor.writable {
		return ErrReadOnly
	}
	select {
	case supervisor.outbound <- frame:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run connects and reconnects until ctx is cancelled. It returns after
// the last connection has been closed.
func (supervisor *Supervisor[E]) Run(ctx context.Context) {
	defer close(supervisor.deliveries)

	failures := 0
	for ctx.Err() == nil {
		supervisor.transition(ctx, StateConnecting, nil, "")

		opened, err := supervisor.runConnection(ctx)
		if ctx.Err() != nil {
			break
		}
		if opened {
			failures = 0
		}
		failures++

		supervisor.logger.Warn("connection lost, reconnecting",
			"attempt", failures,
			"delay", supervisor.reconnectDelay,
			"error", err,
		)
		supervisor.transition(ctx, StateReconnecting, err, "")

		select {
		case <-ctx.Done():
		case <-supervisor.clock.After(supervisor.reconnectDelay):
		}
	}

	supervisor.state.Store(int32(StateClosed))
	select {
	case supervisor.deliveries <- Delivery[E]{Transition: true, State: StateClosed}:
	default:
	}
}

// runConnection dials once and reads until the connection ends. The
// connection is closed before it returns. opened reports whether the
// dial succeeded.
func (supervisor *Supervisor[E]) runConnection(ctx context.Context) (opened bool, err error) {
	connectionID := uuid.NewString()
	logger := supervisor.logger.With("connection_id", connectionID)

	conn, err := supervisor.dialer.Dial(ctx)
	if err != nil {
		return false, fmt.Errorf("dialing %s: %w", supervisor.name, err)
	}

	closeConn := sync.OnceValue(conn.Close)
	stop := context.AfterFunc(ctx, func() {
		supervisor.state.Store(int32(StateClosing))
		closeConn()
	})

	writerDone := supervisor.startWriter(conn, closeConn, logger)
	defer func() {
		stop()
		closeConn()

		supervisor.outboundMu.Lock()
		close(supervisor.outbound)
		supervisor.outbound = nil
		supervisor.outboundMu.Unlock()
		<-writerDone
	}()

	logger.Info("connected")
	if !supervisor.transition(ctx, StateOpen, nil, connectionID) {
		return true, ctx.Err()
	}

	for {
		frame, err := conn.ReadFrame()
		if err != nil {
			if ctx.Err() == nil && !netutil.IsExpectedCloseError(err) {
				logger.Debug("read failed", "error", err)
			}
			return true, fmt.Errorf("reading %s: %w", supervisor.name, err)
		}

		event, err := supervisor.decode(frame)
		if err != nil {
			logger.Warn("skipping malformed frame", "error", err, "size", len(frame))
			continue
		}

		select {
		case supervisor.deliveries <- Delivery[E]{Event: event, ConnectionID: connectionID}:
		case <-ctx.Done():
			return true, ctx.Err()
		}
	}
}

// startWriter publishes the outbound queue for conn and starts the
// goroutine that drains it. The returned channel closes when the
// writer exits.
func (supervisor *Supervisor[E]) startWriter(conn Conn, closeConn func() error, logger *slog.Logger) <-chan struct{} {
	outbound := make(chan []byte, supervisor.queueSize)
	writer, writable := conn.(FrameWriter)

	supervisor.outboundMu.Lock()
	supervisor.outbound = outbound
	supervisor.writable = writable
	supervisor.outboundMu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		failed := false
		for frame := range outbound {
			if failed || !writable {
				continue
			}
			if err := writer.WriteFrame(frame); err != nil {
				logger.Warn("write failed, closing connection", "error", err)
				failed = true
				closeConn()
			}
		}
	}()
	return done
}

// transition records and delivers a state change. It returns false if
// ctx was cancelled before the delivery was accepted.
func (supervisor *Supervisor[E]) transition(ctx context.Context, state State, cause error, connectionID string) bool {
	supervisor.state.Store(int32(state))
	select {
	case supervisor.deliveries <- Delivery[E]{Transition: true, State: state, Err: cause, ConnectionID: connectionID}:
		return true
	case <-ctx.Done():
		return false
	}
}
