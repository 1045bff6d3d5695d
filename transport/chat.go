// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bureau-foundation/parley/lib/netutil"
	"github.com/bureau-foundation/parley/lib/secret"
	"github.com/bureau-foundation/parley/lib/version"
)

// ChatDialer opens the duplex chat channel as a websocket.
type ChatDialer struct {
	// URL is the ws:// or wss:// endpoint.
	URL string

	// Token is the bearer credential. Nil dials unauthenticated.
	Token *secret.Buffer

	// HandshakeTimeout bounds the upgrade. Zero means 10 seconds.
	HandshakeTimeout time.Duration

	// WriteTimeout bounds each outbound frame. Zero means 5 seconds.
	WriteTimeout time.Duration
}

// Dial implements Dialer.
func (dialer *ChatDialer) Dial(ctx context.Context) (Conn, error) {
	handshakeTimeout := dialer.HandshakeTimeout
	if handshakeTimeout <= 0 {
		handshakeTimeout = 10 * time.Second
	}
	writeTimeout := dialer.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}

	header := http.Header{}
	header.Set("User-Agent", version.UserAgent())
	if dialer.Token != nil {
		header.Set("Authorization", dialer.Token.BearerHeader())
	}

	websocketDialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshakeTimeout,
	}
	conn, response, err := websocketDialer.DialContext(ctx, dialer.URL, header)
	if err != nil {
		if response != nil {
			defer response.Body.Close()
			return nil, fmt.Errorf("websocket handshake with %s: %d: %s: %w",
				dialer.URL, response.StatusCode, netutil.ErrorBody(response.Body), err)
		}
		return nil, fmt.Errorf("websocket dial %s: %w", dialer.URL, err)
	}
	return &chatConn{conn: conn, writeTimeout: writeTimeout}, nil
}

// chatConn adapts a websocket to Conn and FrameWriter. gorilla allows
// one concurrent reader and one concurrent writer; the supervisor
// guarantees exactly that.
type chatConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	closeOnce    sync.Once
	closeErr     error
}

func (conn *chatConn) ReadFrame() ([]byte, error) {
	for {
		messageType, data, err := conn.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if messageType == websocket.TextMessage || messageType == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (conn *chatConn) WriteFrame(frame []byte) error {
	if err := conn.conn.SetWriteDeadline(time.Now().Add(conn.writeTimeout)); err != nil {
		return err
	}
	return conn.conn.WriteMessage(websocket.TextMessage, frame)
}

func (conn *chatConn) Close() error {
	conn.closeOnce.Do(func() {
		conn.closeErr = conn.conn.Close()
	})
	return conn.closeErr
}
