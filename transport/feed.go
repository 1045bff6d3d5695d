// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/bureau-foundation/parley/lib/netutil"
	"github.com/bureau-foundation/parley/lib/secret"
	"github.com/bureau-foundation/parley/lib/version"
	"github.com/bureau-foundation/parley/protocol"
)

// FeedDialer opens the work-item feed as a long-lived HTTP response
// of "data: "-prefixed lines.
type FeedDialer struct {
	// URL is the http:// or https:// feed endpoint.
	URL string

	// Token is the bearer credential. Nil dials unauthenticated.
	Token *secret.Buffer

	// HTTPClient performs the request. It must not set a Timeout,
	// which would cut the stream. Nil uses http.DefaultClient.
	HTTPClient *http.Client

	// Compression is the Accept-Encoding to offer: "", "none", "gzip",
	// or "zstd".
	Compression string

	// HandshakeTimeout bounds the wait for response headers and, for
	// gzip, the compression header. Zero means 10 seconds.
	HandshakeTimeout time.Duration

	// MaxFrameSize bounds a single frame. Zero selects
	// protocol.DefaultMaxFrameSize.
	MaxFrameSize int
}

// Dial implements Dialer.
func (dialer *FeedDialer) Dial(ctx context.Context) (Conn, error) {
	client := dialer.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	handshakeTimeout := dialer.HandshakeTimeout
	if handshakeTimeout <= 0 {
		handshakeTimeout = 10 * time.Second
	}

	requestCtx, cancel := context.WithCancel(ctx)
	request, err := http.NewRequestWithContext(requestCtx, http.MethodGet, dialer.URL, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("creating feed request: %w", err)
	}
	request.Header.Set("Accept", "text/event-stream")
	request.Header.Set("Cache-Control", "no-cache")
	request.Header.Set("User-Agent", version.UserAgent())
	if dialer.Token != nil {
		request.Header.Set("Authorization", dialer.Token.BearerHeader())
	}
	switch dialer.Compression {
	case "gzip", "zstd":
		request.Header.Set("Accept-Encoding", dialer.Compression)
	default:
		request.Header.Set("Accept-Encoding", "identity")
	}

	handshake := time.AfterFunc(handshakeTimeout, cancel) //nolint:realclock network deadline
	fail := func(err error) error {
		timedOut := !handshake.Stop()
		cancel()
		if timedOut {
			return fmt.Errorf("feed handshake with %s timed out after %v", dialer.URL, handshakeTimeout)
		}
		return err
	}

	response, err := client.Do(request)
	if err != nil {
		return nil, fail(fmt.Errorf("feed request to %s: %w", dialer.URL, err))
	}
	if response.StatusCode != http.StatusOK {
		body := netutil.ErrorBody(response.Body)
		response.Body.Close()
		return nil, fail(fmt.Errorf("feed %s returned %d: %s", dialer.URL, response.StatusCode, strings.TrimSpace(body)))
	}

	body, err := decompress(response)
	if err != nil {
		response.Body.Close()
		return nil, fail(err)
	}
	if !handshake.Stop() {
		if body != response.Body {
			body.Close()
		}
		response.Body.Close()
		cancel()
		return nil, fmt.Errorf("feed handshake with %s timed out after %v", dialer.URL, handshakeTimeout)
	}

	return &feedConn{
		body:   body,
		raw:    response.Body,
		cancel: cancel,
		reader: protocol.NewFrameReader(body, protocol.DataPrefix, dialer.MaxFrameSize),
	}, nil
}

// decompress wraps the response body according to its Content-Encoding.
func decompress(response *http.Response) (io.ReadCloser, error) {
	switch encoding := strings.ToLower(response.Header.Get("Content-Encoding")); encoding {
	case "", "identity":
		return response.Body, nil
	case "gzip":
		reader, err := gzip.NewReader(response.Body)
		if err != nil {
			return nil, fmt.Errorf("opening gzip feed body: %w", err)
		}
		return reader, nil
	case "zstd":
		decoder, err := zstd.NewReader(response.Body, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("opening zstd feed body: %w", err)
		}
		return decoder.IOReadCloser(), nil
	default:
		return nil, fmt.Errorf("unsupported feed Content-Encoding %q", encoding)
	}
}

// feedConn is a read-only Conn over a streaming response body. Close
// only cancels the request and closes the raw body, which unblocks a
// pending read; the decompressor is released by the reading goroutine
// once the stream has ended.
type feedConn struct {
	body      io.ReadCloser
	raw       io.ReadCloser
	cancel    context.CancelFunc
	reader    *protocol.FrameReader
	closeOnce sync.Once
}

func (conn *feedConn) ReadFrame() ([]byte, error) {
	if conn.reader.Next() {
		return conn.reader.Frame(), nil
	}
	if conn.body != conn.raw {
		conn.body.Close()
	}
	if err := conn.reader.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

func (conn *feedConn) Close() error {
	conn.closeOnce.Do(func() {
		conn.cancel()
		conn.raw.Close()
	})
	return nil
}
