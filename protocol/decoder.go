// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"bytes"
	"io"
)

// DataPrefix marks a payload line on the work-item feed.
const DataPrefix = "data: "

// DefaultMaxFrameSize bounds a single frame, prefix included.
const DefaultMaxFrameSize = 1 << 20

// FrameDecoder splits a byte stream into newline-delimited frames. A
// chunk may end mid-frame; the tail is buffered and completed by the
// next chunk. Lines without the prefix are discarded, as are blank
// payloads. A line longer than the maximum size is dropped in full,
// up to and including its newline, and decoding resumes on the next
// line.
//
// A FrameDecoder is not safe for concurrent use.
type FrameDecoder struct {
	prefix     []byte
	maxSize    int
	pending    []byte
	discarding bool
	dropped    int
}

// NewFrameDecoder creates a decoder for lines starting with prefix.
// maxSize <= 0 selects DefaultMaxFrameSize.
func NewFrameDecoder(prefix string, maxSize int) *FrameDecoder {
	if maxSize <= 0 {
		maxSize = DefaultMaxFrameSize
	}
	return &FrameDecoder{prefix: []byte(prefix), maxSize: maxSize}
}

// Feed consumes chunk and returns the payloads of every frame it
// completes, in stream order. Returned slices are owned by the caller.
func (decoder *FrameDecoder) Feed(chunk []byte) [][]byte {
	var frames [][]byte
	for len(chunk) > 0 {
		newline := bytes.IndexByte(chunk, '\n')
		if newline < 0 {
			decoder.buffer(chunk)
			break
		}

		line := chunk[:newline]
		chunk = chunk[newline+1:]

		if decoder.discarding {
			decoder.discarding = false
			decoder.pending = decoder.pending[:0]
			continue
		}
		if len(decoder.pending) > 0 {
			decoder.pending = append(decoder.pending, line...)
			line = decoder.pending
		}
		if len(line) > decoder.maxSize {
			decoder.dropped++
		} else if payload, ok := decoder.extract(line); ok {
			frames = append(frames, payload)
		}
		decoder.pending = decoder.pending[:0]
	}
	return frames
}

// Flush returns the buffered tail as a final frame when the stream
// ends without a trailing newline, and resets the decoder.
func (decoder *FrameDecoder) Flush() ([]byte, bool) {
	defer decoder.Reset()
	if decoder.discarding || len(decoder.pending) == 0 {
		return nil, false
	}
	return decoder.extract(decoder.pending)
}

// Reset discards any buffered partial frame. Call it when the
// underlying stream is replaced.
func (decoder *FrameDecoder) Reset() {
	decoder.pending = decoder.pending[:0]
	decoder.discarding = false
}

// Dropped returns the number of oversized frames discarded so far.
func (decoder *FrameDecoder) Dropped() int {
	return decoder.dropped
}

func (decoder *FrameDecoder) buffer(partial []byte) {
	if decoder.discarding {
		return
	}
	if len(decoder.pending)+len(partial) > decoder.maxSize {
		decoder.discarding = true
		decoder.dropped++
		decoder.pending = decoder.pending[:0]
		return
	}
	decoder.pending = append(decoder.pending, partial...)
}

func (decoder *FrameDecoder) extract(line []byte) ([]byte, bool) {
	line = bytes.TrimSuffix(line, []byte{'\r'})
	if !bytes.HasPrefix(line, decoder.prefix) {
		return nil, false
	}
	payload := line[len(decoder.prefix):]
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, false
	}
	return bytes.Clone(payload), true
}

// FrameReader reads frames from an [io.Reader] through a
// [FrameDecoder].
//
//	reader := protocol.NewFrameReader(body, protocol.DataPrefix, 0)
//	for reader.Next() {
//	    event, err := protocol.DecodeFeedEvent(reader.Frame())
//	    // skip on err, dispatch otherwise
//	}
//	if err := reader.Err(); err != nil {
//	    // transport failure
//	}
type FrameReader struct {
	reader  io.Reader
	decoder *FrameDecoder
	chunk   []byte
	queue   [][]byte
	current []byte
	err     error
	done    bool
}

// NewFrameReader creates a reader for lines starting with prefix.
func NewFrameReader(reader io.Reader, prefix string, maxSize int) *FrameReader {
	return &FrameReader{
		reader:  reader,
		decoder: NewFrameDecoder(prefix, maxSize),
		chunk:   make([]byte, 32*1024),
	}
}

// Next advances to the next frame, blocking on the underlying reader
// as needed. It returns false at end of stream or on a read error.
func (reader *FrameReader) Next() bool {
	for len(reader.queue) == 0 {
		if reader.done {
			reader.current = nil
			return false
		}
		count, err := reader.reader.Read(reader.chunk)
		if count > 0 {
			reader.queue = append(reader.queue, reader.decoder.Feed(reader.chunk[:count])...)
		}
		if err != nil {
			reader.done = true
			if err != io.EOF {
				reader.err = err
			}
			if tail, ok := reader.decoder.Flush(); ok {
				reader.queue = append(reader.queue, tail)
			}
		}
	}
	reader.current = reader.queue[0]
	reader.queue[0] = nil
	reader.queue = reader.queue[1:]
	return true
}

// Frame returns the payload of the current frame. Only valid after
// Next returns true.
func (reader *FrameReader) Frame() []byte {
	return reader.current
}

// Err returns the read error that ended the stream, or nil on a clean
// EOF.
func (reader *FrameReader) Err() error {
	return reader.err
}

// Dropped returns the number of oversized frames discarded so far.
func (reader *FrameReader) Dropped() int {
	return reader.decoder.Dropped()
}
