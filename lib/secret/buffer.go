// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/zeebo/blake3"
	"golang.org/x/sys/unix"
)

// Buffer holds the bearer token in an anonymous mapping outside the Go
// heap. Formatting or logging a Buffer prints a redacted fingerprint,
// never the token. Reveal after Close panics.
type Buffer struct {
	mu          sync.Mutex
	region      []byte
	locked      bool
	fingerprint string
}

// NewFromBytes moves source into a protected mapping and zeroes
// source. When the process may not mlock (RLIMIT_MEMLOCK, no
// CAP_IPC_LOCK) the mapping is kept unlocked and Locked reports false.
func NewFromBytes(source []byte) (*Buffer, error) {
	if len(source) == 0 {
		return nil, errors.New("secret: empty credential")
	}
	defer Zero(source)

	region, err := unix.Mmap(-1, 0, len(source), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("secret: mapping %d bytes: %w", len(source), err)
	}
	if err := unix.Madvise(region, unix.MADV_DONTDUMP); err != nil {
		unix.Munmap(region)
		return nil, fmt.Errorf("secret: excluding credential from core dumps: %w", err)
	}

	locked := true
	if err := unix.Mlock(region); err != nil {
		if !errors.Is(err, unix.EPERM) && !errors.Is(err, unix.ENOMEM) {
			unix.Munmap(region)
			return nil, fmt.Errorf("secret: locking credential: %w", err)
		}
		locked = false
	}

	copy(region, source)
	sum := blake3.Sum256(region)
	return &Buffer{
		region:      region,
		locked:      locked,
		fingerprint: hex.EncodeToString(sum[:4]),
	}, nil
}

// NewFromString is NewFromBytes for tokens that already exist as a
// string. The string itself stays on the heap.
func NewFromString(value string) (*Buffer, error) {
	return NewFromBytes([]byte(value))
}

// Reveal returns a heap copy of the token.
func (b *Buffer) Reveal() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.region == nil {
		panic("secret: Reveal on closed buffer")
	}
	return string(b.region)
}

// BearerHeader is the Authorization header value for the token.
func (b *Buffer) BearerHeader() string {
	return "Bearer " + b.Reveal()
}

// Locked reports whether the mapping is pinned against swap.
func (b *Buffer) Locked() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.locked
}

// Fingerprint identifies the token in logs: the first 8 hex digits of
// its BLAKE3 hash.
func (b *Buffer) Fingerprint() string { return b.fingerprint }

// String keeps the token out of %v and %s.
func (b *Buffer) String() string { return "secret(" + b.fingerprint + ")" }

// LogValue keeps the token out of slog attributes.
func (b *Buffer) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("fingerprint", b.fingerprint),
		slog.Bool("locked", b.Locked()),
	)
}

// Close zeroes and releases the mapping. Safe to call twice.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.region == nil {
		return nil
	}
	region := b.region
	b.region = nil
	Zero(region)

	var errs []error
	if b.locked {
		if err := unix.Munlock(region); err != nil {
			errs = append(errs, fmt.Errorf("secret: munlock: %w", err))
		}
	}
	if err := unix.Munmap(region); err != nil {
		errs = append(errs, fmt.Errorf("secret: munmap: %w", err))
	}
	return errors.Join(errs...)
}

// Zero overwrites data in place.
func Zero(data []byte) {
	clear(data)
}
