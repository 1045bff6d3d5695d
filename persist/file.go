// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package persist

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/parley/lib/clock"
)

// stateVersion is the record format written by this package.
const stateVersion = 1

// stateRecord is the on-disk form. Checksum is BLAKE3-256 over the
// deterministic CBOR encoding of the record with Checksum unset.
type stateRecord struct {
	Version        int    `cbor:"version"`
	ConversationID string `cbor:"conversation_id"`
	SavedAt        int64  `cbor:"saved_at"`
	Checksum       []byte `cbor:"checksum,omitempty"`
}

// FileStore is a Store backed by a single file.
type FileStore struct {
	mu    sync.Mutex
	path  string
	clock clock.Clock
}

// NewFileStore returns a store that reads and writes path. A nil clock
// uses wall time for the saved_at field.
func NewFileStore(path string, clk clock.Clock) *FileStore {
	if clk == nil {
		clk = clock.Real()
	}
	return &FileStore{path: path, clock: clk}
}

// Path returns the state file location.
func (store *FileStore) Path() string {
	return store.path
}

// Get returns the stored id, "" when the file does not exist, or "" and
// an error wrapping ErrCorruptState when the file cannot be trusted.
func (store *FileStore) Get() (string, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	data, err := os.ReadFile(store.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("persist: reading %s: %w", store.path, err)
	}

	record, err := decodeRecord(data)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrCorruptState, store.path, err)
	}
	if record.Version != stateVersion {
		return "", fmt.Errorf("%w: %s: unsupported version %d", ErrCorruptState, store.path, record.Version)
	}
	expected, err := checksum(record)
	if err != nil {
		return "", fmt.Errorf("persist: computing checksum: %w", err)
	}
	if !bytes.Equal(expected, record.Checksum) {
		return "", fmt.Errorf("%w: %s: checksum mismatch", ErrCorruptState, store.path)
	}
	return record.ConversationID, nil
}

// Set writes id atomically. An empty id clears the store.
func (store *FileStore) Set(conversationID string) error {
	if conversationID == "" {
		return store.Clear()
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	record := stateRecord{
		Version:        stateVersion,
		ConversationID: conversationID,
		SavedAt:        store.clock.Now().UnixMilli(),
	}
	sum, err := checksum(record)
	if err != nil {
		return fmt.Errorf("persist: computing checksum: %w", err)
	}
	record.Checksum = sum

	data, err := encodeRecord(record)
	if err != nil {
		return fmt.Errorf("persist: encoding state: %w", err)
	}
	return writeAtomic(store.path, data)
}

// Clear removes the state file. Clearing an absent file succeeds.
func (store *FileStore) Clear() error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if err := os.Remove(store.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("persist: removing %s: %w", store.path, err)
	}
	return nil
}

func checksum(record stateRecord) ([]byte, error) {
	record.Checksum = nil
	data, err := encodeRecord(record)
	if err != nil {
		return nil, err
	}
	sum := blake3.Sum256(data)
	return sum[:], nil
}

func writeAtomic(path string, data []byte) error {
	directory := filepath.Dir(path)
	if err := os.MkdirAll(directory, 0o700); err != nil {
		return fmt.Errorf("persist: creating %s: %w", directory, err)
	}

	temporary, err := os.CreateTemp(directory, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("persist: creating temporary file: %w", err)
	}
	temporaryPath := temporary.Name()
	defer os.Remove(temporaryPath)

	if _, err := temporary.Write(data); err != nil {
		temporary.Close()
		return fmt.Errorf("persist: writing %s: %w", temporaryPath, err)
	}
	if err := temporary.Sync(); err != nil {
		temporary.Close()
		return fmt.Errorf("persist: syncing %s: %w", temporaryPath, err)
	}
	if err := temporary.Close(); err != nil {
		return fmt.Errorf("persist: closing %s: %w", temporaryPath, err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		return fmt.Errorf("persist: renaming into %s: %w", path, err)
	}
	return nil
}
