// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package persist

import (
	"errors"
	"sync"
)

// ErrCorruptState reports a state file that exists but cannot be
// trusted. Callers treat it as "no persisted session".
var ErrCorruptState = errors.New("persist: corrupt state file")

// Store holds the active conversation id. Get returns "" when nothing
// is stored.
type Store interface {
	Get() (string, error)
	Set(conversationID string) error
	Clear() error
}

// MemoryStore is a Store that lives only as long as the process.
type MemoryStore struct {
	mu             sync.Mutex
	conversationID string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Get implements Store.
func (store *MemoryStore) Get() (string, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.conversationID, nil
}

// Set implements Store.
func (store *MemoryStore) Set(conversationID string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.conversationID = conversationID
	return nil
}

// Clear implements Store.
func (store *MemoryStore) Clear() error {
	return store.Set("")
}
