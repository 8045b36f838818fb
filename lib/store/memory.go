// Copyright 2026 The Upkeep Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"encoding/json"
	"sync"
)

// MemoryStore is an in-memory Store for tests. Same locking
// discipline as FileStore, no persistence.
type MemoryStore struct {
	mutex       sync.Mutex
	collections map[Kind][]json.RawMessage
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[Kind][]json.RawMessage)}
}

// Seed replaces a kind's collection from typed records, failing the
// caller loudly on encoding errors (tests seed with known-good data).
func Seed[T any](memory *MemoryStore, kind Kind, records []T) error {
	return ReplaceAllFrom[T](memory, kind, records)
}

// ReadAll returns a copy of the kind's records.
func (memory *MemoryStore) ReadAll(kind Kind) ([]json.RawMessage, error) {
	memory.mutex.Lock()
	defer memory.mutex.Unlock()
	records := memory.collections[kind]
	copied := make([]json.RawMessage, len(records))
	copy(copied, records)
	return copied, nil
}

// ReplaceAll replaces the kind's collection.
func (memory *MemoryStore) ReplaceAll(kind Kind, records []json.RawMessage) error {
	memory.mutex.Lock()
	defer memory.mutex.Unlock()
	copied := make([]json.RawMessage, len(records))
	copy(copied, records)
	memory.collections[kind] = copied
	return nil
}

// Update runs modify under the store lock.
func (memory *MemoryStore) Update(kind Kind, modify func(records []json.RawMessage) ([]json.RawMessage, error)) error {
	memory.mutex.Lock()
	defer memory.mutex.Unlock()
	modified, err := modify(memory.collections[kind])
	if err != nil {
		return err
	}
	copied := make([]json.RawMessage, len(modified))
	copy(copied, modified)
	memory.collections[kind] = copied
	return nil
}
