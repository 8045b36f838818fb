// Copyright 2026 The Upkeep Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tidwall/jsonc"
)

// FileStore persists each kind as a JSON array in a single file under
// a data directory ("<dir>/work_orders.json" and so on). Safe for
// concurrent use: a per-kind mutex serializes mutations, and replaces
// go through a temp file plus rename so a crash mid-write leaves the
// previous collection intact.
type FileStore struct {
	directory string

	// locks holds one mutex per kind, created lazily. locksMutex
	// guards the map itself.
	locksMutex sync.Mutex
	locks      map[Kind]*sync.Mutex
}

// NewFileStore creates a file store rooted at directory, creating the
// directory if needed.
func NewFileStore(directory string) (*FileStore, error) {
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return nil, fmt.Errorf("store: creating data directory: %w", err)
	}
	return &FileStore{
		directory: directory,
		locks:     make(map[Kind]*sync.Mutex),
	}, nil
}

// path returns the collection file for a kind.
func (fileStore *FileStore) path(kind Kind) string {
	return filepath.Join(fileStore.directory, string(kind)+".json")
}

// lock returns the mutex for a kind, creating it on first use.
func (fileStore *FileStore) lock(kind Kind) *sync.Mutex {
	fileStore.locksMutex.Lock()
	defer fileStore.locksMutex.Unlock()
	mutex, exists := fileStore.locks[kind]
	if !exists {
		mutex = &sync.Mutex{}
		fileStore.locks[kind] = mutex
	}
	return mutex
}

// ReadAll returns every record of the kind. A missing file is an
// empty collection. Files may be JSONC — comments and trailing
// commas are stripped before decoding, so hand-maintained seed data
// can carry annotations.
func (fileStore *FileStore) ReadAll(kind Kind) ([]json.RawMessage, error) {
	mutex := fileStore.lock(kind)
	mutex.Lock()
	defer mutex.Unlock()
	return fileStore.readLocked(kind)
}

func (fileStore *FileStore) readLocked(kind Kind) ([]json.RawMessage, error) {
	data, err := os.ReadFile(fileStore.path(kind))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: reading %s: %w", kind, err)
	}

	var records []json.RawMessage
	if err := json.Unmarshal(jsonc.ToJSON(data), &records); err != nil {
		return nil, fmt.Errorf("store: parsing %s: %w", kind, err)
	}
	return records, nil
}

// ReplaceAll atomically replaces the kind's collection file.
func (fileStore *FileStore) ReplaceAll(kind Kind, records []json.RawMessage) error {
	mutex := fileStore.lock(kind)
	mutex.Lock()
	defer mutex.Unlock()
	return fileStore.replaceLocked(kind, records)
}

func (fileStore *FileStore) replaceLocked(kind Kind, records []json.RawMessage) error {
	if records == nil {
		records = []json.RawMessage{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encoding %s: %w", kind, err)
	}

	// Write to a temp file in the same directory, then rename over
	// the collection file. Rename within a directory is atomic, so a
	// concurrent reader sees either the old collection or the new
	// one, never a truncated file.
	tempFile, err := os.CreateTemp(fileStore.directory, string(kind)+".*.tmp")
	if err != nil {
		return fmt.Errorf("store: creating temp file for %s: %w", kind, err)
	}
	tempPath := tempFile.Name()

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return fmt.Errorf("store: writing %s: %w", kind, err)
	}
	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return fmt.Errorf("store: syncing %s: %w", kind, err)
	}
	if err := tempFile.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("store: closing temp file for %s: %w", kind, err)
	}

	if err := os.Rename(tempPath, fileStore.path(kind)); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("store: replacing %s: %w", kind, err)
	}
	return nil
}

// Update runs modify under the kind's lock. The lock spans the read,
// the caller's modification, and the replace, so concurrent updaters
// cannot lose each other's writes.
func (fileStore *FileStore) Update(kind Kind, modify func(records []json.RawMessage) ([]json.RawMessage, error)) error {
	mutex := fileStore.lock(kind)
	mutex.Lock()
	defer mutex.Unlock()

	records, err := fileStore.readLocked(kind)
	if err != nil {
		return err
	}
	modified, err := modify(records)
	if err != nil {
		return err
	}
	return fileStore.replaceLocked(kind, modified)
}
