// Copyright 2026 The Upkeep Authors
// SPDX-License-Identifier: Apache-2.0

package attachment

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/upkeep-works/upkeep/lib/schema"
)

// ErrNotFound is returned when no payload exists for a locator.
var ErrNotFound = errors.New("attachment: payload not found")

// On-disk payload file extensions. The extension records whether the
// payload is zstd-compressed, so reads do not need a separate header.
const (
	extZstd = ".zst"
	extRaw  = ".bin"
)

// Store is a content-addressed payload store rooted at a directory.
// Payload files are sharded by the first two hex characters of the
// hash: <root>/<hh>/<hash>.zst or .bin.
//
// Store is safe for concurrent use. Writes are atomic (temp file plus
// rename) and idempotent: storing the same bytes twice is a no-op.
type Store struct {
	root string
}

// NewStore creates a store rooted at the given directory, creating it
// if needed.
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("attachment: creating store root: %w", err)
	}
	return &Store{root: root}, nil
}

// Put stores payload bytes and returns the attachment reference to
// embed in a work order. The id is a fresh UUID even when the payload
// already exists; the locator is derived from the content, so
// duplicate payloads share one file.
func (store *Store) Put(data []byte, filename, mediaType string) (schema.Attachment, error) {
	hash := HashPayload(data)

	if err := store.writePayload(hash, data); err != nil {
		return schema.Attachment{}, err
	}

	return schema.Attachment{
		ID:        "att-" + uuid.NewString(),
		Locator:   hash.Locator(),
		Filename:  filename,
		MediaType: mediaType,
	}, nil
}

// Get retrieves the payload bytes for a locator. Returns
// [ErrNotFound] if no payload with that content hash is stored.
func (store *Store) Get(locator string) ([]byte, error) {
	hash, err := ParseLocator(locator)
	if err != nil {
		return nil, err
	}

	compressed, err := os.ReadFile(store.payloadPath(hash, extZstd))
	if err == nil {
		data, err := decompressPayload(compressed)
		if err != nil {
			return nil, err
		}
		return data, store.verify(hash, data)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("attachment: reading payload: %w", err)
	}

	data, err := os.ReadFile(store.payloadPath(hash, extRaw))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, locator)
	}
	if err != nil {
		return nil, fmt.Errorf("attachment: reading payload: %w", err)
	}
	return data, store.verify(hash, data)
}

// Has reports whether a payload exists for the locator. A malformed
// locator reports false.
func (store *Store) Has(locator string) bool {
	hash, err := ParseLocator(locator)
	if err != nil {
		return false
	}
	for _, ext := range []string{extZstd, extRaw} {
		if _, err := os.Stat(store.payloadPath(hash, ext)); err == nil {
			return true
		}
	}
	return false
}

// verify checks retrieved bytes against the locator hash. Detects
// on-disk corruption before the payload reaches a caller.
func (store *Store) verify(want Hash, data []byte) error {
	if got := HashPayload(data); got != want {
		return fmt.Errorf("attachment: payload %s: content hash mismatch (got %s)", want, got)
	}
	return nil
}

func (store *Store) payloadPath(hash Hash, ext string) string {
	encoded := hash.String()
	return filepath.Join(store.root, encoded[:2], encoded+ext)
}

func (store *Store) writePayload(hash Hash, data []byte) error {
	// Idempotent: if either encoding already exists, keep it.
	for _, ext := range []string{extZstd, extRaw} {
		if _, err := os.Stat(store.payloadPath(hash, ext)); err == nil {
			return nil
		}
	}

	ext := extZstd
	fileBytes, err := compressPayload(data)
	if errors.Is(err, errIncompressible) {
		ext, fileBytes = extRaw, data
	} else if err != nil {
		return fmt.Errorf("attachment: compressing payload: %w", err)
	}

	path := store.payloadPath(hash, ext)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("attachment: creating shard directory: %w", err)
	}

	temp, err := os.CreateTemp(filepath.Dir(path), ".payload-*")
	if err != nil {
		return fmt.Errorf("attachment: creating temp file: %w", err)
	}
	tempName := temp.Name()

	if _, err := temp.Write(fileBytes); err != nil {
		temp.Close()
		os.Remove(tempName)
		return fmt.Errorf("attachment: writing payload: %w", err)
	}
	if err := temp.Sync(); err != nil {
		temp.Close()
		os.Remove(tempName)
		return fmt.Errorf("attachment: syncing payload: %w", err)
	}
	if err := temp.Close(); err != nil {
		os.Remove(tempName)
		return fmt.Errorf("attachment: closing payload: %w", err)
	}

	if err := os.Rename(tempName, path); err != nil {
		os.Remove(tempName)
		return fmt.Errorf("attachment: publishing payload: %w", err)
	}
	return nil
}
