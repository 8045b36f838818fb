// Copyright 2026 The Upkeep Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/upkeep-works/upkeep/lib/codec"
	"github.com/upkeep-works/upkeep/lib/llm"
)

// checkpoint is the persisted end-of-turn conversation state.
// Encoded as deterministic CBOR so identical conversations produce
// identical bytes.
type checkpoint struct {
	TenantID string        `cbor:"tenant_id"`
	SavedAt  string        `cbor:"saved_at"`
	Messages []llm.Message `cbor:"messages"`
}

// CheckpointStore persists the full conversation at the end of each
// completed turn, one file per tenant, for audit and crash recovery.
// Saving is best-effort from the controller's point of view: a failed
// save is logged and the turn still succeeds.
type CheckpointStore struct {
	dir string
}

// NewCheckpointStore creates a checkpoint store in dir, creating the
// directory if needed.
func NewCheckpointStore(dir string) (*CheckpointStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("agent: creating checkpoint directory: %w", err)
	}
	return &CheckpointStore{dir: dir}, nil
}

// Save writes the tenant's conversation checkpoint, replacing any
// previous one atomically.
func (checkpoints *CheckpointStore) Save(tenantID string, messages []llm.Message) error {
	encoded, err := codec.Marshal(checkpoint{
		TenantID: tenantID,
		SavedAt:  time.Now().UTC().Format(time.RFC3339),
		Messages: messages,
	})
	if err != nil {
		return fmt.Errorf("agent: encoding checkpoint: %w", err)
	}

	path := checkpoints.path(tenantID)
	temp, err := os.CreateTemp(checkpoints.dir, ".checkpoint-*")
	if err != nil {
		return fmt.Errorf("agent: creating checkpoint temp file: %w", err)
	}
	tempName := temp.Name()

	if _, err := temp.Write(encoded); err != nil {
		temp.Close()
		os.Remove(tempName)
		return fmt.Errorf("agent: writing checkpoint: %w", err)
	}
	if err := temp.Close(); err != nil {
		os.Remove(tempName)
		return fmt.Errorf("agent: closing checkpoint: %w", err)
	}
	if err := os.Rename(tempName, path); err != nil {
		os.Remove(tempName)
		return fmt.Errorf("agent: publishing checkpoint: %w", err)
	}
	return nil
}

// Load reads the tenant's last checkpointed conversation. A missing
// checkpoint returns (nil, nil): no history yet is not an error.
func (checkpoints *CheckpointStore) Load(tenantID string) ([]llm.Message, error) {
	encoded, err := os.ReadFile(checkpoints.path(tenantID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("agent: reading checkpoint: %w", err)
	}

	var saved checkpoint
	if err := codec.Unmarshal(encoded, &saved); err != nil {
		return nil, fmt.Errorf("agent: decoding checkpoint: %w", err)
	}
	return saved.Messages, nil
}

func (checkpoints *CheckpointStore) path(tenantID string) string {
	return filepath.Join(checkpoints.dir, tenantID+".cbor")
}
