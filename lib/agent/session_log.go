// Copyright 2026 The Upkeep Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// SessionEvent is one line of the session log: a turn boundary or a
// tool call, with enough context to replay what the agent did.
type SessionEvent struct {
	Time     string `json:"time"`
	Type     string `json:"type"`
	TenantID string `json:"tenant_id,omitempty"`
	Tool     string `json:"tool,omitempty"`
	Content  string `json:"content,omitempty"`
	IsError  bool   `json:"is_error,omitempty"`
}

// SessionLog appends structured events as JSONL (one compact JSON
// object per line). Safe for concurrent use.
type SessionLog struct {
	mutex   sync.Mutex
	file    *os.File
	encoder *json.Encoder
	closed  bool
}

// NewSessionLog creates (or truncates) the log file at path.
func NewSessionLog(path string) (*SessionLog, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("agent: creating session log %q: %w", path, err)
	}
	encoder := json.NewEncoder(file)
	encoder.SetEscapeHTML(false)
	return &SessionLog{file: file, encoder: encoder}, nil
}

// Write appends one event, stamping its time if unset. Each write is
// synced so events survive a crash; session logs are low-throughput
// and the cost is negligible.
func (log *SessionLog) Write(event SessionEvent) error {
	log.mutex.Lock()
	defer log.mutex.Unlock()

	if log.closed {
		return fmt.Errorf("agent: session log is closed")
	}
	if event.Time == "" {
		event.Time = time.Now().UTC().Format(time.RFC3339)
	}

	if err := log.encoder.Encode(event); err != nil {
		return fmt.Errorf("agent: encoding session event: %w", err)
	}
	if err := log.file.Sync(); err != nil {
		return fmt.Errorf("agent: syncing session log: %w", err)
	}
	return nil
}

// Close flushes and closes the log file. Further writes fail.
func (log *SessionLog) Close() error {
	log.mutex.Lock()
	defer log.mutex.Unlock()

	if log.closed {
		return nil
	}
	log.closed = true
	return log.file.Close()
}
