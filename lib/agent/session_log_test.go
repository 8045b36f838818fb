// Copyright 2026 The Upkeep Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestSessionLogWritesJSONL(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.jsonl")
	log, err := NewSessionLog(path)
	if err != nil {
		t.Fatalf("NewSessionLog: %v", err)
	}

	events := []SessionEvent{
		{Type: "turn_start", TenantID: "ten-001", Content: "sink blocked"},
		{Type: "tool_call", TenantID: "ten-001", Tool: "create_work_order", Content: `{"id":"wo-1"}`},
		{Type: "turn_complete", TenantID: "ten-001", Content: "plumber dispatched"},
	}
	for _, event := range events {
		if err := log.Write(event); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := log.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening log: %v", err)
	}
	defer file.Close()

	var read []SessionEvent
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var event SessionEvent
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			t.Fatalf("line is not JSON: %v\n%s", err, scanner.Text())
		}
		read = append(read, event)
	}

	if len(read) != len(events) {
		t.Fatalf("read %d events, want %d", len(read), len(events))
	}
	for i := range read {
		if read[i].Type != events[i].Type || read[i].Tool != events[i].Tool {
			t.Errorf("event %d = %+v, want %+v", i, read[i], events[i])
		}
		if read[i].Time == "" {
			t.Errorf("event %d missing timestamp", i)
		}
	}
}

func TestSessionLogClosedWrite(t *testing.T) {
	t.Parallel()

	log, err := NewSessionLog(filepath.Join(t.TempDir(), "session.jsonl"))
	if err != nil {
		t.Fatalf("NewSessionLog: %v", err)
	}
	if err := log.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := log.Write(SessionEvent{Type: "turn_start"}); err == nil {
		t.Error("Write after Close succeeded")
	}
}
