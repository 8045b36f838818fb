// Copyright 2026 The Upkeep Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAnthropicComplete(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %q, want /v1/messages", r.URL.Path)
		}
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("x-api-key = %q, want test-key", got)
		}
		if got := r.Header.Get("anthropic-version"); got != anthropicVersion {
			t.Errorf("anthropic-version = %q, want %q", got, anthropicVersion)
		}

		var wireRequest anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&wireRequest); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if wireRequest.Stream {
			t.Error("stream = true on a Complete request")
		}
		if wireRequest.System != "be helpful" {
			t.Errorf("system = %q, want %q", wireRequest.System, "be helpful")
		}
		if len(wireRequest.Tools) != 1 || wireRequest.Tools[0].Name != "create_work_order" {
			t.Errorf("tools = %+v, want one create_work_order", wireRequest.Tools)
		}

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-5",
			"content": [
				{"type": "text", "text": "On it."},
				{"type": "tool_use", "id": "tu_01", "name": "create_work_order", "input": {"trade": "plumbing"}}
			],
			"stop_reason": "tool_use",
			"usage": {"input_tokens": 120, "output_tokens": 45}
		}`)
	}))
	defer server.Close()

	provider := NewAnthropic(server.Client(), server.URL, "test-key")
	response, err := provider.Complete(context.Background(), Request{
		Model:     "claude-sonnet-4-5",
		System:    "be helpful",
		Messages:  []Message{UserMessage("my sink is leaking")},
		MaxTokens: 1024,
		Tools: []ToolDefinition{{
			Name:        "create_work_order",
			Description: "Create a maintenance work order",
			InputSchema: json.RawMessage(`{"type":"object"}`),
		}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if response.StopReason != StopReasonToolUse {
		t.Errorf("stop reason = %q, want %q", response.StopReason, StopReasonToolUse)
	}
	if got := response.TextContent(); got != "On it." {
		t.Errorf("text = %q, want %q", got, "On it.")
	}
	uses := response.ToolUses()
	if len(uses) != 1 {
		t.Fatalf("got %d tool uses, want 1", len(uses))
	}
	if uses[0].Name != "create_work_order" || uses[0].ID != "tu_01" {
		t.Errorf("tool use = %+v", uses[0])
	}
	if response.Usage.InputTokens != 120 || response.Usage.OutputTokens != 45 {
		t.Errorf("usage = %+v", response.Usage)
	}
}

func TestAnthropicCompleteError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":{"type":"rate_limit_error","message":"slow down"}}`)
	}))
	defer server.Close()

	provider := NewAnthropic(server.Client(), server.URL, "test-key")
	_, err := provider.Complete(context.Background(), Request{
		Model:     "claude-sonnet-4-5",
		Messages:  []Message{UserMessage("hi")},
		MaxTokens: 16,
	})

	var providerError *ProviderError
	if !errors.As(err, &providerError) {
		t.Fatalf("error = %v, want *ProviderError", err)
	}
	if !providerError.IsRateLimited() {
		t.Errorf("IsRateLimited() = false for status %d", providerError.StatusCode)
	}
	if providerError.Type != "rate_limit_error" {
		t.Errorf("type = %q, want rate_limit_error", providerError.Type)
	}
}

func TestAnthropicStream(t *testing.T) {
	t.Parallel()

	// A realistic event sequence: text block, then a tool_use block
	// assembled from input_json_delta fragments.
	const sseBody = `event: message_start
data: {"type":"message_start","message":{"model":"claude-sonnet-4-5","usage":{"input_tokens":50}}}

event: content_block_start
data: {"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}

event: content_block_delta
data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Checking "}}

event: content_block_delta
data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"now."}}

event: content_block_stop
data: {"type":"content_block_stop","index":0}

event: content_block_start
data: {"type":"content_block_start","index":1,"content_block":{"type":"tool_use","id":"tu_02","name":"list_work_orders","input":{}}}

event: content_block_delta
data: {"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"{\"status\":"}}

event: content_block_delta
data: {"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"\"in_progress\"}"}}

event: content_block_stop
data: {"type":"content_block_stop","index":1}

event: message_delta
data: {"type":"message_delta","delta":{"stop_reason":"tool_use"},"usage":{"output_tokens":33}}

event: message_stop
data: {"type":"message_stop"}

`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var wireRequest anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&wireRequest); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if !wireRequest.Stream {
			t.Error("stream = false on a Stream request")
		}
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, sseBody)
	}))
	defer server.Close()

	provider := NewAnthropic(server.Client(), server.URL, "test-key")
	stream, err := provider.Stream(context.Background(), Request{
		Model:     "claude-sonnet-4-5",
		Messages:  []Message{UserMessage("any open orders?")},
		MaxTokens: 1024,
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	defer stream.Close()

	var textDeltas string
	for {
		event, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if event.Type == EventTextDelta {
			textDeltas += event.Text
		}
	}

	if textDeltas != "Checking now." {
		t.Errorf("text deltas = %q, want %q", textDeltas, "Checking now.")
	}

	response := stream.Response()
	if response.Model != "claude-sonnet-4-5" {
		t.Errorf("model = %q", response.Model)
	}
	if response.StopReason != StopReasonToolUse {
		t.Errorf("stop reason = %q, want %q", response.StopReason, StopReasonToolUse)
	}
	if response.Usage.InputTokens != 50 || response.Usage.OutputTokens != 33 {
		t.Errorf("usage = %+v", response.Usage)
	}

	if len(response.Content) != 2 {
		t.Fatalf("got %d content blocks, want 2: %+v", len(response.Content), response.Content)
	}
	if response.Content[0].Type != ContentText || response.Content[0].Text != "Checking now." {
		t.Errorf("block 0 = %+v", response.Content[0])
	}
	use := response.Content[1].ToolUse
	if use == nil || use.ID != "tu_02" || use.Name != "list_work_orders" {
		t.Fatalf("block 1 = %+v", response.Content[1])
	}
	if got := string(use.Input); got != `{"status":"in_progress"}` {
		t.Errorf("tool input = %q", got)
	}
}

func TestAnthropicStreamError(t *testing.T) {
	t.Parallel()

	const sseBody = `event: error
data: {"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}

`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, sseBody)
	}))
	defer server.Close()

	provider := NewAnthropic(server.Client(), server.URL, "test-key")
	stream, err := provider.Stream(context.Background(), Request{
		Model:     "claude-sonnet-4-5",
		Messages:  []Message{UserMessage("hi")},
		MaxTokens: 16,
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	defer stream.Close()

	event, err := stream.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if event.Type != EventError || event.Error == nil {
		t.Fatalf("event = %+v, want error event", event)
	}
}

func TestAnthropicToolResultWireFormat(t *testing.T) {
	t.Parallel()

	message := ToolResultMessage(ToolResult{
		ToolUseID: "tu_03",
		Content:   `{"count":2}`,
		IsError:   false,
	})

	wire := toAnthropicMessage(message)
	if wire.Role != "user" {
		t.Errorf("role = %q, want user", wire.Role)
	}
	if len(wire.Content) != 1 {
		t.Fatalf("got %d blocks, want 1", len(wire.Content))
	}
	block := wire.Content[0]
	if block.Type != "tool_result" || block.ToolUseID != "tu_03" {
		t.Errorf("block = %+v", block)
	}
	// The string content must round-trip as a JSON string value.
	var content string
	if err := json.Unmarshal(block.Content, &content); err != nil {
		t.Fatalf("content is not a JSON string: %v", err)
	}
	if content != `{"count":2}` {
		t.Errorf("content = %q", content)
	}
}
