// Copyright 2026 The Upkeep Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAIComplete(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q, want /v1/chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want Bearer test-key", got)
		}

		var wireRequest openaiRequest
		if err := json.NewDecoder(r.Body).Decode(&wireRequest); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		// System prompt becomes the first message with role system.
		if len(wireRequest.Messages) < 2 || wireRequest.Messages[0].Role != "system" {
			t.Errorf("messages = %+v, want system message first", wireRequest.Messages)
		}

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "chatcmpl-01",
			"model": "gpt-4o",
			"choices": [{
				"index": 0,
				"message": {
					"role": "assistant",
					"content": "Let me check.",
					"tool_calls": [{
						"id": "call_01",
						"type": "function",
						"function": {"name": "search_knowledge_base", "arguments": "{\"query\":\"boiler pressure\"}"}
					}]
				},
				"finish_reason": "tool_calls"
			}],
			"usage": {"prompt_tokens": 80, "completion_tokens": 20}
		}`)
	}))
	defer server.Close()

	provider := NewOpenAI(server.Client(), server.URL, "test-key")
	response, err := provider.Complete(context.Background(), Request{
		Model:     "gpt-4o",
		System:    "be helpful",
		Messages:  []Message{UserMessage("boiler is losing pressure")},
		MaxTokens: 512,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if response.StopReason != StopReasonToolUse {
		t.Errorf("stop reason = %q, want %q", response.StopReason, StopReasonToolUse)
	}
	if got := response.TextContent(); got != "Let me check." {
		t.Errorf("text = %q", got)
	}
	uses := response.ToolUses()
	if len(uses) != 1 || uses[0].Name != "search_knowledge_base" {
		t.Fatalf("tool uses = %+v", uses)
	}
	if response.Usage.InputTokens != 80 || response.Usage.OutputTokens != 20 {
		t.Errorf("usage = %+v", response.Usage)
	}
}

func TestOpenAIStream(t *testing.T) {
	t.Parallel()

	const sseBody = `data: {"model":"gpt-4o","choices":[{"index":0,"delta":{"content":"All "}}]}

data: {"choices":[{"index":0,"delta":{"content":"set."}}]}

data: {"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_02","function":{"name":"get_work_order","arguments":"{\"work_"}}]}}]}

data: {"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"order_id\":\"wo-1\"}"}}]}}]}

data: {"choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}

data: {"choices":[],"usage":{"prompt_tokens":60,"completion_tokens":25}}

data: [DONE]

`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var wireRequest openaiRequest
		if err := json.NewDecoder(r.Body).Decode(&wireRequest); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if !wireRequest.Stream {
			t.Error("stream = false on a Stream request")
		}
		if wireRequest.StreamOptions == nil || !wireRequest.StreamOptions.IncludeUsage {
			t.Error("stream_options.include_usage not set")
		}
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, sseBody)
	}))
	defer server.Close()

	provider := NewOpenAI(server.Client(), server.URL, "")
	stream, err := provider.Stream(context.Background(), Request{
		Model:     "gpt-4o",
		Messages:  []Message{UserMessage("status of wo-1?")},
		MaxTokens: 512,
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	defer stream.Close()

	var textDeltas string
	var sawDone bool
	for {
		event, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		switch event.Type {
		case EventTextDelta:
			textDeltas += event.Text
		case EventDone:
			sawDone = true
		}
	}

	if textDeltas != "All set." {
		t.Errorf("text deltas = %q, want %q", textDeltas, "All set.")
	}
	if !sawDone {
		t.Error("never saw done event")
	}

	response := stream.Response()
	if response.StopReason != StopReasonToolUse {
		t.Errorf("stop reason = %q, want %q", response.StopReason, StopReasonToolUse)
	}
	if len(response.Content) != 2 {
		t.Fatalf("got %d content blocks, want 2: %+v", len(response.Content), response.Content)
	}
	if response.Content[0].Text != "All set." {
		t.Errorf("block 0 = %+v", response.Content[0])
	}
	use := response.Content[1].ToolUse
	if use == nil || use.ID != "call_02" || use.Name != "get_work_order" {
		t.Fatalf("block 1 = %+v", response.Content[1])
	}
	if got := string(use.Input); got != `{"work_order_id":"wo-1"}` {
		t.Errorf("tool input = %q", got)
	}
	if response.Usage.InputTokens != 60 || response.Usage.OutputTokens != 25 {
		t.Errorf("usage = %+v", response.Usage)
	}
}

func TestToOpenAIMessagesSplitsToolResults(t *testing.T) {
	t.Parallel()

	message := ToolResultMessage(
		ToolResult{ToolUseID: "call_01", Content: `{"ok":true}`},
		ToolResult{ToolUseID: "call_02", Content: `{"error":"Unknown tool"}`, IsError: true},
	)

	wire := toOpenAIMessages(message)
	if len(wire) != 2 {
		t.Fatalf("got %d messages, want 2: %+v", len(wire), wire)
	}
	for i, want := range []string{"call_01", "call_02"} {
		if wire[i].Role != "tool" {
			t.Errorf("message %d role = %q, want tool", i, wire[i].Role)
		}
		if wire[i].ToolCallID != want {
			t.Errorf("message %d tool_call_id = %q, want %q", i, wire[i].ToolCallID, want)
		}
	}
}

func TestToOpenAIMessagesAssistantWithToolCall(t *testing.T) {
	t.Parallel()

	message := Message{
		Role: RoleAssistant,
		Content: []ContentBlock{
			TextBlock("Creating the order."),
			ToolUseBlock("call_03", "create_work_order", json.RawMessage(`{"trade":"gas"}`)),
		},
	}

	wire := toOpenAIMessages(message)
	if len(wire) != 1 {
		t.Fatalf("got %d messages, want 1: %+v", len(wire), wire)
	}
	if wire[0].Content != "Creating the order." {
		t.Errorf("content = %q", wire[0].Content)
	}
	if len(wire[0].ToolCalls) != 1 || wire[0].ToolCalls[0].Function.Name != "create_work_order" {
		t.Errorf("tool calls = %+v", wire[0].ToolCalls)
	}
}

func TestMapOpenAIFinishReason(t *testing.T) {
	t.Parallel()

	tests := []struct {
		reason       string
		hadToolCalls bool
		want         StopReason
	}{
		{"stop", false, StopReasonEndTurn},
		{"tool_calls", true, StopReasonToolUse},
		{"length", false, StopReasonMaxTokens},
		{"", true, StopReasonToolUse},
		{"", false, StopReasonEndTurn},
		{"content_filter", false, StopReason("content_filter")},
	}

	for _, test := range tests {
		if got := mapOpenAIFinishReason(test.reason, test.hadToolCalls); got != test.want {
			t.Errorf("mapOpenAIFinishReason(%q, %v) = %q, want %q",
				test.reason, test.hadToolCalls, got, test.want)
		}
	}
}
