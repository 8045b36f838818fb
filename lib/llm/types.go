// Copyright 2026 The Upkeep Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import "encoding/json"

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ContentType discriminates the variants of [ContentBlock].
type ContentType string

const (
	ContentText       ContentType = "text"
	ContentToolUse    ContentType = "tool_use"
	ContentToolResult ContentType = "tool_result"
)

// ContentBlock is one unit of message content: text, a tool
// invocation requested by the model, or a tool result supplied by
// the caller. Exactly one of the pointer fields matching Type is set.
type ContentBlock struct {
	Type       ContentType
	Text       string
	ToolUse    *ToolUse
	ToolResult *ToolResult
}

// ToolUse is a tool invocation requested by the model.
type ToolUse struct {
	// ID correlates the invocation with its result.
	ID string

	// Name is the tool name from the request's tool definitions.
	Name string

	// Input is the JSON arguments object as produced by the model.
	// It has not been validated against the tool's schema.
	Input json.RawMessage
}

// ToolResult is the caller-supplied outcome of a tool invocation.
type ToolResult struct {
	// ToolUseID references the ToolUse this result answers.
	ToolUseID string

	// Content is the result text (typically serialized JSON).
	Content string

	// IsError marks the result as a failure the model should react
	// to rather than treat as data.
	IsError bool
}

// TextBlock constructs a text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: ContentText, Text: text}
}

// ToolUseBlock constructs a tool-use content block.
func ToolUseBlock(id, name string, input json.RawMessage) ContentBlock {
	return ContentBlock{
		Type:    ContentToolUse,
		ToolUse: &ToolUse{ID: id, Name: name, Input: input},
	}
}

// Message is one conversation entry.
type Message struct {
	Role    Role
	Content []ContentBlock
}

// UserMessage constructs a user message with a single text block.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: []ContentBlock{TextBlock(text)}}
}

// ToolResultMessage constructs the user message that carries tool
// results back to the model.
func ToolResultMessage(results ...ToolResult) Message {
	message := Message{Role: RoleUser}
	for i := range results {
		result := results[i]
		message.Content = append(message.Content, ContentBlock{
			Type:       ContentToolResult,
			ToolResult: &result,
		})
	}
	return message
}

// ToolDefinition declares a tool the model may invoke.
type ToolDefinition struct {
	// Name is the tool identifier the model uses in tool calls.
	Name string

	// Description tells the model what the tool does and when to
	// use it.
	Description string

	// InputSchema is the JSON Schema for the tool's arguments,
	// serialized as JSON.
	InputSchema json.RawMessage
}

// Request is a provider-neutral chat completion request.
type Request struct {
	// Model is the provider's model identifier.
	Model string

	// System is the system prompt. Empty means none.
	System string

	// Messages is the conversation so far, oldest first.
	Messages []Message

	// Tools is the tool menu offered to the model.
	Tools []ToolDefinition

	// MaxTokens caps the response length.
	MaxTokens int

	// Temperature overrides the provider default when non-nil.
	Temperature *float64

	// StopSequences end generation early when emitted.
	StopSequences []string
}

// StopReason explains why the model stopped generating.
type StopReason string

const (
	StopReasonEndTurn      StopReason = "end_turn"
	StopReasonToolUse      StopReason = "tool_use"
	StopReasonMaxTokens    StopReason = "max_tokens"
	StopReasonStopSequence StopReason = "stop_sequence"
)

// Usage reports token accounting for one request.
type Usage struct {
	InputTokens      int64
	OutputTokens     int64
	CacheReadTokens  int64
	CacheWriteTokens int64
}

// Response is a provider-neutral chat completion response.
type Response struct {
	Content    []ContentBlock
	StopReason StopReason
	Model      string
	Usage      Usage
}

// ToolUses returns every tool invocation in the response, in order.
func (response *Response) ToolUses() []ToolUse {
	var uses []ToolUse
	for _, block := range response.Content {
		if block.Type == ContentToolUse && block.ToolUse != nil {
			uses = append(uses, *block.ToolUse)
		}
	}
	return uses
}

// TextContent concatenates the response's text blocks.
func (response *Response) TextContent() string {
	var text string
	for _, block := range response.Content {
		if block.Type == ContentText {
			text += block.Text
		}
	}
	return text
}

// StreamEventType discriminates streaming events.
type StreamEventType string

const (
	// EventTextDelta carries an incremental text fragment.
	EventTextDelta StreamEventType = "text_delta"

	// EventContentBlockDone carries a completed content block.
	EventContentBlockDone StreamEventType = "content_block_done"

	// EventDone signals the end of the response.
	EventDone StreamEventType = "done"

	// EventPing is a provider keepalive, safe to ignore.
	EventPing StreamEventType = "ping"

	// EventError carries a mid-stream provider error.
	EventError StreamEventType = "error"
)

// StreamEvent is one event from a streaming response.
type StreamEvent struct {
	Type         StreamEventType
	Text         string
	ContentBlock ContentBlock
	Error        error
}
