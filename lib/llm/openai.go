// Copyright 2026 The Upkeep Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// OpenAI implements [Provider] for the OpenAI Chat Completions API
// and compatible servers (Azure OpenAI, OpenRouter, vLLM, Ollama).
type OpenAI struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewOpenAI creates an OpenAI-compatible provider. baseURL is the
// server root without the /v1/chat/completions path (for example
// "https://api.openai.com"). The API key is sent as a Bearer token;
// empty means no Authorization header, which local servers accept.
func NewOpenAI(httpClient *http.Client, baseURL, apiKey string) *OpenAI {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OpenAI{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
	}
}

// Complete sends a non-streaming request and returns the full response.
func (provider *OpenAI) Complete(ctx context.Context, request Request) (*Response, error) {
	wireRequest := provider.buildRequest(request, false)

	httpResponse, err := doProviderRequest(ctx, provider.httpClient,
		provider.endpoint(), wireRequest, "llm/openai", false, provider.headers())
	if err != nil {
		return nil, err
	}

	return decodeResponse[openaiResponse](httpResponse, "llm/openai")
}

// Stream sends a streaming request and returns an [EventStream].
func (provider *OpenAI) Stream(ctx context.Context, request Request) (*EventStream, error) {
	wireRequest := provider.buildRequest(request, true)

	httpResponse, err := doProviderRequest(ctx, provider.httpClient,
		provider.endpoint(), wireRequest, "llm/openai", true, provider.headers())
	if err != nil {
		return nil, err
	}

	return provider.newEventStream(httpResponse.Body), nil
}

func (provider *OpenAI) endpoint() string {
	return provider.baseURL + "/v1/chat/completions"
}

func (provider *OpenAI) headers() map[string]string {
	if provider.apiKey == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + provider.apiKey}
}

// buildRequest converts our types to OpenAI wire format.
func (provider *OpenAI) buildRequest(request Request, stream bool) openaiRequest {
	wireRequest := openaiRequest{
		Model:  request.Model,
		Stream: stream,
	}

	if request.MaxTokens > 0 {
		wireRequest.MaxTokens = request.MaxTokens
	}
	if request.Temperature != nil {
		wireRequest.Temperature = request.Temperature
	}
	if len(request.StopSequences) > 0 {
		wireRequest.Stop = request.StopSequences
	}
	if stream {
		wireRequest.StreamOptions = &openaiStreamOptions{IncludeUsage: true}
	}

	if request.System != "" {
		wireRequest.Messages = append(wireRequest.Messages, openaiMessage{
			Role:    "system",
			Content: request.System,
		})
	}
	for _, message := range request.Messages {
		wireRequest.Messages = append(wireRequest.Messages, toOpenAIMessages(message)...)
	}

	for _, tool := range request.Tools {
		wireRequest.Tools = append(wireRequest.Tools, openaiTool{
			Type: "function",
			Function: openaiFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.InputSchema,
			},
		})
	}

	return wireRequest
}

// newEventStream creates an EventStream that parses OpenAI SSE chunks.
//
// OpenAI streams deltas without explicit block boundaries, so this
// accumulates text and tool calls across chunks and emits the
// finalized content blocks when the finish_reason chunk arrives. The
// pending queue holds events produced faster than the caller drains
// them (one SSE chunk can finalize several blocks at once).
func (provider *OpenAI) newEventStream(body io.ReadCloser) *EventStream {
	sseScanner := NewSSEScanner(body)

	var textContent strings.Builder
	var toolCalls []openaiToolCallAccumulator
	var pending []StreamEvent
	finished := false

	stream := NewEventStream(nil, body)

	finalize := func(finishReason string) {
		hadToolCalls := len(toolCalls) > 0
		if textContent.Len() > 0 {
			pending = append(pending, StreamEvent{
				Type:         EventContentBlockDone,
				ContentBlock: TextBlock(textContent.String()),
			})
			textContent.Reset()
		}
		for i := range toolCalls {
			call := &toolCalls[i]
			pending = append(pending, StreamEvent{
				Type: EventContentBlockDone,
				ContentBlock: ToolUseBlock(call.id, call.name,
					json.RawMessage(call.arguments.String())),
			})
		}
		toolCalls = nil
		stream.SetStopReason(mapOpenAIFinishReason(finishReason, hadToolCalls))
		pending = append(pending, StreamEvent{Type: EventDone})
		finished = true
	}

	stream.next = func() (StreamEvent, error) {
		for {
			if len(pending) > 0 {
				event := pending[0]
				pending = pending[1:]
				return event, nil
			}
			if finished {
				return StreamEvent{}, io.EOF
			}

			if !sseScanner.Next() {
				if err := sseScanner.Err(); err != nil {
					return StreamEvent{}, fmt.Errorf("llm/openai: reading SSE: %w", err)
				}
				// Stream ended without a finish_reason chunk. Flush
				// whatever accumulated so the caller still gets it.
				finalize("")
				continue
			}

			data := sseScanner.Event().Data
			if data == "[DONE]" {
				if !finished {
					finalize("")
				}
				continue
			}

			var chunk openaiStreamChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				return StreamEvent{}, fmt.Errorf("llm/openai: parsing chunk: %w", err)
			}

			if chunk.Model != "" {
				stream.SetModel(chunk.Model)
			}
			if chunk.Usage != nil {
				stream.SetUsage(Usage{
					InputTokens:  chunk.Usage.PromptTokens,
					OutputTokens: chunk.Usage.CompletionTokens,
				})
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			choice := chunk.Choices[0]

			if choice.Delta.Content != "" {
				textContent.WriteString(choice.Delta.Content)
				return StreamEvent{
					Type: EventTextDelta,
					Text: choice.Delta.Content,
				}, nil
			}

			for _, deltaCall := range choice.Delta.ToolCalls {
				for len(toolCalls) <= deltaCall.Index {
					toolCalls = append(toolCalls, openaiToolCallAccumulator{})
				}
				call := &toolCalls[deltaCall.Index]
				if deltaCall.ID != "" {
					call.id = deltaCall.ID
				}
				if deltaCall.Function.Name != "" {
					call.name = deltaCall.Function.Name
				}
				call.arguments.WriteString(deltaCall.Function.Arguments)
			}

			if choice.FinishReason != "" {
				finalize(choice.FinishReason)
			}
		}
	}

	return stream
}

// --- OpenAI wire types ---

type openaiRequest struct {
	Model         string               `json:"model"`
	Messages      []openaiMessage      `json:"messages"`
	Tools         []openaiTool         `json:"tools,omitempty"`
	MaxTokens     int                  `json:"max_tokens,omitempty"`
	Temperature   *float64             `json:"temperature,omitempty"`
	Stop          []string             `json:"stop,omitempty"`
	Stream        bool                 `json:"stream,omitempty"`
	StreamOptions *openaiStreamOptions `json:"stream_options,omitempty"`
}

type openaiStreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type openaiMessage struct {
	Role       string           `json:"role"`
	Content    string           `json:"content,omitempty"`
	ToolCalls  []openaiToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
}

type openaiToolCall struct {
	ID       string             `json:"id"`
	Type     string             `json:"type"`
	Function openaiFunctionCall `json:"function"`
}

type openaiFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type openaiTool struct {
	Type     string         `json:"type"`
	Function openaiFunction `json:"function"`
}

type openaiFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

type openaiResponse struct {
	ID      string         `json:"id"`
	Model   string         `json:"model"`
	Choices []openaiChoice `json:"choices"`
	Usage   *openaiUsage   `json:"usage"`
}

type openaiChoice struct {
	Index        int           `json:"index"`
	Message      openaiMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type openaiUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
}

type openaiStreamChunk struct {
	Model   string `json:"model"`
	Choices []struct {
		Index int `json:"index"`
		Delta struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Index    int    `json:"index"`
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *openaiUsage `json:"usage"`
}

// openaiToolCallAccumulator assembles one tool call from streaming
// deltas. The arguments arrive as JSON string fragments.
type openaiToolCallAccumulator struct {
	id        string
	name      string
	arguments strings.Builder
}

// --- Wire type conversions ---

// toOpenAIMessages converts one common message into one or more
// OpenAI messages. Tool results become separate role:"tool" messages
// because the Chat Completions format carries them at the message
// level, not as content blocks.
func toOpenAIMessages(message Message) []openaiMessage {
	var wire []openaiMessage
	var current openaiMessage
	current.Role = string(message.Role)
	hasCurrent := false

	for _, block := range message.Content {
		switch block.Type {
		case ContentText:
			current.Content += block.Text
			hasCurrent = true
		case ContentToolUse:
			if block.ToolUse != nil {
				arguments := string(block.ToolUse.Input)
				if arguments == "" {
					arguments = "{}"
				}
				current.ToolCalls = append(current.ToolCalls, openaiToolCall{
					ID:   block.ToolUse.ID,
					Type: "function",
					Function: openaiFunctionCall{
						Name:      block.ToolUse.Name,
						Arguments: arguments,
					},
				})
				hasCurrent = true
			}
		case ContentToolResult:
			if block.ToolResult != nil {
				if hasCurrent {
					wire = append(wire, current)
					current = openaiMessage{Role: string(message.Role)}
					hasCurrent = false
				}
				wire = append(wire, openaiMessage{
					Role:       "tool",
					Content:    block.ToolResult.Content,
					ToolCallID: block.ToolResult.ToolUseID,
				})
			}
		}
	}

	if hasCurrent {
		wire = append(wire, current)
	}
	return wire
}

func (wireResponse *openaiResponse) toResponse() *Response {
	response := &Response{Model: wireResponse.Model}

	if wireResponse.Usage != nil {
		response.Usage = Usage{
			InputTokens:  wireResponse.Usage.PromptTokens,
			OutputTokens: wireResponse.Usage.CompletionTokens,
		}
	}

	if len(wireResponse.Choices) == 0 {
		return response
	}
	choice := wireResponse.Choices[0]

	if choice.Message.Content != "" {
		response.Content = append(response.Content, TextBlock(choice.Message.Content))
	}
	for _, call := range choice.Message.ToolCalls {
		response.Content = append(response.Content, ToolUseBlock(
			call.ID, call.Function.Name, json.RawMessage(call.Function.Arguments)))
	}

	response.StopReason = mapOpenAIFinishReason(choice.FinishReason,
		len(choice.Message.ToolCalls) > 0)
	return response
}

func mapOpenAIFinishReason(reason string, hadToolCalls bool) StopReason {
	switch reason {
	case "stop":
		return StopReasonEndTurn
	case "tool_calls":
		return StopReasonToolUse
	case "length":
		return StopReasonMaxTokens
	case "":
		if hadToolCalls {
			return StopReasonToolUse
		}
		return StopReasonEndTurn
	default:
		return StopReason(reason)
	}
}
