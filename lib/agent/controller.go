// Copyright 2026 The Upkeep Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/upkeep-works/upkeep/lib/llm"
	"github.com/upkeep-works/upkeep/lib/schema"
	"github.com/upkeep-works/upkeep/lib/store"
	"github.com/upkeep-works/upkeep/lib/tooldispatch"
)

const (
	// defaultMaxIterations caps the think→act cycle within one turn.
	// A turn that cannot produce a plain answer in this many model
	// calls is abandoned.
	defaultMaxIterations = 8

	// defaultHistoryWindow is how many recent user/assistant entries
	// of prior history are forwarded to the model. Older history is
	// silently dropped from the request (and logged).
	defaultHistoryWindow = 4

	// defaultMaxTokens bounds each model response.
	defaultMaxTokens = 4096
)

// ErrIterationCap marks a turn abandoned because the model never
// produced a tool-call-free response within the cap.
var ErrIterationCap = errors.New("agent: turn iteration cap exceeded")

// ErrUnknownTenant marks a turn request for a tenant id not in the
// tenant roster.
var ErrUnknownTenant = errors.New("agent: unknown tenant")

// GenericFailureMessage is the only text a tenant sees for a fatal
// turn error. Internal detail stays in logs.
const GenericFailureMessage = "Sorry, something went wrong while handling your request. Please try again."

// HistoryEntry is one prior user or assistant message, as the chat
// front end stores it.
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TurnRequest is one tenant utterance plus its session context.
type TurnRequest struct {
	// TenantID is the authenticated tenant. It, not anything the
	// model emits, is the tenant identity for every tool call.
	TenantID string

	// Message is the new utterance.
	Message string

	// History is the prior conversation, oldest first. Only the most
	// recent window is forwarded to the model.
	History []HistoryEntry

	// Attachments are photo references uploaded with this message.
	// They are injected into any work order created during the turn.
	Attachments []schema.Attachment
}

// ToolCallRecord is one entry of the turn's tool-call trace.
type ToolCallRecord struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Input string `json:"input"`
}

// ToolResultRecord is one entry of the turn's tool-result trace,
// index-aligned with the tool-call trace.
type ToolResultRecord struct {
	ToolUseID string `json:"tool_use_id"`
	Content   string `json:"content"`
	IsError   bool   `json:"is_error,omitempty"`
}

// TurnResult is a completed turn.
type TurnResult struct {
	// Message is the model's final plain-text answer.
	Message string `json:"message"`

	// ToolCalls and ToolResults are the ordered traces of everything
	// the model did during the turn, including failed calls.
	ToolCalls   []ToolCallRecord   `json:"tool_calls"`
	ToolResults []ToolResultRecord `json:"tool_results"`
}

// Controller runs conversation turns.
type Controller struct {
	provider   llm.Provider
	dispatcher *tooldispatch.Dispatcher
	store      store.Store
	logger     *slog.Logger

	model         string
	maxTokens     int
	maxIterations int
	historyWindow int

	// sessionLog and checkpoints are optional; nil disables them.
	sessionLog  *SessionLog
	checkpoints *CheckpointStore
}

// Options tune the controller. Zero values take defaults.
type Options struct {
	MaxTokens     int
	MaxIterations int
	HistoryWindow int

	// SessionLog receives JSONL turn events when non-nil.
	SessionLog *SessionLog

	// Checkpoints persists end-of-turn conversations when non-nil.
	Checkpoints *CheckpointStore
}

// NewController creates a controller. The store is read for tenant
// identity binding.
func NewController(provider llm.Provider, dispatcher *tooldispatch.Dispatcher, recordStore store.Store, model string, logger *slog.Logger, options Options) *Controller {
	if options.MaxTokens == 0 {
		options.MaxTokens = defaultMaxTokens
	}
	if options.MaxIterations == 0 {
		options.MaxIterations = defaultMaxIterations
	}
	if options.HistoryWindow == 0 {
		options.HistoryWindow = defaultHistoryWindow
	}
	return &Controller{
		provider:      provider,
		dispatcher:    dispatcher,
		store:         recordStore,
		logger:        logger,
		model:         model,
		maxTokens:     options.MaxTokens,
		maxIterations: options.MaxIterations,
		historyWindow: options.HistoryWindow,
		sessionLog:    options.SessionLog,
		checkpoints:   options.Checkpoints,
	}
}

// RunTurn executes one conversation turn to completion. A returned
// error is a fatal turn error: the caller must deliver
// [GenericFailureMessage], never the error text.
func (controller *Controller) RunTurn(ctx context.Context, request TurnRequest) (*TurnResult, error) {
	tenant, err := controller.lookupTenant(request.TenantID)
	if err != nil {
		return nil, err
	}

	messages := controller.buildConversation(request)
	systemPrompt := buildSystemPrompt(tenant)
	toolMenu := controller.dispatcher.Definitions()
	session := tooldispatch.Session{
		TenantID:    request.TenantID,
		Attachments: request.Attachments,
	}

	controller.logEvent(SessionEvent{
		Type:     "turn_start",
		TenantID: request.TenantID,
		Content:  request.Message,
	})

	var calls []ToolCallRecord
	var results []ToolResultRecord
	trace := &tooldispatch.Trace{}

	for iteration := 1; iteration <= controller.maxIterations; iteration++ {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("agent: turn cancelled: %w", ctx.Err())
		}

		response, err := controller.provider.Complete(ctx, llm.Request{
			Model:     controller.model,
			System:    systemPrompt,
			Messages:  messages,
			Tools:     toolMenu,
			MaxTokens: controller.maxTokens,
		})
		if err != nil {
			controller.logger.Error("model call failed",
				"tenant_id", request.TenantID, "iteration", iteration, "error", err)
			return nil, fmt.Errorf("agent: model call on iteration %d: %w", iteration, err)
		}

		messages = append(messages, llm.Message{
			Role:    llm.RoleAssistant,
			Content: response.Content,
		})

		toolUses := response.ToolUses()
		if len(toolUses) == 0 {
			// Terminal: plain answer, turn complete.
			result := &TurnResult{
				Message:     response.TextContent(),
				ToolCalls:   calls,
				ToolResults: results,
			}
			controller.finishTurn(request.TenantID, messages, result, trace)
			return result, nil
		}

		// Execute the batch strictly in order. Sequential execution
		// keeps duplicate-check-then-create deterministic; two calls
		// in one batch must never race.
		controller.logger.Info("executing tool batch",
			"tenant_id", request.TenantID, "iteration", iteration, "count", len(toolUses))

		batchResults := make([]llm.ToolResult, 0, len(toolUses))
		for _, toolUse := range toolUses {
			calls = append(calls, ToolCallRecord{
				ID:    toolUse.ID,
				Name:  toolUse.Name,
				Input: string(toolUse.Input),
			})

			toolResult := controller.dispatcher.Dispatch(ctx, toolUse, session, trace)
			batchResults = append(batchResults, toolResult)
			results = append(results, ToolResultRecord{
				ToolUseID: toolResult.ToolUseID,
				Content:   toolResult.Content,
				IsError:   toolResult.IsError,
			})

			controller.logEvent(SessionEvent{
				Type:     "tool_call",
				TenantID: request.TenantID,
				Tool:     toolUse.Name,
				Content:  toolResult.Content,
				IsError:  toolResult.IsError,
			})
		}

		messages = append(messages, llm.ToolResultMessage(batchResults...))
	}

	controller.logger.Error("turn abandoned at iteration cap",
		"tenant_id", request.TenantID, "cap", controller.maxIterations)
	controller.logEvent(SessionEvent{
		Type:     "turn_failed",
		TenantID: request.TenantID,
		Content:  "iteration cap exceeded",
	})
	return nil, fmt.Errorf("%w (%d iterations)", ErrIterationCap, controller.maxIterations)
}

// buildConversation assembles the model-facing message list: the
// windowed history followed by the new utterance.
func (controller *Controller) buildConversation(request TurnRequest) []llm.Message {
	history := request.History
	if len(history) > controller.historyWindow {
		trimmed := len(history) - controller.historyWindow
		history = history[trimmed:]
		controller.logger.Info("history trimmed for model request",
			"tenant_id", request.TenantID,
			"dropped", trimmed,
			"forwarded", len(history))
	}

	messages := make([]llm.Message, 0, len(history)+1)
	for _, entry := range history {
		role := llm.RoleUser
		if entry.Role == string(llm.RoleAssistant) {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{
			Role:    role,
			Content: []llm.ContentBlock{llm.TextBlock(entry.Content)},
		})
	}

	utterance := request.Message
	if count := len(request.Attachments); count > 0 {
		// The model never sees payloads, only that photos exist; the
		// dispatcher attaches them to any created work order.
		utterance = fmt.Sprintf("%s\n\n[%d photo(s) attached to this message]", utterance, count)
	}
	return append(messages, llm.UserMessage(utterance))
}

func (controller *Controller) lookupTenant(tenantID string) (schema.Tenant, error) {
	tenants, err := store.ReadAllAs[schema.Tenant](controller.store, store.KindTenants)
	if err != nil {
		return schema.Tenant{}, fmt.Errorf("agent: reading tenants: %w", err)
	}
	for _, tenant := range tenants {
		if tenant.ID == tenantID {
			return tenant, nil
		}
	}
	return schema.Tenant{}, fmt.Errorf("%w: %s", ErrUnknownTenant, tenantID)
}

// finishTurn handles end-of-turn persistence: the session log entry
// and the conversation checkpoint. Both are best-effort; a turn that
// completed is reported as completed regardless.
func (controller *Controller) finishTurn(tenantID string, messages []llm.Message, result *TurnResult, trace *tooldispatch.Trace) {
	controller.logEvent(SessionEvent{
		Type:     "turn_complete",
		TenantID: tenantID,
		Content:  result.Message,
	})

	if controller.checkpoints != nil {
		if err := controller.checkpoints.Save(tenantID, messages); err != nil {
			controller.logger.Warn("conversation checkpoint failed",
				"tenant_id", tenantID, "error", err)
		}
	}

	if entries := trace.Entries(); len(entries) > 0 {
		controller.logger.Info("turn dispatch audit",
			"tenant_id", tenantID, "dispatches", len(entries))
	}
}

func (controller *Controller) logEvent(event SessionEvent) {
	if controller.sessionLog == nil {
		return
	}
	if err := controller.sessionLog.Write(event); err != nil {
		controller.logger.Warn("session log write failed", "error", err)
	}
}
