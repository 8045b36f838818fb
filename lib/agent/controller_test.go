// Copyright 2026 The Upkeep Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/upkeep-works/upkeep/lib/clock"
	"github.com/upkeep-works/upkeep/lib/dupdetect"
	"github.com/upkeep-works/upkeep/lib/knowledge"
	"github.com/upkeep-works/upkeep/lib/llm"
	"github.com/upkeep-works/upkeep/lib/schema"
	"github.com/upkeep-works/upkeep/lib/store"
	"github.com/upkeep-works/upkeep/lib/tooldispatch"
	"github.com/upkeep-works/upkeep/lib/workorder"
)

// scriptedProvider plays back canned responses and records every
// request. The last response repeats if the script runs out, which
// lets the cap test script a single never-terminating response.
type scriptedProvider struct {
	responses []*llm.Response
	requests  []llm.Request
	index     int
}

func (provider *scriptedProvider) Complete(_ context.Context, request llm.Request) (*llm.Response, error) {
	provider.requests = append(provider.requests, request)
	if len(provider.responses) == 0 {
		return nil, errors.New("scripted provider has no responses")
	}
	response := provider.responses[provider.index]
	if provider.index < len(provider.responses)-1 {
		provider.index++
	}
	if response == nil {
		return nil, errors.New("scripted provider failure")
	}
	return response, nil
}

func (provider *scriptedProvider) Stream(context.Context, llm.Request) (*llm.EventStream, error) {
	return nil, errors.New("scripted provider does not stream")
}

func textResponse(text string) *llm.Response {
	return &llm.Response{
		Content:    []llm.ContentBlock{llm.TextBlock(text)},
		StopReason: llm.StopReasonEndTurn,
	}
}

func toolResponse(text string, uses ...llm.ToolUse) *llm.Response {
	response := &llm.Response{StopReason: llm.StopReasonToolUse}
	if text != "" {
		response.Content = append(response.Content, llm.TextBlock(text))
	}
	for _, use := range uses {
		response.Content = append(response.Content,
			llm.ToolUseBlock(use.ID, use.Name, use.Input))
	}
	return response
}

// testController wires a full stack over a memory store: real
// dispatcher, real work order service, real detector (with its own
// scripted judge), scripted main provider.
func testController(t *testing.T, provider *scriptedProvider, judge *scriptedProvider, options Options) (*Controller, *store.MemoryStore) {
	t.Helper()

	memory := store.NewMemoryStore()
	if err := store.Seed(memory, store.KindTenants, []schema.Tenant{
		{ID: "ten-001", Name: "Priya Shah", Unit: "flat 12B"},
	}); err != nil {
		t.Fatalf("seeding tenants: %v", err)
	}
	if err := store.Seed(memory, store.KindContractors, []schema.Contractor{
		{ID: "con-001", Name: "Ace Plumbing", Trade: schema.TradePlumbing},
	}); err != nil {
		t.Fatalf("seeding contractors: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fake := clock.NewFake(time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC))
	orders := workorder.NewService(memory, fake, logger)
	detector := dupdetect.NewDetector(orders, judge, "judge-model", logger)
	dispatcher := tooldispatch.NewDispatcher(
		knowledge.NewRetriever(memory), detector, orders, memory, logger)

	return NewController(provider, dispatcher, memory, "test-model", logger, options), memory
}

func TestTurnPlainAnswer(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{responses: []*llm.Response{
		textResponse("Try bleeding the radiator; here is how."),
	}}
	controller, _ := testController(t, provider, &scriptedProvider{}, Options{})

	result, err := controller.RunTurn(context.Background(), TurnRequest{
		TenantID: "ten-001",
		Message:  "my radiator is cold at the top",
	})
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}

	if result.Message != "Try bleeding the radiator; here is how." {
		t.Errorf("message = %q", result.Message)
	}
	if len(result.ToolCalls) != 0 || len(result.ToolResults) != 0 {
		t.Errorf("traces not empty: %+v / %+v", result.ToolCalls, result.ToolResults)
	}

	// The model was offered the full tool menu with bound identity.
	if len(provider.requests) != 1 {
		t.Fatalf("made %d model calls, want 1", len(provider.requests))
	}
	request := provider.requests[0]
	if len(request.Tools) == 0 {
		t.Error("no tool menu offered")
	}
	if !strings.Contains(request.System, "Priya Shah") || !strings.Contains(request.System, "ten-001") {
		t.Errorf("system prompt missing tenant binding:\n%s", request.System)
	}
}

func TestTurnDuplicateCheckThenCreate(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{responses: []*llm.Response{
		toolResponse("Checking for an existing order first.",
			llm.ToolUse{ID: "tu-1", Name: tooldispatch.ToolCheckDuplicate,
				Input: json.RawMessage(`{"description": "burst pipe under sink"}`)}),
		toolResponse("No duplicate; dispatching a plumber.",
			llm.ToolUse{ID: "tu-2", Name: tooldispatch.ToolCreateWorkOrder,
				Input: json.RawMessage(`{"issue_summary": "burst pipe under sink", "contractor": "con-001", "priority": "High"}`)}),
		textResponse("Ace Plumbing has been dispatched for your burst pipe."),
	}}
	controller, memory := testController(t, provider, &scriptedProvider{}, Options{})

	result, err := controller.RunTurn(context.Background(), TurnRequest{
		TenantID: "ten-001",
		Message:  "water is pouring out under the kitchen sink",
	})
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}

	if !strings.Contains(result.Message, "dispatched") {
		t.Errorf("message = %q", result.Message)
	}

	// Ordered traces: duplicate check first, then create.
	if len(result.ToolCalls) != 2 || len(result.ToolResults) != 2 {
		t.Fatalf("traces = %+v / %+v", result.ToolCalls, result.ToolResults)
	}
	if result.ToolCalls[0].Name != tooldispatch.ToolCheckDuplicate {
		t.Errorf("first call = %q", result.ToolCalls[0].Name)
	}
	if result.ToolCalls[1].Name != tooldispatch.ToolCreateWorkOrder {
		t.Errorf("second call = %q", result.ToolCalls[1].Name)
	}
	if result.ToolResults[0].ToolUseID != "tu-1" || result.ToolResults[1].ToolUseID != "tu-2" {
		t.Errorf("result ids = %+v", result.ToolResults)
	}

	// The work order landed in the store for the session tenant.
	raws, err := memory.ReadAll(store.KindWorkOrders)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(raws) != 1 {
		t.Fatalf("got %d stored orders, want 1", len(raws))
	}
	var order schema.WorkOrder
	if err := json.Unmarshal(raws[0], &order); err != nil {
		t.Fatalf("decoding order: %v", err)
	}
	if order.TenantID != "ten-001" || order.ContractorID != "con-001" || order.Status != schema.StatusAssigned {
		t.Errorf("stored order = %+v", order)
	}
}

func TestTurnIterationCapFatal(t *testing.T) {
	t.Parallel()

	// The model asks for the same tool forever.
	provider := &scriptedProvider{responses: []*llm.Response{
		toolResponse("",
			llm.ToolUse{ID: "tu-loop", Name: tooldispatch.ToolListWorkOrders,
				Input: json.RawMessage(`{}`)}),
	}}
	controller, _ := testController(t, provider, &scriptedProvider{}, Options{MaxIterations: 3})

	_, err := controller.RunTurn(context.Background(), TurnRequest{
		TenantID: "ten-001",
		Message:  "hello?",
	})
	if !errors.Is(err, ErrIterationCap) {
		t.Fatalf("RunTurn = %v, want ErrIterationCap", err)
	}
	if len(provider.requests) != 3 {
		t.Errorf("made %d model calls, want exactly the cap of 3", len(provider.requests))
	}
}

func TestTurnProviderErrorIsFatal(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{responses: []*llm.Response{nil}}
	controller, _ := testController(t, provider, &scriptedProvider{}, Options{})

	_, err := controller.RunTurn(context.Background(), TurnRequest{
		TenantID: "ten-001",
		Message:  "hi",
	})
	if err == nil {
		t.Fatal("RunTurn succeeded despite provider failure")
	}
}

func TestTurnUnknownTenant(t *testing.T) {
	t.Parallel()

	controller, _ := testController(t, &scriptedProvider{}, &scriptedProvider{}, Options{})
	_, err := controller.RunTurn(context.Background(), TurnRequest{
		TenantID: "ten-999",
		Message:  "hi",
	})
	if !errors.Is(err, ErrUnknownTenant) {
		t.Fatalf("RunTurn = %v, want ErrUnknownTenant", err)
	}
}

func TestTurnHistoryWindow(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{responses: []*llm.Response{textResponse("ok")}}
	controller, _ := testController(t, provider, &scriptedProvider{}, Options{HistoryWindow: 4})

	var history []HistoryEntry
	for i := 0; i < 10; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		history = append(history, HistoryEntry{Role: role, Content: fmt.Sprintf("entry %d", i)})
	}

	_, err := controller.RunTurn(context.Background(), TurnRequest{
		TenantID: "ten-001",
		Message:  "latest message",
		History:  history,
	})
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}

	// 4 windowed history entries plus the new utterance.
	messages := provider.requests[0].Messages
	if len(messages) != 5 {
		t.Fatalf("forwarded %d messages, want 5", len(messages))
	}
	if messages[0].Content[0].Text != "entry 6" {
		t.Errorf("oldest forwarded entry = %q, want entry 6", messages[0].Content[0].Text)
	}
	if messages[4].Content[0].Text != "latest message" {
		t.Errorf("last message = %q", messages[4].Content[0].Text)
	}
}

func TestTurnAttachmentsFlowIntoCreate(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{responses: []*llm.Response{
		toolResponse("",
			llm.ToolUse{ID: "tu-1", Name: tooldispatch.ToolCreateWorkOrder,
				Input: json.RawMessage(`{"issue_summary": "mould on ceiling", "contractor": "con-001", "priority": "Medium"}`)}),
		textResponse("Order created with your photos attached."),
	}}
	controller, memory := testController(t, provider, &scriptedProvider{}, Options{})

	attachments := []schema.Attachment{
		{ID: "att-1", Locator: "blake3:aaa", Filename: "ceiling.jpg", MediaType: "image/jpeg"},
		{ID: "att-2", Locator: "blake3:bbb", Filename: "closeup.jpg", MediaType: "image/jpeg"},
	}
	result, err := controller.RunTurn(context.Background(), TurnRequest{
		TenantID:    "ten-001",
		Message:     "there is mould on my bathroom ceiling",
		Attachments: attachments,
	})
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}

	// The model saw the attachment count, not the payload references.
	utterance := provider.requests[0].Messages[0].Content[0].Text
	if !strings.Contains(utterance, "2 photo(s)") {
		t.Errorf("utterance missing attachment note: %q", utterance)
	}
	if strings.Contains(utterance, "blake3:") {
		t.Errorf("utterance leaks locators: %q", utterance)
	}

	// The stored record carries the attachments verbatim.
	raws, err := memory.ReadAll(store.KindWorkOrders)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	var order schema.WorkOrder
	if err := json.Unmarshal(raws[0], &order); err != nil {
		t.Fatalf("decoding order: %v", err)
	}
	if len(order.Attachments) != 2 || order.Attachments[0].Locator != "blake3:aaa" {
		t.Errorf("stored attachments = %+v", order.Attachments)
	}

	// The tool result trace only carries the count.
	if strings.Contains(result.ToolResults[0].Content, "blake3:") {
		t.Errorf("tool result leaks locators: %s", result.ToolResults[0].Content)
	}
}

func TestTurnToolErrorContinuesConversation(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{responses: []*llm.Response{
		toolResponse("",
			llm.ToolUse{ID: "tu-1", Name: tooldispatch.ToolCompleteWorkOrder,
				Input: json.RawMessage(`{"work_order_id": "wo-missing"}`)}),
		textResponse("I could not find that work order; could you check the id?"),
	}}
	controller, _ := testController(t, provider, &scriptedProvider{}, Options{})

	result, err := controller.RunTurn(context.Background(), TurnRequest{
		TenantID: "ten-001",
		Message:  "mark my order done",
	})
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}

	if len(result.ToolResults) != 1 || !result.ToolResults[0].IsError {
		t.Fatalf("tool results = %+v, want one error result", result.ToolResults)
	}
	if !strings.Contains(result.Message, "could not find") {
		t.Errorf("message = %q", result.Message)
	}

	// The error result was fed back to the model as a tool result.
	second := provider.requests[1].Messages
	last := second[len(second)-1]
	if last.Role != llm.RoleUser || last.Content[0].Type != llm.ContentToolResult {
		t.Errorf("error result not folded into conversation: %+v", last)
	}
	if !last.Content[0].ToolResult.IsError {
		t.Error("folded tool result not marked as error")
	}
}
