// Copyright 2026 The Upkeep Authors
// SPDX-License-Identifier: Apache-2.0

package dupdetect

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/upkeep-works/upkeep/lib/llm"
	"github.com/upkeep-works/upkeep/lib/schema"
)

// scriptedProvider returns canned responses in order and records the
// requests it saw. A nil response entry produces scriptedError.
type scriptedProvider struct {
	responses []*llm.Response
	requests  []llm.Request
}

var scriptedError = errors.New("provider unavailable")

func (provider *scriptedProvider) Complete(_ context.Context, request llm.Request) (*llm.Response, error) {
	provider.requests = append(provider.requests, request)
	if len(provider.responses) == 0 {
		return nil, errors.New("scripted provider exhausted")
	}
	response := provider.responses[0]
	provider.responses = provider.responses[1:]
	if response == nil {
		return nil, scriptedError
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

// fixedActive is an ActiveLister over a fixed slice.
type fixedActive struct {
	orders []schema.WorkOrder
	err    error
}

func (fixed fixedActive) ListActive(string) ([]schema.WorkOrder, error) {
	return fixed.orders, fixed.err
}

var dripOrder = schema.WorkOrder{
	ID:           "wo-100",
	TenantID:     "ten-001",
	IssueSummary: "kitchen tap is dripping",
	Trade:        schema.TradePlumbing,
	Priority:     schema.PriorityMedium,
	Status:       schema.StatusAssigned,
	CreatedAt:    "2026-08-20T09:00:00Z",
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFastPathNoActiveOrders(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{}
	detector := NewDetector(fixedActive{}, provider, "test-model", testLogger())

	result, err := detector.Check(context.Background(), "ten-001", "faucet leaking")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if result.HasSimilar || result.Error != "" {
		t.Errorf("result = %+v, want clean has_similar false", result)
	}
	if len(provider.requests) != 0 {
		t.Errorf("fast path made %d provider calls, want 0", len(provider.requests))
	}
}

func TestSimilarVerdictResolvesMatch(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{responses: []*llm.Response{
		textResponse(`{"is_similar": true, "matching_order_id": "wo-100", "reasoning": "Both describe the dripping kitchen tap."}`),
	}}
	detector := NewDetector(fixedActive{orders: []schema.WorkOrder{dripOrder}},
		provider, "test-model", testLogger())

	result, err := detector.Check(context.Background(), "ten-001",
		"faucet in kitchen won't stop leaking")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}

	if !result.HasSimilar {
		t.Fatal("has_similar = false, want true")
	}
	if result.Match == nil || result.Match.ID != "wo-100" {
		t.Errorf("match = %+v", result.Match)
	}
	if result.Reasoning == "" {
		t.Error("reasoning empty")
	}
	if result.Error != "" {
		t.Errorf("error = %q, want empty", result.Error)
	}

	// The judgment prompt must carry the candidate tuples.
	if len(provider.requests) != 1 {
		t.Fatalf("made %d provider calls, want 1", len(provider.requests))
	}
	prompt := provider.requests[0].Messages[0].Content[0].Text
	if !strings.Contains(prompt, "wo-100") || !strings.Contains(prompt, "kitchen tap is dripping") {
		t.Errorf("prompt missing candidate data:\n%s", prompt)
	}
}

func TestDissimilarVerdict(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{responses: []*llm.Response{
		textResponse(`{"is_similar": false, "matching_order_id": null, "reasoning": "A smoke alarm is unrelated to plumbing."}`),
	}}
	detector := NewDetector(fixedActive{orders: []schema.WorkOrder{dripOrder}},
		provider, "test-model", testLogger())

	result, err := detector.Check(context.Background(), "ten-001", "smoke alarm is beeping")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if result.HasSimilar {
		t.Error("has_similar = true, want false")
	}
	if result.Error != "" {
		t.Errorf("error = %q, want empty", result.Error)
	}
}

func TestProviderErrorFailsOpen(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{responses: []*llm.Response{nil}}
	detector := NewDetector(fixedActive{orders: []schema.WorkOrder{dripOrder}},
		provider, "test-model", testLogger())

	result, err := detector.Check(context.Background(), "ten-001", "tap dripping again")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}

	if result.HasSimilar {
		t.Error("degraded result claims similarity")
	}
	if result.Error == "" {
		t.Error("degraded result has no error field")
	}
	if len(result.ActiveOrders) != 1 || result.ActiveOrders[0].ID != "wo-100" {
		t.Errorf("active orders not surfaced: %+v", result.ActiveOrders)
	}
}

func TestHallucinatedIDFailsOpen(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{responses: []*llm.Response{
		textResponse(`{"is_similar": true, "matching_order_id": "wo-999", "reasoning": "Looks the same."}`),
	}}
	detector := NewDetector(fixedActive{orders: []schema.WorkOrder{dripOrder}},
		provider, "test-model", testLogger())

	result, err := detector.Check(context.Background(), "ten-001", "leaky tap")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}

	if result.HasSimilar {
		t.Error("hallucinated id accepted as a match")
	}
	if !strings.Contains(result.Error, "wo-999") {
		t.Errorf("error = %q, want mention of wo-999", result.Error)
	}
	if len(result.ActiveOrders) != 1 {
		t.Errorf("active orders not surfaced: %+v", result.ActiveOrders)
	}
}

func TestMalformedVerdictFailsOpen(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{responses: []*llm.Response{
		textResponse("I think these are probably the same issue."),
	}}
	detector := NewDetector(fixedActive{orders: []schema.WorkOrder{dripOrder}},
		provider, "test-model", testLogger())

	result, err := detector.Check(context.Background(), "ten-001", "leaky tap")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if result.HasSimilar || result.Error == "" {
		t.Errorf("result = %+v, want degraded fail-open", result)
	}
}

func TestParseVerdictToleratesFences(t *testing.T) {
	t.Parallel()

	text := "```json\n{\"is_similar\": true, \"matching_order_id\": \"wo-1\", \"reasoning\": \"same\"}\n```"
	parsed, err := parseVerdict(text)
	if err != nil {
		t.Fatalf("parseVerdict: %v", err)
	}
	if !parsed.IsSimilar || parsed.MatchingOrderID != "wo-1" {
		t.Errorf("parsed = %+v", parsed)
	}
}
