// Copyright 2026 The Upkeep Authors
// SPDX-License-Identifier: Apache-2.0

package dupdetect

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/upkeep-works/upkeep/lib/llm"
	"github.com/upkeep-works/upkeep/lib/schema"
	"github.com/upkeep-works/upkeep/lib/workorder"
)

// judgeMaxTokens bounds the verdict response. The verdict is a small
// JSON object; anything near this limit indicates a malformed reply.
const judgeMaxTokens = 1024

// ActiveLister is the slice of the work order service the detector
// needs: the tenant's active (assigned, pending, in_progress) orders.
type ActiveLister interface {
	ListActive(tenantID string) ([]schema.WorkOrder, error)
}

// verdict is the model's wire-format judgment.
type verdict struct {
	IsSimilar       bool   `json:"is_similar"`
	MatchingOrderID string `json:"matching_order_id"`
	Reasoning       string `json:"reasoning"`
}

// Result is the detector's answer. HasSimilar is authoritative for
// the caller's flow; Error, when set, means the judgment could not be
// completed and HasSimilar defaulted to false (degraded mode). In
// degraded mode ActiveOrders carries the unchecked candidate set so
// the caller can still present it.
type Result struct {
	HasSimilar   bool                `json:"has_similar"`
	Match        *workorder.Summary  `json:"match,omitempty"`
	Reasoning    string              `json:"reasoning,omitempty"`
	ActiveOrders []workorder.Summary `json:"active_orders,omitempty"`
	Error        string              `json:"error,omitempty"`
}

// Detector runs the duplicate check.
type Detector struct {
	orders   ActiveLister
	provider llm.Provider
	model    string
	logger   *slog.Logger
}

// NewDetector creates a detector that judges duplicates with the
// given provider and model.
func NewDetector(orders ActiveLister, provider llm.Provider, model string, logger *slog.Logger) *Detector {
	return &Detector{
		orders:   orders,
		provider: provider,
		model:    model,
		logger:   logger,
	}
}

// Check compares a new issue description against the tenant's active
// work orders. With no active orders it returns immediately without a
// model call. Check never returns an error for judgment failures;
// those fail open inside the Result. The error return covers only the
// store read.
func (detector *Detector) Check(ctx context.Context, tenantID, description string) (Result, error) {
	active, err := detector.orders.ListActive(tenantID)
	if err != nil {
		return Result{}, fmt.Errorf("dupdetect: listing active orders: %w", err)
	}

	// Fast path: nothing to duplicate, no judgment needed.
	if len(active) == 0 {
		return Result{HasSimilar: false}, nil
	}

	response, err := detector.provider.Complete(ctx, llm.Request{
		Model:     detector.model,
		System:    judgeSystemPrompt,
		Messages:  []llm.Message{llm.UserMessage(buildJudgePrompt(description, active))},
		MaxTokens: judgeMaxTokens,
	})
	if err != nil {
		detector.logger.Warn("duplicate judgment failed, failing open",
			"tenant_id", tenantID, "error", err)
		return degraded(active, fmt.Sprintf("duplicate check unavailable: %v", err)), nil
	}

	parsed, err := parseVerdict(response.TextContent())
	if err != nil {
		detector.logger.Warn("duplicate verdict unparseable, failing open",
			"tenant_id", tenantID, "error", err)
		return degraded(active, fmt.Sprintf("duplicate check returned malformed verdict: %v", err)), nil
	}

	if !parsed.IsSimilar {
		return Result{HasSimilar: false, Reasoning: parsed.Reasoning}, nil
	}

	// The claimed match must exist in the active set. A hallucinated
	// id fails open rather than pointing the caller at a phantom.
	for _, order := range active {
		if order.ID == parsed.MatchingOrderID {
			match := workorder.Summarize(order)
			return Result{
				HasSimilar: true,
				Match:      &match,
				Reasoning:  parsed.Reasoning,
			}, nil
		}
	}

	detector.logger.Warn("duplicate verdict named unknown order, failing open",
		"tenant_id", tenantID, "matching_order_id", parsed.MatchingOrderID)
	return degraded(active, fmt.Sprintf(
		"duplicate check named unknown order %q", parsed.MatchingOrderID)), nil
}

func degraded(active []schema.WorkOrder, reason string) Result {
	return Result{
		HasSimilar:   false,
		ActiveOrders: workorder.SummarizeAll(active),
		Error:        reason,
	}
}

const judgeSystemPrompt = `You compare a newly reported property maintenance issue against a tenant's open work orders. Two reports are duplicates when they describe the same underlying problem, regardless of wording: treat synonyms, paraphrase, and different levels of detail as the same report. Different problems in the same room or involving the same trade are NOT duplicates.

Respond with a single JSON object and nothing else:
{"is_similar": <boolean>, "matching_order_id": <string or null>, "reasoning": <one sentence>}`

// buildJudgePrompt lays out the new description and the active set as
// compact JSON tuples the model can reference by id.
func buildJudgePrompt(description string, active []schema.WorkOrder) string {
	var builder strings.Builder
	builder.WriteString("New issue report:\n")
	builder.WriteString(description)
	builder.WriteString("\n\nOpen work orders:\n")

	for _, order := range active {
		tuple, _ := json.Marshal(map[string]any{
			"id":         order.ID,
			"summary":    order.IssueSummary,
			"trade":      order.Trade,
			"priority":   order.Priority,
			"status":     order.Status,
			"created_at": order.CreatedAt,
		})
		builder.Write(tuple)
		builder.WriteByte('\n')
	}
	return builder.String()
}

// parseVerdict extracts the JSON verdict from the model's text,
// tolerating surrounding prose and markdown code fences.
func parseVerdict(text string) (verdict, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return verdict{}, fmt.Errorf("no JSON object in verdict text %q", text)
	}

	// matching_order_id may legitimately be null; decoding into a
	// string field would fail, so accept both shapes.
	var raw struct {
		IsSimilar       bool            `json:"is_similar"`
		MatchingOrderID json.RawMessage `json:"matching_order_id"`
		Reasoning       string          `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return verdict{}, fmt.Errorf("decoding verdict: %w", err)
	}

	parsed := verdict{IsSimilar: raw.IsSimilar, Reasoning: raw.Reasoning}
	if len(raw.MatchingOrderID) > 0 && string(raw.MatchingOrderID) != "null" {
		if err := json.Unmarshal(raw.MatchingOrderID, &parsed.MatchingOrderID); err != nil {
			return verdict{}, fmt.Errorf("decoding matching_order_id: %w", err)
		}
	}
	return parsed, nil
}
