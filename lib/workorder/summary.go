// Copyright 2026 The Upkeep Authors
// SPDX-License-Identifier: Apache-2.0

package workorder

import "github.com/upkeep-works/upkeep/lib/schema"

// Summary is the work order shape that re-enters the conversation.
// Attachment payload references are stripped and replaced by a count
// and a presence flag so photo data never rides along in model
// context.
type Summary struct {
	ID              string          `json:"id"`
	TenantID        string          `json:"tenant_id"`
	ContractorID    string          `json:"contractor_id"`
	ContractorName  string          `json:"contractor_name"`
	Trade           schema.Trade    `json:"trade"`
	IssueSummary    string          `json:"issue_summary"`
	Priority        schema.Priority `json:"priority"`
	Status          schema.Status   `json:"status"`
	CreatedAt       string          `json:"created_at"`
	UpdatedAt       string          `json:"updated_at,omitempty"`
	ResolvedAt      string          `json:"resolved_at,omitempty"`
	ResolutionNotes string          `json:"resolution_notes,omitempty"`
	AttachmentCount int             `json:"attachment_count"`
	HasAttachments  bool            `json:"has_attachments"`
}

// Summarize strips a work order down to its conversation-safe shape.
func Summarize(order schema.WorkOrder) Summary {
	return Summary{
		ID:              order.ID,
		TenantID:        order.TenantID,
		ContractorID:    order.ContractorID,
		ContractorName:  order.ContractorName,
		Trade:           order.Trade,
		IssueSummary:    order.IssueSummary,
		Priority:        order.Priority,
		Status:          order.Status,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
		ResolvedAt:      order.ResolvedAt,
		ResolutionNotes: order.ResolutionNotes,
		AttachmentCount: len(order.Attachments),
		HasAttachments:  len(order.Attachments) > 0,
	}
}

// SummarizeAll maps Summarize over a slice, preserving order.
func SummarizeAll(orders []schema.WorkOrder) []Summary {
	summaries := make([]Summary, 0, len(orders))
	for _, order := range orders {
		summaries = append(summaries, Summarize(order))
	}
	return summaries
}
