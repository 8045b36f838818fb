// Copyright 2026 The Upkeep Authors
// SPDX-License-Identifier: Apache-2.0

package workorder

import (
	"encoding/json"
	"fmt"

	"github.com/upkeep-works/upkeep/lib/schema"
	"github.com/upkeep-works/upkeep/lib/store"
)

// legacyFields carries the camelCase spellings older seed data and
// earlier revisions of the store used. Normalization fills canonical
// fields from these when the canonical spelling is absent, so the
// tolerance lives here at the repository boundary and nowhere else.
type legacyFields struct {
	TenantID        string              `json:"tenantId"`
	ContractorID    string              `json:"contractorId"`
	ContractorName  string              `json:"contractorName"`
	IssueSummary    string              `json:"issueSummary"`
	CreatedAt       string              `json:"createdAt"`
	UpdatedAt       string              `json:"updatedAt"`
	ResolvedAt      string              `json:"resolvedAt"`
	ResolutionNotes string              `json:"resolutionNotes"`
	Attachments     []schema.Attachment `json:"attachments"`
}

// decodeOrder decodes one stored record, normalizing legacy field
// names into the canonical snake_case shape.
func decodeOrder(raw json.RawMessage) (schema.WorkOrder, error) {
	var order schema.WorkOrder
	if err := json.Unmarshal(raw, &order); err != nil {
		return schema.WorkOrder{}, fmt.Errorf("workorder: decoding record: %w", err)
	}

	var legacy legacyFields
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return schema.WorkOrder{}, fmt.Errorf("workorder: decoding record: %w", err)
	}

	if order.TenantID == "" {
		order.TenantID = legacy.TenantID
	}
	if order.ContractorID == "" {
		order.ContractorID = legacy.ContractorID
	}
	if order.ContractorName == "" {
		order.ContractorName = legacy.ContractorName
	}
	if order.IssueSummary == "" {
		order.IssueSummary = legacy.IssueSummary
	}
	if order.CreatedAt == "" {
		order.CreatedAt = legacy.CreatedAt
	}
	if order.UpdatedAt == "" {
		order.UpdatedAt = legacy.UpdatedAt
	}
	if order.ResolvedAt == "" {
		order.ResolvedAt = legacy.ResolvedAt
	}
	if order.ResolutionNotes == "" {
		order.ResolutionNotes = legacy.ResolutionNotes
	}
	if order.Attachments == nil {
		order.Attachments = legacy.Attachments
	}

	return order, nil
}

// decodeOrders normalizes a full raw collection.
func decodeOrders(raws []json.RawMessage) ([]schema.WorkOrder, error) {
	orders := make([]schema.WorkOrder, 0, len(raws))
	for _, raw := range raws {
		order, err := decodeOrder(raw)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// encodeOrders re-encodes a collection for storage. Encoding always
// writes the canonical shape, so any record touched by a mutation is
// migrated off its legacy spellings.
func encodeOrders(orders []schema.WorkOrder) ([]json.RawMessage, error) {
	raws := make([]json.RawMessage, 0, len(orders))
	for _, order := range orders {
		raw, err := json.Marshal(order)
		if err != nil {
			return nil, fmt.Errorf("workorder: encoding record %s: %w", order.ID, err)
		}
		raws = append(raws, raw)
	}
	return raws, nil
}

// readOrders reads and normalizes the full collection outside any
// mutation (used by List and the duplicate detector's active-set
// query).
func readOrders(recordStore store.Store) ([]schema.WorkOrder, error) {
	raws, err := recordStore.ReadAll(store.KindWorkOrders)
	if err != nil {
		return nil, err
	}
	return decodeOrders(raws)
}
