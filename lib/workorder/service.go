// Copyright 2026 The Upkeep Authors
// SPDX-License-Identifier: Apache-2.0

package workorder

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/upkeep-works/upkeep/lib/clock"
	"github.com/upkeep-works/upkeep/lib/schema"
	"github.com/upkeep-works/upkeep/lib/store"
)

// ErrNotFound is returned when an operation references a work order
// id that is not in the collection.
var ErrNotFound = errors.New("work order not found")

// ErrContractorNotFound is returned when a create request's
// contractor reference resolves to no contractor.
var ErrContractorNotFound = errors.New("contractor not found")

// Service is the work order state machine. All mutations go through
// the record store's Update lock, so concurrent requests serialize
// their read-modify-write cycles instead of losing updates.
type Service struct {
	store  store.Store
	clock  clock.Clock
	logger *slog.Logger
}

// NewService creates a work order service.
func NewService(recordStore store.Store, clk clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		store:  recordStore,
		clock:  clk,
		logger: logger,
	}
}

// CreateParams are the inputs to [Service.Create]. Contractor is the
// caller-supplied reference: an id, an exact display name, or a name
// fragment, resolved in that order.
type CreateParams struct {
	TenantID     string
	IssueSummary string
	Contractor   string
	Priority     schema.Priority
	Attachments  []schema.Attachment
}

// Create resolves the contractor, assigns a fresh id, and appends the
// new record with status assigned. The persisted record carries the
// resolved contractor's canonical id and name, never the raw
// caller-supplied string.
func (service *Service) Create(params CreateParams) (schema.WorkOrder, error) {
	if params.TenantID == "" {
		return schema.WorkOrder{}, fmt.Errorf("workorder: create: missing tenant id")
	}
	if strings.TrimSpace(params.IssueSummary) == "" {
		return schema.WorkOrder{}, fmt.Errorf("workorder: create: missing issue summary")
	}
	if !params.Priority.Valid() {
		return schema.WorkOrder{}, fmt.Errorf("workorder: create: invalid priority %q", params.Priority)
	}

	contractors, err := store.ReadAllAs[schema.Contractor](service.store, store.KindContractors)
	if err != nil {
		return schema.WorkOrder{}, fmt.Errorf("workorder: create: reading contractors: %w", err)
	}
	contractor, err := resolveContractor(contractors, params.Contractor)
	if err != nil {
		return schema.WorkOrder{}, err
	}

	now := service.clock.Now().UTC()
	order := schema.WorkOrder{
		ID:             newOrderID(now),
		TenantID:       params.TenantID,
		ContractorID:   contractor.ID,
		ContractorName: contractor.Name,
		Trade:          contractor.Trade,
		IssueSummary:   params.IssueSummary,
		Priority:       params.Priority,
		Status:         schema.StatusAssigned,
		CreatedAt:      now.Format(time.RFC3339),
		Attachments:    params.Attachments,
	}
	if err := order.Validate(); err != nil {
		return schema.WorkOrder{}, fmt.Errorf("workorder: create: %w", err)
	}

	err = service.store.Update(store.KindWorkOrders, func(raws []json.RawMessage) ([]json.RawMessage, error) {
		orders, err := decodeOrders(raws)
		if err != nil {
			return nil, err
		}
		return encodeOrders(append(orders, order))
	})
	if err != nil {
		return schema.WorkOrder{}, err
	}

	service.logger.Info("work order created",
		"work_order_id", order.ID,
		"tenant_id", order.TenantID,
		"contractor_id", order.ContractorID,
		"trade", order.Trade,
		"priority", order.Priority)
	return order, nil
}

// List returns the tenant's work orders in stored (creation) order,
// optionally filtered to one status. An empty statusFilter means all
// statuses.
func (service *Service) List(tenantID string, statusFilter schema.Status) ([]schema.WorkOrder, error) {
	if statusFilter != "" && !statusFilter.Valid() {
		return nil, fmt.Errorf("workorder: list: invalid status %q", statusFilter)
	}

	orders, err := readOrders(service.store)
	if err != nil {
		return nil, err
	}

	var matched []schema.WorkOrder
	for _, order := range orders {
		if order.TenantID != tenantID {
			continue
		}
		if statusFilter != "" && order.Status != statusFilter {
			continue
		}
		matched = append(matched, order)
	}
	return matched, nil
}

// ListActive returns the tenant's work orders with an active status
// (assigned, pending, or in_progress). This is the duplicate
// detector's candidate set.
func (service *Service) ListActive(tenantID string) ([]schema.WorkOrder, error) {
	orders, err := service.List(tenantID, "")
	if err != nil {
		return nil, err
	}

	var active []schema.WorkOrder
	for _, order := range orders {
		if order.Status.Active() {
			active = append(active, order)
		}
	}
	return active, nil
}

// Patch holds the optional fields of an update. Nil means "leave
// unchanged"; attachments are write-once and deliberately absent.
type Patch struct {
	IssueSummary *string
	Priority     *schema.Priority
	Status       *schema.Status
}

// Update applies the provided fields to an existing work order and
// stamps updated_at. Moving to a terminal status also stamps
// resolved_at; no other status touches it. Returns the updated
// record, or [ErrNotFound].
func (service *Service) Update(workOrderID string, patch Patch) (schema.WorkOrder, error) {
	if patch.Priority != nil && !patch.Priority.Valid() {
		return schema.WorkOrder{}, fmt.Errorf("workorder: update %s: invalid priority %q", workOrderID, *patch.Priority)
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return schema.WorkOrder{}, fmt.Errorf("workorder: update %s: invalid status %q", workOrderID, *patch.Status)
	}

	var updated schema.WorkOrder
	err := service.mutate(workOrderID, func(order *schema.WorkOrder, now string) {
		if patch.IssueSummary != nil {
			order.IssueSummary = *patch.IssueSummary
		}
		if patch.Priority != nil {
			order.Priority = *patch.Priority
		}
		if patch.Status != nil {
			order.Status = *patch.Status
			if order.Status.Terminal() && order.ResolvedAt == "" {
				order.ResolvedAt = now
			}
		}
		order.UpdatedAt = now
		updated = *order
	})
	if err != nil {
		return schema.WorkOrder{}, err
	}

	service.logger.Info("work order updated", "work_order_id", updated.ID, "status", updated.Status)
	return updated, nil
}

// Complete forces an existing work order to status solved, stamps
// updated_at and resolved_at, and records resolution notes if given.
// Returns the completed record, or [ErrNotFound].
func (service *Service) Complete(workOrderID, resolutionNotes string) (schema.WorkOrder, error) {
	var completed schema.WorkOrder
	err := service.mutate(workOrderID, func(order *schema.WorkOrder, now string) {
		order.Status = schema.StatusSolved
		order.UpdatedAt = now
		order.ResolvedAt = now
		if resolutionNotes != "" {
			order.ResolutionNotes = resolutionNotes
		}
		completed = *order
	})
	if err != nil {
		return schema.WorkOrder{}, err
	}

	service.logger.Info("work order completed", "work_order_id", completed.ID)
	return completed, nil
}

// Delete removes a work order from the collection and returns its
// pre-deletion snapshot, or [ErrNotFound]. Deletion is allowed from
// any status.
func (service *Service) Delete(workOrderID string) (schema.WorkOrder, error) {
	var deleted schema.WorkOrder
	found := false

	err := service.store.Update(store.KindWorkOrders, func(raws []json.RawMessage) ([]json.RawMessage, error) {
		orders, err := decodeOrders(raws)
		if err != nil {
			return nil, err
		}

		remaining := orders[:0]
		for _, order := range orders {
			if order.ID == workOrderID {
				deleted = order
				found = true
				continue
			}
			remaining = append(remaining, order)
		}
		if !found {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, workOrderID)
		}
		return encodeOrders(remaining)
	})
	if err != nil {
		return schema.WorkOrder{}, err
	}

	service.logger.Info("work order deleted", "work_order_id", deleted.ID, "tenant_id", deleted.TenantID)
	return deleted, nil
}

// mutate runs apply against one record inside the collection lock.
// The apply function receives the normalized record and the current
// RFC 3339 timestamp.
func (service *Service) mutate(workOrderID string, apply func(order *schema.WorkOrder, now string)) error {
	now := service.clock.Now().UTC().Format(time.RFC3339)

	return service.store.Update(store.KindWorkOrders, func(raws []json.RawMessage) ([]json.RawMessage, error) {
		orders, err := decodeOrders(raws)
		if err != nil {
			return nil, err
		}

		for i := range orders {
			if orders[i].ID == workOrderID {
				apply(&orders[i], now)
				return encodeOrders(orders)
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrNotFound, workOrderID)
	})
}

// resolveContractor resolves a caller-supplied contractor reference:
// exact id match first, then exact (case-insensitive) name match,
// then substring name match. First hit in roster order wins at each
// level.
func resolveContractor(contractors []schema.Contractor, reference string) (schema.Contractor, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return schema.Contractor{}, fmt.Errorf("%w: empty contractor reference", ErrContractorNotFound)
	}

	for _, contractor := range contractors {
		if contractor.ID == reference {
			return contractor, nil
		}
	}

	lowered := strings.ToLower(reference)
	for _, contractor := range contractors {
		if strings.ToLower(contractor.Name) == lowered {
			return contractor, nil
		}
	}
	for _, contractor := range contractors {
		if strings.Contains(strings.ToLower(contractor.Name), lowered) {
			return contractor, nil
		}
	}

	return schema.Contractor{}, fmt.Errorf("%w: %q", ErrContractorNotFound, reference)
}

// newOrderID generates a fresh work order id. The millisecond
// timestamp prefix makes ids sort by creation time; the random suffix
// separates ids minted within the same millisecond.
func newOrderID(now time.Time) string {
	return fmt.Sprintf("wo-%013d-%04x", now.UnixMilli(), rand.Uint32()&0xffff)
}
