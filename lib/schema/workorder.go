// Copyright 2026 The Upkeep Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import "fmt"

// Status is the work-order lifecycle state.
type Status string

// Work-order statuses. Assigned is the only creation status. The two
// terminal statuses both mean "no further dispatch needed": completed
// records contractor sign-off, solved records tenant-confirmed
// resolution (complete_work_order always lands on solved).
const (
	StatusAssigned   Status = "assigned"
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusSolved     Status = "solved"
)

// Statuses lists every valid status, in lifecycle order.
func Statuses() []Status {
	return []Status{StatusAssigned, StatusPending, StatusInProgress, StatusCompleted, StatusSolved}
}

// Valid reports whether the status is a member of the enumeration.
func (status Status) Valid() bool {
	switch status {
	case StatusAssigned, StatusPending, StatusInProgress, StatusCompleted, StatusSolved:
		return true
	}
	return false
}

// Active reports whether the status represents an open dispatch.
// Duplicate detection only considers active work orders.
func (status Status) Active() bool {
	switch status {
	case StatusAssigned, StatusPending, StatusInProgress:
		return true
	}
	return false
}

// Terminal reports whether the status ends the normal lifecycle.
// Terminal records can still be deleted, never transitioned.
func (status Status) Terminal() bool {
	return status == StatusCompleted || status == StatusSolved
}

// Priority is the work-order urgency level.
type Priority string

// Priorities, lowest to highest. Emergency is reserved for hazards
// (gas leaks, live wiring, major flooding).
const (
	PriorityLow       Priority = "Low"
	PriorityMedium    Priority = "Medium"
	PriorityHigh      Priority = "High"
	PriorityEmergency Priority = "Emergency"
)

// Priorities lists every valid priority, lowest first.
func Priorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityEmergency}
}

// Valid reports whether the priority is a member of the enumeration.
func (priority Priority) Valid() bool {
	switch priority {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityEmergency:
		return true
	}
	return false
}

// Trade is a contractor service category.
type Trade string

// Trades. General covers anything the specific trades don't.
const (
	TradePlumbing   Trade = "plumbing"
	TradeElectrical Trade = "electrical"
	TradeGas        Trade = "gas"
	TradeGeneral    Trade = "general"
	TradeLocksmith  Trade = "locksmith"
)

// Trades lists every valid trade.
func Trades() []Trade {
	return []Trade{TradePlumbing, TradeElectrical, TradeGas, TradeGeneral, TradeLocksmith}
}

// Valid reports whether the trade is a member of the enumeration.
func (trade Trade) Valid() bool {
	switch trade {
	case TradePlumbing, TradeElectrical, TradeGas, TradeGeneral, TradeLocksmith:
		return true
	}
	return false
}

// Attachment is a photo (or other media) attached to a work order at
// creation. The record stores a locator into the attachment store,
// never the payload bytes. Attachments are write-once: updates after
// creation neither append nor remove them.
type Attachment struct {
	// ID is the attachment identifier, assigned at upload.
	ID string `json:"id"`

	// Locator addresses the stored content (content hash in the
	// attachment store).
	Locator string `json:"locator"`

	// Filename is the original upload name, for display only.
	Filename string `json:"filename,omitempty"`

	// MediaType is the declared MIME type (e.g., "image/jpeg").
	MediaType string `json:"media_type,omitempty"`
}

// WorkOrder is the record of a dispatched repair task. Work orders
// are created only through the state machine's create operation and
// mutated only through its update, complete, and delete operations.
type WorkOrder struct {
	// ID is generated at creation. IDs sort by creation time (they
	// embed a millisecond timestamp), which is the only ordering
	// guarantee callers may rely on.
	ID string `json:"id"`

	// TenantID references the reporting tenant.
	TenantID string `json:"tenant_id"`

	// ContractorID and ContractorName are the resolved contractor's
	// canonical identifier and display name. The caller-supplied raw
	// string (which may have been an exact or partial name) is never
	// persisted.
	ContractorID   string `json:"contractor_id"`
	ContractorName string `json:"contractor_name"`

	// Trade is the contractor's service category at creation time.
	Trade Trade `json:"trade"`

	// IssueSummary is the free-text problem description.
	IssueSummary string `json:"issue_summary"`

	Priority Priority `json:"priority"`
	Status   Status   `json:"status"`

	// CreatedAt is an RFC 3339 timestamp stamped at creation.
	CreatedAt string `json:"created_at"`

	// UpdatedAt is stamped by every mutation. Empty until the first
	// update.
	UpdatedAt string `json:"updated_at,omitempty"`

	// ResolvedAt is stamped only when status becomes completed or
	// solved. No other status sets it.
	ResolvedAt string `json:"resolved_at,omitempty"`

	// ResolutionNotes records how the issue was resolved.
	ResolutionNotes string `json:"resolution_notes,omitempty"`

	// Attachments are write-once photo references from creation.
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Validate checks the work order's enumerated fields and required
// references. Storage-bound records must pass; records read back from
// storage are normalized first (see lib/workorder normalization).
func (order WorkOrder) Validate() error {
	if order.ID == "" {
		return fmt.Errorf("work order: missing id")
	}
	if order.TenantID == "" {
		return fmt.Errorf("work order %s: missing tenant_id", order.ID)
	}
	if order.ContractorID == "" {
		return fmt.Errorf("work order %s: missing contractor_id", order.ID)
	}
	if !order.Status.Valid() {
		return fmt.Errorf("work order %s: invalid status %q", order.ID, order.Status)
	}
	if !order.Priority.Valid() {
		return fmt.Errorf("work order %s: invalid priority %q", order.ID, order.Priority)
	}
	if !order.Trade.Valid() {
		return fmt.Errorf("work order %s: invalid trade %q", order.ID, order.Trade)
	}
	return nil
}
