// Copyright 2026 The Upkeep Authors
// SPDX-License-Identifier: Apache-2.0

package schema

// Tenant is a resident who reports maintenance issues. Tenants are
// immutable reference data: the core reads them to bind identity
// into conversation turns but never writes them.
type Tenant struct {
	// ID is the stable tenant identifier (e.g., "ten-004").
	ID string `json:"id"`

	// Name is the tenant's display name.
	Name string `json:"name"`

	// Unit identifies the tenant's dwelling (e.g., "flat 12B").
	Unit string `json:"unit"`
}

// Contractor is a tradesperson dispatched to resolve work orders.
// Read-only reference data. Work orders reference contractors by ID;
// the display name is denormalized into the work order at creation
// so historical records survive contractor roster changes.
type Contractor struct {
	// ID is the stable contractor identifier (e.g., "con-011").
	ID string `json:"id"`

	// Name is the contractor's display name.
	Name string `json:"name"`

	// Trade is the service category, one of the Trade enumeration.
	Trade Trade `json:"trade"`

	// Phone and Email are contact fields, free-form.
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`

	// HourlyRate is the quoted rate in whole currency units.
	HourlyRate float64 `json:"hourly_rate,omitempty"`
}
