// Copyright 2026 The Upkeep Authors
// SPDX-License-Identifier: Apache-2.0

// Package schema defines the Upkeep data model: tenants, contractors,
// knowledge articles, and work orders, together with the enumerated
// priority, status, and trade vocabularies.
//
// The enumerations are part of the wire contract. Tool arguments and
// stored records must carry exactly these values; anything else is a
// validation error at the boundary, never a silent coercion. The
// types here are pure data — no I/O, no clock, no logging — so every
// other package can depend on schema without dragging in
// infrastructure.
package schema
