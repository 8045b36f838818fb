// Copyright 2026 The Upkeep Authors
// SPDX-License-Identifier: Apache-2.0

// Package workorder owns the work order lifecycle: creation, partial
// update, completion, and deletion, plus the status rules that tie
// resolution timestamps to terminal statuses.
//
// Every mutation is a read-modify-write over the full work order
// collection, serialized by the record store's Update lock so
// concurrent requests cannot lose each other's writes. Records read
// back from storage pass through a normalization step that tolerates
// legacy field spellings (tenantId vs tenant_id); business logic only
// ever sees the canonical shape.
package workorder
