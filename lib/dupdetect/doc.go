// Copyright 2026 The Upkeep Authors
// SPDX-License-Identifier: Apache-2.0

// Package dupdetect decides whether a newly reported issue duplicates
// one of the tenant's active work orders. Lexical matching is not
// enough (tenants rephrase the same problem), so the comparison is a
// single-shot structured judgment by the reasoning model.
//
// Duplicate detection is a best-effort safety net, never a gate: a
// failed or nonsensical judgment fails open to "no duplicate" with
// the active set surfaced for the caller to review and the Error
// field populated so the degradation is visible.
package dupdetect
