// Copyright 2026 The Upkeep Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Upkeep's standard CBOR encoding: Core
// Deterministic Encoding (RFC 8949 §4.2) on the wire, forgiving
// decoding on the way in. Deterministic bytes matter for session
// checkpoints — the same conversation state always produces the
// same checkpoint file, so checkpoint diffing and deduplication
// work byte-for-byte.
//
// Consumers import only this package, never fxamacker/cbor directly.
package codec
