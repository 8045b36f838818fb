// Copyright 2026 The Upkeep Authors
// SPDX-License-Identifier: Apache-2.0

// Package store provides the record store backing Upkeep's reference
// data and work orders. The model is deliberately primitive: one
// global collection per kind, read whole and replaced whole. There
// are no row-level updates, no transactions, and no cross-kind
// consistency.
//
// The original design this replaces allowed two concurrent
// read-modify-write cycles to interleave and silently lose the first
// writer's update. Here the race is closed rather than reproduced:
// [Store.Update] holds the kind's lock across the caller's entire
// read-modify-write, and the file backend replaces collections by
// writing a temp file and renaming it into place, so readers never
// observe a partial write.
//
// Seed files may be JSONC (// comments, trailing commas); comments
// are stripped on read and never written back.
package store
