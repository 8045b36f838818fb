// Copyright 2026 The Upkeep Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for Upkeep packages.
package testutil
