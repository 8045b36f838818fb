// Copyright 2026 The Upkeep Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time for testability. Production code
// injects Real(); tests inject a Fake with deterministic control
// over the current time.
//
// Work-order timestamps (created_at, updated_at, resolved_at) and
// the conversation controller's turn bookkeeping all read time
// through a Clock, so tests can assert exact timestamps without
// sleeping or tolerating wall-clock skew.
package clock
