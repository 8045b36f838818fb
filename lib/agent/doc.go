// Copyright 2026 The Upkeep Authors
// SPDX-License-Identifier: Apache-2.0

// Package agent drives one conversation turn: it binds the tenant's
// identity into the system prompt, offers the reasoning model the
// full tool menu, executes any requested tool calls strictly in
// order, folds the results back into the conversation, and repeats
// until the model answers in plain text or the iteration cap trips.
//
// The loop is an explicit two-state machine (awaiting the model's
// decision, executing its tool batch). The model is treated as a
// function from conversation to decision, so tests drive the whole
// controller with a scripted provider and no live model.
//
// A turn either succeeds with a final message plus the ordered
// tool-call and tool-result traces, or fails as a unit: hitting the
// iteration cap abandons the turn with a generic failure and no
// partial state reaches the tenant.
package agent
