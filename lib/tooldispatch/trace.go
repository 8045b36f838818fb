// Copyright 2026 The Upkeep Authors
// SPDX-License-Identifier: Apache-2.0

package tooldispatch

import "encoding/json"

// TraceEntry records one successful dispatch: the tool name and the
// normalized arguments as the handler actually received them (trusted
// fields injected, raw model payload discarded).
type TraceEntry struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Trace is the append-only audit record of one conversation turn's
// dispatches. Failed dispatches (unknown tool, validation errors,
// handler errors) are not recorded; the trace answers "what actually
// ran", not "what was attempted". A Trace is in-memory only and lives
// for one turn.
type Trace struct {
	entries []TraceEntry
}

func (trace *Trace) append(name string, arguments any) {
	encoded, err := json.Marshal(arguments)
	if err != nil {
		// Arguments are plain structs that always marshal; a failure
		// here would be a programming error, but the trace is audit
		// data and must never break a dispatch.
		encoded = json.RawMessage(`{}`)
	}
	trace.entries = append(trace.entries, TraceEntry{Name: name, Arguments: encoded})
}

// Entries returns the recorded dispatches in execution order.
func (trace *Trace) Entries() []TraceEntry {
	return trace.entries
}
