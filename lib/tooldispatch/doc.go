// Copyright 2026 The Upkeep Authors
// SPDX-License-Identifier: Apache-2.0

// Package tooldispatch validates and routes tool calls from the
// reasoning model to their handlers.
//
// Every tool declares a JSON Schema for its arguments and a typed
// argument struct the raw payload is parsed into before its handler
// runs. The dispatcher injects trusted session context on top of the
// parsed arguments: the authenticated tenant id always overrides
// whatever the model supplied, and work order creation receives the
// request's attachment payload, which the model never sees.
//
// Handlers cannot break the conversation: panics and errors are
// caught at the dispatch boundary and converted into structured
// error results ({"error": ...}) that re-enter the conversation as
// tool results. An unknown tool name yields {"error": "Unknown tool"}.
package tooldispatch
