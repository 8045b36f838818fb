// Copyright 2026 The Upkeep Authors
// SPDX-License-Identifier: Apache-2.0

// Package llm provides a common client interface over LLM chat APIs
// with tool calling. Two backends are included: the Anthropic
// Messages API and the OpenAI Chat Completions format (which also
// covers Azure OpenAI, OpenRouter, vLLM, Ollama, and other
// compatible servers).
//
// The package defines provider-neutral request/response types
// (messages, content blocks, tool definitions) and translates them
// to each vendor's wire format. Streaming responses are consumed
// through [EventStream], which yields events as they arrive while
// accumulating the complete [Response].
//
// The conversation controller (lib/agent) drives its turn loop
// through [Provider]; the duplicate detector (lib/dupdetect) uses a
// single-shot [Provider.Complete] call for its structured verdict.
package llm
