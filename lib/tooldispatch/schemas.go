// Copyright 2026 The Upkeep Authors
// SPDX-License-Identifier: Apache-2.0

package tooldispatch

import "encoding/json"

// Tool argument schemas, offered to the model verbatim. Enumerated
// values are spelled out inline so the model never has to guess at
// the wire contract.

var searchKnowledgeSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"query": {
			"type": "string",
			"description": "Free-text search terms describing the problem"
		}
	},
	"required": ["query"]
}`)

var listContractorsSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"trade": {
			"type": "string",
			"enum": ["plumbing", "electrical", "gas", "general", "locksmith"],
			"description": "Restrict results to one trade; omit for all contractors"
		}
	}
}`)

var checkDuplicateSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"description": {
			"type": "string",
			"description": "The newly reported issue, in the tenant's words"
		}
	},
	"required": ["description"]
}`)

var createWorkOrderSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"issue_summary": {
			"type": "string",
			"description": "Concise description of the problem to fix"
		},
		"contractor": {
			"type": "string",
			"description": "Contractor id (preferred) or name from list_contractors"
		},
		"priority": {
			"type": "string",
			"enum": ["Low", "Medium", "High", "Emergency"]
		}
	},
	"required": ["issue_summary", "contractor", "priority"]
}`)

var listWorkOrdersSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"status": {
			"type": "string",
			"enum": ["assigned", "pending", "in_progress", "completed", "solved"],
			"description": "Restrict results to one status; omit for all"
		}
	}
}`)

var updateWorkOrderSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"work_order_id": {"type": "string"},
		"issue_summary": {"type": "string"},
		"priority": {
			"type": "string",
			"enum": ["Low", "Medium", "High", "Emergency"]
		},
		"status": {
			"type": "string",
			"enum": ["assigned", "pending", "in_progress", "completed", "solved"]
		}
	},
	"required": ["work_order_id"]
}`)

var completeWorkOrderSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"work_order_id": {"type": "string"},
		"resolution_notes": {
			"type": "string",
			"description": "How the issue was resolved"
		}
	},
	"required": ["work_order_id"]
}`)

var deleteWorkOrderSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"work_order_id": {"type": "string"}
	},
	"required": ["work_order_id"]
}`)
