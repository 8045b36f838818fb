// Copyright 2026 The Upkeep Authors
// SPDX-License-Identifier: Apache-2.0

package tooldispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/upkeep-works/upkeep/lib/dupdetect"
	"github.com/upkeep-works/upkeep/lib/knowledge"
	"github.com/upkeep-works/upkeep/lib/llm"
	"github.com/upkeep-works/upkeep/lib/schema"
	"github.com/upkeep-works/upkeep/lib/store"
	"github.com/upkeep-works/upkeep/lib/workorder"
)

// Tool names, as offered to the model.
const (
	ToolSearchKnowledge   = "search_knowledge_base"
	ToolListContractors   = "list_contractors"
	ToolCheckDuplicate    = "check_duplicate_issue"
	ToolCreateWorkOrder   = "create_work_order"
	ToolListWorkOrders    = "list_work_orders"
	ToolUpdateWorkOrder   = "update_work_order"
	ToolCompleteWorkOrder = "complete_work_order"
	ToolDeleteWorkOrder   = "delete_work_order"
)

// KnowledgeSearcher is the retriever surface the dispatcher needs.
type KnowledgeSearcher interface {
	Search(query string) []knowledge.Result
}

// DuplicateChecker is the detector surface the dispatcher needs.
type DuplicateChecker interface {
	Check(ctx context.Context, tenantID, description string) (dupdetect.Result, error)
}

// WorkOrders is the state machine surface the dispatcher needs.
type WorkOrders interface {
	Create(params workorder.CreateParams) (schema.WorkOrder, error)
	List(tenantID string, statusFilter schema.Status) ([]schema.WorkOrder, error)
	Update(workOrderID string, patch workorder.Patch) (schema.WorkOrder, error)
	Complete(workOrderID, resolutionNotes string) (schema.WorkOrder, error)
	Delete(workOrderID string) (schema.WorkOrder, error)
}

// Session is the trusted per-turn context. TenantID comes from the
// authenticated request, Attachments from the request payload; the
// model can neither see nor override either.
type Session struct {
	TenantID    string
	Attachments []schema.Attachment
}

// Dispatcher routes tool calls to their handlers.
type Dispatcher struct {
	knowledge  KnowledgeSearcher
	duplicates DuplicateChecker
	orders     WorkOrders
	store      store.Store
	logger     *slog.Logger
}

// NewDispatcher creates a dispatcher over the given components. The
// store is read for the contractor roster only.
func NewDispatcher(searcher KnowledgeSearcher, duplicates DuplicateChecker, orders WorkOrders, recordStore store.Store, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		knowledge:  searcher,
		duplicates: duplicates,
		orders:     orders,
		store:      recordStore,
		logger:     logger,
	}
}

// Definitions returns the full tool menu offered to the model on
// every controller iteration.
func (dispatcher *Dispatcher) Definitions() []llm.ToolDefinition {
	return []llm.ToolDefinition{
		{
			Name:        ToolSearchKnowledge,
			Description: "Search the self-help knowledge base for articles matching the tenant's problem. Use this first for issues the tenant may be able to resolve themselves.",
			InputSchema: searchKnowledgeSchema,
		},
		{
			Name:        ToolListContractors,
			Description: "List available contractors, optionally filtered by trade. Use this to pick a contractor before creating a work order.",
			InputSchema: listContractorsSchema,
		},
		{
			Name:        ToolCheckDuplicate,
			Description: "Check whether a newly reported issue duplicates one of the tenant's open work orders. Always call this before create_work_order.",
			InputSchema: checkDuplicateSchema,
		},
		{
			Name:        ToolCreateWorkOrder,
			Description: "Create a work order dispatching a contractor. Reference the contractor by id from list_contractors. Only create after check_duplicate_issue found no duplicate.",
			InputSchema: createWorkOrderSchema,
		},
		{
			Name:        ToolListWorkOrders,
			Description: "List the tenant's work orders, optionally filtered by status.",
			InputSchema: listWorkOrdersSchema,
		},
		{
			Name:        ToolUpdateWorkOrder,
			Description: "Update a work order's issue summary, priority, or status.",
			InputSchema: updateWorkOrderSchema,
		},
		{
			Name:        ToolCompleteWorkOrder,
			Description: "Mark a work order as solved, with optional resolution notes.",
			InputSchema: completeWorkOrderSchema,
		},
		{
			Name:        ToolDeleteWorkOrder,
			Description: "Delete a work order that was created in error or is no longer needed.",
			InputSchema: deleteWorkOrderSchema,
		},
	}
}

// Dispatch validates and executes one tool call, returning the result
// to feed back into the conversation. Dispatch never fails: every
// failure mode (unknown tool, bad arguments, handler error, handler
// panic) becomes a structured error result the model can react to.
func (dispatcher *Dispatcher) Dispatch(ctx context.Context, call llm.ToolUse, session Session, trace *Trace) (result llm.ToolResult) {
	defer func() {
		if recovered := recover(); recovered != nil {
			dispatcher.logger.Error("tool handler panicked",
				"tool", call.Name, "panic", recovered)
			result = errorResult(call.ID, fmt.Sprintf("internal error in %s", call.Name))
		}
	}()

	payload, err := dispatcher.execute(ctx, call, session, trace)
	if err != nil {
		dispatcher.logger.Warn("tool call failed",
			"tool", call.Name, "tenant_id", session.TenantID, "error", err)
		return errorResult(call.ID, err.Error())
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return errorResult(call.ID, fmt.Sprintf("encoding %s result", call.Name))
	}

	return llm.ToolResult{ToolUseID: call.ID, Content: string(encoded)}
}

// execute parses arguments, injects trusted context, and runs the
// matching handler. The returned payload is the JSON-encodable tool
// result body.
func (dispatcher *Dispatcher) execute(ctx context.Context, call llm.ToolUse, session Session, trace *Trace) (any, error) {
	switch call.Name {
	case ToolSearchKnowledge:
		args, err := parseArgs[searchKnowledgeArgs](call.Input)
		if err != nil {
			return nil, err
		}
		results := dispatcher.knowledge.Search(args.Query)
		trace.append(call.Name, args)
		return searchResultPayload(results), nil

	case ToolListContractors:
		args, err := parseArgs[listContractorsArgs](call.Input)
		if err != nil {
			return nil, err
		}
		contractors, err := dispatcher.listContractors(args.Trade)
		if err != nil {
			return nil, err
		}
		trace.append(call.Name, args)
		return map[string]any{"contractors": contractors, "count": len(contractors)}, nil

	case ToolCheckDuplicate:
		args, err := parseArgs[checkDuplicateArgs](call.Input)
		if err != nil {
			return nil, err
		}
		verdict, err := dispatcher.duplicates.Check(ctx, session.TenantID, args.Description)
		if err != nil {
			return nil, err
		}
		trace.append(call.Name, args)
		return verdict, nil

	case ToolCreateWorkOrder:
		args, err := parseArgs[createWorkOrderArgs](call.Input)
		if err != nil {
			return nil, err
		}
		// Trusted injection: the session tenant and the request's
		// attachments, regardless of anything the model said.
		order, err := dispatcher.orders.Create(workorder.CreateParams{
			TenantID:     session.TenantID,
			IssueSummary: args.IssueSummary,
			Contractor:   args.Contractor,
			Priority:     args.Priority,
			Attachments:  session.Attachments,
		})
		if err != nil {
			return nil, err
		}
		trace.append(call.Name, args)
		return workorder.Summarize(order), nil

	case ToolListWorkOrders:
		args, err := parseArgs[listWorkOrdersArgs](call.Input)
		if err != nil {
			return nil, err
		}
		orders, err := dispatcher.orders.List(session.TenantID, args.Status)
		if err != nil {
			return nil, err
		}
		trace.append(call.Name, args)
		summaries := workorder.SummarizeAll(orders)
		return map[string]any{"work_orders": summaries, "count": len(summaries)}, nil

	case ToolUpdateWorkOrder:
		args, err := parseArgs[updateWorkOrderArgs](call.Input)
		if err != nil {
			return nil, err
		}
		order, err := dispatcher.orders.Update(args.WorkOrderID, workorder.Patch{
			IssueSummary: args.IssueSummary,
			Priority:     args.Priority,
			Status:       args.Status,
		})
		if err != nil {
			return nil, err
		}
		trace.append(call.Name, args)
		return workorder.Summarize(order), nil

	case ToolCompleteWorkOrder:
		args, err := parseArgs[completeWorkOrderArgs](call.Input)
		if err != nil {
			return nil, err
		}
		order, err := dispatcher.orders.Complete(args.WorkOrderID, args.ResolutionNotes)
		if err != nil {
			return nil, err
		}
		trace.append(call.Name, args)
		return workorder.Summarize(order), nil

	case ToolDeleteWorkOrder:
		args, err := parseArgs[deleteWorkOrderArgs](call.Input)
		if err != nil {
			return nil, err
		}
		order, err := dispatcher.orders.Delete(args.WorkOrderID)
		if err != nil {
			return nil, err
		}
		trace.append(call.Name, args)
		return map[string]any{"deleted": workorder.Summarize(order)}, nil

	default:
		return nil, fmt.Errorf("Unknown tool")
	}
}

func (dispatcher *Dispatcher) listContractors(trade schema.Trade) ([]schema.Contractor, error) {
	contractors, err := store.ReadAllAs[schema.Contractor](dispatcher.store, store.KindContractors)
	if err != nil {
		return nil, fmt.Errorf("reading contractors: %w", err)
	}
	if trade == "" {
		return contractors, nil
	}

	var matched []schema.Contractor
	for _, contractor := range contractors {
		if contractor.Trade == trade {
			matched = append(matched, contractor)
		}
	}
	return matched, nil
}

// searchResultPayload shapes retriever hits for the conversation:
// display title, body, and score per hit.
func searchResultPayload(results []knowledge.Result) map[string]any {
	hits := make([]map[string]any, 0, len(results))
	for _, result := range results {
		hits = append(hits, map[string]any{
			"id":    result.Article.ID,
			"title": result.Title,
			"body":  result.Article.Body,
			"score": result.Score,
		})
	}
	return map[string]any{"articles": hits, "count": len(hits)}
}

// errorResult wraps a failure message as the structured error payload
// that re-enters the conversation.
func errorResult(toolUseID, message string) llm.ToolResult {
	encoded, _ := json.Marshal(map[string]string{"error": message})
	return llm.ToolResult{
		ToolUseID: toolUseID,
		Content:   string(encoded),
		IsError:   true,
	}
}
