// Copyright 2026 The Upkeep Authors
// SPDX-License-Identifier: Apache-2.0

package tooldispatch

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/upkeep-works/upkeep/lib/schema"
)

// Typed argument structs, one per tool. The raw model payload is
// parsed into these at the dispatch boundary so handlers only ever
// see validated, strongly-typed input. tenant_id fields are absent on
// purpose: tenant identity comes from the session, never the model.

type searchKnowledgeArgs struct {
	Query string `json:"query"`
}

func (args searchKnowledgeArgs) validate() error {
	if strings.TrimSpace(args.Query) == "" {
		return fmt.Errorf("query is required")
	}
	return nil
}

type listContractorsArgs struct {
	Trade schema.Trade `json:"trade"`
}

func (args listContractorsArgs) validate() error {
	if args.Trade != "" && !args.Trade.Valid() {
		return fmt.Errorf("invalid trade %q, valid values: %s", args.Trade, tradeList())
	}
	return nil
}

type checkDuplicateArgs struct {
	Description string `json:"description"`
}

func (args checkDuplicateArgs) validate() error {
	if strings.TrimSpace(args.Description) == "" {
		return fmt.Errorf("description is required")
	}
	return nil
}

type createWorkOrderArgs struct {
	IssueSummary string          `json:"issue_summary"`
	Contractor   string          `json:"contractor"`
	Priority     schema.Priority `json:"priority"`
}

func (args createWorkOrderArgs) validate() error {
	if strings.TrimSpace(args.IssueSummary) == "" {
		return fmt.Errorf("issue_summary is required")
	}
	if strings.TrimSpace(args.Contractor) == "" {
		return fmt.Errorf("contractor is required")
	}
	if !args.Priority.Valid() {
		return fmt.Errorf("invalid priority %q, valid values: %s", args.Priority, priorityList())
	}
	return nil
}

type listWorkOrdersArgs struct {
	Status schema.Status `json:"status"`
}

func (args listWorkOrdersArgs) validate() error {
	if args.Status != "" && !args.Status.Valid() {
		return fmt.Errorf("invalid status %q, valid values: %s", args.Status, statusList())
	}
	return nil
}

type updateWorkOrderArgs struct {
	WorkOrderID  string           `json:"work_order_id"`
	IssueSummary *string          `json:"issue_summary"`
	Priority     *schema.Priority `json:"priority"`
	Status       *schema.Status   `json:"status"`
}

func (args updateWorkOrderArgs) validate() error {
	if args.WorkOrderID == "" {
		return fmt.Errorf("work_order_id is required")
	}
	if args.IssueSummary == nil && args.Priority == nil && args.Status == nil {
		return fmt.Errorf("at least one of issue_summary, priority, status is required")
	}
	if args.Priority != nil && !args.Priority.Valid() {
		return fmt.Errorf("invalid priority %q, valid values: %s", *args.Priority, priorityList())
	}
	if args.Status != nil && !args.Status.Valid() {
		return fmt.Errorf("invalid status %q, valid values: %s", *args.Status, statusList())
	}
	return nil
}

type completeWorkOrderArgs struct {
	WorkOrderID     string `json:"work_order_id"`
	ResolutionNotes string `json:"resolution_notes"`
}

func (args completeWorkOrderArgs) validate() error {
	if args.WorkOrderID == "" {
		return fmt.Errorf("work_order_id is required")
	}
	return nil
}

type deleteWorkOrderArgs struct {
	WorkOrderID string `json:"work_order_id"`
}

func (args deleteWorkOrderArgs) validate() error {
	if args.WorkOrderID == "" {
		return fmt.Errorf("work_order_id is required")
	}
	return nil
}

// parseArgs decodes a raw payload into a typed argument struct and
// runs its validation. Trusted session fields the model has no
// business supplying are stripped first (they are injected from the
// session, overriding whatever the model said); after that, unknown
// fields are rejected so a misnamed argument surfaces as a validation
// error instead of being silently dropped.
func parseArgs[T interface{ validate() error }](raw json.RawMessage) (T, error) {
	var args T
	stripped, err := stripTrustedFields(raw)
	if err != nil {
		return args, err
	}

	decoder := json.NewDecoder(strings.NewReader(string(stripped)))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&args); err != nil {
		return args, fmt.Errorf("invalid arguments: %v", err)
	}
	if err := args.validate(); err != nil {
		return args, err
	}
	return args, nil
}

// stripTrustedFields removes session-owned keys from a raw payload.
func stripTrustedFields(raw json.RawMessage) (json.RawMessage, error) {
	if len(raw) == 0 {
		return json.RawMessage("{}"), nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("invalid arguments: expected a JSON object")
	}
	for _, key := range []string{"tenant_id", "tenantId", "attachments"} {
		delete(fields, key)
	}

	stripped, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("invalid arguments: %v", err)
	}
	return stripped, nil
}

func tradeList() string {
	return enumList(schema.Trades())
}

func priorityList() string {
	return enumList(schema.Priorities())
}

func statusList() string {
	return enumList(schema.Statuses())
}

func enumList[T ~string](values []T) string {
	names := make([]string, 0, len(values))
	for _, value := range values {
		names = append(names, string(value))
	}
	return strings.Join(names, ", ")
}
