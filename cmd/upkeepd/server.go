// Copyright 2026 The Upkeep Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/upkeep-works/upkeep/lib/agent"
	"github.com/upkeep-works/upkeep/lib/attachment"
	"github.com/upkeep-works/upkeep/lib/schema"
)

// maxAttachmentBytes bounds a single photo upload.
const maxAttachmentBytes = 10 << 20

// turnRequest is the wire form of one conversation turn.
type turnRequest struct {
	TenantID    string               `json:"tenant_id"`
	Message     string               `json:"message"`
	History     []agent.HistoryEntry `json:"history,omitempty"`
	Attachments []schema.Attachment  `json:"attachments,omitempty"`
}

// failureResponse is the only error body the turn endpoint produces.
// Internal detail never crosses the wire.
type failureResponse struct {
	Message string `json:"message"`
}

func newRouter(controller *agent.Controller, attachments *attachment.Store, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/turn", handleTurn(controller, logger))
	mux.HandleFunc("POST /v1/attachments", handleAttachmentUpload(attachments, logger))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func handleTurn(controller *agent.Controller, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var request turnRequest
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			writeJSON(w, http.StatusBadRequest, failureResponse{Message: "invalid request body"})
			return
		}
		if request.TenantID == "" || request.Message == "" {
			writeJSON(w, http.StatusBadRequest, failureResponse{Message: "tenant_id and message are required"})
			return
		}

		result, err := controller.RunTurn(r.Context(), agent.TurnRequest{
			TenantID:    request.TenantID,
			Message:     request.Message,
			History:     request.History,
			Attachments: request.Attachments,
		})
		if err != nil {
			logger.Error("turn failed", "tenant_id", request.TenantID, "error", err)
			status := http.StatusInternalServerError
			if errors.Is(err, agent.ErrUnknownTenant) {
				status = http.StatusNotFound
			}
			writeJSON(w, status, failureResponse{Message: agent.GenericFailureMessage})
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

// handleAttachmentUpload stores a raw photo payload and returns the
// attachment record the client should include in its next turn
// request. The payload never reaches the model.
func handleAttachmentUpload(attachments *attachment.Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxAttachmentBytes))
		if err != nil {
			writeJSON(w, http.StatusRequestEntityTooLarge, failureResponse{
				Message: fmt.Sprintf("attachment exceeds %d bytes", maxAttachmentBytes),
			})
			return
		}
		if len(body) == 0 {
			writeJSON(w, http.StatusBadRequest, failureResponse{Message: "empty attachment payload"})
			return
		}

		record, err := attachments.Put(body, r.Header.Get("X-Upkeep-Filename"), r.Header.Get("Content-Type"))
		if err != nil {
			logger.Error("attachment store write failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, failureResponse{Message: "attachment storage failed"})
			return
		}

		writeJSON(w, http.StatusCreated, record)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Encode errors after WriteHeader only mean a dropped
	// connection; there is nothing left to report to the client.
	_ = json.NewEncoder(w).Encode(body)
}
