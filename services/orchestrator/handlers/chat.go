// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/PantryPilot/pkg/validation"
	"github.com/AleutianAI/PantryPilot/services/orchestrator/datatypes"
)

// ChatService is the pipeline surface the chat handler needs. Satisfied
// by *pipeline.Orchestrator.
type ChatService interface {
	Process(ctx context.Context, message, sessionID string) datatypes.PipelineOutcome
}

// HandleChat serves POST /v1/chat. Binds and screens the request, runs
// the pipeline, and returns the outcome. The pipeline itself never
// errors; every non-200 here is a request problem.
func HandleChat(svc ChatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			slog.Warn("Rejected malformed chat request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		req.EnsureDefaults()
		if err := req.Validate(); err != nil {
			slog.Warn("Rejected invalid chat request", "request_id", req.RequestID, "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "request validation failed"})
			return
		}
		if err := validation.ValidateMessage(req.Message); err != nil {
			slog.Warn("Rejected unsafe chat message", "request_id", req.RequestID, "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		outcome := svc.Process(c.Request.Context(), req.Message, req.SessionID)
		c.JSON(http.StatusOK, datatypes.NewChatResponse(req.RequestID, outcome))
	}
}
