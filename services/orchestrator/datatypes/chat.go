// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides data structures for the orchestrator service.
//
// This file contains the request and response types for the chat
// endpoint. For the pipeline value types, see pipeline.go.
package datatypes

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// MaxChatMessageBytes is the maximum size of one chat message. Checked
// as byte length, not rune count, to bound memory use.
const MaxChatMessageBytes = 4096

// chatValidate is the validator instance for chat datatypes.
// Initialized in init() with custom validators.
var chatValidate *validator.Validate

func init() {
	chatValidate = validator.New()
	_ = chatValidate.RegisterValidation("maxbytes", validateMaxBytes)
}

// validateMaxBytes enforces MaxChatMessageBytes on a string field.
func validateMaxBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxChatMessageBytes
}

// ChatRequest is the POST /v1/chat request body.
//
// # Fields
//
//   - RequestID: Unique identifier for this request (UUID v4). Filled
//     in by EnsureDefaults when the client omits it.
//   - Timestamp: Unix timestamp in milliseconds (UTC). Filled in by
//     EnsureDefaults when the client omits it.
//   - Message: Required. The user's free-text message, max 4KB.
//   - SessionID: Optional. Continues an existing conversation; when
//     empty the pipeline creates a fresh session.
//
// # Validation
//
// Uses go-playground/validator:
//   - RequestID: must be a valid UUID v4 once defaults are applied
//   - Message: required, max 4096 bytes via the maxbytes validator
//   - SessionID: optional, must be a valid UUID v4 when present
type ChatRequest struct {
	RequestID string `json:"request_id" validate:"required,uuid4"`
	Timestamp int64  `json:"timestamp" validate:"required,gt=0"`
	Message   string `json:"message" validate:"required,maxbytes"`
	SessionID string `json:"session_id,omitempty" validate:"omitempty,uuid4"`
}

// Validate validates the ChatRequest fields. Call after binding and
// EnsureDefaults.
func (r *ChatRequest) Validate() error {
	return chatValidate.Struct(r)
}

// EnsureDefaults populates RequestID and Timestamp when the client
// omitted them.
func (r *ChatRequest) EnsureDefaults() {
	if r.RequestID == "" {
		r.RequestID = uuid.NewString()
	}
	if r.Timestamp == 0 {
		r.Timestamp = time.Now().UnixMilli()
	}
}

// ChatResponse is the POST /v1/chat response body: the pipeline outcome
// plus correlation identifiers.
type ChatResponse struct {
	ResponseID string          `json:"response_id"`
	RequestID  string          `json:"request_id"`
	Timestamp  int64           `json:"timestamp"`
	Outcome    PipelineOutcome `json:"outcome"`
}

// NewChatResponse wraps a pipeline outcome with a fresh response id and
// timestamp.
func NewChatResponse(requestID string, outcome PipelineOutcome) *ChatResponse {
	return &ChatResponse{
		ResponseID: uuid.NewString(),
		RequestID:  requestID,
		Timestamp:  time.Now().UnixMilli(),
		Outcome:    outcome,
	}
}
