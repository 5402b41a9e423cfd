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
// This file contains the value types that flow through the recipe pipeline:
// operations produced by the interpretation step, their execution results,
// conversation messages, and the final pipeline outcome returned to callers.
package datatypes

import "time"

// =============================================================================
// Operations
// =============================================================================

// OperationKind identifies one kind of recipe data-source call.
type OperationKind string

const (
	// OpSearch is a free-text recipe search (search.php?s=).
	OpSearch OperationKind = "search"

	// OpFilter is a summary-level filter by exactly one attribute
	// (filter.php?i= for an ingredient, filter.php?a= for an area).
	OpFilter OperationKind = "filter"

	// OpLookup fetches the full detail record for one recipe id
	// (lookup.php?i=).
	OpLookup OperationKind = "lookup"
)

// Operation parameter names recognized by the validator and the recipes
// client. The interpretation prompt instructs the model to emit these keys.
const (
	ParamQuery      = "query"
	ParamIngredient = "ingredient"
	ParamArea       = "area"
	ParamID         = "id"
)

// Operation is a single structured request against the recipe data source.
//
// # Description
//
// Operations are produced by a generation step (interpretation or
// refinement), checked by the pipeline validator, and executed by the
// batch executor. They are transient: scoped to one pipeline invocation.
//
// # Fields
//
//   - Kind: One of OpSearch, OpFilter, OpLookup.
//   - Params: Parameter name to string value. Which keys are required
//     depends on Kind (see pipeline.ValidateOperations).
type Operation struct {
	Kind   OperationKind     `json:"kind"`
	Params map[string]string `json:"params"`
}

// Param returns the named parameter value, or "" if absent.
func (o Operation) Param(name string) string {
	if o.Params == nil {
		return ""
	}
	return o.Params[name]
}

// =============================================================================
// Recipes
// =============================================================================

// Recipe is one record returned by the recipe data source.
//
// Filter-style results carry only the summary fields (ID, Name, Thumbnail).
// Lookup- and search-style results additionally carry the detail fields,
// most importantly Instructions. The pipeline uses the presence of
// Instructions to distinguish the two shapes.
type Recipe struct {
	ID           string `json:"idMeal"`
	Name         string `json:"strMeal"`
	Category     string `json:"strCategory,omitempty"`
	Area         string `json:"strArea,omitempty"`
	Instructions string `json:"strInstructions,omitempty"`
	Thumbnail    string `json:"strMealThumb,omitempty"`
	Tags         string `json:"strTags,omitempty"`
	YoutubeURL   string `json:"strYoutube,omitempty"`
}

// HasDetail reports whether this record carries the full detail fields,
// i.e. it came from a lookup or search rather than a summary filter.
func (r Recipe) HasDetail() bool {
	return r.Instructions != ""
}

// =============================================================================
// Operation results
// =============================================================================

// OperationResult is the outcome of executing exactly one Operation.
//
// The batch executor guarantees one OperationResult per input Operation,
// in the original order. A failed call is captured here rather than
// aborting the batch: Failed is true and FailureReason carries the cause.
type OperationResult struct {
	Operation     Operation `json:"operation"`
	Recipes       []Recipe  `json:"recipes,omitempty"`
	Failed        bool      `json:"failed,omitempty"`
	FailureReason string    `json:"failure_reason,omitempty"`
}

// =============================================================================
// Conversation messages
// =============================================================================

// Message roles stored in session history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one conversational turn half. Immutable once created.
type Message struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// NewMessage creates a Message stamped with the current time.
func NewMessage(role, content string) Message {
	return Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
	}
}

// =============================================================================
// Pipeline outcome
// =============================================================================

// Phase names recorded in PipelineOutcome.Phases, in execution order.
const (
	PhaseIntent         = "intent"
	PhaseDirectResponse = "direct_response"
	PhaseRetrieval      = "retrieval"
	PhaseRefinement     = "refinement"
	PhaseSynthesis      = "synthesis"
)

// PipelineOutcome is the complete result of one pipeline invocation.
//
// # Description
//
// Returned by Orchestrator.Process for every call, including failure
// paths: the pipeline never surfaces a raw error to its caller. Degraded
// marks a response produced by a deterministic fallback; Error marks a
// hard failure converted into an apologetic reply.
//
// # Fields
//
//   - Reply: Final natural-language response text. Never empty.
//   - SessionID: The session this invocation ran under (generated when
//     the caller supplied none).
//   - ElapsedMs: Wall time for the whole invocation.
//   - APICallsMade: Number of recipe data-source calls attempted,
//     including ones that failed.
//   - Phases: Names of the pipeline phases that actually executed,
//     in order.
//   - RecipesFound: Number of records in the final working result set.
//   - Degraded: True when a fallback substituted for a generation step.
//   - Error: True when the invocation hit a hard failure and the reply
//     is an apology rather than an answer.
type PipelineOutcome struct {
	Reply        string   `json:"reply"`
	SessionID    string   `json:"session_id"`
	ElapsedMs    int64    `json:"elapsed_ms"`
	APICallsMade int      `json:"api_calls_made"`
	Phases       []string `json:"phases"`
	RecipesFound int      `json:"recipes_found"`
	Degraded     bool     `json:"degraded,omitempty"`
	Error        bool     `json:"error,omitempty"`
}
