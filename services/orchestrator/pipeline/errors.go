// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/AleutianAI/PantryPilot/services/llm"
)

// =============================================================================
// Error taxonomy
// =============================================================================

// Validation reason codes carried by ValidationError.Code.
const (
	CodeEmptyBatch        = "empty_batch"
	CodeBatchTooLarge     = "batch_too_large"
	CodeUnknownKind       = "unknown_kind"
	CodeMissingQuery      = "missing_query"
	CodeQueryTooLong      = "query_too_long"
	CodeFilterParamAbsent = "filter_param_missing"
	CodeFilterParamBoth   = "filter_param_conflict"
	CodeUnknownFilter     = "unknown_filter_value"
	CodeFilterTooLong     = "filter_value_too_long"
	CodeInvalidLookupID   = "invalid_lookup_id"
)

// ValidationError reports one rejected operation batch. Code is
// machine-readable; Detail is for logs only.
type ValidationError struct {
	Code   string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("operation batch rejected (%s): %s", e.Code, e.Detail)
}

// IsValidationError reports whether err is (or wraps) a *ValidationError.
func IsValidationError(err error) bool {
	var valErr *ValidationError
	return errors.As(err, &valErr)
}

// panicError wraps a recovered panic so it can flow through the same
// categorization as ordinary errors.
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("pipeline panic: %v", e.value)
}

// FailureCategory classifies an error that escaped a pipeline phase.
// Categorization is structural (errors.As / errors.Is), never based on
// message text.
type FailureCategory int

const (
	CategoryGeneric FailureCategory = iota
	CategoryValidation
	CategoryTimeout
	CategoryUnavailable
)

func (c FailureCategory) String() string {
	switch c {
	case CategoryValidation:
		return "validation"
	case CategoryTimeout:
		return "timeout"
	case CategoryUnavailable:
		return "unavailable"
	default:
		return "generic"
	}
}

// Categorize maps an escaped error onto a FailureCategory.
func Categorize(err error) FailureCategory {
	if err == nil {
		return CategoryGeneric
	}
	if IsValidationError(err) {
		return CategoryValidation
	}
	if errors.Is(err, context.DeadlineExceeded) || llm.IsGenerationTimeout(err) {
		return CategoryTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return CategoryTimeout
		}
		return CategoryUnavailable
	}
	if llm.IsGenerationError(err) {
		return CategoryUnavailable
	}
	return CategoryGeneric
}

// apologyFor maps a failure category to the user-facing reply. The
// caller never sees raw error text.
func apologyFor(category FailureCategory) string {
	switch category {
	case CategoryValidation:
		return "I'm sorry, I couldn't work out a sensible way to look that up. Could you rephrase your request?"
	case CategoryTimeout:
		return "I'm sorry, that took longer than expected. Please try again in a moment."
	case CategoryUnavailable:
		return "I'm sorry, I'm having trouble reaching my recipe sources right now. Please try again shortly."
	default:
		return "I'm sorry, something went wrong while handling your request. Please try again."
	}
}
