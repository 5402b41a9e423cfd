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
	"fmt"
	"unicode/utf8"

	"github.com/AleutianAI/PantryPilot/services/orchestrator/datatypes"
	"github.com/AleutianAI/PantryPilot/services/recipes"
)

// MaxSearchQueryLen bounds the free-text search parameter, counted in
// characters so multi-byte input is not over-rejected.
const MaxSearchQueryLen = 100

// ValidateOperations screens a model-produced operation batch before
// any data-source call is made. The first violation found is returned
// as a *ValidationError; a valid batch returns nil.
//
// Rules:
//   - batch is non-empty and at most maxOps operations;
//   - every Kind is one of search, filter, lookup;
//   - search carries a non-empty query of at most MaxSearchQueryLen;
//   - filter carries exactly one of the ingredient/area params, and the
//     value matches the closed vocabulary (case-insensitive) and length
//     bound in services/recipes;
//   - lookup carries a purely numeric id.
func ValidateOperations(ops []datatypes.Operation, maxOps int) error {
	if len(ops) == 0 {
		return &ValidationError{Code: CodeEmptyBatch, Detail: "batch contains no operations"}
	}
	if len(ops) > maxOps {
		return &ValidationError{
			Code:   CodeBatchTooLarge,
			Detail: fmt.Sprintf("batch has %d operations, limit is %d", len(ops), maxOps),
		}
	}
	for i, op := range ops {
		if err := validateOperation(op); err != nil {
			if valErr, ok := err.(*ValidationError); ok {
				valErr.Detail = fmt.Sprintf("operation %d: %s", i, valErr.Detail)
			}
			return err
		}
	}
	return nil
}

func validateOperation(op datatypes.Operation) error {
	switch op.Kind {
	case datatypes.OpSearch:
		return validateSearch(op)
	case datatypes.OpFilter:
		return validateFilter(op)
	case datatypes.OpLookup:
		return validateLookup(op)
	default:
		return &ValidationError{
			Code:   CodeUnknownKind,
			Detail: fmt.Sprintf("unknown operation kind %q", op.Kind),
		}
	}
}

func validateSearch(op datatypes.Operation) error {
	query := op.Param(datatypes.ParamQuery)
	if query == "" {
		return &ValidationError{Code: CodeMissingQuery, Detail: "search requires a query param"}
	}
	if n := utf8.RuneCountInString(query); n > MaxSearchQueryLen {
		return &ValidationError{
			Code:   CodeQueryTooLong,
			Detail: fmt.Sprintf("query is %d chars, limit is %d", n, MaxSearchQueryLen),
		}
	}
	return nil
}

func validateFilter(op datatypes.Operation) error {
	ingredient := op.Param(datatypes.ParamIngredient)
	area := op.Param(datatypes.ParamArea)
	if ingredient != "" && area != "" {
		return &ValidationError{
			Code:   CodeFilterParamBoth,
			Detail: "filter carries both ingredient and area, exactly one is allowed",
		}
	}
	if ingredient == "" && area == "" {
		return &ValidationError{
			Code:   CodeFilterParamAbsent,
			Detail: "filter requires either an ingredient or an area param",
		}
	}
	value := ingredient
	known := recipes.IsKnownIngredient
	if area != "" {
		value = area
		known = recipes.IsKnownArea
	}
	if n := utf8.RuneCountInString(value); n > recipes.MaxFilterValueLen {
		return &ValidationError{
			Code:   CodeFilterTooLong,
			Detail: fmt.Sprintf("filter value is %d chars, limit is %d", n, recipes.MaxFilterValueLen),
		}
	}
	if !known(value) {
		return &ValidationError{
			Code:   CodeUnknownFilter,
			Detail: fmt.Sprintf("filter value %q is not in the accepted vocabulary", value),
		}
	}
	return nil
}

func validateLookup(op datatypes.Operation) error {
	id := op.Param(datatypes.ParamID)
	if !isNumericID(id) {
		return &ValidationError{
			Code:   CodeInvalidLookupID,
			Detail: fmt.Sprintf("lookup id %q is not purely numeric", id),
		}
	}
	return nil
}

func isNumericID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
