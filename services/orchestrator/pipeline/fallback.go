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
	"strings"

	"github.com/AleutianAI/PantryPilot/services/orchestrator/datatypes"
)

// =============================================================================
// Deterministic fallbacks
// =============================================================================

// NoResultsReply is returned when synthesis fails over an empty result
// set.
const NoResultsReply = "I'm sorry, I couldn't find any recipes matching your request. Try a different ingredient, cuisine, or dish name."

// FallbackLookups deterministically selects the first max records, in
// their stable retrieval order, as lookup operations. Records without a
// usable id are skipped. Used when the refinement generation step fails
// or produces unusable output.
func FallbackLookups(summaries []datatypes.Recipe, max int) []datatypes.Operation {
	ops := make([]datatypes.Operation, 0, max)
	for _, r := range summaries {
		if len(ops) == max {
			break
		}
		if !isNumericID(r.ID) {
			continue
		}
		ops = append(ops, datatypes.Operation{
			Kind:   datatypes.OpLookup,
			Params: map[string]string{datatypes.ParamID: r.ID},
		})
	}
	return ops
}

// FallbackSummary renders a templated reply from at most max records.
// With an empty set it returns NoResultsReply. Used when the synthesis
// generation step fails; the output depends only on the input order.
func FallbackSummary(found []datatypes.Recipe, max int) string {
	if len(found) == 0 {
		return NoResultsReply
	}
	if len(found) > max {
		found = found[:max]
	}
	var b strings.Builder
	b.WriteString("Here's what I found:\n")
	for _, r := range found {
		fmt.Fprintf(&b, "- %s", r.Name)
		var tags []string
		if r.Category != "" {
			tags = append(tags, r.Category)
		}
		if r.Area != "" {
			tags = append(tags, r.Area)
		}
		if len(tags) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(tags, ", "))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
