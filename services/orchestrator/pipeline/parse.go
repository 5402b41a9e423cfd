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
	"encoding/json"
	"strings"

	"github.com/AleutianAI/PantryPilot/services/orchestrator/datatypes"
)

// Interpretation is the two-armed outcome of the intent step: either a
// structured operation batch or a direct conversational answer. Exactly
// one arm is populated.
type Interpretation struct {
	Operations []datatypes.Operation
	Direct     string
}

// IsDirect reports whether the interpretation is a direct answer.
func (i Interpretation) IsDirect() bool {
	return len(i.Operations) == 0
}

type operationsEnvelope struct {
	Operations []datatypes.Operation `json:"operations"`
}

// ParseInterpretation applies the two-step parse to raw intent output:
// first a strict JSON decode of the operations envelope; anything that
// does not decode into a non-empty batch is the model answering in
// plain language, returned verbatim as the direct arm.
func ParseInterpretation(raw string) Interpretation {
	cleaned := stripCodeFence(raw)
	var envelope operationsEnvelope
	if err := json.Unmarshal([]byte(cleaned), &envelope); err == nil && len(envelope.Operations) > 0 {
		return Interpretation{Operations: envelope.Operations}
	}
	return Interpretation{Direct: strings.TrimSpace(raw)}
}

// ParseLookupSelection parses refinement output into lookup operations.
// Unlike the intent parse there is no direct arm: output that is not a
// non-empty all-lookup batch is unusable and reported as not ok, which
// sends the caller to the deterministic fallback.
func ParseLookupSelection(raw string) ([]datatypes.Operation, bool) {
	cleaned := stripCodeFence(raw)
	var envelope operationsEnvelope
	if err := json.Unmarshal([]byte(cleaned), &envelope); err != nil || len(envelope.Operations) == 0 {
		return nil, false
	}
	for _, op := range envelope.Operations {
		if op.Kind != datatypes.OpLookup {
			return nil, false
		}
	}
	return envelope.Operations, true
}

// stripCodeFence removes a surrounding markdown code fence, which local
// models routinely wrap JSON in despite instructions.
func stripCodeFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
