package pipeline

import (
	"testing"

	"github.com/AleutianAI/PantryPilot/services/orchestrator/datatypes"
)

func TestParseInterpretation(t *testing.T) {
	t.Run("operations envelope", func(t *testing.T) {
		raw := `{"operations":[{"kind":"search","params":{"query":"chicken"}}]}`
		interp := ParseInterpretation(raw)
		if interp.IsDirect() {
			t.Fatal("expected operations, got direct response")
		}
		if len(interp.Operations) != 1 || interp.Operations[0].Kind != datatypes.OpSearch {
			t.Errorf("unexpected operations: %+v", interp.Operations)
		}
	})

	t.Run("fenced operations envelope", func(t *testing.T) {
		raw := "```json\n{\"operations\":[{\"kind\":\"lookup\",\"params\":{\"id\":\"1\"}}]}\n```"
		interp := ParseInterpretation(raw)
		if interp.IsDirect() {
			t.Fatal("expected operations despite code fence")
		}
	})

	t.Run("plain text becomes direct response", func(t *testing.T) {
		interp := ParseInterpretation("Hello! I can help you find recipes.")
		if !interp.IsDirect() {
			t.Fatal("expected direct response")
		}
		if interp.Direct != "Hello! I can help you find recipes." {
			t.Errorf("direct text altered: %q", interp.Direct)
		}
	})

	t.Run("empty operations list becomes direct response", func(t *testing.T) {
		interp := ParseInterpretation(`{"operations":[]}`)
		if !interp.IsDirect() {
			t.Fatal("expected direct response for empty batch")
		}
	})

	t.Run("malformed json becomes direct response", func(t *testing.T) {
		interp := ParseInterpretation(`{"operations":[{"kind":`)
		if !interp.IsDirect() {
			t.Fatal("expected direct response for malformed JSON")
		}
	})
}

func TestParseLookupSelection(t *testing.T) {
	t.Run("clean lookup batch", func(t *testing.T) {
		ops, ok := ParseLookupSelection(`{"operations":[{"kind":"lookup","params":{"id":"7"}}]}`)
		if !ok || len(ops) != 1 {
			t.Fatalf("expected one lookup, got ok=%v ops=%+v", ok, ops)
		}
	})

	t.Run("non-lookup kind is unusable", func(t *testing.T) {
		if _, ok := ParseLookupSelection(`{"operations":[{"kind":"search","params":{"query":"x"}}]}`); ok {
			t.Fatal("expected not ok for a search op")
		}
	})

	t.Run("prose is unusable", func(t *testing.T) {
		if _, ok := ParseLookupSelection("I would pick recipes 1 and 2."); ok {
			t.Fatal("expected not ok for prose")
		}
	})

	t.Run("empty batch is unusable", func(t *testing.T) {
		if _, ok := ParseLookupSelection(`{"operations":[]}`); ok {
			t.Fatal("expected not ok for empty batch")
		}
	})
}
