package pipeline

import (
	"reflect"
	"strings"
	"testing"

	"github.com/AleutianAI/PantryPilot/services/orchestrator/datatypes"
)

func TestFallbackLookups(t *testing.T) {
	summaries := []datatypes.Recipe{
		{ID: "10", Name: "a"},
		{ID: "not-numeric", Name: "b"},
		{ID: "20", Name: "c"},
		{ID: "30", Name: "d"},
		{ID: "40", Name: "e"},
	}

	first := FallbackLookups(summaries, 3)
	second := FallbackLookups(summaries, 3)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("fallback selection is not deterministic")
	}

	wantIDs := []string{"10", "20", "30"}
	if len(first) != len(wantIDs) {
		t.Fatalf("got %d lookups, want %d", len(first), len(wantIDs))
	}
	for i, op := range first {
		if op.Kind != datatypes.OpLookup {
			t.Errorf("op %d kind = %q, want lookup", i, op.Kind)
		}
		if op.Param(datatypes.ParamID) != wantIDs[i] {
			t.Errorf("op %d id = %q, want %q", i, op.Param(datatypes.ParamID), wantIDs[i])
		}
	}
}

func TestFallbackLookupsShortInput(t *testing.T) {
	ops := FallbackLookups([]datatypes.Recipe{{ID: "5"}}, 3)
	if len(ops) != 1 {
		t.Fatalf("got %d lookups, want 1", len(ops))
	}
}

func TestFallbackSummary(t *testing.T) {
	found := []datatypes.Recipe{
		{Name: "Chicken Curry", Category: "Chicken", Area: "Indian"},
		{Name: "Plain Toast"},
		{Name: "Ratatouille", Area: "French"},
		{Name: "Fourth Recipe"},
	}

	text := FallbackSummary(found, 3)
	if text != FallbackSummary(found, 3) {
		t.Fatal("fallback summary is not deterministic")
	}
	if !strings.Contains(text, "Chicken Curry (Chicken, Indian)") {
		t.Errorf("summary missing annotated first recipe: %q", text)
	}
	if !strings.Contains(text, "Plain Toast") {
		t.Errorf("summary missing bare-name recipe: %q", text)
	}
	if strings.Contains(text, "Fourth Recipe") {
		t.Errorf("summary exceeded the record cap: %q", text)
	}
}

func TestFallbackSummaryEmpty(t *testing.T) {
	if got := FallbackSummary(nil, 3); got != NoResultsReply {
		t.Errorf("empty summary = %q, want NoResultsReply", got)
	}
}
