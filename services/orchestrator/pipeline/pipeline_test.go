package pipeline

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/AleutianAI/PantryPilot/services/llm"
	"github.com/AleutianAI/PantryPilot/services/orchestrator/datatypes"
	"github.com/AleutianAI/PantryPilot/services/orchestrator/session"
	"github.com/AleutianAI/PantryPilot/services/recipes"
)

// scriptedGen replays canned generation results in order. Calls past
// the script fail loudly.
type scriptedGen struct {
	mu        sync.Mutex
	responses []scriptedResponse
	calls     int
}

type scriptedResponse struct {
	text string
	err  error
}

func (g *scriptedGen) Complete(ctx context.Context, prompt string, params llm.GenerationParams) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.calls >= len(g.responses) {
		return "", &llm.GenerationError{Backend: "scripted", Cause: fmt.Errorf("script exhausted at call %d", g.calls)}
	}
	r := g.responses[g.calls]
	g.calls++
	return r.text, r.err
}

func newTestOrchestrator(gen llm.GenerationClient, source RecipeSource) *Orchestrator {
	store := session.NewStore(session.Config{})
	return NewOrchestrator(gen, source, store, nil, Config{
		GenerationTimeout: time.Second,
		RetrievalTimeout:  time.Second,
	})
}

func detailedRecipe(id string) datatypes.Recipe {
	return datatypes.Recipe{
		ID:           id,
		Name:         "recipe-" + id,
		Category:     "Chicken",
		Area:         "Indian",
		Instructions: "Cook it well.",
	}
}

// Search that succeeds with detailed records: no refinement pass.
func TestProcessSearchScenario(t *testing.T) {
	gen := &scriptedGen{responses: []scriptedResponse{
		{text: `{"operations":[{"kind":"search","params":{"query":"chicken curry"}}]}`},
		{text: "You could make a lovely chicken curry tonight."},
	}}
	source := &fakeSource{fn: func(ctx context.Context, op datatypes.Operation) (*recipes.ResultSet, error) {
		if op.Kind != datatypes.OpSearch {
			t.Errorf("unexpected op kind %q", op.Kind)
		}
		return &recipes.ResultSet{Recipes: []datatypes.Recipe{detailedRecipe("1"), detailedRecipe("2")}}, nil
	}}
	orc := newTestOrchestrator(gen, source)

	out := orc.Process(context.Background(), "what can I cook with chicken?", "")

	wantPhases := []string{datatypes.PhaseIntent, datatypes.PhaseRetrieval, datatypes.PhaseSynthesis}
	if !reflect.DeepEqual(out.Phases, wantPhases) {
		t.Errorf("phases = %v, want %v", out.Phases, wantPhases)
	}
	if out.APICallsMade != 1 {
		t.Errorf("api calls = %d, want 1", out.APICallsMade)
	}
	if out.RecipesFound != 2 {
		t.Errorf("recipes found = %d, want 2", out.RecipesFound)
	}
	if out.Degraded || out.Error {
		t.Errorf("unexpected degraded=%v error=%v", out.Degraded, out.Error)
	}
	if out.SessionID == "" {
		t.Error("session id not assigned")
	}
	if !strings.Contains(out.Reply, "chicken curry") {
		t.Errorf("reply = %q", out.Reply)
	}
}

// Filter returning summary records triggers the refinement pass; the
// lookups supersede the summaries.
func TestProcessFilterWithRefinementScenario(t *testing.T) {
	gen := &scriptedGen{responses: []scriptedResponse{
		{text: `{"operations":[{"kind":"filter","params":{"ingredient":"chicken"}}]}`},
		{text: `{"operations":[{"kind":"lookup","params":{"id":"100"}},{"kind":"lookup","params":{"id":"101"}},{"kind":"lookup","params":{"id":"102"}}]}`},
		{text: "Three great chicken dishes coming up."},
	}}
	source := &fakeSource{fn: func(ctx context.Context, op datatypes.Operation) (*recipes.ResultSet, error) {
		switch op.Kind {
		case datatypes.OpFilter:
			summaries := make([]datatypes.Recipe, 12)
			for i := range summaries {
				id := fmt.Sprint(100 + i)
				summaries[i] = datatypes.Recipe{ID: id, Name: "recipe-" + id}
			}
			return &recipes.ResultSet{Recipes: summaries}, nil
		case datatypes.OpLookup:
			return &recipes.ResultSet{Recipes: []datatypes.Recipe{detailedRecipe(op.Param(datatypes.ParamID))}}, nil
		default:
			return nil, fmt.Errorf("unexpected op kind %q", op.Kind)
		}
	}}
	orc := newTestOrchestrator(gen, source)

	out := orc.Process(context.Background(), "something with chicken", "")

	wantPhases := []string{
		datatypes.PhaseIntent, datatypes.PhaseRetrieval,
		datatypes.PhaseRefinement, datatypes.PhaseSynthesis,
	}
	if !reflect.DeepEqual(out.Phases, wantPhases) {
		t.Errorf("phases = %v, want %v", out.Phases, wantPhases)
	}
	if out.APICallsMade != 4 {
		t.Errorf("api calls = %d, want 4 (1 filter + 3 lookups)", out.APICallsMade)
	}
	if out.RecipesFound != 3 {
		t.Errorf("recipes found = %d, want 3", out.RecipesFound)
	}
	if out.Degraded {
		t.Error("refinement via model output should not mark the outcome degraded")
	}
}

// A mixed batch keeps the detailed search results while refinement
// supersedes only the summary records.
func TestProcessMixedBatchKeepsSearchDetails(t *testing.T) {
	gen := &scriptedGen{responses: []scriptedResponse{
		{text: `{"operations":[{"kind":"search","params":{"query":"chicken curry"}},{"kind":"filter","params":{"ingredient":"chicken"}}]}`},
		{text: `{"operations":[{"kind":"lookup","params":{"id":"200"}}]}`},
		{text: "A couple of curries and one more pick."},
	}}
	source := &fakeSource{fn: func(ctx context.Context, op datatypes.Operation) (*recipes.ResultSet, error) {
		switch op.Kind {
		case datatypes.OpSearch:
			return &recipes.ResultSet{Recipes: []datatypes.Recipe{detailedRecipe("1"), detailedRecipe("2")}}, nil
		case datatypes.OpFilter:
			return &recipes.ResultSet{Recipes: []datatypes.Recipe{
				{ID: "200", Name: "recipe-200"}, {ID: "201", Name: "recipe-201"},
			}}, nil
		case datatypes.OpLookup:
			return &recipes.ResultSet{Recipes: []datatypes.Recipe{detailedRecipe(op.Param(datatypes.ParamID))}}, nil
		default:
			return nil, fmt.Errorf("unexpected op kind %q", op.Kind)
		}
	}}
	orc := newTestOrchestrator(gen, source)

	out := orc.Process(context.Background(), "chicken ideas", "")

	if out.APICallsMade != 3 {
		t.Errorf("api calls = %d, want 3 (1 search + 1 filter + 1 lookup)", out.APICallsMade)
	}
	if out.RecipesFound != 3 {
		t.Errorf("recipes found = %d, want 3 (2 search details + 1 refined lookup)", out.RecipesFound)
	}
	if out.Degraded || out.Error {
		t.Errorf("unexpected degraded=%v error=%v", out.Degraded, out.Error)
	}
}

// Unusable refinement output degrades to the deterministic first-3
// selection without surfacing a failure.
func TestProcessRefinementFallback(t *testing.T) {
	gen := &scriptedGen{responses: []scriptedResponse{
		{text: `{"operations":[{"kind":"filter","params":{"area":"Italian"}}]}`},
		{text: "I would pick the first two, they look tasty."},
		{text: "Some Italian classics for you."},
	}}
	var lookupIDs []string
	var mu sync.Mutex
	source := &fakeSource{fn: func(ctx context.Context, op datatypes.Operation) (*recipes.ResultSet, error) {
		switch op.Kind {
		case datatypes.OpFilter:
			return &recipes.ResultSet{Recipes: []datatypes.Recipe{
				{ID: "1", Name: "one"}, {ID: "2", Name: "two"},
				{ID: "3", Name: "three"}, {ID: "4", Name: "four"},
			}}, nil
		default:
			mu.Lock()
			lookupIDs = append(lookupIDs, op.Param(datatypes.ParamID))
			mu.Unlock()
			return &recipes.ResultSet{Recipes: []datatypes.Recipe{detailedRecipe(op.Param(datatypes.ParamID))}}, nil
		}
	}}
	orc := newTestOrchestrator(gen, source)

	out := orc.Process(context.Background(), "italian food", "")

	if !out.Degraded {
		t.Error("fallback selection should mark the outcome degraded")
	}
	if out.Error {
		t.Error("fallback selection must not mark a hard error")
	}
	mu.Lock()
	got := append([]string(nil), lookupIDs...)
	mu.Unlock()
	want := map[string]bool{"1": true, "2": true, "3": true}
	if len(got) != 3 {
		t.Fatalf("fallback issued %d lookups, want 3: %v", len(got), got)
	}
	for _, id := range got {
		if !want[id] {
			t.Errorf("fallback looked up unexpected id %q", id)
		}
	}
}

// Every data-source call failing still ends in a conversational reply.
func TestProcessAllRetrievalFailuresScenario(t *testing.T) {
	gen := &scriptedGen{responses: []scriptedResponse{
		{text: `{"operations":[{"kind":"search","params":{"query":"unicorn stew"}}]}`},
		{err: &llm.GenerationError{Backend: "scripted", Cause: fmt.Errorf("backend down")}},
	}}
	source := &fakeSource{fn: func(ctx context.Context, op datatypes.Operation) (*recipes.ResultSet, error) {
		return nil, fmt.Errorf("connection refused")
	}}
	orc := newTestOrchestrator(gen, source)

	out := orc.Process(context.Background(), "unicorn stew", "")

	if out.Reply != NoResultsReply {
		t.Errorf("reply = %q, want the no-results message", out.Reply)
	}
	if out.Error {
		t.Error("retrieval failures must not produce a hard-error outcome")
	}
	if !out.Degraded {
		t.Error("synthesis fallback should mark the outcome degraded")
	}
	if out.RecipesFound != 0 {
		t.Errorf("recipes found = %d, want 0", out.RecipesFound)
	}
	if out.APICallsMade != 1 {
		t.Errorf("api calls = %d, want 1", out.APICallsMade)
	}
}

// A plain-language intent answer short-circuits to a direct response.
func TestProcessDirectResponse(t *testing.T) {
	gen := &scriptedGen{responses: []scriptedResponse{
		{text: "Hello! Ask me about recipes."},
	}}
	source := &fakeSource{fn: func(ctx context.Context, op datatypes.Operation) (*recipes.ResultSet, error) {
		t.Error("data source must not be called for a direct response")
		return nil, nil
	}}
	orc := newTestOrchestrator(gen, source)

	out := orc.Process(context.Background(), "hi there", "")

	wantPhases := []string{datatypes.PhaseIntent, datatypes.PhaseDirectResponse}
	if !reflect.DeepEqual(out.Phases, wantPhases) {
		t.Errorf("phases = %v, want %v", out.Phases, wantPhases)
	}
	if out.Reply != "Hello! Ask me about recipes." {
		t.Errorf("reply = %q", out.Reply)
	}
	if out.APICallsMade != 0 {
		t.Errorf("api calls = %d, want 0", out.APICallsMade)
	}
}

// An invalid model-produced batch is a hard failure: nothing executes
// and the caller gets a validation apology.
func TestProcessValidationHardFailure(t *testing.T) {
	gen := &scriptedGen{responses: []scriptedResponse{
		{text: `{"operations":[{"kind":"filter","params":{"ingredient":"chicken","area":"Indian"}}]}`},
	}}
	source := &fakeSource{fn: func(ctx context.Context, op datatypes.Operation) (*recipes.ResultSet, error) {
		t.Error("invalid batch must never reach the data source")
		return nil, nil
	}}
	orc := newTestOrchestrator(gen, source)

	out := orc.Process(context.Background(), "chicken indian", "")

	if !out.Error {
		t.Error("expected a hard-error outcome")
	}
	if out.Reply != apologyFor(CategoryValidation) {
		t.Errorf("reply = %q, want the validation apology", out.Reply)
	}
	if out.APICallsMade != 0 {
		t.Errorf("api calls = %d, want 0", out.APICallsMade)
	}
}

// A failing generation backend at intent still yields a reply, never an
// error surface.
func TestProcessIntentGenerationFailure(t *testing.T) {
	gen := &scriptedGen{responses: []scriptedResponse{
		{err: &llm.GenerationError{Backend: "scripted", Cause: fmt.Errorf("boom")}},
	}}
	source := &fakeSource{fn: func(ctx context.Context, op datatypes.Operation) (*recipes.ResultSet, error) {
		return &recipes.ResultSet{}, nil
	}}
	orc := newTestOrchestrator(gen, source)

	out := orc.Process(context.Background(), "anything", "")

	if out.Reply == "" {
		t.Fatal("reply must never be empty")
	}
	if !out.Degraded || out.Error {
		t.Errorf("degraded=%v error=%v, want degraded-but-not-error", out.Degraded, out.Error)
	}
}

// panickyGen blows up on its first call.
type panickyGen struct{}

func (panickyGen) Complete(ctx context.Context, prompt string, params llm.GenerationParams) (string, error) {
	panic("generation client blew up")
}

// Panics inside the pipeline are converted to an apologetic outcome.
func TestProcessRecoversFromPanic(t *testing.T) {
	source := &fakeSource{fn: func(ctx context.Context, op datatypes.Operation) (*recipes.ResultSet, error) {
		return &recipes.ResultSet{}, nil
	}}
	orc := newTestOrchestrator(panickyGen{}, source)

	out := orc.Process(context.Background(), "x", "")

	if !out.Error {
		t.Error("expected hard-error outcome after panic")
	}
	if out.Reply == "" {
		t.Error("reply must never be empty")
	}
}

// A panicking data source is contained by the batch executor and
// surfaces as ordinary retrieval failures.
func TestProcessContainsSourcePanic(t *testing.T) {
	gen := &scriptedGen{responses: []scriptedResponse{
		{text: `{"operations":[{"kind":"search","params":{"query":"x"}}]}`},
		{err: &llm.GenerationError{Backend: "scripted", Cause: fmt.Errorf("down")}},
	}}
	source := &fakeSource{fn: func(ctx context.Context, op datatypes.Operation) (*recipes.ResultSet, error) {
		panic("source blew up")
	}}
	orc := newTestOrchestrator(gen, source)

	out := orc.Process(context.Background(), "x", "")

	if out.Error {
		t.Error("a source panic must degrade, not hard-fail")
	}
	if out.Reply != NoResultsReply {
		t.Errorf("reply = %q, want the no-results message", out.Reply)
	}
}

// Conversation history accumulates across turns and is bounded.
func TestProcessAppendsHistory(t *testing.T) {
	gen := &scriptedGen{responses: []scriptedResponse{
		{text: "First answer."},
		{text: "Second answer."},
	}}
	source := &fakeSource{fn: func(ctx context.Context, op datatypes.Operation) (*recipes.ResultSet, error) {
		return &recipes.ResultSet{}, nil
	}}
	store := session.NewStore(session.Config{})
	orc := NewOrchestrator(gen, source, store, nil, Config{})

	first := orc.Process(context.Background(), "hello", "")
	second := orc.Process(context.Background(), "hello again", first.SessionID)

	if second.SessionID != first.SessionID {
		t.Fatalf("session id changed between turns: %q vs %q", first.SessionID, second.SessionID)
	}
	history := store.History(first.SessionID)
	if len(history) != 4 {
		t.Fatalf("history has %d messages, want 4", len(history))
	}
	if history[0].Role != datatypes.RoleUser || history[0].Content != "hello" {
		t.Errorf("unexpected first message: %+v", history[0])
	}
	if history[3].Role != datatypes.RoleAssistant || history[3].Content != "Second answer." {
		t.Errorf("unexpected last message: %+v", history[3])
	}
}
