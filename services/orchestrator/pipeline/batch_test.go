package pipeline

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/AleutianAI/PantryPilot/services/orchestrator/datatypes"
	"github.com/AleutianAI/PantryPilot/services/recipes"
)

// fakeSource runs a closure per operation and counts dispatches.
type fakeSource struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, op datatypes.Operation) (*recipes.ResultSet, error)
}

func (f *fakeSource) Execute(ctx context.Context, op datatypes.Operation) (*recipes.ResultSet, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.fn(ctx, op)
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestExecuteBatchOrderAndPartialFailure(t *testing.T) {
	source := &fakeSource{fn: func(ctx context.Context, op datatypes.Operation) (*recipes.ResultSet, error) {
		id := op.Param(datatypes.ParamID)
		if id == "2" || id == "4" {
			return nil, fmt.Errorf("upstream down")
		}
		return &recipes.ResultSet{Recipes: []datatypes.Recipe{{ID: id, Name: "recipe-" + id}}}, nil
	}}
	exec := NewBatchExecutor(source, time.Second)

	ops := make([]datatypes.Operation, 5)
	for i := range ops {
		ops[i] = datatypes.Operation{
			Kind:   datatypes.OpLookup,
			Params: map[string]string{datatypes.ParamID: fmt.Sprint(i)},
		}
	}

	results := exec.ExecuteBatch(context.Background(), ops)
	if len(results) != len(ops) {
		t.Fatalf("got %d results, want %d", len(results), len(ops))
	}
	for i, r := range results {
		wantID := fmt.Sprint(i)
		if r.Operation.Param(datatypes.ParamID) != wantID {
			t.Errorf("result %d is for op %q, order not preserved", i, r.Operation.Param(datatypes.ParamID))
		}
		wantFailed := wantID == "2" || wantID == "4"
		if r.Failed != wantFailed {
			t.Errorf("result %d failed = %v, want %v", i, r.Failed, wantFailed)
		}
		if wantFailed && r.FailureReason == "" {
			t.Errorf("result %d missing failure reason", i)
		}
		if !wantFailed && len(r.Recipes) != 1 {
			t.Errorf("result %d has %d recipes, want 1", i, len(r.Recipes))
		}
	}
	if source.callCount() != 5 {
		t.Errorf("source called %d times, want 5", source.callCount())
	}
}

func TestExecuteBatchEmptyInput(t *testing.T) {
	source := &fakeSource{fn: func(ctx context.Context, op datatypes.Operation) (*recipes.ResultSet, error) {
		return &recipes.ResultSet{}, nil
	}}
	exec := NewBatchExecutor(source, time.Second)

	results := exec.ExecuteBatch(context.Background(), nil)
	if len(results) != 0 {
		t.Fatalf("got %d results for empty input", len(results))
	}
	if source.callCount() != 0 {
		t.Errorf("source dispatched %d times for empty input", source.callCount())
	}
}

func TestExecuteBatchPerOperationTimeout(t *testing.T) {
	source := &fakeSource{fn: func(ctx context.Context, op datatypes.Operation) (*recipes.ResultSet, error) {
		select {
		case <-time.After(time.Second):
			return &recipes.ResultSet{}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}}
	exec := NewBatchExecutor(source, 10*time.Millisecond)

	results := exec.ExecuteBatch(context.Background(), []datatypes.Operation{
		{Kind: datatypes.OpSearch, Params: map[string]string{datatypes.ParamQuery: "slow"}},
	})
	if len(results) != 1 || !results[0].Failed {
		t.Fatalf("expected one failed result, got %+v", results)
	}
}
