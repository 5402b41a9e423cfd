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
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/PantryPilot/services/orchestrator/datatypes"
	"github.com/AleutianAI/PantryPilot/services/recipes"
)

// RecipeSource executes one validated operation against the recipe
// data source. *recipes.Client satisfies it; tests substitute fakes.
type RecipeSource interface {
	Execute(ctx context.Context, op datatypes.Operation) (*recipes.ResultSet, error)
}

// BatchExecutor runs a validated operation batch concurrently, one
// goroutine per operation, each with its own timeout.
type BatchExecutor struct {
	source  RecipeSource
	timeout time.Duration
}

func NewBatchExecutor(source RecipeSource, timeout time.Duration) *BatchExecutor {
	return &BatchExecutor{source: source, timeout: timeout}
}

// ExecuteBatch returns exactly one OperationResult per input operation,
// in the original order. A failed call becomes a failure result rather
// than aborting the batch; an unexpected-format upstream payload counts
// as a success with zero records. An empty batch returns an empty slice
// without dispatching anything.
func (e *BatchExecutor) ExecuteBatch(ctx context.Context, ops []datatypes.Operation) []datatypes.OperationResult {
	results := make([]datatypes.OperationResult, len(ops))
	if len(ops) == 0 {
		return results
	}

	ctx, span := pipelineTracer.Start(ctx, "pipeline.execute_batch")
	defer span.End()
	span.SetAttributes(attribute.Int("batch.size", len(ops)))

	var wg sync.WaitGroup
	for i, op := range ops {
		wg.Add(1)
		go func(i int, op datatypes.Operation) {
			defer wg.Done()
			opCtx, cancel := context.WithTimeout(ctx, e.timeout)
			defer cancel()
			results[i] = e.executeOne(opCtx, op)
		}(i, op)
	}
	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Failed {
			failed++
		}
	}
	span.SetAttributes(attribute.Int("batch.failed", failed))
	return results
}

func (e *BatchExecutor) executeOne(ctx context.Context, op datatypes.Operation) (result datatypes.OperationResult) {
	// A panicking source must not take down the process from inside a
	// batch goroutine; it becomes a failure result like any other.
	defer func() {
		if r := recover(); r != nil {
			result = datatypes.OperationResult{
				Operation:     op,
				Failed:        true,
				FailureReason: fmt.Sprintf("panic during execution: %v", r),
			}
		}
	}()
	set, err := e.source.Execute(ctx, op)
	if err != nil {
		return datatypes.OperationResult{
			Operation:     op,
			Failed:        true,
			FailureReason: err.Error(),
		}
	}
	return datatypes.OperationResult{Operation: op, Recipes: set.Recipes}
}
