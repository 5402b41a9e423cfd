// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pipeline implements the recipe request pipeline: a free-text
// user message is interpreted into structured data-source operations,
// executed concurrently, conditionally refined through a second
// generation pass, and synthesized into a final conversational reply.
package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/PantryPilot/services/llm"
	"github.com/AleutianAI/PantryPilot/services/orchestrator/datatypes"
	"github.com/AleutianAI/PantryPilot/services/orchestrator/observability"
	"github.com/AleutianAI/PantryPilot/services/orchestrator/session"
)

var pipelineTracer = otel.Tracer("pantrypilot.orchestrator.pipeline")

// =============================================================================
// Configuration
// =============================================================================

// Config bounds one Orchestrator. Zero values are replaced by defaults
// in NewOrchestrator.
type Config struct {
	// MaxOperations caps the interpreted operation batch.
	MaxOperations int

	// MaxRefinementSelections caps the lookups chosen by refinement
	// and the records in a fallback summary.
	MaxRefinementSelections int

	// GenerationTimeout bounds each individual generation call.
	GenerationTimeout time.Duration

	// RetrievalTimeout bounds each individual data-source call.
	RetrievalTimeout time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxOperations:           5,
		MaxRefinementSelections: 3,
		GenerationTimeout:       30 * time.Second,
		RetrievalTimeout:        30 * time.Second,
	}
}

// =============================================================================
// Orchestrator
// =============================================================================

// Orchestrator drives one pipeline invocation per Process call.
//
// # Description
//
// The pipeline moves through intent, then either a direct response or
// retrieval (with an optional refinement pass) followed by synthesis.
// Generation failures after intent degrade to deterministic fallbacks;
// only validation failures and panics reach the error boundary, and
// even those come back to the caller as a well-formed outcome with an
// apologetic reply. Process never returns an error and never panics.
//
// # Thread Safety
//
// Safe for concurrent use; all per-invocation state is local and the
// session store does its own locking.
type Orchestrator struct {
	gen     llm.GenerationClient
	exec    *BatchExecutor
	store   *session.Store
	metrics *observability.PipelineMetrics
	cfg     Config
}

// NewOrchestrator wires the pipeline. metrics may be nil (tests).
func NewOrchestrator(gen llm.GenerationClient, source RecipeSource, store *session.Store,
	metrics *observability.PipelineMetrics, cfg Config) *Orchestrator {

	if cfg.MaxOperations <= 0 {
		cfg.MaxOperations = DefaultConfig().MaxOperations
	}
	if cfg.MaxRefinementSelections <= 0 {
		cfg.MaxRefinementSelections = DefaultConfig().MaxRefinementSelections
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = DefaultConfig().GenerationTimeout
	}
	if cfg.RetrievalTimeout <= 0 {
		cfg.RetrievalTimeout = DefaultConfig().RetrievalTimeout
	}
	return &Orchestrator{
		gen:     gen,
		exec:    NewBatchExecutor(source, cfg.RetrievalTimeout),
		store:   store,
		metrics: metrics,
		cfg:     cfg,
	}
}

// runState accumulates per-invocation counters so the error boundary
// can report them even when a phase aborts.
type runState struct {
	start    time.Time
	phases   []string
	apiCalls int
}

// Process runs the whole pipeline for one user message.
//
// # Inputs
//
//   - ctx: Caller deadline; between phases the pipeline checks it and
//     stops starting new upstream work once it has expired.
//   - message: The raw user message (already screened by transport).
//   - sessionID: Existing session id, or "" for a fresh session.
//
// # Outputs
//
//   - datatypes.PipelineOutcome: Always well-formed, never an error.
func (o *Orchestrator) Process(ctx context.Context, message, sessionID string) (outcome datatypes.PipelineOutcome) {
	ctx, span := pipelineTracer.Start(ctx, "pipeline.process")
	defer span.End()

	st := &runState{start: time.Now()}
	sid := o.store.GetOrCreate(sessionID)
	span.SetAttributes(attribute.String("session.id", sid))

	defer func() {
		if r := recover(); r != nil {
			slog.Error("pipeline: recovered from panic", "panic", r, "session_id", sid)
			outcome = o.failureOutcome(sid, message, &panicError{value: r}, st)
		}
		span.SetAttributes(
			attribute.StringSlice("pipeline.phases", outcome.Phases),
			attribute.Int("pipeline.api_calls", outcome.APICallsMade),
			attribute.Bool("pipeline.degraded", outcome.Degraded),
		)
	}()

	out, err := o.run(ctx, message, sid, st)
	if err != nil {
		return o.failureOutcome(sid, message, err, st)
	}
	return out
}

func (o *Orchestrator) run(ctx context.Context, message, sid string, st *runState) (datatypes.PipelineOutcome, error) {
	history := o.store.History(sid)

	// ----- INTENT -----
	st.phases = append(st.phases, datatypes.PhaseIntent)
	raw, err := o.generate(ctx, datatypes.PhaseIntent, buildIntentPrompt(message, history))
	if err != nil {
		// A dead backend at intent still yields a conversational reply.
		o.recordGenerationFailure(datatypes.PhaseIntent)
		slog.Warn("pipeline: intent generation failed, replying generically",
			"session_id", sid, "error", err)
		st.phases = append(st.phases, datatypes.PhaseDirectResponse)
		reply := "I'm having trouble thinking that through right now. Could you ask again in a moment?"
		return o.finish(sid, message, reply, st, 0, true, false), nil
	}

	interp := ParseInterpretation(raw)
	if interp.IsDirect() {
		st.phases = append(st.phases, datatypes.PhaseDirectResponse)
		reply := interp.Direct
		degraded := false
		if reply == "" {
			reply = "I'm not sure what you're after. Could you rephrase that?"
			degraded = true
		}
		return o.finish(sid, message, reply, st, 0, degraded, false), nil
	}

	// ----- RETRIEVAL -----
	// An invalid model-produced batch is a hard failure: nothing is
	// executed and the error boundary takes over.
	if err := ValidateOperations(interp.Operations, o.cfg.MaxOperations); err != nil {
		return datatypes.PipelineOutcome{}, err
	}
	st.phases = append(st.phases, datatypes.PhaseRetrieval)
	retrievalStart := time.Now()
	results := o.exec.ExecuteBatch(ctx, interp.Operations)
	st.apiCalls += len(interp.Operations)
	o.recordBatch(datatypes.PhaseRetrieval, results, retrievalStart)

	working := collectSuccesses(results)
	degraded := false

	// ----- REFINEMENT (conditional) -----
	summaries := summaryRecords(working)
	if len(summaries) > 0 && ctx.Err() == nil {
		st.phases = append(st.phases, datatypes.PhaseRefinement)
		refinementStart := time.Now()
		lookups, usedFallback := o.selectLookups(ctx, message, summaries)
		degraded = degraded || usedFallback
		if len(lookups) > 0 {
			refined := o.exec.ExecuteBatch(ctx, lookups)
			st.apiCalls += len(lookups)
			o.recordBatch(datatypes.PhaseRefinement, refined, refinementStart)
			if detailed := collectSuccesses(refined); len(detailed) > 0 {
				// The selection supersedes the summary records only;
				// detail records from the original batch are kept.
				working = append(detailRecords(working), detailed...)
			}
		}
	}

	// ----- SYNTHESIS -----
	st.phases = append(st.phases, datatypes.PhaseSynthesis)
	o.store.SetLastResults(sid, working)
	reply, synthDegraded := o.synthesize(ctx, message, working, history)
	degraded = degraded || synthDegraded
	return o.finish(sid, message, reply, st, len(working), degraded, false), nil
}

// selectLookups runs the refinement generation step, falling back to
// the deterministic first-N selection when the model fails or emits
// anything other than a clean lookup batch.
func (o *Orchestrator) selectLookups(ctx context.Context, message string, summaries []datatypes.Recipe) ([]datatypes.Operation, bool) {
	raw, err := o.generate(ctx, datatypes.PhaseRefinement,
		buildRefinementPrompt(message, summaries, o.cfg.MaxRefinementSelections))
	if err != nil {
		o.recordGenerationFailure(datatypes.PhaseRefinement)
		slog.Warn("pipeline: refinement generation failed, using fallback selection", "error", err)
	} else {
		if ops, ok := ParseLookupSelection(raw); ok {
			if len(ops) > o.cfg.MaxRefinementSelections {
				ops = ops[:o.cfg.MaxRefinementSelections]
			}
			if ValidateOperations(ops, o.cfg.MaxRefinementSelections) == nil {
				return ops, false
			}
		}
		slog.Warn("pipeline: refinement output unusable, using fallback selection")
	}
	o.recordFallback(datatypes.PhaseRefinement)
	return FallbackLookups(summaries, o.cfg.MaxRefinementSelections), true
}

// synthesize produces the final reply, degrading to the templated
// summary when generation fails, returns nothing, or the caller's
// deadline has already expired.
func (o *Orchestrator) synthesize(ctx context.Context, message string, working []datatypes.Recipe,
	history []datatypes.Message) (string, bool) {

	if ctx.Err() == nil {
		raw, err := o.generate(ctx, datatypes.PhaseSynthesis, buildSynthesisPrompt(message, working, history))
		if err == nil {
			if reply := strings.TrimSpace(raw); reply != "" {
				return reply, false
			}
		} else {
			o.recordGenerationFailure(datatypes.PhaseSynthesis)
			slog.Warn("pipeline: synthesis generation failed, using fallback summary", "error", err)
		}
	}
	o.recordFallback(datatypes.PhaseSynthesis)
	return FallbackSummary(working, o.cfg.MaxRefinementSelections), true
}

func (o *Orchestrator) generate(ctx context.Context, phase, prompt string) (string, error) {
	genCtx, cancel := context.WithTimeout(ctx, o.cfg.GenerationTimeout)
	defer cancel()
	genCtx, span := pipelineTracer.Start(genCtx, "pipeline.generate")
	defer span.End()
	span.SetAttributes(attribute.String("pipeline.phase", phase))

	start := time.Now()
	text, err := o.gen.Complete(genCtx, prompt, llm.GenerationParams{})
	if o.metrics != nil {
		o.metrics.RecordPhaseDuration(phase, time.Since(start).Seconds())
	}
	if err != nil {
		span.RecordError(err)
	}
	return text, err
}

// finish appends the completed exchange to the session and assembles
// the outcome. Every terminal path, including failures, runs through
// here.
func (o *Orchestrator) finish(sid, userText, reply string, st *runState,
	recipesFound int, degraded, hardError bool) datatypes.PipelineOutcome {

	o.store.Append(sid, userText, reply)
	if o.metrics != nil {
		o.metrics.SetActiveSessions(o.store.Len())
		terminal := datatypes.PhaseSynthesis
		if len(st.phases) > 0 {
			terminal = st.phases[len(st.phases)-1]
		}
		status := "success"
		if hardError {
			status = "error"
		} else if degraded {
			status = "degraded"
		}
		o.metrics.RecordRequest(terminal, status)
	}
	return datatypes.PipelineOutcome{
		Reply:        reply,
		SessionID:    sid,
		ElapsedMs:    time.Since(st.start).Milliseconds(),
		APICallsMade: st.apiCalls,
		Phases:       st.phases,
		RecipesFound: recipesFound,
		Degraded:     degraded,
		Error:        hardError,
	}
}

// failureOutcome is the error boundary: it categorizes the escaped
// error structurally and converts it into an apologetic reply.
func (o *Orchestrator) failureOutcome(sid, userText string, err error, st *runState) datatypes.PipelineOutcome {
	category := Categorize(err)
	slog.Error("pipeline: invocation failed",
		"session_id", sid, "category", category.String(), "error", err)
	return o.finish(sid, userText, apologyFor(category), st, 0, true, true)
}

func (o *Orchestrator) recordGenerationFailure(stage string) {
	if o.metrics != nil {
		o.metrics.RecordGenerationFailure(stage)
	}
}

func (o *Orchestrator) recordFallback(stage string) {
	if o.metrics != nil {
		o.metrics.RecordFallback(stage)
	}
}

func (o *Orchestrator) recordBatch(phase string, results []datatypes.OperationResult, start time.Time) {
	if o.metrics == nil {
		return
	}
	failed := 0
	for _, r := range results {
		if r.Failed {
			failed++
		}
	}
	o.metrics.RecordDataSourceCalls(len(results)-failed, failed)
	o.metrics.RecordPhaseDuration(phase, time.Since(start).Seconds())
}

// collectSuccesses flattens the successful results' records,
// preserving batch order.
func collectSuccesses(results []datatypes.OperationResult) []datatypes.Recipe {
	var out []datatypes.Recipe
	for _, r := range results {
		if r.Failed {
			continue
		}
		out = append(out, r.Recipes...)
	}
	return out
}

// summaryRecords returns the records lacking the detail fields, i.e.
// the filter-style results that warrant a refinement pass.
func summaryRecords(recipes []datatypes.Recipe) []datatypes.Recipe {
	var out []datatypes.Recipe
	for _, r := range recipes {
		if !r.HasDetail() {
			out = append(out, r)
		}
	}
	return out
}

// detailRecords returns the records that already carry the detail
// fields, preserving order.
func detailRecords(recipes []datatypes.Recipe) []datatypes.Recipe {
	var out []datatypes.Recipe
	for _, r := range recipes {
		if r.HasDetail() {
			out = append(out, r)
		}
	}
	return out
}
