// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AleutianAI/spec-harvester/internal/candidate"
	"github.com/AleutianAI/spec-harvester/internal/frontier"
	"github.com/AleutianAI/spec-harvester/internal/identity"
	"github.com/AleutianAI/spec-harvester/internal/learning"
	"github.com/AleutianAI/spec-harvester/internal/metrics"
	"github.com/AleutianAI/spec-harvester/internal/needset"
	"github.com/AleutianAI/spec-harvester/internal/planner"
	"github.com/AleutianAI/spec-harvester/internal/rules"
	"github.com/AleutianAI/spec-harvester/internal/scheduler"
)

// Orchestrator runs one product across rounds, per spec.md §2's dependency
// order: Field Rules Engine, Frontier Store, Learning Stores, Review State
// feed the Source Planner and Candidate Pipeline, which feed the Fetch
// Scheduler and NeedSet, which the Orchestration Loop drives.
type Orchestrator struct {
	engine    *rules.Engine
	frontier  frontier.Store
	learning  *learning.Store
	extract   ExtractFunc
	query     QueryFunc
	fetch     scheduler.FetchFunc
	classify  scheduler.ClassifyOutcomeFunc
	logger    *slog.Logger
}

// New constructs an Orchestrator. engine must already be compiled via
// rules.Create; fetch, extract, and query are the external Fetcher,
// extraction, and search-query hooks (spec.md §6). learning and query may
// be nil to disable learning-store population and mid-run query discovery
// respectively.
func New(engine *rules.Engine, fr frontier.Store, lrn *learning.Store, fetch scheduler.FetchFunc, classify scheduler.ClassifyOutcomeFunc, extract ExtractFunc, query QueryFunc, logger *slog.Logger) *Orchestrator {
	if engine == nil {
		panic("orchestrator.New: engine must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		engine:   engine,
		frontier: fr,
		learning: lrn,
		extract:  extract,
		query:    query,
		fetch:    fetch,
		classify: classify,
		logger:   logger,
	}
}

// Run drives one product from its seed URLs to a stop condition, per
// spec.md §4.6's orchestration loop invariant. It always returns a
// RunResult — per spec.md §7, failures are captured, never propagated as a
// fatal error, except for the Input-error class (rules not compiled,
// identity insufficient) and Storage errors.
func (o *Orchestrator) Run(ctx context.Context, in RunInput, cfg Config) (RunResult, error) {
	startedAt := time.Now()
	result := RunResult{StartedAt: startedAt, Provenance: map[string]candidate.ProvenanceEntry{}}

	if err := in.Lock.Validate(); err != nil {
		return result, fmt.Errorf("%s: %w", FailureKindInput, err)
	}
	if in.Category == "" {
		return result, fmt.Errorf("%s: category_required", FailureKindInput)
	}

	result.ProductID = identity.ProductID(in.Category, in.Lock)

	plan := planner.New(cfg.Planner, o.logger)
	for _, u := range in.SeedURLs {
		plan.Enqueue(u, planner.EnqueueOptions{Tier: planner.TierManufacturer, Role: planner.RoleSeed})
	}

	provenance := map[string]candidate.ProvenanceEntry{}
	var allFailures []Failure
	var previousSnapshot *needset.RoundSnapshot
	noProgressStreak := 0
	lowQualityRounds := 0

	for round := 0; round < cfg.MaxRounds; round++ {
		roundStart := time.Now()
		roundCtx := needset.RoundContext{RoundIndex: round, Mode: needset.ModeBalanced}

		sources := drainableSources(plan)
		if len(sources) == 0 && round > 0 {
			break
		}

		candidates, failures := o.fetchAndExtract(ctx, sources, cfg, in.Lock)
		roundFailures := taggedFailures(failures, round)

		scored := candidate.NormalizeAndScore(o.engine, candidates, nil, func(c candidate.Candidate, reason rules.FailureCode) {
			roundFailures = append(roundFailures, Failure{Kind: FailureKindGate, Code: string(reason), Field: c.Field, Round: round})
		})
		deduped := candidate.Dedup(scored)

		passTargets := make(map[string]float64, len(o.engine.FieldOrder()))
		for _, key := range o.engine.FieldOrder() {
			if fr, ok := o.engine.Field(key); ok {
				passTargets[key] = needset.PassTarget(fr.RequiredLevel)
			}
		}
		provenance = candidate.MergeIntoProvenance(provenance, deduped, passTargets)

		contradictionCount := o.applyRuntimeGate(provenance)

		now := time.Now()
		var states []needset.FieldState
		missingRequired := 0
		criticalMissing := 0
		totalConfidence := 0.0
		for _, key := range o.engine.FieldOrder() {
			fr, ok := o.engine.Field(key)
			if !ok {
				continue
			}
			entry := provenance[key]
			state := fieldRuleState(fr, entry, now, cfg.DecayDays)
			states = append(states, state)
			totalConfidence += state.EffectiveConfidence
			if fr.RequiredLevel == rules.RequiredRequired && state.EffectiveConfidence < needset.PassTarget(fr.RequiredLevel) {
				missingRequired++
			}
			if fr.RequiredLevel == rules.RequiredCritical && state.EffectiveConfidence < needset.PassTarget(fr.RequiredLevel) {
				criticalMissing++
			}
		}

		rows := needset.Evaluate(states)
		focus := needset.Focus(rows, cfg.FocusFieldCount)
		metrics.NeedSetSize.WithLabelValues(in.Category).Set(float64(len(rows)))

		avgConfidence := 0.0
		if len(states) > 0 {
			avgConfidence = totalConfidence / float64(len(states))
		}
		snapshot := needset.RoundSnapshot{
			RoundIndex:           round,
			MissingRequiredCount: missingRequired,
			CriticalMissingCount: criticalMissing,
			AvgConfidence:        avgConfidence,
			ContradictionCount:   contradictionCount,
			Validated:            len(rows) == 0 && contradictionCount == 0,
		}
		progress := needset.EvaluateRoundProgress(previousSnapshot, snapshot)
		prevSnap := snapshot
		previousSnapshot = &prevSnap

		if progress.Improved {
			noProgressStreak = 0
		} else {
			noProgressStreak++
		}
		if avgConfidence < 0.5 {
			lowQualityRounds++
		} else {
			lowQualityRounds = 0
		}

		stop := needset.EvaluateStopCondition(needset.StopInput{
			RoundIndex:          round,
			AllRequiredMet:      len(rows) == 0,
			NoContradictions:    contradictionCount == 0,
			RoundsLimit:         cfg.MaxRounds - 1,
			NoProgressStreak:    noProgressStreak,
			NoProgressLimit:     cfg.NoProgressLimit,
			LowQualityRounds:    lowQualityRounds,
			MaxLowQualityRounds: cfg.MaxLowQualityRounds,
		})

		metrics.RoundLatency.WithLabelValues(in.Category).Observe(time.Since(roundStart).Seconds())

		roundCtx.MissingRequired = missingRequiredKeys(states, rows)
		roundProvenance := make(map[string]candidate.ProvenanceEntry, len(provenance))
		for k, v := range provenance {
			roundProvenance[k] = v
		}
		result.RoundHistory = append(result.RoundHistory, RoundResult{
			Context:    roundCtx,
			Provenance: roundProvenance,
			NeedSet:    rows,
			Progress:   progress,
			Failures:   roundFailures,
		})
		allFailures = append(allFailures, roundFailures...)

		result.Rounds = round + 1
		result.Provenance = provenance
		result.NeedSet = rows

		if stop != needset.StopNone {
			metrics.StopReasons.WithLabelValues(string(stop)).Inc()
			result.StopReason = stop
			result.Validated = stop == needset.StopCompleted
			break
		}

		o.issueDiscoveryQueries(ctx, in, focus, roundCtx, plan)
	}

	// The planner can run dry (no sources left to drain) before any of
	// EvaluateStopCondition's five reasons fires; a run must still report
	// why it stopped rather than leaving StopReason empty.
	if result.StopReason == needset.StopNone {
		result.StopReason = needset.StopMaxRoundsReached
		metrics.StopReasons.WithLabelValues(string(result.StopReason)).Inc()
	}

	if o.learning != nil {
		o.populateLearning(ctx, in, provenance)
	}

	result.Failures = allFailures
	result.Publishable = result.Validated && len(allFailures) == 0
	result.FinishedAt = time.Now()
	return result, nil
}

func missingRequiredKeys(states []needset.FieldState, rows []needset.Row) []string {
	inNeedSet := make(map[string]bool, len(rows))
	for _, r := range rows {
		inNeedSet[r.FieldKey] = true
	}
	var out []string
	for _, s := range states {
		if inNeedSet[s.FieldKey] && s.RequiredLevel == rules.RequiredRequired {
			out = append(out, s.FieldKey)
		}
	}
	return out
}

// issueDiscoveryQueries generates one retrieval query per focus row,
// gated by the Frontier Store's per-query cooldown, and enqueues whatever
// URLs the QueryFunc resolves as candidate sources for the next round.
func (o *Orchestrator) issueDiscoveryQueries(ctx context.Context, in RunInput, focus []needset.Row, roundCtx needset.RoundContext, plan *planner.Planner) {
	if o.query == nil || o.frontier == nil {
		return
	}
	for _, row := range focus {
		if row.RetrievalQuery == "" {
			continue
		}
		skip, err := o.frontier.ShouldSkipQuery(ctx, in.Category, row.RetrievalQuery, roundCtx.ForceVerify)
		if err != nil {
			o.logger.Warn("frontier ShouldSkipQuery failed", "query", row.RetrievalQuery, "err", err)
			continue
		}
		if skip {
			continue
		}
		if _, err := o.frontier.RecordQuery(ctx, in.Category, row.RetrievalQuery, "discovery"); err != nil {
			o.logger.Warn("frontier RecordQuery failed", "query", row.RetrievalQuery, "err", err)
			continue
		}
		urls, err := o.query(ctx, row.RetrievalQuery)
		if err != nil {
			o.logger.Warn("discovery query failed", "query", row.RetrievalQuery, "err", err)
			continue
		}
		for _, u := range urls {
			plan.Enqueue(u, planner.EnqueueOptions{Tier: planner.TierCandidate, Role: planner.RoleDiscovery, PlannerScore: row.NeedScore})
		}
	}
}

func drainableSources(p *planner.Planner) []scheduler.SourceItem {
	var out []scheduler.SourceItem
	for p.HasNext() {
		src, ok := p.Next()
		if !ok {
			break
		}
		if src.URL == "" {
			continue
		}
		out = append(out, scheduler.SourceItem{URL: src.URL, Host: src.Host})
	}
	return out
}

// fetchAndExtract drains sources through the scheduler, then extracts raw
// fields from every result whose ShouldExtract() is true.
func (o *Orchestrator) fetchAndExtract(ctx context.Context, sources []scheduler.SourceItem, cfg Config, lock identity.Lock) ([]candidate.Candidate, []Failure) {
	if len(sources) == 0 || o.fetch == nil {
		return nil, nil
	}

	var (
		mu       sync.Mutex
		results  []scheduler.FetchResult
		failures []Failure
	)

	opts := cfg.SchedulerOpts
	opts.Fetch = o.fetch
	opts.ClassifyOutcome = o.classify
	opts.OnFetchResult = func(r scheduler.FetchResult) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
	}
	opts.OnFetchError = func(url string, err error) {
		mu.Lock()
		failures = append(failures, Failure{Kind: FailureKindNetwork, Code: "fetch_failed", Detail: fmt.Sprintf("%s: %v", url, err)})
		mu.Unlock()
	}

	scheduler.Drain(ctx, sources, opts)

	var candidates []candidate.Candidate
	for _, r := range results {
		if !r.ShouldExtract() || o.extract == nil {
			continue
		}
		fields, err := o.extract(ctx, r)
		if err != nil {
			failures = append(failures, Failure{Kind: FailureKindExtraction, Code: "parse_failed", Detail: err.Error()})
			continue
		}

		var sourceCandidates []candidate.Candidate
		var declaredBrand, declaredModel, declaredSKU string
		for _, f := range fields {
			switch f.Key {
			case "brand":
				declaredBrand = f.Value
			case "model":
				declaredModel = f.Value
			case "sku":
				declaredSKU = f.Value
			}
			sourceCandidates = append(sourceCandidates, candidate.Candidate{
				Field:       f.Key,
				Value:       f.Value,
				Method:      f.Surface,
				URL:         r.URL,
				Confidence:  1.0,
				KeyPath:     f.Path,
				RetrievedAt: r.FetchedAt,
				Evidence: candidate.Evidence{
					Quote:     f.Quote,
					QuoteSpan: f.QuoteSpan,
					SnippetID: f.SnippetID,
				},
			})
		}

		// A source with no declared brand/model cannot be evaluated
		// against the identity lock; treat it as matched rather than
		// silently discarding its candidates.
		match := identity.MatchResult{Match: true, Score: 1.0, Decision: identity.DecisionAccept}
		if declaredBrand != "" || declaredModel != "" {
			match = identity.Match(lock, declaredBrand, declaredModel, declaredSKU)
		}
		gated := candidate.ApplyIdentityGateToCandidates(sourceCandidates, match)
		for i := range gated {
			if !gated[i].TargetMatchPassed {
				gated[i].IdentityRejectReason = string(match.Decision)
			}
		}
		candidates = append(candidates, gated...)
	}
	return candidates, failures
}

// applyRuntimeGate runs the compiled engine's migration/enum/list/
// cross-field-constraint pass over the round's merged provenance (spec.md
// §4.6's "no contradictions" stop condition depends on this having run),
// writes any enum canonicalization or list normalization back into
// provenance, and returns the number of cross-field constraint violations
// found — the round's contradiction count.
func (o *Orchestrator) applyRuntimeGate(provenance map[string]candidate.ProvenanceEntry) int {
	order := o.engine.FieldOrder()
	fields := make(map[string]any, len(order))
	for _, key := range order {
		if entry, ok := provenance[key]; ok {
			fields[key] = entry.Value
		}
	}

	out := o.engine.ApplyRuntimeGate(rules.RuntimeGateInput{Fields: fields, FieldOrder: order})

	for _, key := range order {
		if val, ok := out.Fields[key]; ok {
			if entry, present := provenance[key]; present {
				entry.Value = val
				provenance[key] = entry
			}
		}
	}

	contradictions := 0
	for _, f := range out.Failures {
		if f.ReasonCode == rules.FailureConstraintFailed {
			contradictions++
		}
	}
	return contradictions
}

func taggedFailures(in []Failure, round int) []Failure {
	out := make([]Failure, len(in))
	for i, f := range in {
		f.Round = round
		out[i] = f
	}
	return out
}

func (o *Orchestrator) populateLearning(ctx context.Context, in RunInput, provenance map[string]candidate.ProvenanceEntry) {
	now := time.Now()
	var accepted []learning.AcceptedValue
	for field, entry := range provenance {
		if !entry.MeetsPassTarget || len(entry.Evidence) == 0 {
			continue
		}
		ev := entry.Evidence[0]
		accepted = append(accepted, learning.AcceptedValue{
			Field:           field,
			Category:        in.Category,
			NormalizedValue: fmt.Sprintf("%v", entry.Value),
			URL:             ev.URL,
			Host:            ev.Host,
			RetrievedAt:     entry.RetrievedAt,
		})
	}
	if len(accepted) == 0 {
		return
	}
	if err := o.learning.PopulateLearningStores(ctx, accepted, now); err != nil {
		o.logger.Warn("learning store population failed", "err", err)
	}
}
