// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package orchestrator is the Orchestration Loop: it ties the Source
// Planner, Fetch Scheduler, Candidate Pipeline, and NeedSet/Convergence
// Engine together per product across rounds, per spec.md §2/§4.6's
// orchestration loop invariant, in the phase-driven shape of the teacher's
// agent/phases Dependencies-threaded execution loop.
package orchestrator

import (
	"context"
	"time"

	"github.com/AleutianAI/spec-harvester/internal/candidate"
	"github.com/AleutianAI/spec-harvester/internal/identity"
	"github.com/AleutianAI/spec-harvester/internal/needset"
	"github.com/AleutianAI/spec-harvester/internal/planner"
	"github.com/AleutianAI/spec-harvester/internal/rules"
	"github.com/AleutianAI/spec-harvester/internal/scheduler"
)

// ExtractFunc turns one fetch result's page data into raw, surface-tagged
// fields. Surface-specific extraction (HTML tables, ld+json, network JSON,
// PDF) is imported the same way the Fetcher and LLM client are (spec.md
// §6) — the orchestration loop's correctness never depends on which
// extractor produced a RawField, only on its Surface tag.
type ExtractFunc func(ctx context.Context, result scheduler.FetchResult) ([]candidate.RawField, error)

// QueryFunc resolves one retrieval query (generated for an under-supported
// NeedSet field) into candidate URLs to enqueue. Like ExtractFunc and the
// Fetcher/LLM client (spec.md §6), query execution against a search
// provider is imported, not built here; the orchestrator only decides
// *when* to issue a query, via the Frontier Store's query cooldown.
type QueryFunc func(ctx context.Context, query string) ([]string, error)

// FailureKind is the spec.md §7 error taxonomy's top-level classification.
// It groups failures by *kind*, not by Go type, so a failures[] list can be
// serialized and inspected uniformly regardless of which component raised
// it.
type FailureKind string

const (
	FailureKindInput       FailureKind = "input_error"
	FailureKindNetwork     FailureKind = "network_error"
	FailureKindExtraction  FailureKind = "extraction_error"
	FailureKindGate        FailureKind = "gate_error"
	FailureKindConvergence FailureKind = "convergence_error"
	FailureKindStorage     FailureKind = "storage_error"
)

// Failure is one recorded round-level failure, never an unwound Go error
// (spec.md §9's sum-type-results re-architecture).
type Failure struct {
	Kind    FailureKind
	Code    string
	Field   string
	Detail  string
	Round   int
}

// RunInput is everything one product run needs: the job identity lock, the
// category's compiled rule engine, and the URLs discovered so far.
type RunInput struct {
	Category string
	Lock     identity.Lock
	SeedURLs []string
}

// Config bounds one product run across rounds.
type Config struct {
	Planner       planner.Config
	SchedulerOpts scheduler.DrainOptions
	MaxRounds     int
	NoProgressLimit     int
	MaxLowQualityRounds int
	FocusFieldCount     int
	DecayDays           float64
}

// DefaultConfig returns reasonable per-product run bounds.
func DefaultConfig() Config {
	return Config{
		Planner:             planner.DefaultConfig(),
		MaxRounds:           8,
		NoProgressLimit:     3,
		MaxLowQualityRounds: 3,
		FocusFieldCount:     6,
		DecayDays:           14,
	}
}

// RoundResult is what one orchestration round produced, before the stop
// condition is evaluated.
type RoundResult struct {
	Context    needset.RoundContext
	Provenance map[string]candidate.ProvenanceEntry
	NeedSet    []needset.Row
	Progress   needset.ProgressResult
	Failures   []Failure
}

// RunResult is the terminal outcome of Run, always populated even when the
// run stops early — spec.md §7's "a run always produces a summary"
// guarantee.
type RunResult struct {
	ProductID    string
	Rounds       int
	StopReason   needset.StopReason
	Provenance   map[string]candidate.ProvenanceEntry
	NeedSet      []needset.Row
	Failures     []Failure
	RoundHistory []RoundResult
	Validated    bool
	Publishable  bool
	StartedAt    time.Time
	FinishedAt   time.Time
}

// fieldRuleState adapts a compiled FieldRule plus its current provenance
// entry into the needset.FieldState the convergence engine consumes.
func fieldRuleState(fr rules.FieldRule, entry candidate.ProvenanceEntry, now time.Time, decayDays float64) needset.FieldState {
	var retrievedAts []time.Time
	for _, ev := range entry.Evidence {
		retrievedAts = append(retrievedAts, ev.RetrievedAt)
	}
	effective := needset.EffectiveConfidence(entry.Confidence, retrievedAts, now, decayDays)

	minRefs := fr.Evidence.MinEvidenceRefs
	if minRefs <= 0 && fr.Evidence.Required {
		minRefs = 1
	}

	return needset.FieldState{
		FieldKey:                fr.FieldKey,
		RequiredLevel:           fr.RequiredLevel,
		Difficulty:              fr.Difficulty,
		Availability:            fr.Availability,
		EffectiveConfidence:     effective,
		RefsSelected:            len(entry.Evidence),
		MinRefsRequired:         minRefs,
		DistinctSourcesSelected: distinctHosts(entry.Evidence),
	}
}

func distinctHosts(evs []candidate.EvidenceEntry) int {
	seen := make(map[string]bool, len(evs))
	for _, e := range evs {
		seen[e.Host] = true
	}
	return len(seen)
}
