// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package needset

import "strings"

// ProgressReason is one of the named reasons evaluateRoundProgress can
// report.
type ProgressReason string

const (
	ReasonFirstRound              ProgressReason = "first_round"
	ReasonMissingRequiredReduced   ProgressReason = "missing_required_reduced"
	ReasonCriticalReduced         ProgressReason = "critical_reduced"
	ReasonContradictionsReduced   ProgressReason = "contradictions_reduced"
	ReasonConfidenceUp            ProgressReason = "confidence_up"
	ReasonValidated               ProgressReason = "validated"
)

// minConfidenceDelta is the threshold below which a confidence change does
// not count as progress.
const minConfidenceDelta = 0.01

// RoundSnapshot is the subset of round state evaluateRoundProgress compares
// between two rounds.
type RoundSnapshot struct {
	RoundIndex          int
	MissingRequiredCount int
	CriticalMissingCount int
	ContradictionCount  int
	AvgConfidence       float64
	Validated           bool
}

// ProgressResult is the outcome of evaluateRoundProgress.
type ProgressResult struct {
	Improved bool
	Reasons  []ProgressReason
}

// EvaluateRoundProgress compares previous and current round snapshots per
// spec.md §4.6.
func EvaluateRoundProgress(previous *RoundSnapshot, current RoundSnapshot) ProgressResult {
	if previous == nil {
		return ProgressResult{Improved: true, Reasons: []ProgressReason{ReasonFirstRound}}
	}

	var reasons []ProgressReason
	if current.MissingRequiredCount < previous.MissingRequiredCount {
		reasons = append(reasons, ReasonMissingRequiredReduced)
	}
	if current.CriticalMissingCount < previous.CriticalMissingCount {
		reasons = append(reasons, ReasonCriticalReduced)
	}
	if current.ContradictionCount < previous.ContradictionCount {
		reasons = append(reasons, ReasonContradictionsReduced)
	}
	if current.AvgConfidence-previous.AvgConfidence >= minConfidenceDelta {
		reasons = append(reasons, ReasonConfidenceUp)
	}
	if current.Validated && !previous.Validated {
		reasons = append(reasons, ReasonValidated)
	}

	return ProgressResult{Improved: len(reasons) > 0, Reasons: reasons}
}

// StopReason is one of the named stop conditions, evaluated in order.
type StopReason string

const (
	StopCompleted          StopReason = "completed"
	StopBudgetExhausted    StopReason = "budget_exhausted"
	StopMaxRoundsReached   StopReason = "max_rounds_reached"
	StopNoProgressStreak   StopReason = "no_progress_streak"
	StopLowQualityRounds   StopReason = "low_quality_rounds"
	StopNone               StopReason = ""
)

// StopInput is the state the stop-condition evaluator needs.
type StopInput struct {
	RoundIndex          int
	AllRequiredMet      bool
	NoContradictions    bool
	BudgetExhausted     bool
	RoundsLimit         int
	NoProgressStreak    int
	NoProgressLimit     int
	LowQualityRounds    int
	MaxLowQualityRounds int
}

// EvaluateStopCondition evaluates the five stop conditions in order,
// first match wins, per spec.md §4.6.
func EvaluateStopCondition(in StopInput) StopReason {
	if in.AllRequiredMet && in.NoContradictions {
		return StopCompleted
	}
	if in.BudgetExhausted && in.RoundIndex > 0 {
		return StopBudgetExhausted
	}
	if in.RoundsLimit > 0 && in.RoundIndex >= in.RoundsLimit {
		return StopMaxRoundsReached
	}
	limit := in.NoProgressLimit
	if limit <= 0 {
		limit = 3
	}
	if in.NoProgressStreak >= limit {
		return StopNoProgressStreak
	}
	if in.MaxLowQualityRounds > 0 && in.LowQualityRounds >= in.MaxLowQualityRounds {
		return StopLowQualityRounds
	}
	return StopNone
}

// Mode is the orchestration round's effort mode.
type Mode string

const (
	ModeBalanced      Mode = "balanced"
	ModeAggressive    Mode = "aggressive"
	ModeUberAggressive Mode = "uber_aggressive"
)

// ResolveMode applies spec.md §4.6's mode aliasing: uber/ultra →
// uber_aggressive, AGGRESSIVE (any case) → aggressive, unknown → balanced.
// Per the spec's Open Questions, uber_aggressive is treated identically to
// aggressive unless an explicit budget override is supplied elsewhere; this
// function only resolves the label, it does not itself apply a budget.
func ResolveMode(raw string) Mode {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "uber", "ultra", "uber_aggressive":
		return ModeUberAggressive
	case "aggressive":
		return ModeAggressive
	case "balanced":
		return ModeBalanced
	default:
		return ModeBalanced
	}
}

// RoundContext is built once per round per spec.md §4.6's orchestration
// loop invariant.
type RoundContext struct {
	RoundIndex       int
	Mode             Mode
	ForceVerify      bool
	MissingRequired  []string
	ExtraQueries     []string
	EscalatedFields  []string
}
