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

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/spec-harvester/internal/rules"
)

// TestDecayAtOneHalfLife covers spec.md §8: decay ∈ [0.48, 0.52] when
// age == decayDays and decayFloor < 0.5.
func TestDecayAtOneHalfLife(t *testing.T) {
	now := time.Now()
	retrieved := now.Add(-14 * 24 * time.Hour)
	d := Decay(retrieved, now, 14)
	require.InDelta(t, 0.5, d, 0.02)
}

func TestDecayMissingTimestampIsOne(t *testing.T) {
	require.Equal(t, 1.0, Decay(time.Time{}, time.Now(), 14))
}

// TestConvergenceWithDecayScenario covers spec.md §8 scenario 6.
func TestConvergenceWithDecayScenario(t *testing.T) {
	now := time.Now()
	retrieved := now.Add(-90 * 24 * time.Hour)
	eff := EffectiveConfidence(0.9, []time.Time{retrieved}, now, 14)
	require.InDelta(t, 0.27, eff, 0.05)
	require.Less(t, eff, 0.8)

	rows := Evaluate([]FieldState{{
		FieldKey:            "weight",
		RequiredLevel:       rules.RequiredRequired,
		Difficulty:          rules.DifficultyMedium,
		Availability:        rules.AvailabilityAlways,
		EffectiveConfidence: eff,
		RefsSelected:        1,
		MinRefsRequired:     1,
	}})
	require.Len(t, rows, 1)
	require.Equal(t, "weight", rows[0].FieldKey)
}

func TestEmptyNeedSetStopReasonComplete(t *testing.T) {
	rows := Evaluate(nil)
	require.Empty(t, rows)

	reason := EvaluateStopCondition(StopInput{RoundIndex: 0, AllRequiredMet: true, NoContradictions: true})
	require.Equal(t, StopCompleted, reason)
}

func TestStopConditionsEvaluatedInOrder(t *testing.T) {
	require.Equal(t, StopBudgetExhausted, EvaluateStopCondition(StopInput{RoundIndex: 1, BudgetExhausted: true, RoundsLimit: 10}))
	require.Equal(t, StopMaxRoundsReached, EvaluateStopCondition(StopInput{RoundIndex: 10, RoundsLimit: 10}))
	require.Equal(t, StopNoProgressStreak, EvaluateStopCondition(StopInput{NoProgressStreak: 3}))
	require.Equal(t, StopNone, EvaluateStopCondition(StopInput{}))
}

func TestResolveModeAliases(t *testing.T) {
	require.Equal(t, ModeUberAggressive, ResolveMode("uber"))
	require.Equal(t, ModeUberAggressive, ResolveMode("ultra"))
	require.Equal(t, ModeAggressive, ResolveMode("AGGRESSIVE"))
	require.Equal(t, ModeBalanced, ResolveMode("whatever"))
}

func TestEvaluateRoundProgressFirstRound(t *testing.T) {
	result := EvaluateRoundProgress(nil, RoundSnapshot{})
	require.True(t, result.Improved)
	require.Equal(t, []ProgressReason{ReasonFirstRound}, result.Reasons)
}

func TestEvaluateRoundProgressIgnoresTinyConfidenceDelta(t *testing.T) {
	prev := RoundSnapshot{AvgConfidence: 0.50}
	result := EvaluateRoundProgress(&prev, RoundSnapshot{AvgConfidence: 0.505})
	require.False(t, result.Improved)
}
