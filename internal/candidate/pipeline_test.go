// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package candidate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/spec-harvester/internal/identity"
	"github.com/AleutianAI/spec-harvester/internal/rules"
)

// TestIdentityMismatchDowngrade covers spec.md §8 scenario 2: a rejected
// source's candidates are capped at the identity score and never win.
func TestIdentityMismatchDowngrade(t *testing.T) {
	candidates := []Candidate{
		{Field: "weight", Value: "63", Confidence: 0.9},
		{Field: "brand", Value: "Razer", Confidence: 0.9},
	}
	match := identity.MatchResult{Match: false, Score: 0.15, Decision: identity.DecisionReject}

	gated := ApplyIdentityGateToCandidates(candidates, match)
	require.False(t, gated[0].TargetMatchPassed)
	require.LessOrEqual(t, gated[0].Confidence, 0.15)
	require.NotNil(t, gated[0].OriginalConfidence)
	require.Equal(t, 0.9, *gated[0].OriginalConfidence)

	// brand is in the identity-gated field set: stricter cap applies.
	require.LessOrEqual(t, gated[1].Confidence, identityGateStricterCap)
}

func TestIdentityMatchPassesThrough(t *testing.T) {
	candidates := []Candidate{{Field: "weight", Value: "60", Confidence: 0.8}}
	match := identity.MatchResult{Match: true, Score: 0.92, Decision: identity.DecisionAccept}

	gated := ApplyIdentityGateToCandidates(candidates, match)
	require.True(t, gated[0].TargetMatchPassed)
	require.Equal(t, 0.8, gated[0].Confidence)
	require.Nil(t, gated[0].OriginalConfidence)
}

func TestScoreCandidateBoundsPlausibility(t *testing.T) {
	c := Candidate{Method: SurfaceNetworkJSON}
	score := ScoreCandidate(c, 0, func(string, any) int { return 1000 })
	require.Equal(t, methodPriority[SurfaceNetworkJSON]+6, score)

	score = ScoreCandidate(c, 0, func(string, any) int { return -1000 })
	require.Equal(t, methodPriority[SurfaceNetworkJSON]-6, score)
}

func TestDedupKeepsHighestScoring(t *testing.T) {
	low := scoredCandidate{Candidate: Candidate{Field: "weight", Value: "60", Method: SurfaceDOM, KeyPath: "p"}, Score: 2}
	high := scoredCandidate{Candidate: Candidate{Field: "weight", Value: "60", Method: SurfaceDOM, KeyPath: "p"}, Score: 9}

	out := Dedup([]scoredCandidate{low, high})
	require.Len(t, out, 1)
	require.Equal(t, 9, out[0].Score)
}

func TestMergeIntoProvenanceConfirmationsAndRejected(t *testing.T) {
	group := []scoredCandidate{
		{Candidate: Candidate{Field: "weight", Value: "60", TargetMatchPassed: true}, Score: 9},
		{Candidate: Candidate{Field: "weight", Value: "60", TargetMatchPassed: true}, Score: 7},
		{Candidate: Candidate{Field: "weight", Value: "63", TargetMatchPassed: false, IdentityRejectReason: "score_below_accept"}, Score: 9},
	}

	merged := MergeIntoProvenance(nil, group, map[string]float64{"weight": 0.8})
	entry := merged["weight"]
	require.Equal(t, "60", entry.Value)
	require.Equal(t, 2, entry.Confirmations)
	require.Equal(t, 2, entry.ApprovedConfirmations)
	require.Len(t, entry.RejectedEvidence, 1)
}

func TestNormalizeAndScoreDropsUnknownField(t *testing.T) {
	engine, err := rules.Create("mice", rules.Config{Version: rules.BundleVersion})
	require.NoError(t, err)

	var dropped []rules.FailureCode
	scored := NormalizeAndScore(engine, []Candidate{{Field: "nonexistent", Value: "x"}}, nil, func(c Candidate, reason rules.FailureCode) {
		dropped = append(dropped, reason)
	})
	require.Empty(t, scored)
	require.Equal(t, []rules.FailureCode{rules.FailureParseFailed}, dropped)
}
