// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package identity

import (
	"strings"

	"github.com/AleutianAI/spec-harvester/internal/textnorm"
)

// Decision is the outcome of matching a source's declared brand/model/sku
// against the job's IdentityLock.
type Decision string

const (
	DecisionAccept Decision = "ACCEPT"
	DecisionReview Decision = "REVIEW"
	DecisionReject Decision = "REJECT"
)

// Thresholds for turning a blended similarity score into a Decision. A
// source at or above acceptThreshold is treated as the same product; below
// rejectThreshold it is treated as unrelated; the band between is a human/AI
// review case, never silently accepted or dropped.
const (
	acceptThreshold = 0.6
	rejectThreshold = 0.35
)

// MatchResult is the per-source identity score: {match, score, decision}.
type MatchResult struct {
	Match    bool
	Score    float64
	Decision Decision
}

// Match scores a source's declared brand/model/sku against lock using a
// blend of token-overlap (Jaccard) and character-bigram (Dice) similarity,
// then classifies the blended score into a Decision. Match is true only for
// DecisionAccept — REVIEW and REJECT both leave Match false, so the
// candidate pipeline's identity gate downgrades rather than blindly passes
// through a merely plausible match.
func Match(lock Lock, sourceBrand, sourceModel, sourceSKU string) MatchResult {
	lockText := strings.TrimSpace(lock.Brand + " " + lock.Model + " " + lock.Variant)
	sourceText := strings.TrimSpace(sourceBrand + " " + sourceModel)

	tokenScore := textnorm.JaccardTokens(lockText, sourceText)
	bigramScore := textnorm.DiceBigram(lockText, sourceText)
	score := 0.5*tokenScore + 0.5*bigramScore

	// An exact SKU match is decisive regardless of fuzzy brand/model text.
	if lock.SKU != "" && sourceSKU != "" && equalFold(lock.SKU, sourceSKU) {
		score = 1.0
	}

	decision := DecisionReject
	switch {
	case score >= acceptThreshold:
		decision = DecisionAccept
	case score >= rejectThreshold:
		decision = DecisionReview
	}

	return MatchResult{
		Match:    decision == DecisionAccept,
		Score:    score,
		Decision: decision,
	}
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
