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
	"fmt"

	"github.com/AleutianAI/spec-harvester/internal/identity"
	"github.com/AleutianAI/spec-harvester/internal/rules"
)

func toComparable(v any) string {
	return fmt.Sprintf("%v", v)
}

// ApplyIdentityGateToCandidates mirrors spec.md §4.5 step 3. If the
// source's identity match is true, candidates pass through unchanged with
// TargetMatchPassed set. Otherwise OriginalConfidence is preserved,
// Confidence is capped at the identity score, and identity-gated fields
// (see IdentityGateSet) receive an additional, stricter cap.
func ApplyIdentityGateToCandidates(candidates []Candidate, match identity.MatchResult) []Candidate {
	out := make([]Candidate, len(candidates))
	for i, c := range candidates {
		c.TargetMatchScore = match.Score
		if match.Match {
			c.TargetMatchPassed = true
			out[i] = c
			continue
		}

		c.TargetMatchPassed = false
		orig := c.Confidence
		c.OriginalConfidence = &orig
		if c.Confidence > match.Score {
			c.Confidence = match.Score
		}
		if IdentityGateSet[c.Field] && c.Confidence > identityGateStricterCap {
			c.Confidence = identityGateStricterCap
		}
		out[i] = c
	}
	return out
}

// ScoreCandidate computes base(method) + field_match_bonus +
// plausibility(field, value), with plausibility bounded to ±6 points, per
// spec.md §4.5 step 4.
func ScoreCandidate(c Candidate, fieldMatchBonus int, plausibility func(field string, value any) int) int {
	score := methodPriority[c.Method] + fieldMatchBonus
	if plausibility != nil {
		p := plausibility(c.Field, c.Value)
		if p > 6 {
			p = 6
		}
		if p < -6 {
			p = -6
		}
		score += p
	}
	return score
}

// NormalizeAndScore runs every candidate through rules.NormalizeCandidate,
// dropping any that fail (with a caller-supplied sink for the dropped
// reason), and attaches a score to each survivor.
func NormalizeAndScore(engine *rules.Engine, candidates []Candidate, plausibility func(field string, value any) int, onDropped func(c Candidate, reason rules.FailureCode)) []scoredCandidate {
	var out []scoredCandidate
	for _, c := range candidates {
		if _, ok := engine.Field(c.Field); !ok {
			if onDropped != nil {
				onDropped(c, rules.FailureParseFailed)
			}
			continue
		}
		res := engine.NormalizeCandidate(c.Field, fmt.Sprintf("%v", c.Value))
		if !res.OK {
			if onDropped != nil {
				onDropped(c, res.FailureCode)
			}
			continue
		}
		c.Value = res.Normalized
		score := ScoreCandidate(c, 0, plausibility)
		out = append(out, scoredCandidate{Candidate: c, Score: score})
	}
	return out
}

type scoredCandidate struct {
	Candidate
	Score int
}

// Dedup collapses candidates sharing (field, value, method, key_path),
// keeping the highest-scoring survivor of each group, per spec.md §4.5
// step 5.
func Dedup(candidates []scoredCandidate) []scoredCandidate {
	best := make(map[string]scoredCandidate)
	order := make([]string, 0, len(candidates))
	for _, c := range candidates {
		key := c.dedupeKey()
		if existing, ok := best[key]; !ok {
			best[key] = c
			order = append(order, key)
		} else if c.Score > existing.Score {
			best[key] = c
		}
	}
	out := make([]scoredCandidate, 0, len(order))
	for _, k := range order {
		out = append(out, best[k])
	}
	return out
}

// MergeIntoProvenance folds deduped, scored candidates into per-field
// provenance, per spec.md §4.5 step 6. For each field, the
// highest-scoring candidate's value becomes provisional; all candidates
// agreeing after normalization contribute evidence and increment
// confirmations; identity-matched evidence increments
// approved_confirmations. An identity-REJECT source's candidates are
// retained under RejectedEvidence rather than dropped.
func MergeIntoProvenance(existing map[string]ProvenanceEntry, candidates []scoredCandidate, passTargets map[string]float64) map[string]ProvenanceEntry {
	if existing == nil {
		existing = make(map[string]ProvenanceEntry)
	}

	byField := make(map[string][]scoredCandidate)
	for _, c := range candidates {
		byField[c.Field] = append(byField[c.Field], c)
	}

	for field, group := range byField {
		entry := existing[field]
		best := group[0]
		for _, c := range group[1:] {
			if c.Score > best.Score {
				best = c
			}
		}

		entry.Value = best.Value
		entry.Confidence = best.Confidence
		entry.PassTarget = passTargets[field]

		for _, c := range group {
			ev := EvidenceEntry{
				URL:         c.URL,
				Host:        c.Host,
				RootDomain:  c.Host,
				Tier:        c.Tier,
				Method:      c.Method,
				Quote:       c.Evidence.Quote,
				RetrievedAt: c.RetrievedAt,
			}
			if !c.TargetMatchPassed && c.IdentityRejectReason != "" {
				entry.RejectedEvidence = append(entry.RejectedEvidence, ev)
				continue
			}
			if toComparable(c.Value) == toComparable(best.Value) {
				entry.Evidence = append(entry.Evidence, ev)
				entry.Confirmations++
				if c.TargetMatchPassed {
					entry.ApprovedConfirmations++
				}
			}
		}

		entry.MeetsPassTarget = entry.Confidence >= entry.PassTarget
		existing[field] = entry
	}

	return existing
}
