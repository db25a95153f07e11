// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package needset is the NeedSet / Convergence Engine: it decides, after
// each round, which fields still need work and whether to stop, per
// spec.md §4.6.
package needset

import (
	"math"
	"sort"
	"time"

	"github.com/AleutianAI/spec-harvester/internal/rules"
)

// defaultPassTargets gives the spec's default per-required-level pass
// targets; a field-specific override always wins.
var defaultPassTargets = map[rules.RequiredLevel]float64{
	rules.RequiredCritical: 0.85,
	rules.RequiredRequired: 0.80,
	rules.RequiredExpected: 0.75,
}

// PassTarget returns the effective pass target for a required level.
func PassTarget(level rules.RequiredLevel) float64 {
	if t, ok := defaultPassTargets[level]; ok {
		return t
	}
	return 0.80
}

// EvidenceAge is the minimal shape the decay formula needs from an
// evidence row: when it was retrieved, relative to now.
type EvidenceAge struct {
	RetrievedAt time.Time
}

// decayFloor is the minimum decay value a valid, parseable retrieval
// timestamp can produce.
const decayFloor = 0.05

// Decay computes decay = clamp(2^(-age_days/decayDays), decayFloor, 1.0).
// A zero RetrievedAt (missing/unparseable) yields decay = 1.0.
func Decay(retrievedAt time.Time, now time.Time, decayDays float64) float64 {
	if retrievedAt.IsZero() {
		return 1.0
	}
	if decayDays <= 0 {
		decayDays = 14
	}
	ageDays := now.Sub(retrievedAt).Hours() / 24
	d := math.Pow(2, -ageDays/decayDays)
	if d < decayFloor {
		return decayFloor
	}
	if d > 1.0 {
		return 1.0
	}
	return d
}

// EffectiveConfidence computes raw_confidence × max(decay over evidence).
func EffectiveConfidence(rawConfidence float64, evidenceRetrievedAt []time.Time, now time.Time, decayDays float64) float64 {
	maxDecay := 0.0
	for _, t := range evidenceRetrievedAt {
		if d := Decay(t, now, decayDays); d > maxDecay {
			maxDecay = d
		}
	}
	if len(evidenceRetrievedAt) == 0 {
		maxDecay = 1.0
	}
	return rawConfidence * maxDecay
}

// FieldState is the per-field input to the NeedSet evaluation.
type FieldState struct {
	FieldKey                string
	RequiredLevel           rules.RequiredLevel
	Difficulty              rules.Difficulty
	Availability            rules.Availability
	EffectiveConfidence     float64
	RefsSelected            int
	MinRefsRequired         int
	DistinctSourcesSelected int
	DistinctSourcesRequired int
	RetrievalQuery          string
}

// Row is a NeedSet row per spec.md §3.
type Row struct {
	FieldKey                string
	RequiredLevel           rules.RequiredLevel
	NeedScore               float64
	EffectiveConfidence     float64
	MinRefsRequired         int
	RefsSelected            int
	MinRefsSatisfied        bool
	DistinctSourcesRequired int
	DistinctSourcesSelected int
	RetrievalQuery          string
}

var requiredLevelWeight = map[rules.RequiredLevel]float64{
	rules.RequiredCritical: 1.5,
	rules.RequiredRequired: 1.0,
	rules.RequiredExpected: 0.6,
}

var difficultyMultiplier = map[rules.Difficulty]float64{
	rules.DifficultyEasy:      1.0,
	rules.DifficultyMedium:    1.2,
	rules.DifficultyHard:      1.5,
	rules.DifficultyVeryHard:  1.8,
	rules.DifficultyExtraHard: 2.2,
}

var availabilityMultiplier = map[rules.Availability]float64{
	rules.AvailabilityAlways:    0.8,
	rules.AvailabilityExpected:  1.0,
	rules.AvailabilitySometimes: 1.3,
	rules.AvailabilityRare:      1.7,
	rules.AvailabilityUnknown:   1.0,
}

// needSetEligibleLevels is the set of required_level values that can ever
// appear in the NeedSet.
var needSetEligibleLevels = map[rules.RequiredLevel]bool{
	rules.RequiredCritical: true,
	rules.RequiredRequired: true,
	rules.RequiredExpected: true,
}

// Evaluate builds the NeedSet from per-field state, per the spec.md §4.6
// inclusion rule, and returns rows sorted by descending need_score (the
// caller takes the top-N as the round's focus).
func Evaluate(states []FieldState) []Row {
	var rows []Row
	for _, s := range states {
		if !needSetEligibleLevels[s.RequiredLevel] {
			continue
		}
		passTarget := PassTarget(s.RequiredLevel)

		belowConfidence := s.EffectiveConfidence < passTarget
		belowRefs := s.RefsSelected < s.MinRefsRequired
		belowSources := s.DistinctSourcesRequired > 0 && s.DistinctSourcesSelected < s.DistinctSourcesRequired

		if !belowConfidence && !belowRefs && !belowSources {
			continue
		}

		needScore := requiredLevelWeight[s.RequiredLevel] *
			math.Max(passTarget-s.EffectiveConfidence, 0) *
			difficultyMultiplier[s.Difficulty] *
			availabilityMultiplier[s.Availability]

		rows = append(rows, Row{
			FieldKey:                s.FieldKey,
			RequiredLevel:           s.RequiredLevel,
			NeedScore:               needScore,
			EffectiveConfidence:     s.EffectiveConfidence,
			MinRefsRequired:         s.MinRefsRequired,
			RefsSelected:            s.RefsSelected,
			MinRefsSatisfied:        s.RefsSelected >= s.MinRefsRequired,
			DistinctSourcesRequired: s.DistinctSourcesRequired,
			DistinctSourcesSelected: s.DistinctSourcesSelected,
			RetrievalQuery:          s.RetrievalQuery,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].NeedScore > rows[j].NeedScore })
	return rows
}

// Focus returns the top-N scored rows as the round's focus fields.
func Focus(rows []Row, n int) []Row {
	if n <= 0 || n >= len(rows) {
		return rows
	}
	return rows[:n]
}
