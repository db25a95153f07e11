// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package learning holds the four durable Learning Stores: component
// lexicon, field anchors, URL memory, and domain/field yield, all with
// age-based decay surfaced at read time, backed by BadgerDB the same way
// the teacher's router embedding cache is (internal/frontier shares the
// same gob+native-TTL idiom).
package learning

import "time"

// DecayStatus is computed at read time from an entry's age against its
// store's half-life and expiry.
type DecayStatus string

const (
	DecayActive  DecayStatus = "active"
	DecayDecayed DecayStatus = "decayed"
	DecayExpired DecayStatus = "expired"
)

// storeHalfLife and storeExpiry are per-store age thresholds from
// spec.md §4.7. A zero expiry means "no expiry" (domain_field_yield has
// neither half-life nor expiry, so decay status is always active there).
const (
	componentLexiconHalfLife = 90 * 24 * time.Hour
	componentLexiconExpiry   = 180 * 24 * time.Hour

	fieldAnchorsHalfLife = 60 * 24 * time.Hour

	urlMemoryHalfLife = 120 * 24 * time.Hour
)

// computeDecayStatus derives DecayStatus from age against halfLife/expiry.
// An entry younger than halfLife is active; older than halfLife (but not
// past expiry, or with no expiry configured) is decayed; past expiry is
// expired.
func computeDecayStatus(age, halfLife, expiry time.Duration) DecayStatus {
	if expiry > 0 && age >= expiry {
		return DecayExpired
	}
	if halfLife > 0 && age >= halfLife {
		return DecayDecayed
	}
	return DecayActive
}

// ComponentLexiconEntry is keyed by (field, category, normalized_value).
type ComponentLexiconEntry struct {
	Field           string
	Category        string
	NormalizedValue string
	SeenCount       int
	LastSeenAt      time.Time
}

// DecayStatus computed relative to now.
func (e ComponentLexiconEntry) DecayStatusAt(now time.Time) DecayStatus {
	return computeDecayStatus(now.Sub(e.LastSeenAt), componentLexiconHalfLife, componentLexiconExpiry)
}

// FieldAnchorEntry is keyed by (field, category, phrase).
type FieldAnchorEntry struct {
	Field      string
	Category   string
	Phrase     string
	SeenCount  int
	LastSeenAt time.Time
}

func (e FieldAnchorEntry) DecayStatusAt(now time.Time) DecayStatus {
	return computeDecayStatus(now.Sub(e.LastSeenAt), fieldAnchorsHalfLife, 0)
}

// URLMemoryEntry is keyed by (field, category, url).
type URLMemoryEntry struct {
	Field       string
	Category    string
	URL         string
	SeenCount   int
	UsedCount   int
	LastSeenAt  time.Time
	LastUsedAt  time.Time
}

func (e URLMemoryEntry) DecayStatusAt(now time.Time) DecayStatus {
	return computeDecayStatus(now.Sub(e.LastSeenAt), urlMemoryHalfLife, 0)
}

// DomainFieldYieldEntry is keyed by (domain, field, category); it has no
// decay (n/a per spec.md §4.7's table).
type DomainFieldYieldEntry struct {
	Domain    string
	Field     string
	Category  string
	SeenCount int
	UsedCount int
}

// Yield returns used/seen, or 0 if nothing has been seen yet.
func (e DomainFieldYieldEntry) Yield() float64 {
	if e.SeenCount == 0 {
		return 0
	}
	return float64(e.UsedCount) / float64(e.SeenCount)
}

// IsLowYield reports whether this domain/field should be surfaced as
// low-yield and deprioritized by the planner: seen ≥ minSeen and
// yield ≤ maxYield.
func (e DomainFieldYieldEntry) IsLowYield(minSeen int, maxYield float64) bool {
	return e.SeenCount >= minSeen && e.Yield() <= maxYield
}

// AcceptedValue is the minimal shape populateLearningStores needs for one
// accepted, evidenced field value.
type AcceptedValue struct {
	Field           string
	Category        string
	NormalizedValue string
	AnchorPhrases   []string
	URL             string
	Host            string
	RetrievedAt     time.Time
}

// Hints is the result of readLearningHintsFromStores(focusFields).
type Hints struct {
	AnchorsByField   map[string][]string
	KnownURLs        map[string][]string
	ComponentValues  map[string][]string
	DomainYields     []DomainFieldYieldEntry
	HighYieldDomains []string
}
