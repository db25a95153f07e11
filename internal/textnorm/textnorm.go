// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package textnorm holds the small set of string-normalization helpers
// shared by the identity matcher, the field rules engine, and the candidate
// pipeline: sentinel detection, whitespace collapsing, slugging, and the
// token/bigram similarity measures used for identity scoring.
package textnorm

import (
	"regexp"
	"strings"
)

// sentinels are values treated as "unknown" wherever the spec says a value
// must be non-blank and not a placeholder.
var sentinels = map[string]struct{}{
	"unk": {}, "unknown": {}, "na": {}, "n/a": {}, "none": {}, "null": {}, "": {},
}

// Known reports whether v is a real value: non-empty after trimming and not
// one of the reserved placeholder sentinels (case-insensitive).
func Known(v string) bool {
	_, isSentinel := sentinels[strings.ToLower(strings.TrimSpace(v))]
	return !isSentinel
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// CollapseWhitespace trims v and replaces runs of whitespace with a single
// space.
func CollapseWhitespace(v string) string {
	return whitespaceRe.ReplaceAllString(strings.TrimSpace(v), " ")
}

// NormalizeForDedupe lowercases and collapses whitespace, the canonical form
// list-rule dedup compares on.
func NormalizeForDedupe(v string) string {
	return strings.ToLower(CollapseWhitespace(v))
}

var slugNonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)
var slugDashRunRe = regexp.MustCompile(`-+`)

// Slug lowercases parts, replaces runs of non-alphanumeric characters with a
// single '-', and joins them with '-'. Empty parts are dropped.
func Slug(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		s := slugNonAlnumRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(p)), "-")
		s = slugDashRunRe.ReplaceAllString(s, "-")
		s = strings.Trim(s, "-")
		if s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, "-")
}

// TokenSet splits s on non-alphanumeric boundaries into a lowercase token
// set.
func TokenSet(s string) map[string]struct{} {
	fields := slugNonAlnumRe.Split(strings.ToLower(strings.TrimSpace(s)), -1)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f != "" {
			set[f] = struct{}{}
		}
	}
	return set
}

// JaccardTokens returns the Jaccard index of the token sets of a and b: the
// size of their intersection over the size of their union. Two empty sets
// are defined as similarity 1.0 (vacuously identical).
func JaccardTokens(a, b string) float64 {
	ta, tb := TokenSet(a), TokenSet(b)
	if len(ta) == 0 && len(tb) == 0 {
		return 1.0
	}
	inter := 0
	for t := range ta {
		if _, ok := tb[t]; ok {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// bigrams returns the set of character bigrams of s (lowercased, whitespace
// collapsed to a single separator).
func bigrams(s string) map[string]int {
	norm := CollapseWhitespace(strings.ToLower(s))
	runes := []rune(norm)
	grams := make(map[string]int, len(runes))
	if len(runes) < 2 {
		if len(runes) == 1 {
			grams[string(runes)]++
		}
		return grams
	}
	for i := 0; i < len(runes)-1; i++ {
		grams[string(runes[i:i+2])]++
	}
	return grams
}

// DiceBigram computes the Sorensen-Dice coefficient over character bigrams
// of a and b — a robust fuzzy-string similarity that tolerates small
// spelling/spacing differences, which plain token overlap does not.
func DiceBigram(a, b string) float64 {
	ga, gb := bigrams(a), bigrams(b)
	if len(ga) == 0 && len(gb) == 0 {
		return 1.0
	}
	overlap := 0
	for g, ca := range ga {
		if cb, ok := gb[g]; ok {
			if ca < cb {
				overlap += ca
			} else {
				overlap += cb
			}
		}
	}
	total := 0
	for _, c := range ga {
		total += c
	}
	for _, c := range gb {
		total += c
	}
	if total == 0 {
		return 0
	}
	return 2 * float64(overlap) / float64(total)
}
