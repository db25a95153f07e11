// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rules

import (
	"strconv"
	"strings"
	"time"

	"github.com/AleutianAI/spec-harvester/internal/textnorm"
)

// NormalizeCandidate parses rawValue against field's compiled contract:
// unit conversion, type coercion, and list splitting. List dedupe is
// applied here; sorting and min/max enforcement are deferred to
// ApplyRuntimeGate.
func (e *Engine) NormalizeCandidate(field, rawValue string) NormalizeResult {
	fr, ok := e.fields[field]
	if !ok {
		return NormalizeResult{OK: false, FailureCode: FailureParseFailed}
	}

	if fr.Contract.Shape == ShapeList {
		return e.normalizeList(fr, rawValue)
	}
	return e.normalizeScalar(fr, rawValue)
}

func splitListRaw(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = textnorm.CollapseWhitespace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (e *Engine) normalizeList(fr FieldRule, raw string) NormalizeResult {
	elements := splitListRaw(raw)
	normalized := make([]any, 0, len(elements))

	for _, el := range elements {
		scalarResult := e.normalizeScalarValue(fr, el)
		if !scalarResult.OK {
			return scalarResult
		}
		normalized = append(normalized, scalarResult.Normalized)
	}

	if fr.Contract.ListRules != nil && fr.Contract.ListRules.Dedupe {
		normalized = dedupeList(normalized)
	}

	return NormalizeResult{OK: true, Normalized: normalized}
}

// dedupeList removes elements whose whitespace-normalized lowercased string
// form has already been seen, preserving first-seen order.
func dedupeList(in []any) []any {
	seen := make(map[string]struct{}, len(in))
	out := make([]any, 0, len(in))
	for _, v := range in {
		key := textnorm.NormalizeForDedupe(toComparableString(v))
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

func toComparableString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func (e *Engine) normalizeScalar(fr FieldRule, raw string) NormalizeResult {
	return e.normalizeScalarValue(fr, raw)
}

func (e *Engine) normalizeScalarValue(fr FieldRule, raw string) NormalizeResult {
	switch fr.Contract.Type {
	case TypeNumber:
		return normalizeNumber(fr, raw)
	case TypeString:
		return NormalizeResult{OK: true, Normalized: textnorm.CollapseWhitespace(raw)}
	case TypeBool:
		return normalizeBool(raw)
	case TypeDate:
		return normalizeDate(raw)
	case TypeEnum:
		return e.normalizeEnum(fr, raw)
	default:
		return NormalizeResult{OK: false, FailureCode: FailureParseFailed}
	}
}

func normalizeNumber(fr FieldRule, raw string) NormalizeResult {
	value, unit, ok := parseNumberWithUnit(raw)
	if !ok {
		return NormalizeResult{OK: false, FailureCode: FailureParseFailed}
	}

	target := fr.Contract.Unit
	if target != "" {
		converted, convOK := convertToUnit(value, unit, target)
		if !convOK {
			return NormalizeResult{OK: false, FailureCode: FailureUnitUnknown}
		}
		value = converted
	}

	if r := fr.Contract.Range; r != nil {
		if r.Min != nil && value < *r.Min {
			return NormalizeResult{OK: false, FailureCode: FailureRangeViolation}
		}
		if r.Max != nil && value > *r.Max {
			return NormalizeResult{OK: false, FailureCode: FailureRangeViolation}
		}
	}

	return NormalizeResult{OK: true, Normalized: value}
}

var truthyTokens = map[string]bool{"true": true, "yes": true, "1": true, "y": true}
var falsyTokens = map[string]bool{"false": true, "no": true, "0": true, "n": true}

func normalizeBool(raw string) NormalizeResult {
	token := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case truthyTokens[token]:
		return NormalizeResult{OK: true, Normalized: true}
	case falsyTokens[token]:
		return NormalizeResult{OK: true, Normalized: false}
	default:
		return NormalizeResult{OK: false, FailureCode: FailureParseFailed}
	}
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"01/02/2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

func normalizeDate(raw string) NormalizeResult {
	trimmed := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return NormalizeResult{OK: true, Normalized: t.UTC().Format("2006-01-02")}
		}
	}
	return NormalizeResult{OK: false, FailureCode: FailureParseFailed}
}

func (e *Engine) normalizeEnum(fr FieldRule, raw string) NormalizeResult {
	trimmed := textnorm.CollapseWhitespace(raw)
	canonical, known := canonicalizeEnum(fr.KnownValues, trimmed)
	if known {
		return NormalizeResult{OK: true, Normalized: canonical}
	}

	switch fr.EnumPolicy {
	case EnumOpen, EnumOpenPreferKnown:
		return NormalizeResult{OK: true, Normalized: trimmed}
	default: // EnumClosed (and unset, which defaults closed-strict)
		return NormalizeResult{OK: false, FailureCode: FailureEnumUnknown}
	}
}

// canonicalizeEnum case-insensitively matches value against known, returning
// the canonical (known-set) casing on a hit.
func canonicalizeEnum(known []string, value string) (string, bool) {
	for _, k := range known {
		if strings.EqualFold(k, value) {
			return k, true
		}
	}
	return value, false
}
