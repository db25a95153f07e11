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

	"github.com/AleutianAI/spec-harvester/internal/textnorm"
)

// resolveValue implements the componentProps-then-productValues precedence
// rule: componentProps is checked first, falling back to productValues.
func resolveValue(field string, componentProps, productValues map[string]string) (string, bool) {
	if v, ok := componentProps[field]; ok {
		return v, true
	}
	v, ok := productValues[field]
	return v, ok
}

// EvaluateConstraint evaluates predicate against componentProps (checked
// first) and productValues (fallback).
func (e *Engine) EvaluateConstraint(predicate Constraint, componentProps, productValues map[string]string) ConstraintResult {
	aValue, _ := resolveValue(predicate.Field, componentProps, productValues)
	aKnown := textnorm.Known(aValue)

	if predicate.Op == OpRequires {
		if !aKnown {
			return ConstraintResult{Pass: true, Skipped: true}
		}
		bValue, _ := resolveValue(predicate.Other, componentProps, productValues)
		if !textnorm.Known(bValue) {
			return ConstraintResult{Pass: false, DependencyMissing: true}
		}
		return ConstraintResult{Pass: true}
	}

	var bValue string
	if predicate.Other != "" {
		bValue, _ = resolveValue(predicate.Other, componentProps, productValues)
	} else {
		bValue = predicate.Literal
	}

	numeric := e.isNumericField(predicate.Field)
	pass := compareValues(predicate.Op, aValue, bValue, numeric)
	return ConstraintResult{Pass: pass}
}

func (e *Engine) isNumericField(field string) bool {
	fr, ok := e.fields[field]
	return ok && fr.Contract.Type == TypeNumber
}

// compareValues coerces a/b to numbers when numeric is true, otherwise
// compares whitespace-normalized, lowercased strings.
func compareValues(op ConstraintOp, a, b string, numeric bool) bool {
	if numeric {
		af, aErr := strconv.ParseFloat(a, 64)
		bf, bErr := strconv.ParseFloat(b, 64)
		if aErr == nil && bErr == nil {
			switch op {
			case OpGTE:
				return af >= bf
			case OpLTE:
				return af <= bf
			case OpEQ:
				return af == bf
			case OpNEQ:
				return af != bf
			case OpLT:
				return af < bf
			case OpGT:
				return af > bf
			}
		}
	}

	na, nb := textnorm.NormalizeForDedupe(a), textnorm.NormalizeForDedupe(b)
	switch op {
	case OpEQ:
		return na == nb
	case OpNEQ:
		return na != nb
	case OpGTE:
		return na >= nb
	case OpLTE:
		return na <= nb
	case OpLT:
		return na < nb
	case OpGT:
		return na > nb
	default:
		return false
	}
}
