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
	"fmt"
	"sort"
)

// ApplyRuntimeGate is the final pass applied before publish: migrations,
// enum canonicalization (respecting policy), list sort+min/max enforcement,
// then cross-field constraints. On list min_items_not_met or enum-closed
// violation the field is set to the sentinel Unk and a failure is
// recorded. ApplyRuntimeGate is idempotent: gate(gate(x)) == gate(x).
func (e *Engine) ApplyRuntimeGate(input RuntimeGateInput) RuntimeGateOutput {
	fields := e.ApplyMigrations(input.Fields)

	out := RuntimeGateOutput{Fields: fields}

	order := input.FieldOrder
	if len(order) == 0 {
		order = e.FieldOrder()
	}

	for _, key := range order {
		fr, ok := e.fields[key]
		if !ok {
			continue
		}
		val, present := fields[key]
		if !present {
			continue
		}

		switch {
		case fr.Contract.Type == TypeEnum && fr.Contract.Shape == ShapeScalar:
			fields[key] = e.gateEnumScalar(fr, val, &out)
		case fr.Contract.Shape == ShapeList:
			fields[key] = e.gateList(fr, val, &out)
		}
	}

	productValues := stringifyFields(fields)
	e.gateConstraints(e.allConstraints(order), input.ComponentProps, productValues, fields, &out)

	return out
}

func (e *Engine) allConstraints(order []string) []Constraint {
	all := make([]Constraint, 0, len(e.crossValidationRules))
	all = append(all, e.crossValidationRules...)
	for _, key := range order {
		if fr, ok := e.fields[key]; ok {
			all = append(all, fr.Constraints...)
		}
	}
	return all
}

func (e *Engine) gateConstraints(constraints []Constraint, componentProps, productValues map[string]string, fields map[string]any, out *RuntimeGateOutput) {
	for _, c := range constraints {
		res := e.EvaluateConstraint(c, componentProps, productValues)
		if res.Skipped || res.Pass {
			continue
		}
		out.Failures = append(out.Failures, GateFailure{
			Field:      c.Field,
			ReasonCode: FailureConstraintFailed,
			Stage:      "constraints",
		})
	}
}

func (e *Engine) gateEnumScalar(fr FieldRule, val any, out *RuntimeGateOutput) any {
	str, ok := val.(string)
	if !ok || str == Unk {
		return val
	}

	canonical, known := canonicalizeEnum(fr.KnownValues, str)
	if known {
		if canonical != str {
			out.Changes = append(out.Changes, GateChange{Field: fr.FieldKey, Kind: "enum_canonicalized", Detail: canonical})
		}
		return canonical
	}

	switch fr.EnumPolicy {
	case EnumOpen, EnumOpenPreferKnown:
		return str
	default:
		out.Failures = append(out.Failures, GateFailure{
			Field:      fr.FieldKey,
			ReasonCode: FailureEnumUnknownUnderClose,
			Stage:      "enum_policy",
		})
		return Unk
	}
}

func (e *Engine) gateList(fr FieldRule, val any, out *RuntimeGateOutput) any {
	items, ok := val.([]any)
	if !ok {
		return val
	}

	lr := fr.Contract.ListRules
	if lr == nil {
		return val
	}

	if lr.MinItems > 0 && len(items) < lr.MinItems {
		out.Failures = append(out.Failures, GateFailure{
			Field:      fr.FieldKey,
			ReasonCode: FailureMinItemsNotMet,
			Stage:      "list_rules",
		})
		return Unk
	}

	sorted := make([]any, len(items))
	copy(sorted, items)
	if lr.Sort != SortNone && lr.Sort != "" {
		sort.SliceStable(sorted, func(i, j int) bool {
			less := fmt.Sprint(sorted[i]) < fmt.Sprint(sorted[j])
			if lr.Sort == SortDesc {
				return !less
			}
			return less
		})
		out.Changes = append(out.Changes, GateChange{Field: fr.FieldKey, Kind: "list_sorted", Detail: string(lr.Sort)})
	}

	if lr.MaxItems > 0 && len(sorted) > lr.MaxItems {
		sorted = sorted[:lr.MaxItems]
		out.Changes = append(out.Changes, GateChange{Field: fr.FieldKey, Kind: "list_truncated"})
	}

	return sorted
}

func stringifyFields(fields map[string]any) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = fmt.Sprint(v)
	}
	return out
}
