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

// EnumValueRow is one stored value for an enum field, as tracked by the
// review/provenance layer. ApplyPolicyTransition mutates only rows that are
// neither manually entered nor explicitly overridden.
type EnumValueRow struct {
	Value       string
	Manual      bool
	Overridden  bool
	EnumPolicy  EnumPolicy
	NeedsReview bool
}

// ApplyPolicyTransition re-evaluates every non-manual, non-overridden row
// for field against the engine's current (post-transition) EnumPolicy: the
// row's EnumPolicy is updated unconditionally, and NeedsReview is recomputed
// as ¬(value ∈ knownSet) under closed, or false under any open policy.
// Manual and overridden rows are immune to policy transitions and are
// returned unchanged.
func (e *Engine) ApplyPolicyTransition(field string, rows []EnumValueRow) []EnumValueRow {
	fr, ok := e.fields[field]
	if !ok {
		return rows
	}

	out := make([]EnumValueRow, len(rows))
	for i, row := range rows {
		if row.Manual || row.Overridden {
			out[i] = row
			continue
		}

		row.EnumPolicy = fr.EnumPolicy
		switch fr.EnumPolicy {
		case EnumClosed:
			_, known := canonicalizeEnum(fr.KnownValues, row.Value)
			row.NeedsReview = !known
		default:
			row.NeedsReview = false
		}
		out[i] = row
	}
	return out
}
