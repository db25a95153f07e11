// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package review

// MergeComponentIdentities transfers values (target wins on collision,
// source-exclusive values are transferred), links, and aliases from
// source into target, per spec.md §4.8. It returns the merged target
// identity and the set of rows keyed to source that must be rewritten to
// target's ID by the caller (via Store.RewriteKeyComponent). Callers
// delete the source identity after rewriting its rows.
func MergeComponentIdentities(source, target Identity) Identity {
	merged := target
	if merged.Values == nil {
		merged.Values = map[string]string{}
	}
	for k, v := range source.Values {
		if _, exists := merged.Values[k]; !exists {
			merged.Values[k] = v
		}
	}
	merged.Links = dedupeAppend(target.Links, source.Links)
	merged.Aliases = dedupeAppend(target.Aliases, source.Aliases)
	merged.Aliases = dedupeAppend(merged.Aliases, []string{source.ID})
	return merged
}

func dedupeAppend(base []string, extra []string) []string {
	seen := make(map[string]bool, len(base))
	out := append([]string(nil), base...)
	for _, v := range out {
		seen[v] = true
	}
	for _, v := range extra {
		if !seen[v] {
			out = append(out, v)
			seen[v] = true
		}
	}
	return out
}

// MergeRows resolves a review-state row collision between a row keyed to
// source (rowFromSource, now being rewritten to point at target) and an
// existing row already keyed to target: the more-progressed status wins
// on each axis, per spec.md §4.8. Value/candidate selection keeps
// whichever row carries the more-progressed AIConfirmSharedStatus,
// falling back to the target row's selection on a tie (target wins
// collisions per the merge rule).
func MergeRows(rowFromSource, existingOnTarget Row) Row {
	merged := moreProgressed(existingOnTarget, rowFromSource)
	if aiConfirmRank[rowFromSource.AIConfirmSharedStatus] > aiConfirmRank[existingOnTarget.AIConfirmSharedStatus] {
		merged.SelectedValue = rowFromSource.SelectedValue
		merged.SelectedCandidateID = rowFromSource.SelectedCandidateID
	} else {
		merged.SelectedValue = existingOnTarget.SelectedValue
		merged.SelectedCandidateID = existingOnTarget.SelectedCandidateID
	}
	merged.Key = existingOnTarget.Key
	return merged
}
