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

// ApplySharedLaneState applies laneAction to row per spec.md §4.8's
// transition rules and returns the updated row. row is not mutated in
// place; the caller persists the returned value.
//
//   - confirm: set ai_confirm_shared_status = confirmed; never change
//     selection; never clear user accept.
//   - accept with same selection: keep ai_confirm_shared_status as-is;
//     set user_accept_shared_status = accepted.
//   - accept with changed selection: update selection; force
//     ai_confirm_shared_status = pending; set user_accept_shared_status
//     = accepted.
func ApplySharedLaneState(row Row, action LaneAction) Row {
	switch action.Kind {
	case ActionConfirm:
		row.AIConfirmSharedStatus = AIConfirmConfirmed
		return row

	case ActionAccept:
		sameSelection := row.SelectedValue == action.NewValue && row.SelectedCandidateID == action.NewCandidateID
		row.UserAcceptSharedStatus = UserAcceptAccepted
		if !sameSelection {
			row.SelectedValue = action.NewValue
			row.SelectedCandidateID = action.NewCandidateID
			row.AIConfirmSharedStatus = AIConfirmPending
		}
		return row

	default:
		return row
	}
}

// aiConfirmRank and userAcceptRank give the two status axes a total order
// so mergeComponentIdentities can pick "the more-progressed status" on a
// collision, per spec.md §4.8.
var aiConfirmRank = map[AIConfirmStatus]int{
	AIConfirmPending:   0,
	AIConfirmConfirmed: 1,
}

var userAcceptRank = map[UserAcceptStatus]int{
	UserAcceptNone:     0,
	UserAcceptAccepted: 1,
}

// moreProgressed returns whichever row has the higher-ranked status on
// each axis independently (confirmed > pending, accepted > none).
func moreProgressed(a, b Row) Row {
	out := a
	if aiConfirmRank[b.AIConfirmSharedStatus] > aiConfirmRank[out.AIConfirmSharedStatus] {
		out.AIConfirmSharedStatus = b.AIConfirmSharedStatus
	}
	if userAcceptRank[b.UserAcceptSharedStatus] > userAcceptRank[out.UserAcceptSharedStatus] {
		out.UserAcceptSharedStatus = b.UserAcceptSharedStatus
	}
	return out
}
