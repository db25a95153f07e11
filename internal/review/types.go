// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package review is Review State: durable "shared accept/confirm" lane
// state for human and automated review, per spec.md §4.8. Entity
// relations are modeled as stable-ID references rather than back-pointers
// (the arena-and-id redesign spec.md §9 calls for), the same pattern the
// teacher uses for its AST node/symbol graph.
package review

// AIConfirmStatus is the automated-reviewer half of the shared lane.
type AIConfirmStatus string

const (
	AIConfirmPending   AIConfirmStatus = "pending"
	AIConfirmConfirmed AIConfirmStatus = "confirmed"
)

// UserAcceptStatus is the human-reviewer half of the shared lane.
type UserAcceptStatus string

const (
	UserAcceptNone     UserAcceptStatus = ""
	UserAcceptAccepted UserAcceptStatus = "accepted"
)

// Key identifies one reviewable row: (category, target_kind, field_key,
// enum_value_norm | component_identifier[, property_key]).
type Key struct {
	Category            string
	TargetKind          string
	FieldKey            string
	EnumValueOrComponent string
	PropertyKey         string
}

// Row is one reviewable entity's shared-lane state.
type Row struct {
	Key                  Key
	SelectedValue        string
	SelectedCandidateID  string
	AIConfirmSharedStatus AIConfirmStatus
	UserAcceptSharedStatus UserAcceptStatus
}

// LaneAction is the transition requested by applySharedLaneState.
type LaneAction struct {
	Kind          LaneActionKind
	NewValue      string
	NewCandidateID string
}

// LaneActionKind distinguishes confirm from accept.
type LaneActionKind string

const (
	ActionConfirm LaneActionKind = "confirm"
	ActionAccept  LaneActionKind = "accept"
)

// Identity is a component identity: a stable ID plus the values, links,
// and aliases that belong to it. Entities live in a store keyed by this
// ID; relations are ID references, never back-pointers.
type Identity struct {
	ID      string
	Values  map[string]string
	Links   []string
	Aliases []string
}
