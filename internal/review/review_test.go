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

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/spec-harvester/internal/storage"
)

func TestApplySharedLaneStateConfirmNeverChangesSelection(t *testing.T) {
	row := Row{SelectedValue: "60", UserAcceptSharedStatus: UserAcceptAccepted}
	updated := ApplySharedLaneState(row, LaneAction{Kind: ActionConfirm})
	require.Equal(t, AIConfirmConfirmed, updated.AIConfirmSharedStatus)
	require.Equal(t, "60", updated.SelectedValue)
	require.Equal(t, UserAcceptAccepted, updated.UserAcceptSharedStatus)
}

func TestApplySharedLaneStateAcceptSameSelectionKeepsConfirmStatus(t *testing.T) {
	row := Row{SelectedValue: "60", AIConfirmSharedStatus: AIConfirmConfirmed}
	updated := ApplySharedLaneState(row, LaneAction{Kind: ActionAccept, NewValue: "60"})
	require.Equal(t, AIConfirmConfirmed, updated.AIConfirmSharedStatus)
	require.Equal(t, UserAcceptAccepted, updated.UserAcceptSharedStatus)
}

func TestApplySharedLaneStateAcceptChangedSelectionForcesPending(t *testing.T) {
	row := Row{SelectedValue: "60", AIConfirmSharedStatus: AIConfirmConfirmed}
	updated := ApplySharedLaneState(row, LaneAction{Kind: ActionAccept, NewValue: "63"})
	require.Equal(t, "63", updated.SelectedValue)
	require.Equal(t, AIConfirmPending, updated.AIConfirmSharedStatus)
	require.Equal(t, UserAcceptAccepted, updated.UserAcceptSharedStatus)
}

func TestMergeComponentIdentitiesTargetWinsCollision(t *testing.T) {
	source := Identity{ID: "src", Values: map[string]string{"weight": "60", "dpi": "32000"}}
	target := Identity{ID: "tgt", Values: map[string]string{"weight": "63"}}

	merged := MergeComponentIdentities(source, target)
	require.Equal(t, "63", merged.Values["weight"])
	require.Equal(t, "32000", merged.Values["dpi"])
	require.Contains(t, merged.Aliases, "src")
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := storage.DefaultConfig()
	cfg.InMemory = true
	db, err := storage.OpenDB(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, nil, nil)
}

func TestStoreApplyLaneActionPersists(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	key := Key{Category: "mice", TargetKind: "field", FieldKey: "weight"}

	row, err := s.ApplyLaneAction(ctx, key, LaneAction{Kind: ActionAccept, NewValue: "60", NewCandidateID: "c1"})
	require.NoError(t, err)
	require.Equal(t, "60", row.SelectedValue)

	reloaded, found, err := s.GetRow(ctx, key)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "60", reloaded.SelectedValue)
}

func TestStoreMergeIdentitiesRewritesRowsAndDeletesSource(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	key := Key{Category: "mice", TargetKind: "component", FieldKey: "weight"}
	_, err := s.ApplyLaneAction(ctx, Key{Category: key.Category, TargetKind: key.TargetKind, FieldKey: key.FieldKey, EnumValueOrComponent: "src-id"}, LaneAction{Kind: ActionAccept, NewValue: "60"})
	require.NoError(t, err)

	require.NoError(t, s.putIdentity(ctx, Identity{ID: "src-id", Values: map[string]string{"weight": "60"}}))
	require.NoError(t, s.putIdentity(ctx, Identity{ID: "tgt-id", Values: map[string]string{"dpi": "32000"}}))

	merged, err := s.MergeIdentities(ctx, "src-id", "tgt-id", []Key{
		{Category: key.Category, TargetKind: key.TargetKind, FieldKey: key.FieldKey},
	})
	require.NoError(t, err)
	require.Equal(t, "60", merged.Values["weight"])
	require.Equal(t, "32000", merged.Values["dpi"])

	_, found, err := s.GetIdentity(ctx, "src-id")
	require.NoError(t, err)
	require.False(t, found)

	movedRow, found, err := s.GetRow(ctx, Key{Category: key.Category, TargetKind: key.TargetKind, FieldKey: key.FieldKey, EnumValueOrComponent: "tgt-id"})
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "60", movedRow.SelectedValue)
}
