// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package reviewui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/spec-harvester/internal/review"
	"github.com/AleutianAI/spec-harvester/internal/storage"
)

func newTestStore(t *testing.T) *review.Store {
	t.Helper()
	cfg := storage.DefaultConfig()
	cfg.InMemory = true
	db, err := storage.OpenDB(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return review.New(db, nil, nil)
}

func TestServerHealthz(t *testing.T) {
	srv := NewServer(newTestStore(t), nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/v1/review/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServerQueueSnapshotReflectsStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	key := review.Key{Category: "gaming-mice", TargetKind: "field", FieldKey: "weight"}
	_, err := store.ApplyLaneAction(ctx, key, review.LaneAction{Kind: review.ActionAccept, NewValue: "60"})
	require.NoError(t, err)

	srv := NewServer(store, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/v1/review/queue/gaming-mice", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Category string       `json:"category"`
		Rows     []review.Row `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "gaming-mice", body.Category)
	require.Len(t, body.Rows, 1)
	require.Equal(t, "60", body.Rows[0].SelectedValue)
}

func TestHubPublishRowChangedSkipsOtherCategories(t *testing.T) {
	hub := NewHub(nil)
	c := &client{category: "gaming-mice", send: make(chan review.Row, 1), done: make(chan struct{})}
	hub.clients[c] = struct{}{}

	hub.PublishRowChanged(review.Row{Key: review.Key{Category: "keyboards", FieldKey: "layout"}})
	select {
	case <-c.send:
		t.Fatal("should not have received a row for a different category")
	default:
	}

	hub.PublishRowChanged(review.Row{Key: review.Key{Category: "gaming-mice", FieldKey: "weight"}, SelectedValue: "60"})
	row := <-c.send
	require.Equal(t, "60", row.SelectedValue)
}
