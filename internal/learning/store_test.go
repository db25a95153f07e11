// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package learning

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/spec-harvester/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := storage.DefaultConfig()
	cfg.InMemory = true
	db, err := storage.OpenDB(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, nil)
}

func TestRecordSeenAndUsedYieldRatio(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.RecordSeen(ctx, "retailer.com", "weight", "mice"))
	require.NoError(t, s.RecordSeen(ctx, "retailer.com", "weight", "mice"))
	require.NoError(t, s.RecordUsed(ctx, "retailer.com", "weight", "mice"))

	entry, found, err := s.GetDomainYield(ctx, "retailer.com", "weight", "mice")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 2, entry.SeenCount)
	require.Equal(t, 1, entry.UsedCount)
	require.InDelta(t, 0.5, entry.Yield(), 0.001)
}

func TestIsLowYield(t *testing.T) {
	e := DomainFieldYieldEntry{SeenCount: 10, UsedCount: 1}
	require.True(t, e.IsLowYield(5, 0.2))
	require.False(t, e.IsLowYield(20, 0.2))
}

func TestPopulateLearningStoresAndReadHints(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now()

	err := s.PopulateLearningStores(ctx, []AcceptedValue{
		{
			Field:           "weight",
			Category:        "mice",
			NormalizedValue: "60",
			AnchorPhrases:   []string{"weight:"},
			URL:             "https://retailer.com/a",
			Host:            "retailer.com",
			RetrievedAt:     now,
		},
	}, now)
	require.NoError(t, err)

	hints, err := s.ReadLearningHintsFromStores(ctx, "mice", []string{"weight"}, 1, 0.1)
	require.NoError(t, err)
	require.Contains(t, hints.AnchorsByField["weight"], "weight:")
	require.Contains(t, hints.KnownURLs["weight"], "https://retailer.com/a")
	require.Contains(t, hints.ComponentValues["weight"], "60")
}

func TestDecayStatusTransitions(t *testing.T) {
	now := time.Now()
	fresh := ComponentLexiconEntry{LastSeenAt: now}
	require.Equal(t, DecayActive, fresh.DecayStatusAt(now))

	decayed := ComponentLexiconEntry{LastSeenAt: now.Add(-100 * 24 * time.Hour)}
	require.Equal(t, DecayDecayed, decayed.DecayStatusAt(now))

	expired := ComponentLexiconEntry{LastSeenAt: now.Add(-200 * 24 * time.Hour)}
	require.Equal(t, DecayExpired, expired.DecayStatusAt(now))
}
