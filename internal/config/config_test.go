// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/spec-harvester/internal/rules"
	"github.com/AleutianAI/spec-harvester/internal/storage"
)

func TestHostPolicyTableNormalizesHost(t *testing.T) {
	table := NewHostPolicyTable(map[string]HostPolicy{
		"WWW.Example.com": {PerHostMinDelayMs: 750},
	})
	got := table.Lookup("example.com")
	require.Equal(t, 750, got.PerHostMinDelayMs)

	fallback := table.Lookup("other.com")
	require.Equal(t, DefaultHostPolicy(), fallback)
}

func TestCompileAndRoundTripBundle(t *testing.T) {
	ctx := context.Background()
	store := storage.NewLocalFS(t.TempDir())

	src := CategorySource{
		Category: "gaming-mice",
		FieldRules: []rules.FieldRule{
			{FieldKey: "weight", RequiredLevel: rules.RequiredRequired, Contract: rules.Contract{Type: rules.TypeNumber, Shape: rules.ShapeScalar, Unit: "g"}},
		},
		KnownValues:   map[string][]string{"connection_type": {"Wired", "Wireless"}},
		KeyMigrations: map[string]string{"wt": "weight"},
	}
	cfg := Compile(src)
	require.Equal(t, rules.BundleVersion, cfg.Version)

	require.NoError(t, WriteCompiledBundle(ctx, store, "gaming-mice", cfg))

	loaded, err := LoadCompiledBundle(ctx, store, "gaming-mice")
	require.NoError(t, err)
	require.Equal(t, rules.BundleVersion, loaded.Version)
	require.Len(t, loaded.FieldRules, 1)
	require.Equal(t, "weight", loaded.FieldRules[0].FieldKey)
	require.Equal(t, []string{"Wired", "Wireless"}, loaded.KnownValues["connection_type"])

	engine, err := rules.Create("gaming-mice", loaded)
	require.NoError(t, err)
	_, ok := engine.Field("weight")
	require.True(t, ok)
}

func TestLoadCompiledBundleMissingReturnsNotCompiled(t *testing.T) {
	ctx := context.Background()
	store := storage.NewLocalFS(t.TempDir())

	cfg, err := LoadCompiledBundle(ctx, store, "unknown-category")
	require.NoError(t, err)
	require.Equal(t, 0, cfg.Version)

	_, err = rules.Create("unknown-category", cfg)
	require.ErrorIs(t, err, rules.ErrRulesNotCompiled)
}

func TestLoadReloadableEngine(t *testing.T) {
	ctx := context.Background()
	store := storage.NewLocalFS(t.TempDir())
	cfg := Compile(CategorySource{
		Category:   "gaming-mice",
		FieldRules: []rules.FieldRule{{
			FieldKey:      "weight",
			RequiredLevel: rules.RequiredRequired,
			Difficulty:    rules.DifficultyEasy,
			Availability:  rules.AvailabilityAlways,
			Contract:      rules.Contract{Type: rules.TypeNumber, Shape: rules.ShapeScalar},
		}},
	})
	require.NoError(t, WriteCompiledBundle(ctx, store, "gaming-mice", cfg))

	re, err := LoadReloadableEngine(ctx, store, "gaming-mice")
	require.NoError(t, err)
	require.NotNil(t, re.Get())
	_, ok := re.Get().Field("weight")
	require.True(t, ok)
}
