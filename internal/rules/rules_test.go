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
	"testing"

	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func weightSizesEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := Config{
		Version:  BundleVersion,
		Category: "gaming-mice",
		FieldRules: []FieldRule{
			{
				FieldKey:      "weight",
				RequiredLevel: RequiredRequired,
				Difficulty:    DifficultyEasy,
				Availability:  AvailabilityAlways,
				Contract: Contract{
					Type:  TypeNumber,
					Shape: ShapeScalar,
					Unit:  "g",
					Range: &Range{Min: ptr(0), Max: ptr(500)},
				},
			},
			{
				FieldKey:      "sizes",
				RequiredLevel: RequiredOptional,
				Difficulty:    DifficultyMedium,
				Availability:  AvailabilitySometimes,
				Contract: Contract{
					Type:  TypeNumber,
					Shape: ShapeList,
					ListRules: &ListRules{
						Dedupe:   true,
						MinItems: 2,
					},
				},
			},
			{
				FieldKey:      "connection_type",
				RequiredLevel: RequiredRequired,
				Difficulty:    DifficultyEasy,
				Availability:  AvailabilityAlways,
				Contract:      Contract{Type: TypeEnum, Shape: ShapeScalar},
				EnumPolicy:    EnumClosed,
				KnownValues:   []string{"Wired", "Wireless", "Bluetooth"},
			},
			{
				FieldKey:      "base_model",
				RequiredLevel: RequiredOptional,
				Difficulty:    DifficultyMedium,
				Availability:  AvailabilityExpected,
				Contract:      Contract{Type: TypeString, Shape: ShapeScalar},
			},
		},
		CrossValidationRules: []Constraint{
			{Field: "weight", Op: OpGT, Literal: "0"},
		},
		KeyMigrations: map[string]string{
			"wt": "weight",
		},
	}
	e, err := Create("gaming-mice", cfg)
	require.NoError(t, err)
	return e
}

func TestCreateRejectsMissingBundle(t *testing.T) {
	_, err := Create("gaming-mice", Config{})
	require.ErrorIs(t, err, ErrRulesNotCompiled)
}

func TestCreateRejectsVersionMismatch(t *testing.T) {
	_, err := Create("gaming-mice", Config{Version: 99})
	require.ErrorIs(t, err, ErrRulesNotCompiled)
}

func TestNormalizeCandidateNumberWithUnitConversion(t *testing.T) {
	e := weightSizesEngine(t)
	res := e.NormalizeCandidate("weight", "60 g")
	require.True(t, res.OK)
	require.Equal(t, 60.0, res.Normalized)

	res = e.NormalizeCandidate("weight", "0.06 kg")
	require.True(t, res.OK)
	require.InDelta(t, 60.0, res.Normalized.(float64), 0.001)
}

func TestNormalizeCandidateRangeViolation(t *testing.T) {
	e := weightSizesEngine(t)
	res := e.NormalizeCandidate("weight", "9000 g")
	require.False(t, res.OK)
	require.Equal(t, FailureRangeViolation, res.FailureCode)
}

func TestNormalizeCandidateUnitUnknown(t *testing.T) {
	e := weightSizesEngine(t)
	res := e.NormalizeCandidate("weight", "60 volts")
	require.False(t, res.OK)
	require.Equal(t, FailureUnitUnknown, res.FailureCode)
}

func TestNormalizeCandidateListDedupe(t *testing.T) {
	e := weightSizesEngine(t)
	res := e.NormalizeCandidate("sizes", "42, 42, 43")
	require.True(t, res.OK)
	require.Equal(t, []any{42.0, 43.0}, res.Normalized)
}

func TestNormalizeCandidateEnumClosedUnknown(t *testing.T) {
	e := weightSizesEngine(t)
	res := e.NormalizeCandidate("connection_type", "Telepathy")
	require.False(t, res.OK)
	require.Equal(t, FailureEnumUnknown, res.FailureCode)
}

func TestNormalizeCandidateEnumCanonicalizesCase(t *testing.T) {
	e := weightSizesEngine(t)
	res := e.NormalizeCandidate("connection_type", "wireless")
	require.True(t, res.OK)
	require.Equal(t, "Wireless", res.Normalized)
}

// Scenario 3 from the spec: dedupe collapses "42, 42" below min_items.
func TestApplyRuntimeGateMinItemsNotMet(t *testing.T) {
	e := weightSizesEngine(t)
	norm := e.NormalizeCandidate("sizes", "42, 42")
	require.True(t, norm.OK)
	require.Len(t, norm.Normalized, 1)

	out := e.ApplyRuntimeGate(RuntimeGateInput{
		Fields:     map[string]any{"sizes": norm.Normalized, "weight": 60.0, "connection_type": "Wireless"},
		FieldOrder: []string{"sizes", "weight", "connection_type"},
	})

	require.Equal(t, Unk, out.Fields["sizes"])
	require.Contains(t, out.Failures, GateFailure{Field: "sizes", ReasonCode: FailureMinItemsNotMet, Stage: "list_rules"})
}

func TestApplyRuntimeGateEnumClosedViolationSetsUnk(t *testing.T) {
	e := weightSizesEngine(t)
	out := e.ApplyRuntimeGate(RuntimeGateInput{
		Fields:     map[string]any{"connection_type": "Telepathy", "weight": 60.0},
		FieldOrder: []string{"connection_type", "weight"},
	})
	require.Equal(t, Unk, out.Fields["connection_type"])
	require.Contains(t, out.Failures, GateFailure{Field: "connection_type", ReasonCode: FailureEnumUnknownUnderClose, Stage: "enum_policy"})
}

func TestApplyRuntimeGateAppliesMigrations(t *testing.T) {
	e := weightSizesEngine(t)
	out := e.ApplyRuntimeGate(RuntimeGateInput{
		Fields: map[string]any{"wt": 60.0, "connection_type": "Wireless"},
	})
	require.Equal(t, 60.0, out.Fields["weight"])
	_, hasOldKey := out.Fields["wt"]
	require.False(t, hasOldKey)
}

func TestApplyRuntimeGateIsIdempotent(t *testing.T) {
	e := weightSizesEngine(t)
	in := map[string]any{"connection_type": "wireless", "weight": 60.0}
	first := e.ApplyRuntimeGate(RuntimeGateInput{Fields: in, FieldOrder: []string{"connection_type", "weight"}})
	second := e.ApplyRuntimeGate(RuntimeGateInput{Fields: first.Fields, FieldOrder: []string{"connection_type", "weight"}})
	require.Equal(t, first.Fields, second.Fields)
}

func TestEvaluateConstraintRequiresSemantics(t *testing.T) {
	e := weightSizesEngine(t)
	c := Constraint{Field: "base_model", Op: OpRequires, Other: "weight"}

	// A unknown -> pass, skipped.
	res := e.EvaluateConstraint(c, nil, map[string]string{})
	require.True(t, res.Pass)
	require.True(t, res.Skipped)

	// A known, B unknown -> fail, dependency missing.
	res = e.EvaluateConstraint(c, nil, map[string]string{"base_model": "G Pro"})
	require.False(t, res.Pass)
	require.True(t, res.DependencyMissing)

	// Both known -> pass.
	res = e.EvaluateConstraint(c, nil, map[string]string{"base_model": "G Pro", "weight": "60"})
	require.True(t, res.Pass)
}

func TestEvaluateConstraintComponentPropsPrecedence(t *testing.T) {
	e := weightSizesEngine(t)
	c := Constraint{Field: "weight", Op: OpEQ, Literal: "60"}
	res := e.EvaluateConstraint(c, map[string]string{"weight": "60"}, map[string]string{"weight": "999"})
	require.True(t, res.Pass)
}
