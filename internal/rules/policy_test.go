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

func TestApplyPolicyTransitionOpenToClosed(t *testing.T) {
	cfg := Config{
		Version: BundleVersion,
		FieldRules: []FieldRule{
			{
				FieldKey:      "connection_type",
				RequiredLevel: RequiredExpected,
				Difficulty:    DifficultyEasy,
				Availability:  AvailabilityAlways,
				Contract:      Contract{Type: TypeEnum, Shape: ShapeScalar},
				EnumPolicy:    EnumClosed,
				KnownValues:   []string{"Wired", "Wireless"},
			},
		},
	}
	e, err := Create("gaming-mice", cfg)
	require.NoError(t, err)

	rows := []EnumValueRow{
		{Value: "Wireless", EnumPolicy: EnumOpenPreferKnown},
		{Value: "Satellite", EnumPolicy: EnumOpenPreferKnown},
		{Value: "Satellite", EnumPolicy: EnumOpenPreferKnown, Manual: true},
	}

	out := e.ApplyPolicyTransition("connection_type", rows)

	require.Equal(t, EnumClosed, out[0].EnumPolicy)
	require.False(t, out[0].NeedsReview)

	require.Equal(t, EnumClosed, out[1].EnumPolicy)
	require.True(t, out[1].NeedsReview)

	// Manual row is immune to the transition.
	require.Equal(t, EnumOpenPreferKnown, out[2].EnumPolicy)
	require.False(t, out[2].NeedsReview)
}
