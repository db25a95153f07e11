// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package identity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLockStatus(t *testing.T) {
	cases := []struct {
		name string
		lock Lock
		want Status
	}{
		{"full with variant", Lock{Brand: "Logitech", Model: "G Pro X Superlight 2", Variant: "Wireless"}, StatusLockedFull},
		{"full with sku", Lock{Brand: "Logitech", Model: "G Pro X Superlight 2", SKU: "910-006631"}, StatusLockedFull},
		{"brand+model only", Lock{Brand: "Razer", Model: "Viper V3 Pro"}, StatusLockedBrandModel},
		{"placeholder variant ignored", Lock{Brand: "Razer", Model: "Viper V3 Pro", Variant: "unk"}, StatusLockedBrandModel},
		{"brand only", Lock{Brand: "Razer"}, StatusLockedPartial},
		{"nothing", Lock{}, StatusUnlocked},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.lock.Status())
		})
	}
}

func TestLockValidate(t *testing.T) {
	require.NoError(t, Lock{Brand: "Razer", Model: "Viper V3 Pro"}.Validate())
	require.ErrorIs(t, Lock{Brand: "Razer"}.Validate(), ErrInsufficientLock)
	require.ErrorIs(t, Lock{}.Validate(), ErrInsufficientLock)
}

func TestProductIDStripsPlaceholderVariant(t *testing.T) {
	id := ProductID("gaming-mice", Lock{Brand: "Logitech", Model: "G Pro X Superlight 2", Variant: "unk"})
	require.Equal(t, "gaming-mice-logitech-g-pro-x-superlight-2", id)
}

func TestProductIDKeepsRealVariant(t *testing.T) {
	id := ProductID("gaming-mice", Lock{Brand: "Logitech", Model: "G Pro X Superlight 2", Variant: "Wireless"})
	require.Equal(t, "gaming-mice-logitech-g-pro-x-superlight-2-wireless", id)
}

func TestMatchAccept(t *testing.T) {
	lock := Lock{Brand: "Logitech", Model: "G Pro X Superlight 2", Variant: "Wireless"}
	res := Match(lock, "Logitech", "G Pro X Superlight 2", "")
	require.True(t, res.Match)
	require.Equal(t, DecisionAccept, res.Decision)
	require.GreaterOrEqual(t, res.Score, acceptThreshold)
}

func TestMatchRejectDifferentProduct(t *testing.T) {
	lock := Lock{Brand: "Razer", Model: "Viper V3 Pro"}
	res := Match(lock, "Razer", "DeathAdder V3", "")
	require.False(t, res.Match)
	require.NotEqual(t, DecisionAccept, res.Decision)
}

func TestMatchSKUOverridesFuzzyScore(t *testing.T) {
	lock := Lock{Brand: "Razer", Model: "Viper V3 Pro", SKU: "RZ01-0005"}
	res := Match(lock, "Razer Inc", "Viper 3 Professional Edition", "RZ01-0005")
	require.Equal(t, DecisionAccept, res.Decision)
	require.Equal(t, 1.0, res.Score)
}
