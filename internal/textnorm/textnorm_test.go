// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package textnorm

import "testing"

func TestKnown(t *testing.T) {
	cases := map[string]bool{
		"Logitech": true,
		"unk":      false,
		"UNKNOWN":  false,
		"n/a":      false,
		"N/A":      false,
		"":         false,
		"  ":       false,
		"none":     false,
	}
	for in, want := range cases {
		if got := Known(in); got != want {
			t.Errorf("Known(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSlug(t *testing.T) {
	got := Slug("Gaming Mice", "Logitech", "G Pro X Superlight 2", "Wireless")
	want := "gaming-mice-logitech-g-pro-x-superlight-2-wireless"
	if got != want {
		t.Errorf("Slug() = %q, want %q", got, want)
	}
}

func TestSlugDropsEmptyParts(t *testing.T) {
	got := Slug("cat", "brand", "", "model", "unk")
	if got != "cat-brand-model-unk" {
		t.Errorf("Slug() = %q", got)
	}
}

func TestJaccardTokens(t *testing.T) {
	got := JaccardTokens("Logitech G Pro X Superlight 2", "Logitech G Pro X Superlight 2 Wireless")
	if got <= 0.5 || got >= 1.0 {
		t.Errorf("JaccardTokens() = %v, want in (0.5, 1.0)", got)
	}
}

func TestDiceBigramIdentical(t *testing.T) {
	if got := DiceBigram("Viper V3 Pro", "Viper V3 Pro"); got != 1.0 {
		t.Errorf("DiceBigram identical = %v, want 1.0", got)
	}
}

func TestDiceBigramDissimilar(t *testing.T) {
	got := DiceBigram("Viper V3 Pro", "G Pro X Superlight 2")
	if got > 0.3 {
		t.Errorf("DiceBigram() = %v, want small", got)
	}
}
