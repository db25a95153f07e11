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
	"regexp"
	"strconv"
	"strings"
)

// unitToBase maps a recognized source unit to its multiplier into the
// contract's target base unit family (length → mm, mass → g). Units not in
// this table are passed through unconverted — normalizeCandidate treats an
// unrecognized unit token as FailureUnitUnknown only when the contract
// declares a Unit the raw value's unit cannot be reconciled with.
var unitToBase = map[string]float64{
	// length, base: mm
	"mm": 1,
	"cm": 10,
	"m":  1000,
	"in": 25.4,
	"\"": 25.4,
	// mass, base: g
	"g":  1,
	"kg": 1000,
	"lb": 453.59237,
	"lbs": 453.59237,
	"oz": 28.349523125,
}

// unitFamily groups units that are mutually convertible. A raw unit outside
// the target unit's family cannot be converted and yields FailureUnitUnknown.
var unitFamily = map[string]string{
	"mm": "length", "cm": "length", "m": "length", "in": "length", "\"": "length",
	"g": "mass", "kg": "mass", "lb": "mass", "lbs": "mass", "oz": "mass",
}

var numberWithUnitRe = regexp.MustCompile(`^\s*(-?[0-9]*\.?[0-9]+)\s*([a-zA-Z"]*)\s*$`)

// parseNumberWithUnit splits "60 g" into (60, "g"). If no unit suffix is
// present, unit is "".
func parseNumberWithUnit(raw string) (value float64, unit string, ok bool) {
	m := numberWithUnitRe.FindStringSubmatch(raw)
	if m == nil {
		return 0, "", false
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, "", false
	}
	return f, strings.ToLower(strings.TrimSpace(m[2])), true
}

// convertToUnit converts value from sourceUnit into targetUnit. If
// sourceUnit is empty, the value is assumed to already be in targetUnit.
// Returns ok=false if sourceUnit and targetUnit are in different unit
// families (FailureUnitUnknown territory).
func convertToUnit(value float64, sourceUnit, targetUnit string) (float64, bool) {
	sourceUnit = strings.ToLower(sourceUnit)
	targetUnit = strings.ToLower(targetUnit)
	if sourceUnit == "" || sourceUnit == targetUnit {
		return value, true
	}

	srcMult, srcOK := unitToBase[sourceUnit]
	dstMult, dstOK := unitToBase[targetUnit]
	if !srcOK || !dstOK {
		return 0, false
	}
	if unitFamily[sourceUnit] != unitFamily[targetUnit] {
		return 0, false
	}
	baseValue := value * srcMult
	return baseValue / dstMult, true
}
