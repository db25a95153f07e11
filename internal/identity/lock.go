// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package identity models the job-level IdentityLock (brand/model/variant/
// sku), its derived lock status, the deterministic product ID slug, and the
// brand/model/sku similarity scoring the candidate pipeline uses to gate
// per-source candidates against the lock.
package identity

import (
	"errors"

	"github.com/AleutianAI/spec-harvester/internal/textnorm"
)

// ErrInsufficientLock is returned by Validate when a job's IdentityLock does
// not meet the brand+model minimum required before source planning begins.
var ErrInsufficientLock = errors.New("identity: locked_brand_model minimum required")

// Status is the derived lock tightness of an IdentityLock.
type Status string

const (
	StatusLockedFull       Status = "locked_full"
	StatusLockedBrandModel Status = "locked_brand_model"
	StatusLockedPartial    Status = "locked_partial"
	StatusUnlocked         Status = "unlocked"
)

// Lock is the immutable per-run job identity: {brand, model, variant, sku?}.
type Lock struct {
	Brand   string
	Model   string
	Variant string
	SKU     string
}

// Status derives the lock tightness from which fields are non-blank.
func (l Lock) Status() Status {
	brand, model := textnorm.Known(l.Brand), textnorm.Known(l.Model)
	variantOrSKU := textnorm.Known(l.Variant) || textnorm.Known(l.SKU)

	switch {
	case brand && model && variantOrSKU:
		return StatusLockedFull
	case brand && model:
		return StatusLockedBrandModel
	case brand:
		return StatusLockedPartial
	default:
		return StatusUnlocked
	}
}

// Validate enforces the core invariant: a job without at least
// locked_brand_model is rejected before planning.
func (l Lock) Validate() error {
	switch l.Status() {
	case StatusLockedBrandModel, StatusLockedFull:
		return nil
	default:
		return ErrInsufficientLock
	}
}

// ProductID computes the deterministic product ID slug:
// category-brand-model[-variant], with placeholder variants stripped.
func ProductID(category string, l Lock) string {
	variant := l.Variant
	if !textnorm.Known(variant) {
		variant = ""
	}
	return textnorm.Slug(category, l.Brand, l.Model, variant)
}
