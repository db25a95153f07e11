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
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var bundleValidator = validator.New()

// ErrRulesNotCompiled is returned by Create when the compiled rule bundle
// for a category is missing or its version does not match the engine's
// expected bundle version.
var ErrRulesNotCompiled = errors.New("rules_not_compiled")

// BundleVersion is the compiled-artifact format version this engine
// understands. A mismatched Config.Version fails closed with
// ErrRulesNotCompiled rather than attempting a best-effort read, since a
// silently misinterpreted rule bundle would corrupt every field it touches.
const BundleVersion = 1

// ParseTemplate is an opaque per-field extraction hint consumed by the
// (out-of-scope) surface extractors; the engine carries it through
// unmodified.
type ParseTemplate struct {
	FieldKey string
	Pattern  string
}

// Config is the raw compiled rule bundle handed to Create: field_rules,
// known_values, parse_templates, cross_validation_rules, key_migrations,
// and ui_field_catalog, as loaded from
// helper_files/{category}/_generated/*.json.
type Config struct {
	Version               int
	Category              string
	FieldRules            []FieldRule
	KnownValues           map[string][]string
	ParseTemplates        []ParseTemplate
	CrossValidationRules  []Constraint
	KeyMigrations         map[string]string
	UIFieldCatalog        map[string]any
}

// Engine is the frozen, immutable-per-category compiled rule bundle. It is
// loaded once per category and shared freely across concurrent product
// runs — nothing in Engine is ever mutated after Create returns.
type Engine struct {
	category             string
	fields               map[string]FieldRule
	fieldOrder            []string
	parseTemplates        []ParseTemplate
	crossValidationRules  []Constraint
	keyMigrations         map[string]string
	uiFieldCatalog        map[string]any
}

// Create compiles cfg into a frozen Engine for category. It fails with
// ErrRulesNotCompiled if the bundle is missing (zero Version) or its
// version does not match BundleVersion.
func Create(category string, cfg Config) (*Engine, error) {
	if cfg.Version == 0 {
		return nil, fmt.Errorf("%w: no compiled bundle for category %q", ErrRulesNotCompiled, category)
	}
	if cfg.Version != BundleVersion {
		return nil, fmt.Errorf("%w: category %q bundle version %d != %d", ErrRulesNotCompiled, category, cfg.Version, BundleVersion)
	}

	fields := make(map[string]FieldRule, len(cfg.FieldRules))
	order := make([]string, 0, len(cfg.FieldRules))
	for _, fr := range cfg.FieldRules {
		if fr.KnownValues == nil {
			fr.KnownValues = cfg.KnownValues[fr.FieldKey]
		}
		if err := bundleValidator.Struct(fr); err != nil {
			return nil, fmt.Errorf("%w: category %q field %q: %v", ErrRulesNotCompiled, category, fr.FieldKey, err)
		}
		fields[fr.FieldKey] = fr
		order = append(order, fr.FieldKey)
	}

	migrations := cfg.KeyMigrations
	if migrations == nil {
		migrations = map[string]string{}
	}

	return &Engine{
		category:             category,
		fields:               fields,
		fieldOrder:           order,
		parseTemplates:       cfg.ParseTemplates,
		crossValidationRules: cfg.CrossValidationRules,
		keyMigrations:        migrations,
		uiFieldCatalog:       cfg.UIFieldCatalog,
	}, nil
}

// Category returns the category this engine was compiled for.
func (e *Engine) Category() string { return e.category }

// Field returns the compiled FieldRule for key, if present.
func (e *Engine) Field(key string) (FieldRule, bool) {
	fr, ok := e.fields[key]
	return fr, ok
}

// FieldOrder returns field keys in compiled declaration order.
func (e *Engine) FieldOrder() []string {
	out := make([]string, len(e.fieldOrder))
	copy(out, e.fieldOrder)
	return out
}
