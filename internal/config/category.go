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
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/spec-harvester/internal/rules"
	"github.com/AleutianAI/spec-harvester/internal/storage"
)

// CategorySource is the human-authored, YAML-editable category rule
// definition the "compile-rules" CLI command reads before producing the
// frozen JSON bundle the Field Rules Engine loads at runtime.
type CategorySource struct {
	Category             string               `yaml:"category"`
	FieldRules           []rules.FieldRule    `yaml:"field_rules"`
	KnownValues          map[string][]string  `yaml:"known_values"`
	ParseTemplates       []rules.ParseTemplate `yaml:"parse_templates"`
	CrossValidationRules []rules.Constraint   `yaml:"cross_validation_rules"`
	KeyMigrations        map[string]string    `yaml:"key_migrations"`
	UIFieldCatalog       map[string]any       `yaml:"ui_field_catalog"`
}

// LoadCategorySourceYAML reads and parses a CategorySource from path.
func LoadCategorySourceYAML(path string) (CategorySource, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return CategorySource{}, fmt.Errorf("read category source %s: %w", path, err)
	}
	var src CategorySource
	if err := yaml.Unmarshal(raw, &src); err != nil {
		return CategorySource{}, fmt.Errorf("parse category source %s: %w", path, err)
	}
	return src, nil
}

// Compile converts a CategorySource into the frozen rules.Config the Field
// Rules Engine's Create operation consumes.
func Compile(src CategorySource) rules.Config {
	return rules.Config{
		Version:              rules.BundleVersion,
		Category:             src.Category,
		FieldRules:           src.FieldRules,
		KnownValues:          src.KnownValues,
		ParseTemplates:       src.ParseTemplates,
		CrossValidationRules: src.CrossValidationRules,
		KeyMigrations:        src.KeyMigrations,
		UIFieldCatalog:       src.UIFieldCatalog,
	}
}

// fieldRulesFile wraps the compiled field rules with their bundle version,
// since rules.Config.Version is how Create distinguishes "not compiled"
// from a real artifact.
type fieldRulesFile struct {
	Version int               `json:"version"`
	Fields  []rules.FieldRule `json:"fields"`
}

func bundleKey(category, name string) string {
	return fmt.Sprintf("helper_files/%s/_generated/%s.json", category, name)
}

// WriteCompiledBundle persists cfg to store under
// helper_files/{category}/_generated/*.json, per the persisted layout.
func WriteCompiledBundle(ctx context.Context, store storage.Store, category string, cfg rules.Config) error {
	writes := []struct {
		name string
		v    any
	}{
		{"field_rules", fieldRulesFile{Version: cfg.Version, Fields: cfg.FieldRules}},
		{"known_values", cfg.KnownValues},
		{"parse_templates", cfg.ParseTemplates},
		{"cross_validation_rules", cfg.CrossValidationRules},
		{"key_migrations", cfg.KeyMigrations},
		{"ui_field_catalog", cfg.UIFieldCatalog},
	}
	for _, w := range writes {
		if err := store.WriteObject(ctx, bundleKey(category, w.name), w.v); err != nil {
			return fmt.Errorf("write compiled bundle %s/%s: %w", category, w.name, err)
		}
	}
	return nil
}

// LoadCompiledBundle reads the compiled rule bundle for category from
// store. If field_rules.json does not exist, it returns a zero-Version
// rules.Config (not an error) so callers can feed it straight to
// rules.Create and get ErrRulesNotCompiled, per spec.
func LoadCompiledBundle(ctx context.Context, store storage.Store, category string) (rules.Config, error) {
	var frf fieldRulesFile
	found, err := store.ReadJSONOrNull(ctx, bundleKey(category, "field_rules"), &frf)
	if err != nil {
		return rules.Config{}, fmt.Errorf("load compiled bundle %s: %w", category, err)
	}
	if !found {
		return rules.Config{Category: category}, nil
	}

	cfg := rules.Config{
		Version:   frf.Version,
		Category:  category,
		FieldRules: frf.Fields,
	}

	if _, err := store.ReadJSONOrNull(ctx, bundleKey(category, "known_values"), &cfg.KnownValues); err != nil {
		return rules.Config{}, err
	}
	if _, err := store.ReadJSONOrNull(ctx, bundleKey(category, "parse_templates"), &cfg.ParseTemplates); err != nil {
		return rules.Config{}, err
	}
	if _, err := store.ReadJSONOrNull(ctx, bundleKey(category, "cross_validation_rules"), &cfg.CrossValidationRules); err != nil {
		return rules.Config{}, err
	}
	if _, err := store.ReadJSONOrNull(ctx, bundleKey(category, "key_migrations"), &cfg.KeyMigrations); err != nil {
		return rules.Config{}, err
	}
	if _, err := store.ReadJSONOrNull(ctx, bundleKey(category, "ui_field_catalog"), &cfg.UIFieldCatalog); err != nil {
		return rules.Config{}, err
	}

	return cfg, nil
}
