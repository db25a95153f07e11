// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command harvester runs one product through the field-harvest Orchestration
// Loop, compiles category rule bundles, and serves the review console.
//
// Usage:
//
//	harvester run --category gaming-mice --brand Logitech --model "G Pro X Superlight 2" --seed https://...
//	harvester compile-rules --category gaming-mice --bundle ./helper_files/gaming-mice/_generated/field_rules.json
//	harvester review --db ./data/review --addr :8090
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/spec-harvester/internal/fetcher"
	"github.com/AleutianAI/spec-harvester/internal/identity"
	"github.com/AleutianAI/spec-harvester/internal/learning"
	"github.com/AleutianAI/spec-harvester/internal/orchestrator"
	"github.com/AleutianAI/spec-harvester/internal/review"
	"github.com/AleutianAI/spec-harvester/internal/reviewui"
	"github.com/AleutianAI/spec-harvester/internal/rules"
	"github.com/AleutianAI/spec-harvester/internal/storage"
)

var (
	flagCategory string
	flagBrand    string
	flagModel    string
	flagVariant  string
	flagSKU      string
	flagSeeds    []string
	flagDataDir  string
	flagBundle   string
	flagAddr     string
)

func main() {
	root := &cobra.Command{
		Use:   "harvester",
		Short: "Run the field-harvest orchestration loop, compile rule bundles, and serve the review console",
	}
	root.AddCommand(newRunCommand(), newCompileRulesCommand(), newReviewCommand())

	if err := root.Execute(); err != nil {
		slog.Error("harvester: command failed", "error", err)
		os.Exit(1)
	}
}

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one product through the orchestration loop",
		RunE:  runHarvest,
	}
	cmd.Flags().StringVar(&flagCategory, "category", "", "product category (required)")
	cmd.Flags().StringVar(&flagBrand, "brand", "", "identity lock brand (required)")
	cmd.Flags().StringVar(&flagModel, "model", "", "identity lock model (required)")
	cmd.Flags().StringVar(&flagVariant, "variant", "", "identity lock variant")
	cmd.Flags().StringVar(&flagSKU, "sku", "", "identity lock SKU")
	cmd.Flags().StringArrayVar(&flagSeeds, "seed", nil, "seed URL (repeatable)")
	cmd.Flags().StringVar(&flagDataDir, "data-dir", "./data", "on-disk root for learning/frontier BadgerDBs")
	cmd.Flags().StringVar(&flagBundle, "bundle", "", "path to a compiled rule bundle JSON file (required)")
	return cmd
}

func runHarvest(cmd *cobra.Command, args []string) error {
	if flagCategory == "" || flagBundle == "" {
		return fmt.Errorf("--category and --bundle are required")
	}

	engine, err := loadEngine(flagCategory, flagBundle)
	if err != nil {
		return err
	}

	lrnDB, err := storage.OpenDB(storage.Config{Path: flagDataDir + "/learning"})
	if err != nil {
		return fmt.Errorf("opening learning store: %w", err)
	}
	defer lrnDB.Close()
	lrn := learning.New(lrnDB, nil)

	httpFetcher := fetcher.NewHTTPFetcher(0, nil)
	if err := httpFetcher.Start(); err != nil {
		return fmt.Errorf("starting fetcher: %w", err)
	}
	defer httpFetcher.Stop()
	adapter := fetcher.NewCachingAdapter(httpFetcher)

	// Extraction, outcome classification, and query-discovery hooks are
	// imported the same way the Fetcher and LLM client are: this command
	// wires the plain-HTTP fetcher in, and leaves the surface-specific
	// extractor and search-query resolver for a deployment to supply.
	orch := orchestrator.New(engine, nil, lrn, adapter.FetchFunc, nil, nil, nil, slog.Default())

	in := orchestrator.RunInput{
		Category: flagCategory,
		Lock:     identity.Lock{Brand: flagBrand, Model: flagModel, Variant: flagVariant, SKU: flagSKU},
		SeedURLs: flagSeeds,
	}
	result, err := orch.Run(cmd.Context(), in, orchestrator.DefaultConfig())
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func newCompileRulesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile-rules",
		Short: "Compile and validate a category's rule bundle",
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagCategory == "" || flagBundle == "" {
				return fmt.Errorf("--category and --bundle are required")
			}
			engine, err := loadEngine(flagCategory, flagBundle)
			if err != nil {
				return err
			}
			fmt.Printf("compiled %d fields for category %q\n", len(engine.FieldOrder()), flagCategory)
			return nil
		},
	}
	cmd.Flags().StringVar(&flagCategory, "category", "", "product category (required)")
	cmd.Flags().StringVar(&flagBundle, "bundle", "", "path to a compiled rule bundle JSON file (required)")
	return cmd
}

func loadEngine(category, bundlePath string) (*rules.Engine, error) {
	raw, err := os.ReadFile(bundlePath)
	if err != nil {
		return nil, fmt.Errorf("reading bundle: %w", err)
	}
	var cfg rules.Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parsing bundle: %w", err)
	}
	engine, err := rules.Create(category, cfg)
	if err != nil {
		return nil, fmt.Errorf("compiling rules: %w", err)
	}
	return engine, nil
}

func newReviewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Serve the review queue HTTP/websocket surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := storage.OpenDB(storage.Config{Path: flagDataDir + "/review"})
			if err != nil {
				return fmt.Errorf("opening review store: %w", err)
			}
			defer db.Close()

			hub := reviewui.NewHub(slog.Default())
			store := review.New(db, hub, slog.Default())
			srv := reviewui.NewServer(store, hub, slog.Default())

			slog.Info("harvester: serving review console", "addr", flagAddr)
			return http.ListenAndServe(flagAddr, srv.Handler())
		},
	}
	cmd.Flags().StringVar(&flagDataDir, "data-dir", "./data", "on-disk root for the review BadgerDB")
	cmd.Flags().StringVar(&flagAddr, "addr", ":8090", "HTTP listen address")
	return cmd
}
