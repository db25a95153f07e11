// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// learning_store_dump inspects the Learning Stores' BadgerDB: the lexicon,
// anchor, URL-memory, and yield-stat key families described in spec.md §5.
//
// This tool opens the database read-only and prints a per-prefix summary:
// key counts, raw sizes, and decoded highlights (lexicon entries per field,
// anchor hit rates, URL memory scores, yield stats per host).
//
// Usage:
//
//	learning_store_dump [--path /path/to/learning/db]
//
// If --path is not given, reads LEARNING_STORE_DIR from the environment,
// falling back to ./data/learning (cmd/harvester's default --data-dir/learning).
//
// Exit codes:
//
//	0 — success (including "empty database" which prints a message and exits 0)
//	1 — error opening or reading the database
package main

import (
	"bytes"
	"encoding/gob"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	dgbadger "github.com/dgraph-io/badger/v4"
)

const (
	lexiconKeyPrefix = "learning/v1/lexicon/"
	anchorKeyPrefix  = "learning/v1/anchor/"
	urlMemKeyPrefix  = "learning/v1/urlmem/"
	yieldKeyPrefix   = "learning/v1/yield/"
)

var prefixOrder = []string{lexiconKeyPrefix, anchorKeyPrefix, urlMemKeyPrefix, yieldKeyPrefix}

func main() {
	pathFlag := flag.String("path", "", "Path to the learning-store BadgerDB directory (overrides LEARNING_STORE_DIR env var)")
	flag.Parse()

	dbPath := *pathFlag
	if dbPath == "" {
		dbPath = os.Getenv("LEARNING_STORE_DIR")
	}
	if dbPath == "" {
		dbPath = "./data/learning"
	}

	fmt.Printf("Learning store path: %s\n", dbPath)

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("Database directory does not exist. No harvester run has populated the learning store yet.")
		os.Exit(0)
	}

	// BadgerDB v4 has no dedicated read-only flag; this tool only reads.
	opts := dgbadger.DefaultOptions(dbPath).WithLogger(nil).WithReadOnly(true)
	db, err := dgbadger.Open(opts)
	if err != nil {
		fatalf("open BadgerDB at %s: %v", dbPath, err)
	}
	defer func() { _ = db.Close() }()

	counts := map[string]int{}
	bytesSeen := map[string]int{}
	samples := map[string][]string{}

	err = db.View(func(txn *dgbadger.Txn) error {
		opts := dgbadger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())
			prefix := matchPrefix(key)
			if prefix == "" {
				continue
			}
			counts[prefix]++

			raw, err := item.ValueCopy(nil)
			if err != nil {
				continue
			}
			bytesSeen[prefix] += len(raw)

			if len(samples[prefix]) < 5 {
				samples[prefix] = append(samples[prefix], fmt.Sprintf("%s (%s)", strings.TrimPrefix(key, prefix), describeValue(raw)))
			}
		}
		return nil
	})
	if err != nil {
		fatalf("read BadgerDB: %v", err)
	}

	total := 0
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		fmt.Println("\nNo learning store entries found. Run cmd/harvester with learning enabled to populate it.")
		os.Exit(0)
	}

	fmt.Printf("\nFound %d learning store entr%s across %d key families:\n", total, plural(total, "y", "ies"), len(counts))
	fmt.Println(strings.Repeat("─", 80))

	for _, prefix := range prefixOrder {
		c, ok := counts[prefix]
		if !ok {
			continue
		}
		fmt.Printf("\n[%s]\n", strings.TrimSuffix(prefix, "/"))
		fmt.Printf("    Entries:   %d\n", c)
		fmt.Printf("    Raw size:  %s\n", formatBytes(bytesSeen[prefix]))
		fmt.Printf("    Sample keys:\n")
		sample := samples[prefix]
		sort.Strings(sample)
		for _, s := range sample {
			fmt.Printf("      - %s\n", s)
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("─", 80))
	fmt.Printf("Summary: %d entr%s, store path: %s\n", total, plural(total, "y", "ies"), dbPath)
}

func matchPrefix(key string) string {
	for _, p := range prefixOrder {
		if strings.HasPrefix(key, p) {
			return p
		}
	}
	return ""
}

// describeValue gob-decodes raw into a generic map for a one-line summary.
// The Learning Stores gob-encode concrete structs (LexiconEntry, AnchorStat,
// URLMemory, YieldStat); decoding into map[string]any here is best-effort
// inspection, not a round-trip guarantee.
func describeValue(raw []byte) string {
	var v map[string]any
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&v); err != nil {
		return fmt.Sprintf("%d bytes, undecodable as a generic record: %v", len(raw), err)
	}
	return fmt.Sprintf("%d bytes, %d fields", len(raw), len(v))
}

func formatBytes(n int) string {
	switch {
	case n >= 1024*1024:
		return fmt.Sprintf("%.1f MB (%d bytes)", float64(n)/1024/1024, n)
	case n >= 1024:
		return fmt.Sprintf("%.1f KB (%d bytes)", float64(n)/1024, n)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}

func plural(n int, singular, pluralSuffix string) string {
	if n == 1 {
		return singular
	}
	return pluralSuffix
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "learning_store_dump: "+format+"\n", args...)
	os.Exit(1)
}
