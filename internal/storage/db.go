// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package storage holds the durable-storage primitives shared by the
// frontier, learning, and review-state components: a thin BadgerDB wrapper
// and a blob Store interface with a local-filesystem and a Badger-backed
// implementation.
package storage

import (
	"context"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
)

// Config configures an embedded BadgerDB instance.
type Config struct {
	// Path is the on-disk directory BadgerDB uses for its value log and
	// LSM tree. Empty Path opens an in-memory-only instance (tests).
	Path string

	// InMemory forces an in-memory instance regardless of Path. Useful for
	// unit tests that want a throwaway store without touching disk.
	InMemory bool

	// Logger silences BadgerDB's own logger when nil is not acceptable;
	// a nil Logger field disables Badger's internal logging entirely,
	// since the component loggers (slog) already cover DB-level events.
	Logger badger.Logger
}

// DefaultConfig returns a Config with in-memory storage disabled and no
// path set; callers must set Path before calling OpenDB unless InMemory
// is explicitly requested.
func DefaultConfig() Config {
	return Config{}
}

// DB wraps a *badger.DB with the transaction helpers the rest of the module
// relies on. Every store (frontier, learning, review) is handed a *DB
// opened once at process startup and shares it by category.
type DB struct {
	bdb *badger.DB
}

// OpenDB opens (creating if necessary) a BadgerDB instance per cfg.
func OpenDB(cfg Config) (*DB, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory || cfg.Path == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(cfg.Logger)

	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	return &DB{bdb: bdb}, nil
}

// Close closes the underlying BadgerDB handle.
func (d *DB) Close() error {
	if d == nil || d.bdb == nil {
		return nil
	}
	return d.bdb.Close()
}

// WithReadTxn runs fn in a read-only BadgerDB transaction.
func (d *DB) WithReadTxn(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.bdb.View(fn)
}

// WithTxn runs fn in a read-write BadgerDB transaction, committing on a nil
// return and discarding on error.
func (d *DB) WithTxn(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.bdb.Update(fn)
}

// RunGC runs BadgerDB's value-log garbage collection once. Callers typically
// invoke this on a periodic ticker; badger.ErrNoRewrite is swallowed since it
// just means there was nothing to reclaim.
func (d *DB) RunGC(discardRatio float64) error {
	err := d.bdb.RunValueLogGC(discardRatio)
	if err != nil && err.Error() == "Value log GC attempt didn't result in any cleanup" {
		return nil
	}
	return err
}
