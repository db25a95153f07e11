// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
)

// blobKeyPrefix versions the key layout so a future format change cannot
// collide with this one.
const blobKeyPrefix = "blob/v1/"

// BadgerBlob implements Store over a *DB, for deployments that keep the
// compiled rule bundle, final records, and provenance logs in the same
// embedded store as the frontier and learning data rather than on disk.
type BadgerBlob struct {
	db *DB
}

// NewBadgerBlob creates a BadgerBlob backed by db. db must already be open.
func NewBadgerBlob(db *DB) *BadgerBlob {
	if db == nil {
		panic("NewBadgerBlob: db must not be nil")
	}
	return &BadgerBlob{db: db}
}

func blobKey(key string) []byte {
	return []byte(blobKeyPrefix + key)
}

// ReadJSONOrNull implements Store.
func (b *BadgerBlob) ReadJSONOrNull(ctx context.Context, key string, out any) (bool, error) {
	var raw []byte
	err := b.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(blobKey(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return errBlobMiss
		}
		if err != nil {
			return fmt.Errorf("get %s: %w", key, err)
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, errBlobMiss) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

var errBlobMiss = errors.New("blob miss")

// WriteObject implements Store.
func (b *BadgerBlob) WriteObject(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return b.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Set(blobKey(key), raw)
	})
}

// AppendText implements Store.
func (b *BadgerBlob) AppendText(ctx context.Context, key string, line string) error {
	var existing string
	err := b.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(blobKey(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		existing = string(raw)
		return nil
	})
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}

	var sb strings.Builder
	sb.WriteString(existing)
	sb.WriteString(line)
	sb.WriteByte('\n')

	return b.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Set(blobKey(key), []byte(sb.String()))
	})
}

// ObjectExists implements Store.
func (b *BadgerBlob) ObjectExists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := b.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		_, err := txn.Get(blobKey(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		exists = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", key, err)
	}
	return exists, nil
}

// ResolveOutputKey implements Store.
func (b *BadgerBlob) ResolveOutputKey(category, productID, suffix string) string {
	return category + "/" + productID + "/" + suffix
}
