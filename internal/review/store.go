// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package review

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/spec-harvester/internal/storage"
)

const (
	rowKeyPrefix      = "review/v1/row/"
	identityKeyPrefix = "review/v1/identity/"
)

// Publisher receives a notification every time a row changes, so an
// external websocket feed (out of scope here; see spec.md §6) can push
// live updates to connected review clients without this package knowing
// about HTTP or websockets.
type Publisher interface {
	PublishRowChanged(row Row)
}

// noopPublisher is used when Store is constructed without a Publisher.
type noopPublisher struct{}

func (noopPublisher) PublishRowChanged(Row) {}

// Store persists review-state rows and component identities in Badger,
// gob-encoded, the same idiom as internal/frontier and internal/learning.
type Store struct {
	db        *storage.DB
	logger    *slog.Logger
	publisher Publisher
}

// New creates a review Store backed by db. db must already be open and
// must outlive the store. A nil publisher disables the live-feed hook.
func New(db *storage.DB, publisher Publisher, logger *slog.Logger) *Store {
	if db == nil {
		panic("review.New: db must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &Store{db: db, logger: logger, publisher: publisher}
}

func gobEncode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("gob encode: %w", err)
	}
	return buf.Bytes(), nil
}

func gobDecode(raw []byte, out any) error {
	return gob.NewDecoder(bytes.NewReader(raw)).Decode(out)
}

func rowKey(k Key) []byte {
	return []byte(rowKeyPrefix + k.Category + "/" + k.TargetKind + "/" + k.FieldKey + "/" + k.EnumValueOrComponent + "/" + k.PropertyKey)
}

func identityKey(id string) []byte {
	return []byte(identityKeyPrefix + id)
}

// GetRow reads the row for key, or the zero Row if none exists yet.
func (s *Store) GetRow(ctx context.Context, key Key) (Row, bool, error) {
	var row Row
	found := true
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(rowKey(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			found = false
			return nil
		}
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return gobDecode(raw, &row)
	})
	if err != nil {
		return Row{}, false, fmt.Errorf("get row: %w", err)
	}
	if !found {
		row.Key = key
	}
	return row, found, nil
}

func (s *Store) putRow(ctx context.Context, row Row) error {
	raw, err := gobEncode(row)
	if err != nil {
		return err
	}
	if err := s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Set(rowKey(row.Key), raw)
	}); err != nil {
		return err
	}
	s.publisher.PublishRowChanged(row)
	return nil
}

// ApplyLaneAction loads the row for key, applies action, persists the
// result, and notifies the publisher.
func (s *Store) ApplyLaneAction(ctx context.Context, key Key, action LaneAction) (Row, error) {
	row, _, err := s.GetRow(ctx, key)
	if err != nil {
		return Row{}, err
	}
	updated := ApplySharedLaneState(row, action)
	if err := s.putRow(ctx, updated); err != nil {
		return Row{}, fmt.Errorf("apply lane action: %w", err)
	}
	return updated, nil
}

// GetIdentity reads the identity for id, or (Identity{}, false) if absent.
func (s *Store) GetIdentity(ctx context.Context, id string) (Identity, bool, error) {
	var ident Identity
	found := true
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(identityKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			found = false
			return nil
		}
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return gobDecode(raw, &ident)
	})
	if err != nil {
		return Identity{}, false, fmt.Errorf("get identity: %w", err)
	}
	return ident, found, nil
}

func (s *Store) putIdentity(ctx context.Context, ident Identity) error {
	raw, err := gobEncode(ident)
	if err != nil {
		return err
	}
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Set(identityKey(ident.ID), raw)
	})
}

func (s *Store) deleteIdentity(ctx context.Context, id string) error {
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Delete(identityKey(id))
	})
}

// MergeIdentities loads sourceID and targetID, merges source into target
// (target wins collisions), rewrites every row keyed to sourceID so its
// EnumValueOrComponent now names targetID (resolving row collisions via
// MergeRows), deletes the source identity, and returns the merged
// identity. rowKeys enumerates the (category, targetKind, fieldKey,
// propertyKey) tuples that might have rows under sourceID — the caller
// supplies these since Store has no index by component identifier other
// than the full row key.
func (s *Store) MergeIdentities(ctx context.Context, sourceID, targetID string, rowKeys []Key) (Identity, error) {
	source, sourceFound, err := s.GetIdentity(ctx, sourceID)
	if err != nil {
		return Identity{}, err
	}
	if !sourceFound {
		return Identity{}, fmt.Errorf("merge identities: source %q not found", sourceID)
	}
	target, _, err := s.GetIdentity(ctx, targetID)
	if err != nil {
		return Identity{}, err
	}
	if target.ID == "" {
		target.ID = targetID
	}

	merged := MergeComponentIdentities(source, target)

	for _, k := range rowKeys {
		sourceKey := k
		sourceKey.EnumValueOrComponent = sourceID
		sourceRow, found, err := s.GetRow(ctx, sourceKey)
		if err != nil {
			return Identity{}, err
		}
		if !found {
			continue
		}

		targetKey := k
		targetKey.EnumValueOrComponent = targetID
		existingRow, _, err := s.GetRow(ctx, targetKey)
		if err != nil {
			return Identity{}, err
		}

		rewritten := MergeRows(sourceRow, existingRow)
		rewritten.Key = targetKey
		if err := s.putRow(ctx, rewritten); err != nil {
			return Identity{}, err
		}
		if err := s.deleteRow(ctx, sourceKey); err != nil {
			return Identity{}, err
		}
	}

	if err := s.putIdentity(ctx, merged); err != nil {
		return Identity{}, err
	}
	if err := s.deleteIdentity(ctx, sourceID); err != nil {
		return Identity{}, err
	}
	return merged, nil
}

func (s *Store) deleteRow(ctx context.Context, key Key) error {
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Delete(rowKey(key))
	})
}

// ListRows returns every row for category, for the review queue snapshot
// (spec.md §6's `_review/{category}/queue.json`) and the live feed's
// initial state push.
func (s *Store) ListRows(ctx context.Context, category string) ([]Row, error) {
	prefix := []byte(rowKeyPrefix + category + "/")
	var rows []Row
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			raw, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var row Row
			if err := gobDecode(raw, &row); err != nil {
				return err
			}
			rows = append(rows, row)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list rows: %w", err)
	}
	return rows, nil
}
