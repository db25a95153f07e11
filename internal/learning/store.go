// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package learning

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/spec-harvester/internal/storage"
	"github.com/AleutianAI/spec-harvester/internal/textnorm"
)

const (
	lexiconKeyPrefix = "learning/v1/lexicon/"
	anchorKeyPrefix  = "learning/v1/anchor/"
	urlMemKeyPrefix  = "learning/v1/urlmem/"
	yieldKeyPrefix   = "learning/v1/yield/"
)

// Store is the Learning Stores' public operation set, shared across
// products in a batch per spec.md §5 (writers serialize via Badger's own
// transaction boundary; readers see a consistent snapshot at round start
// via WithReadTxn).
type Store struct {
	db     *storage.DB
	logger *slog.Logger
}

// New creates a learning Store backed by db. db must already be open and
// must outlive the store.
func New(db *storage.DB, logger *slog.Logger) *Store {
	if db == nil {
		panic("learning.New: db must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
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

func get(ctx context.Context, db *storage.DB, key []byte, out any) (bool, error) {
	found := true
	err := db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(key)
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
		return gobDecode(raw, out)
	})
	return found, err
}

func put(ctx context.Context, db *storage.DB, key []byte, v any) error {
	raw, err := gobEncode(v)
	if err != nil {
		return err
	}
	return db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Set(key, raw)
	})
}

func lexiconKey(field, category, normalizedValue string) []byte {
	return []byte(lexiconKeyPrefix + category + "/" + field + "/" + normalizedValue)
}

func anchorKey(field, category, phrase string) []byte {
	return []byte(anchorKeyPrefix + category + "/" + field + "/" + textnorm.NormalizeForDedupe(phrase))
}

func urlMemKey(field, category, url string) []byte {
	return []byte(urlMemKeyPrefix + category + "/" + field + "/" + url)
}

func yieldKey(domain, field, category string) []byte {
	return []byte(yieldKeyPrefix + category + "/" + field + "/" + domain)
}

// RecordComponentValueSeen increments the component_lexicon seen count for
// (field, category, normalizedValue).
func (s *Store) RecordComponentValueSeen(ctx context.Context, field, category, normalizedValue string, now time.Time) error {
	key := lexiconKey(field, category, normalizedValue)
	var e ComponentLexiconEntry
	_, err := get(ctx, s.db, key, &e)
	if err != nil {
		return fmt.Errorf("component lexicon seen: %w", err)
	}
	e.Field, e.Category, e.NormalizedValue = field, category, normalizedValue
	e.SeenCount++
	e.LastSeenAt = now
	return put(ctx, s.db, key, e)
}

// RecordAnchorSeen increments the field_anchors seen count for
// (field, category, phrase).
func (s *Store) RecordAnchorSeen(ctx context.Context, field, category, phrase string, now time.Time) error {
	key := anchorKey(field, category, phrase)
	var e FieldAnchorEntry
	_, err := get(ctx, s.db, key, &e)
	if err != nil {
		return fmt.Errorf("field anchor seen: %w", err)
	}
	e.Field, e.Category, e.Phrase = field, category, phrase
	e.SeenCount++
	e.LastSeenAt = now
	return put(ctx, s.db, key, e)
}

// RecordURLSeen increments url_memory's seen count for (field, category, url).
func (s *Store) RecordURLSeen(ctx context.Context, field, category, url string, now time.Time) error {
	key := urlMemKey(field, category, url)
	var e URLMemoryEntry
	_, err := get(ctx, s.db, key, &e)
	if err != nil {
		return fmt.Errorf("url memory seen: %w", err)
	}
	e.Field, e.Category, e.URL = field, category, url
	e.SeenCount++
	e.LastSeenAt = now
	return put(ctx, s.db, key, e)
}

// RecordURLUsed increments url_memory's used count for (field, category, url).
func (s *Store) RecordURLUsed(ctx context.Context, field, category, url string, now time.Time) error {
	key := urlMemKey(field, category, url)
	var e URLMemoryEntry
	_, err := get(ctx, s.db, key, &e)
	if err != nil {
		return fmt.Errorf("url memory used: %w", err)
	}
	e.Field, e.Category, e.URL = field, category, url
	e.UsedCount++
	e.LastUsedAt = now
	return put(ctx, s.db, key, e)
}

// RecordSeen increments domain_field_yield's seen_count for (domain, field, category).
func (s *Store) RecordSeen(ctx context.Context, domain, field, category string) error {
	key := yieldKey(domain, field, category)
	var e DomainFieldYieldEntry
	_, err := get(ctx, s.db, key, &e)
	if err != nil {
		return fmt.Errorf("domain yield seen: %w", err)
	}
	e.Domain, e.Field, e.Category = domain, field, category
	e.SeenCount++
	return put(ctx, s.db, key, e)
}

// RecordUsed increments domain_field_yield's used_count for (domain, field, category).
func (s *Store) RecordUsed(ctx context.Context, domain, field, category string) error {
	key := yieldKey(domain, field, category)
	var e DomainFieldYieldEntry
	_, err := get(ctx, s.db, key, &e)
	if err != nil {
		return fmt.Errorf("domain yield used: %w", err)
	}
	e.Domain, e.Field, e.Category = domain, field, category
	e.UsedCount++
	return put(ctx, s.db, key, e)
}

// GetDomainYield reads the current yield entry for (domain, field, category).
func (s *Store) GetDomainYield(ctx context.Context, domain, field, category string) (DomainFieldYieldEntry, bool, error) {
	var e DomainFieldYieldEntry
	found, err := get(ctx, s.db, yieldKey(domain, field, category), &e)
	return e, found, err
}

// PopulateLearningStores is invoked only for accepted values with
// evidence, per spec.md §4.7: it records component-lexicon and
// field-anchor seen counts, url_memory seen+used, and domain/field yield
// seen+used for the contributing host.
func (s *Store) PopulateLearningStores(ctx context.Context, values []AcceptedValue, now time.Time) error {
	for _, v := range values {
		if err := s.RecordComponentValueSeen(ctx, v.Field, v.Category, v.NormalizedValue, now); err != nil {
			return err
		}
		for _, phrase := range v.AnchorPhrases {
			if err := s.RecordAnchorSeen(ctx, v.Field, v.Category, phrase, now); err != nil {
				return err
			}
		}
		if v.URL != "" {
			if err := s.RecordURLSeen(ctx, v.Field, v.Category, v.URL, now); err != nil {
				return err
			}
			if err := s.RecordURLUsed(ctx, v.Field, v.Category, v.URL, now); err != nil {
				return err
			}
		}
		if v.Host != "" {
			if err := s.RecordSeen(ctx, v.Host, v.Field, v.Category); err != nil {
				return err
			}
			if err := s.RecordUsed(ctx, v.Host, v.Field, v.Category); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReadLearningHintsFromStores returns hints consumed by the planner and
// the (out-of-scope) search-query generator, for the given focus fields.
// Because the stores are Badger-backed with prefix keys per field, this
// walks the relevant prefixes rather than issuing a point lookup per
// field, the same idiom the teacher uses for its cache iteration helpers.
func (s *Store) ReadLearningHintsFromStores(ctx context.Context, category string, focusFields []string, minSeenForLowYield int, maxYieldForLowYield float64) (Hints, error) {
	hints := Hints{
		AnchorsByField:  make(map[string][]string),
		KnownURLs:       make(map[string][]string),
		ComponentValues: make(map[string][]string),
	}

	focusSet := make(map[string]bool, len(focusFields))
	for _, f := range focusFields {
		focusSet[f] = true
	}

	var domainYields []DomainFieldYieldEntry

	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(anchorKeyPrefix + category + "/")); it.ValidForPrefix([]byte(anchorKeyPrefix + category + "/")); it.Next() {
			var e FieldAnchorEntry
			raw, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := gobDecode(raw, &e); err != nil {
				return err
			}
			if focusSet[e.Field] {
				hints.AnchorsByField[e.Field] = append(hints.AnchorsByField[e.Field], e.Phrase)
			}
		}

		for it.Seek([]byte(urlMemKeyPrefix + category + "/")); it.ValidForPrefix([]byte(urlMemKeyPrefix + category + "/")); it.Next() {
			var e URLMemoryEntry
			raw, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := gobDecode(raw, &e); err != nil {
				return err
			}
			if focusSet[e.Field] {
				hints.KnownURLs[e.Field] = append(hints.KnownURLs[e.Field], e.URL)
			}
		}

		for it.Seek([]byte(lexiconKeyPrefix + category + "/")); it.ValidForPrefix([]byte(lexiconKeyPrefix + category + "/")); it.Next() {
			var e ComponentLexiconEntry
			raw, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := gobDecode(raw, &e); err != nil {
				return err
			}
			if focusSet[e.Field] {
				hints.ComponentValues[e.Field] = append(hints.ComponentValues[e.Field], e.NormalizedValue)
			}
		}

		for it.Seek([]byte(yieldKeyPrefix + category + "/")); it.ValidForPrefix([]byte(yieldKeyPrefix + category + "/")); it.Next() {
			var e DomainFieldYieldEntry
			raw, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := gobDecode(raw, &e); err != nil {
				return err
			}
			if focusSet[e.Field] {
				domainYields = append(domainYields, e)
			}
		}
		return nil
	})
	if err != nil {
		return Hints{}, fmt.Errorf("read learning hints: %w", err)
	}

	hints.DomainYields = domainYields

	seenHighYield := make(map[string]bool)
	for _, y := range domainYields {
		if !y.IsLowYield(minSeenForLowYield, maxYieldForLowYield) && y.Yield() > 0 && !seenHighYield[y.Domain] {
			hints.HighYieldDomains = append(hints.HighYieldDomains, y.Domain)
			seenHighYield[y.Domain] = true
		}
	}
	sort.Strings(hints.HighYieldDomains)

	return hints, nil
}
