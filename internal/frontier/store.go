// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package frontier

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/spec-harvester/internal/storage"
	"github.com/AleutianAI/spec-harvester/internal/textnorm"
	"github.com/AleutianAI/spec-harvester/internal/urlnorm"
)

const (
	urlKeyPrefix   = "frontier/v1/url/"
	pathKeyPrefix  = "frontier/v1/path/"
	queryKeyPrefix = "frontier/v1/query/"
)

var errMiss = errors.New("frontier: miss")

// Store is the Frontier Store's public operation set.
type Store interface {
	RecordQuery(ctx context.Context, productID, query, provider string) (queryHash string, err error)
	ShouldSkipQuery(ctx context.Context, productID, query string, force bool) (bool, error)
	RecordFetch(ctx context.Context, in RecordFetchInput) (Row, error)
	ShouldSkipURL(ctx context.Context, rawURL string) (SkipResult, error)
	RecordYield(ctx context.Context, rawURL, fieldKey string) error
}

// pathState tracks consecutive 404s at a parent path.
type pathState struct {
	ConsecutiveNotFound int
	Dead                bool
}

// BadgerStore implements Store over a *storage.DB, shared with the other
// durable components.
type BadgerStore struct {
	db     *storage.DB
	logger *slog.Logger
}

// NewBadgerStore creates a BadgerStore backed by db. db must already be
// open and must outlive the store.
func NewBadgerStore(db *storage.DB, logger *slog.Logger) *BadgerStore {
	if db == nil {
		panic("frontier.NewBadgerStore: db must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BadgerStore{db: db, logger: logger}
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

func (s *BadgerStore) getRow(ctx context.Context, key []byte) (Row, bool, error) {
	var row Row
	found := true
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
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
		return gobDecode(raw, &row)
	})
	if err != nil {
		return Row{}, false, err
	}
	return row, found, nil
}

func (s *BadgerStore) putRow(ctx context.Context, key []byte, row Row) error {
	raw, err := gobEncode(row)
	if err != nil {
		return err
	}
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Set(key, raw)
	})
}

func (s *BadgerStore) getPathState(ctx context.Context, key []byte) (pathState, error) {
	var ps pathState
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(key)
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
		return gobDecode(raw, &ps)
	})
	return ps, err
}

func (s *BadgerStore) putPathState(ctx context.Context, key []byte, ps pathState) error {
	raw, err := gobEncode(ps)
	if err != nil {
		return err
	}
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Set(key, raw)
	})
}

// RecordQuery stores a normalized query hash with the current timestamp and
// a TTL equal to the query cooldown window, so a subsequent ShouldSkipQuery
// lookup within the window finds it and an expired one is simply absent.
func (s *BadgerStore) RecordQuery(ctx context.Context, productID, query, provider string) (string, error) {
	hash := queryHash(productID, query)
	row := QueryRow{ProductID: productID, QueryHash: hash, Provider: provider, LastRunAt: time.Now().UTC()}
	raw, err := gobEncode(row)
	if err != nil {
		return "", err
	}
	key := []byte(queryKeyPrefix + productID + "/" + hash)
	err = s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		entry := badger.NewEntry(key, raw).WithTTL(frontierQueryCooldownSeconds * time.Second)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return "", fmt.Errorf("record query: %w", err)
	}
	return hash, nil
}

// ShouldSkipQuery reports true iff the same normalized query was run within
// the cooldown window and force is false.
func (s *BadgerStore) ShouldSkipQuery(ctx context.Context, productID, query string, force bool) (bool, error) {
	if force {
		return false, nil
	}
	hash := queryHash(productID, query)
	key := []byte(queryKeyPrefix + productID + "/" + hash)
	exists := false
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		_, err := txn.Get(key)
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
		return false, fmt.Errorf("should skip query: %w", err)
	}
	return exists, nil
}

// RecordFetch updates the frontier row for the fetched URL: cooldowns for
// 404/410/403, and the path-dead score for consecutive 404s at the same
// parent path.
func (s *BadgerStore) RecordFetch(ctx context.Context, in RecordFetchInput) (Row, error) {
	normalized := urlnorm.Normalize(in.URL)
	key := []byte(urlKeyPrefix + normalized)

	row, _, err := s.getRow(ctx, key)
	if err != nil {
		return Row{}, fmt.Errorf("record fetch: load row: %w", err)
	}
	row.URL = normalized
	row.LastStatus = in.Status
	row.FetchCount++
	row.Bytes += in.Bytes
	for _, f := range in.FieldsFound {
		row.FieldsYielded = appendUnique(row.FieldsYielded, f)
	}

	now := time.Now().UTC()

	switch in.Status {
	case 404, 410:
		setCooldownMonotonic(&row.Cooldown, now.Add(cooldown404Days*24*time.Hour), Reason404Gone)
		if err := s.bumpPathDeadScore(ctx, normalized, now); err != nil {
			return Row{}, err
		}
	case 403:
		consecutive := s.consecutive403(row)
		backoff := time.Duration(float64(frontierCooldown403BaseSeconds)*math.Pow(2, float64(consecutive))) * time.Second
		if backoff > max403BackoffDuration {
			backoff = max403BackoffDuration
		}
		setCooldownMonotonic(&row.Cooldown, now.Add(backoff), Reason403ForbiddenBackoff)
	}

	if err := s.putRow(ctx, key, row); err != nil {
		return Row{}, fmt.Errorf("record fetch: save row: %w", err)
	}
	return row, nil
}

// consecutive403 derives a rough consecutive-403 count from the existing
// cooldown reason: a fresh 403 after an existing 403-backoff cooldown
// doubles the exponent; any other prior state starts at 0.
func (s *BadgerStore) consecutive403(row Row) int {
	if row.Cooldown.Reason == Reason403ForbiddenBackoff && row.FetchCount > 1 {
		return row.FetchCount - 1
	}
	return 0
}

// setCooldownMonotonic writes a new cooldown only if it extends (never
// shortens) the existing cooldown for the same reason family.
func setCooldownMonotonic(c *Cooldown, candidate time.Time, reason string) {
	if c.Reason == reason && c.Until.After(candidate) {
		return
	}
	c.Until = candidate
	c.Reason = reason
}

func (s *BadgerStore) bumpPathDeadScore(ctx context.Context, normalizedURL string, now time.Time) error {
	parent := urlnorm.ParentPath(normalizedURL)
	key := []byte(pathKeyPrefix + parent)

	ps, err := s.getPathState(ctx, key)
	if err != nil {
		return fmt.Errorf("bump path dead score: %w", err)
	}
	ps.ConsecutiveNotFound++
	if ps.ConsecutiveNotFound >= frontierPathPenaltyNotfoundThreshold {
		ps.Dead = true
	}
	return s.putPathState(ctx, key, ps)
}

// ShouldSkipURL honors cooldowns and path-dead patterns.
func (s *BadgerStore) ShouldSkipURL(ctx context.Context, rawURL string) (SkipResult, error) {
	normalized := urlnorm.Normalize(rawURL)

	row, found, err := s.getRow(ctx, []byte(urlKeyPrefix+normalized))
	if err != nil {
		return SkipResult{}, fmt.Errorf("should skip url: %w", err)
	}
	if found && row.Cooldown.Active(time.Now().UTC()) {
		return SkipResult{Skip: true, Reason: SkipReasonCooldown}, nil
	}

	parent := urlnorm.ParentPath(normalized)
	ps, err := s.getPathState(ctx, []byte(pathKeyPrefix+parent))
	if err != nil {
		return SkipResult{}, fmt.Errorf("should skip url: path state: %w", err)
	}
	if ps.Dead {
		return SkipResult{Skip: true, Reason: SkipReasonPathDeadPattern}, nil
	}

	return SkipResult{}, nil
}

// RecordYield credits a URL for a field it contributed to.
func (s *BadgerStore) RecordYield(ctx context.Context, rawURL, fieldKey string) error {
	normalized := urlnorm.Normalize(rawURL)
	key := []byte(urlKeyPrefix + normalized)

	row, _, err := s.getRow(ctx, key)
	if err != nil {
		return fmt.Errorf("record yield: %w", err)
	}
	row.URL = normalized
	row.FieldsYielded = appendUnique(row.FieldsYielded, fieldKey)
	return s.putRow(ctx, key, row)
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

// queryHash computes the normalized query's content hash, in the spec's
// "sha256:" + lowercase-hex form.
func queryHash(productID, query string) string {
	sum := sha256.Sum256([]byte(productID + "|" + textnorm.NormalizeForDedupe(query)))
	return "sha256:" + hex.EncodeToString(sum[:])
}
