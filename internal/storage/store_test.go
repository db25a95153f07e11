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
	"testing"

	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestLocalFSRoundTrip(t *testing.T) {
	ctx := context.Background()
	fs := NewLocalFS(t.TempDir())

	ok, err := fs.ObjectExists(ctx, "cat/p1/record.json")
	require.NoError(t, err)
	require.False(t, ok)

	var out sample
	found, err := fs.ReadJSONOrNull(ctx, "cat/p1/record.json", &out)
	require.NoError(t, err)
	require.False(t, found)

	in := sample{Name: "widget", Count: 3}
	key := fs.ResolveOutputKey("cat", "p1", "record.json")
	require.NoError(t, fs.WriteObject(ctx, key, in))

	found, err = fs.ReadJSONOrNull(ctx, key, &out)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, in, out)

	ok, err = fs.ObjectExists(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, fs.AppendText(ctx, "cat/p1/log.txt", "line one"))
	require.NoError(t, fs.AppendText(ctx, "cat/p1/log.txt", "line two"))
}

func TestBadgerBlobRoundTrip(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.InMemory = true
	db, err := OpenDB(cfg)
	require.NoError(t, err)
	defer db.Close()

	blob := NewBadgerBlob(db)

	found, err := blob.ObjectExists(ctx, "missing")
	require.NoError(t, err)
	require.False(t, found)

	in := sample{Name: "gizmo", Count: 7}
	require.NoError(t, blob.WriteObject(ctx, "k1", in))

	var out sample
	found, err = blob.ReadJSONOrNull(ctx, "k1", &out)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, in, out)

	require.NoError(t, blob.AppendText(ctx, "log", "a"))
	require.NoError(t, blob.AppendText(ctx, "log", "b"))

	require.Equal(t, "cat/p1/record.json", blob.ResolveOutputKey("cat", "p1", "record.json"))
}
