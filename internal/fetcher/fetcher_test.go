// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/spec-harvester/internal/scheduler"
)

const samplePage = `<html><head><title>G Pro X Superlight 2</title>
<script type="application/ld+json">{"weight":"60 g"}</script>
</head><body>hi</body></html>`

func TestHTTPFetcherExtractsTitleAndLDJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(samplePage))
	}))
	defer server.Close()

	f := NewHTTPFetcher(0, nil)
	require.NoError(t, f.Start())
	defer f.Stop()

	page, err := f.Fetch(context.Background(), Request{URL: server.URL})
	require.NoError(t, err)
	require.Equal(t, "G Pro X Superlight 2", page.Title)
	require.Len(t, page.LDJSONBlocks, 1)
	require.Contains(t, page.LDJSONBlocks[0], "60 g")
	require.Equal(t, 200, page.Status)
}

func TestCachingAdapterFetchFuncPopulatesPageDataFor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(samplePage))
	}))
	defer server.Close()

	adapter := NewCachingAdapter(NewHTTPFetcher(0, nil))
	result, err := adapter.FetchFunc(context.Background(), server.URL, scheduler.ModeHTTP)
	require.NoError(t, err)
	require.True(t, result.Ok())

	page, ok := adapter.PageDataFor(server.URL)
	require.True(t, ok)
	require.Equal(t, "G Pro X Superlight 2", page.Title)

	adapter.Forget(server.URL)
	_, ok = adapter.PageDataFor(server.URL)
	require.False(t, ok)
}

func TestCachingAdapterFetchFuncPropagatesError(t *testing.T) {
	adapter := NewCachingAdapter(NewHTTPFetcher(0, nil))
	_, err := adapter.FetchFunc(context.Background(), "http://127.0.0.1:0/unreachable", scheduler.ModeHTTP)
	require.Error(t, err)
}
