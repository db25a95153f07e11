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
	"sync"

	"github.com/AleutianAI/spec-harvester/internal/scheduler"
)

// CachingAdapter wraps a Fetcher, bridges it to scheduler.FetchFunc, and
// retains each fetch's full PageData so an orchestrator.ExtractFunc closure
// can retrieve it by URL. scheduler.FetchResult only carries metadata
// (spec.md §3/§6's fixed FetchResult shape); the page body has to live
// somewhere a caller-supplied extractor can reach it, and this cache is
// that place.
type CachingAdapter struct {
	fetcher Fetcher

	mu    sync.Mutex
	pages map[string]PageData
}

// NewCachingAdapter wraps fetcher with a PageData cache.
func NewCachingAdapter(fetcher Fetcher) *CachingAdapter {
	return &CachingAdapter{fetcher: fetcher, pages: make(map[string]PageData)}
}

// FetchFunc adapts CachingAdapter to scheduler.FetchFunc. mode is accepted
// but ignored: the fallback ladder's escalation between fetcher tiers is a
// concern of which Fetcher implementation this adapter wraps, not of this
// bridging method.
func (a *CachingAdapter) FetchFunc(ctx context.Context, url string, mode scheduler.Mode) (scheduler.FetchResult, error) {
	page, err := a.fetcher.Fetch(ctx, Request{URL: url})
	if err != nil {
		return scheduler.FetchResult{URL: url, FetcherKind: mode, Err: err}, err
	}

	a.mu.Lock()
	a.pages[url] = page
	a.mu.Unlock()

	return scheduler.FetchResult{
		URL:         url,
		FinalURL:    page.FinalURL,
		Status:      page.Status,
		FetchedAt:   page.FetchedAt,
		FetcherKind: mode,
		ElapsedMs:   page.FetchTelemetry.ElapsedMs,
		Redirect:    page.FetchTelemetry.Redirect,
	}, nil
}

// PageDataFor returns the PageData cached for url by the most recent fetch,
// if any.
func (a *CachingAdapter) PageDataFor(url string) (PageData, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	page, ok := a.pages[url]
	return page, ok
}

// Forget drops url's cached PageData, e.g. once it has been extracted and
// the caller no longer needs the body retained.
func (a *CachingAdapter) Forget(url string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.pages, url)
}
