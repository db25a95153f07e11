// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestPerHostPacingDoesNotBlockOtherHosts covers spec.md §8 scenario 4:
// two a.com fetches are spaced by perHostDelayMs, b.com is unaffected, and
// all three complete.
func TestPerHostPacingDoesNotBlockOtherHosts(t *testing.T) {
	sources := []SourceItem{
		{URL: "https://a.com/1", Host: "a.com"},
		{URL: "https://a.com/2", Host: "a.com"},
		{URL: "https://b.com/1", Host: "b.com"},
	}

	var mu sync.Mutex
	fetchTimes := map[string]time.Time{}

	fetch := func(ctx context.Context, url string, mode Mode) (FetchResult, error) {
		mu.Lock()
		fetchTimes[url] = time.Now()
		mu.Unlock()
		return FetchResult{URL: url, Status: 200}, nil
	}

	summary := Drain(context.Background(), sources, DrainOptions{
		Concurrency:  3,
		PerHostDelay: 150 * time.Millisecond,
		InitialMode:  ModeCrawlee,
		Fetch:        fetch,
	})

	require.Equal(t, 3, summary.Processed)
	diff := fetchTimes["https://a.com/2"].Sub(fetchTimes["https://a.com/1"])
	if diff < 0 {
		diff = -diff
	}
	require.GreaterOrEqual(t, diff, 140*time.Millisecond)
}

// TestFallbackLadderEscalatesToHTTP covers spec.md §8 scenario 5.
func TestFallbackLadderEscalatesToHTTP(t *testing.T) {
	sources := []SourceItem{{URL: "https://example.com/x", Host: "example.com"}}

	attempts := 0
	fetch := func(ctx context.Context, url string, mode Mode) (FetchResult, error) {
		attempts++
		switch mode {
		case ModeCrawlee:
			return FetchResult{}, errors.New("403 Forbidden")
		case ModePlaywright:
			return FetchResult{}, errors.New("navigation_timeout")
		case ModeHTTP:
			return FetchResult{URL: url, Status: 200}, nil
		}
		return FetchResult{}, errors.New("unreachable")
	}

	classify := func(err error) OutcomeTag {
		switch err.Error() {
		case "403 Forbidden":
			return OutcomeBlocked
		case "navigation_timeout":
			return OutcomeFetchError
		}
		return OutcomeFetchError
	}

	var events []Event
	var result FetchResult
	summary := Drain(context.Background(), sources, DrainOptions{
		Concurrency:     1,
		InitialMode:     ModeCrawlee,
		Fetch:           fetch,
		ClassifyOutcome: classify,
		EmitEvent:       func(e Event) { events = append(events, e) },
		OnFetchResult:   func(r FetchResult) { result = r },
	})

	require.Equal(t, 1, summary.Processed)
	require.Equal(t, ModeHTTP, result.FetcherKind)
	require.Equal(t, ModeCrawlee, result.DegradedFromMode)

	var sawStarted, sawSucceeded bool
	for _, e := range events {
		if e.Name == EventFallbackStarted {
			sawStarted = true
		}
		if e.Name == EventFallbackSucceeded {
			sawSucceeded = true
		}
	}
	require.True(t, sawStarted)
	require.True(t, sawSucceeded)
}

func TestNotFoundAbortsWithoutFallback(t *testing.T) {
	sources := []SourceItem{{URL: "https://example.com/gone", Host: "example.com"}}
	calls := 0
	fetch := func(ctx context.Context, url string, mode Mode) (FetchResult, error) {
		calls++
		return FetchResult{Status: 404}, errors.New("not found")
	}
	classify := func(error) OutcomeTag { return OutcomeNotFound }

	summary := Drain(context.Background(), sources, DrainOptions{
		Concurrency:     1,
		InitialMode:     ModeCrawlee,
		Fetch:           fetch,
		ClassifyOutcome: classify,
	})
	require.Equal(t, 1, summary.Failed)
	require.Equal(t, 1, calls)
}

func TestFetchResultDeadOnlyForSpecificStatuses(t *testing.T) {
	for _, status := range []int{404, 410, 451} {
		r := FetchResult{Status: status}
		require.True(t, r.Dead(), "status %d should be dead", status)
	}
	for _, status := range []int{200, 301, 403, 500} {
		r := FetchResult{Status: status}
		require.False(t, r.Dead(), "status %d should not be dead", status)
	}
}
