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
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/spec-harvester/internal/metrics"
)

// nextModeAfter maps (mode, OutcomeTag) to the next fallback mode per
// spec.md §4.3's ladder: blocked/fetch_error/rate_limited escalate
// crawlee→playwright→http; not_found has no entry (abort, no fallback).
func nextModeAfter(mode Mode, tag OutcomeTag) (Mode, bool) {
	if tag == OutcomeBlocked {
		switch mode {
		case ModeCrawlee:
			return ModePlaywright, true
		case ModePlaywright:
			return ModeHTTP, true
		}
		return "", false
	}
	if tag == OutcomeFetchError || tag == OutcomeRateLimited {
		switch mode {
		case ModeCrawlee:
			return ModePlaywright, true
		case ModePlaywright:
			return ModeHTTP, true
		}
		return "", false
	}
	return "", false
}

// Drain feeds sources through a bounded-concurrency worker pool, applying
// per-host pacing and fetcher-mode fallback, and returns once every source
// has been attempted to completion or escalation-exhausted.
func Drain(ctx context.Context, sources []SourceItem, opts DrainOptions) DrainSummary {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.InitialMode == "" {
		opts.InitialMode = ModeCrawlee
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 2
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = 500 * time.Millisecond
	}
	if opts.ClassifyOutcome == nil {
		opts.ClassifyOutcome = func(error) OutcomeTag { return OutcomeFetchError }
	}
	emit := opts.EmitEvent
	if emit == nil {
		emit = func(Event) {}
	}

	pacer := newHostPacer(opts.PerHostDelay, nil)

	var (
		mu        sync.Mutex
		summary   DrainSummary
	)

	in := make(chan SourceItem)
	g, gctx := errgroup.WithContext(ctx)

	for w := 0; w < opts.Concurrency; w++ {
		g.Go(func() error {
			for src := range in {
				processOne(gctx, src, opts, pacer, emit, &mu, &summary)
			}
			return nil
		})
	}

	go func() {
		defer close(in)
		for _, s := range sources {
			select {
			case in <- s:
			case <-gctx.Done():
				return
			}
		}
	}()

	_ = g.Wait()

	emit(Event{Name: EventDrainCompleted, Detail: ""})
	return summary
}

func processOne(ctx context.Context, src SourceItem, opts DrainOptions, pacer *hostPacer, emit func(Event), mu *sync.Mutex, summary *DrainSummary) {
	metrics.SchedulerTicks.WithLabelValues("tick").Inc()
	emit(Event{Name: EventTick, URL: src.URL, Host: src.Host})

	if wait := pacer.wait(src.Host); wait > 0 {
		emit(Event{Name: EventHostWait, URL: src.URL, Host: src.Host, Detail: wait.String()})
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			mu.Lock()
			summary.Skipped++
			mu.Unlock()
			return
		}
	}

	mode := opts.InitialMode
	originalMode := mode
	var lastResult FetchResult
	var lastErr error

attemptLoop:
	for attempt := 0; ; attempt++ {
		start := time.Now()
		res, err := opts.Fetch(ctx, src.URL, mode)
		elapsed := time.Since(start)
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.FetchLatency.WithLabelValues(string(mode), outcome).Observe(elapsed.Seconds())

		if err == nil {
			if mode != originalMode {
				res.DegradedFromMode = originalMode
				emit(Event{Name: EventFallbackSucceeded, URL: src.URL, Host: src.Host, Mode: mode, Attempt: attempt})
			}
			res.FetcherKind = mode
			mu.Lock()
			summary.Processed++
			mu.Unlock()
			if opts.OnFetchResult != nil {
				opts.OnFetchResult(res)
			}
			return
		}

		lastResult, lastErr = res, err
		tag := opts.ClassifyOutcome(err)

		if tag == OutcomeNotFound {
			break attemptLoop
		}

		if tag == OutcomeRateLimited && attempt < opts.MaxRetries {
			backoff := opts.RetryBaseDelay * time.Duration(1<<uint(attempt))
			select {
			case <-time.After(backoff):
				continue attemptLoop
			case <-ctx.Done():
				break attemptLoop
			}
		}

		if next, ok := nextModeAfter(mode, tag); ok {
			emit(Event{Name: EventFallbackStarted, URL: src.URL, Host: src.Host, Mode: next, Attempt: attempt, Detail: string(tag)})
			mode = next
			continue attemptLoop
		}

		if tag == OutcomeFetchError && attempt < opts.MaxRetries {
			backoff := opts.RetryBaseDelay * time.Duration(1<<uint(attempt))
			select {
			case <-time.After(backoff):
				continue attemptLoop
			case <-ctx.Done():
			}
		}

		emit(Event{Name: EventFallbackExhausted, URL: src.URL, Host: src.Host, Mode: mode, Attempt: attempt, Detail: string(tag)})
		break attemptLoop
	}

	mu.Lock()
	summary.Failed++
	mu.Unlock()
	if opts.OnFetchError != nil {
		opts.OnFetchError(src.URL, lastErr)
	}
	_ = lastResult
}
