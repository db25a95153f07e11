// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package scheduler is the Fetch Scheduler: drains a source queue into
// fetch results under bounded concurrency, per-host minimum inter-fetch
// spacing, and fetcher-mode fallback, in the idiom of the teacher's
// EscalatingRouter ladder generalized from model escalation to fetcher-mode
// escalation.
package scheduler

import (
	"context"
	"time"
)

// Mode is a fetcher implementation tier, cheapest/fastest first.
type Mode string

const (
	ModeCrawlee   Mode = "crawlee"
	ModePlaywright Mode = "playwright"
	ModeHTTP      Mode = "http"
)

// OutcomeTag classifies a fetch error for the fallback ladder.
type OutcomeTag string

const (
	OutcomeBlocked     OutcomeTag = "blocked"
	OutcomeRateLimited OutcomeTag = "rate_limited"
	OutcomeNotFound    OutcomeTag = "not_found"
	OutcomeFetchError  OutcomeTag = "fetch_error"
	OutcomeParseError  OutcomeTag = "parse_error"
)

// FetchResult is emitted bit-for-bit as specified in spec.md §3/§6.
type FetchResult struct {
	URL               string
	FinalURL          string
	Status            int
	ContentType       string
	Bytes             int64
	ElapsedMs         int64
	Err               error
	Redirect          bool
	BlockedByRobots   bool
	FetchedAt         time.Time
	FetcherKind       Mode
	DegradedFromMode  Mode
}

// Ok reports ok ⇔ status ∈ [200, 400) ∧ error==null.
func (r FetchResult) Ok() bool {
	return r.Err == nil && r.Status >= 200 && r.Status < 400
}

// Dead reports dead ⇔ status ∈ {404, 410, 451}.
func (r FetchResult) Dead() bool {
	return r.Status == 404 || r.Status == 410 || r.Status == 451
}

// ShouldExtract reports shouldExtract ⇔ ok ∧ ¬dead ∧ ¬blockedByRobots.
func (r FetchResult) ShouldExtract() bool {
	return r.Ok() && !r.Dead() && !r.BlockedByRobots
}

// Event names emitted by the scheduler, per spec.md §4.3.
const (
	EventTick               = "scheduler_tick"
	EventHostWait           = "scheduler_host_wait"
	EventFallbackStarted    = "scheduler_fallback_started"
	EventFallbackSucceeded  = "scheduler_fallback_succeeded"
	EventFallbackExhausted  = "scheduler_fallback_exhausted"
	EventDrainCompleted     = "scheduler_drain_completed"
)

// Event is a single scheduler lifecycle notification.
type Event struct {
	Name      string
	URL       string
	Host      string
	Mode      Mode
	Attempt   int
	Detail    string
}

// FetchFunc performs one fetch attempt in the given mode.
type FetchFunc func(ctx context.Context, url string, mode Mode) (FetchResult, error)

// ClassifyOutcomeFunc maps a fetch error to a fallback-ladder tag.
type ClassifyOutcomeFunc func(err error) OutcomeTag

// DrainOptions configures one call to Drain.
type DrainOptions struct {
	Concurrency     int
	PerHostDelay    time.Duration
	MaxRetries      int
	RetryBaseDelay  time.Duration
	InitialMode     Mode
	Fetch           FetchFunc
	ClassifyOutcome ClassifyOutcomeFunc
	OnFetchResult   func(FetchResult)
	OnFetchError    func(url string, err error)
	EmitEvent       func(Event)
}

// DrainSummary is the result of draining a source queue.
type DrainSummary struct {
	Processed int
	Failed    int
	Skipped   int
}

// SourceItem is the minimal shape the scheduler needs from a planner
// Source: a URL plus the host used for pacing.
type SourceItem struct {
	URL  string
	Host string
}
