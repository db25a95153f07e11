// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package metrics holds package-level Prometheus collectors, registered via
// promauto the way agent/routing/escalating_router.go registers its
// escalation counters/histograms — every component imports this package
// and increments its own metrics rather than threading a registry through
// call sites.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SchedulerTicks counts scheduler lifecycle events by kind:
	// tick, host_wait, fallback_started, fallback_succeeded,
	// fallback_exhausted, drain_completed.
	SchedulerTicks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvester_scheduler_events_total",
		Help: "Fetch scheduler lifecycle events by kind.",
	}, []string{"event"})

	// FetchLatency observes per-fetch elapsed time in seconds, labeled by
	// fetcher mode and outcome.
	FetchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "harvester_fetch_latency_seconds",
		Help:    "Fetch latency in seconds by fetcher mode and outcome.",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode", "outcome"})

	// RoundLatency observes per-round orchestration-loop latency in
	// seconds, labeled by category.
	RoundLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "harvester_round_latency_seconds",
		Help:    "Orchestration round latency in seconds by category.",
		Buckets: prometheus.DefBuckets,
	}, []string{"category"})

	// NeedSetSize is a gauge of the current NeedSet row count per
	// product, labeled by category and stop reason (empty while running).
	NeedSetSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "harvester_needset_size",
		Help: "Current NeedSet row count for the active round.",
	}, []string{"category"})

	// FrontierSkips counts URLs skipped by the frontier store, labeled by
	// reason (cooldown, path_dead_pattern).
	FrontierSkips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvester_frontier_skips_total",
		Help: "URLs skipped by the frontier store by reason.",
	}, []string{"reason"})

	// CandidatesProduced counts candidates produced by the pipeline,
	// labeled by surface/method and outcome (accepted, dropped, gated).
	CandidatesProduced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvester_candidates_total",
		Help: "Candidates produced by the candidate pipeline by method and outcome.",
	}, []string{"method", "outcome"})

	// StopReasons counts orchestration stop decisions by reason.
	StopReasons = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvester_stop_reason_total",
		Help: "Orchestration loop stop decisions by reason.",
	}, []string{"reason"})
)
