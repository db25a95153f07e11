// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package planner is the Source Planner: a per-product, tier-ordered URL
// queue with dedup, per-host caps, and brand-manufacturer safety, consumed
// by the Fetch Scheduler.
package planner

import "errors"

// Tier is the source-host ranking: 1 manufacturer, 2 lab review, 3
// database/retail, 4 candidate/unclassified.
type Tier int

const (
	TierManufacturer Tier = 1
	TierLabReview    Tier = 2
	TierRetail       Tier = 3
	TierCandidate    Tier = 4
)

// Role annotates why a URL was enqueued; purely informational.
type Role string

const (
	RoleSeed      Role = "seed"
	RoleSitemap   Role = "sitemap"
	RoleDiscovery Role = "discovery"
	RoleCandidate Role = "candidate"
)

// Source is one queued URL with its planning metadata.
type Source struct {
	URL             string
	Host            string
	Tier            Tier
	Role            Role
	CandidateSource bool
	PlannerScore    float64
	FieldReward     float64
	InsertionIndex  int
}

// EnqueueOptions are the optional classification hints for Enqueue.
type EnqueueOptions struct {
	Tier            Tier
	Role            Role
	CandidateSource bool
	PlannerScore    float64
}

// Config bounds the planner's behavior for one product run.
type Config struct {
	// ManufacturerHosts is the current brand's set of manufacturer root
	// domains; a tier-1 URL outside this set is rejected unless
	// BroadDiscovery is enabled and the path carries strong model signal.
	ManufacturerHosts map[string]bool

	MaxURLsPerProduct        int
	MaxPagesPerDomain        int
	ManufacturerPagesOverride int
	ManufacturerReserveURLs  int

	// FetchCandidateSources gates whether arbitrary-host candidate-source
	// URLs are admitted at all; when false, Enqueue silently drops them.
	FetchCandidateSources bool

	// BroadDiscovery relaxes the manufacturer-host check when the path
	// contains strong model signal (see hasStrongModelSignal).
	BroadDiscovery bool

	ModelSignalTokens []string
}

// DefaultConfig returns reasonable planner bounds, matching spec.md §4.2 /
// §5's stated defaults for a single-product run.
func DefaultConfig() Config {
	return Config{
		ManufacturerHosts:         map[string]bool{},
		MaxURLsPerProduct:         120,
		MaxPagesPerDomain:         20,
		ManufacturerPagesOverride: 40,
		ManufacturerReserveURLs:   5,
		FetchCandidateSources:     false,
		BroadDiscovery:            false,
	}
}

var (
	// ErrQueueEmpty is returned by Next when hasNext() would be false.
	ErrQueueEmpty = errors.New("planner: queue empty")
)

// BlockReason is a free-form string recorded alongside a blocked host, for
// logging only.
type BlockReason string
