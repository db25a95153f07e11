// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package planner

import (
	"encoding/xml"
	"log/slog"
	"strings"
	"sync"

	"github.com/AleutianAI/spec-harvester/internal/urlnorm"
)

// EnqueueResult reports whether Enqueue admitted the URL and, if not, why.
type EnqueueResult struct {
	Accepted bool
	Reason   string
}

const (
	reasonDuplicate          = "duplicate"
	reasonBlockedHost        = "blocked_host"
	reasonManufacturerReject = "manufacturer_host_mismatch"
	reasonCandidateDisabled  = "candidate_sources_disabled"
	reasonHostCap            = "max_pages_per_domain"
	reasonBudgetExhausted    = "max_urls_per_product"
)

// Planner is a per-product tier-ordered URL queue. Not safe to share across
// products; one Planner owns one product run's frontier of not-yet-fetched
// URLs, matching spec.md §5's "owned by one product run" shared-resource
// policy.
type Planner struct {
	mu sync.Mutex

	cfg    Config
	logger *slog.Logger

	seen         map[string]bool
	queues       map[Tier][]Source
	blockedHosts map[string]bool

	emittedTotal        int
	emittedPerHost       map[string]int
	manufacturerEmitted  int
	insertionCounter     int
}

// New creates a Planner for one product run.
func New(cfg Config, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{
		cfg:             cfg,
		logger:          logger,
		seen:            make(map[string]bool),
		queues:          make(map[Tier][]Source),
		blockedHosts:    make(map[string]bool),
		emittedPerHost:  make(map[string]int),
	}
}

// Enqueue classifies and inserts rawURL per spec.md §4.2. Duplicate URLs
// (identical after urlnorm.Normalize) are silently ignored, reported back
// as Accepted=false, Reason="duplicate" for observability.
func (p *Planner) Enqueue(rawURL string, opts EnqueueOptions) EnqueueResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	normalized := urlnorm.Normalize(rawURL)
	if p.seen[normalized] {
		return EnqueueResult{Reason: reasonDuplicate}
	}

	host := urlnorm.Host(normalized)
	if p.blockedHosts[host] {
		return EnqueueResult{Reason: reasonBlockedHost}
	}

	tier := opts.Tier
	if tier == 0 {
		tier = TierCandidate
	}

	if opts.CandidateSource && !p.cfg.FetchCandidateSources {
		return EnqueueResult{Reason: reasonCandidateDisabled}
	}

	if tier == TierManufacturer && len(p.cfg.ManufacturerHosts) > 0 && !p.cfg.ManufacturerHosts[host] {
		if !p.cfg.BroadDiscovery || !hasStrongModelSignal(normalized, p.cfg.ModelSignalTokens) {
			return EnqueueResult{Reason: reasonManufacturerReject}
		}
	}

	p.seen[normalized] = true
	p.insertionCounter++
	src := Source{
		URL:             normalized,
		Host:            host,
		Tier:            tier,
		Role:            opts.Role,
		CandidateSource: opts.CandidateSource,
		PlannerScore:    opts.PlannerScore,
		InsertionIndex:  p.insertionCounter,
	}
	p.queues[tier] = append(p.queues[tier], src)
	return EnqueueResult{Accepted: true}
}

// HasNext reports whether a call to Next would return a Source.
func (p *Planner) HasNext() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasEligibleLocked()
}

func (p *Planner) hasEligibleLocked() bool {
	if p.emittedTotal >= p.cfg.MaxURLsPerProduct {
		return false
	}
	for tier := TierManufacturer; tier <= TierCandidate; tier++ {
		for _, s := range p.queues[tier] {
			if p.hostCapRemaining(s.Host, s.Tier) {
				return true
			}
		}
	}
	return false
}

func (p *Planner) hostCapRemaining(host string, tier Tier) bool {
	limit := p.cfg.MaxPagesPerDomain
	if tier == TierManufacturer && p.cfg.ManufacturerPagesOverride > 0 {
		limit = p.cfg.ManufacturerPagesOverride
	}
	if limit <= 0 {
		return true
	}
	return p.emittedPerHost[host] < limit
}

// Next returns the highest-priority Source, or ErrQueueEmpty when the
// queue is drained. Order within a tier: higher PlannerScore first, then
// higher FieldReward, then insertion order; CandidateSource items always
// sort after non-candidate items in the same tier.
func (p *Planner) Next() (Source, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.emittedTotal >= p.cfg.MaxURLsPerProduct {
		return Source{}, false
	}

	for tier := TierManufacturer; tier <= TierCandidate; tier++ {
		if tier != TierManufacturer {
			remaining := p.cfg.MaxURLsPerProduct - p.emittedTotal
			if remaining <= p.cfg.ManufacturerReserveURLs && len(p.queues[TierManufacturer]) > 0 {
				continue
			}
		}

		queue := p.queues[tier]
		bestIdx := -1
		for i, s := range queue {
			if !p.hostCapRemaining(s.Host, s.Tier) {
				continue
			}
			if bestIdx == -1 || lessPriority(queue[bestIdx], s) {
				bestIdx = i
			}
		}
		if bestIdx == -1 {
			continue
		}
		chosen := queue[bestIdx]
		p.queues[tier] = append(queue[:bestIdx], queue[bestIdx+1:]...)
		p.emittedTotal++
		p.emittedPerHost[chosen.Host]++
		if chosen.Tier == TierManufacturer {
			p.manufacturerEmitted++
		}
		return chosen, true
	}
	return Source{}, false
}

// lessPriority reports whether candidate b should be preferred over the
// current best a.
func lessPriority(a, b Source) bool {
	if a.CandidateSource != b.CandidateSource {
		return b.CandidateSource == false
	}
	if a.PlannerScore != b.PlannerScore {
		return b.PlannerScore > a.PlannerScore
	}
	if a.FieldReward != b.FieldReward {
		return b.FieldReward > a.FieldReward
	}
	return b.InsertionIndex < a.InsertionIndex
}

// BlockHost marks host as ineligible for any further URLs and drops
// already-queued URLs for that host, returning how many were removed.
func (p *Planner) BlockHost(host string, reason BlockReason) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	host = urlnorm.Host("https://" + host + "/")
	p.blockedHosts[host] = true

	removed := 0
	for tier, queue := range p.queues {
		kept := queue[:0]
		for _, s := range queue {
			if s.Host == host {
				removed++
				continue
			}
			kept = append(kept, s)
		}
		p.queues[tier] = kept
	}
	p.logger.Info("planner host blocked", "host", host, "reason", string(reason), "removed", removed)
	return removed
}

// sitemapURLSet and sitemapIndexSet mirror the minimal XML shapes this
// planner needs from <urlset> and <sitemapindex> documents.
type sitemapURLSet struct {
	XMLName xml.Name      `xml:"urlset"`
	URLs    []sitemapEntry `xml:"url"`
}

type sitemapIndexSet struct {
	XMLName xml.Name      `xml:"sitemapindex"`
	Sitemaps []sitemapEntry `xml:"sitemap"`
}

type sitemapEntry struct {
	Loc string `xml:"loc"`
}

// DiscoverFromSitemap parses a sitemap document (either <urlset> or
// <sitemapindex>) and enqueues every <loc> under originHost's tier,
// returning the count of URLs accepted.
func (p *Planner) DiscoverFromSitemap(originURL string, body []byte, tier Tier) int {
	discovered := 0

	var urlset sitemapURLSet
	if err := xml.Unmarshal(body, &urlset); err == nil && len(urlset.URLs) > 0 {
		for _, u := range urlset.URLs {
			if u.Loc == "" {
				continue
			}
			if res := p.Enqueue(u.Loc, EnqueueOptions{Tier: tier, Role: RoleSitemap}); res.Accepted {
				discovered++
			}
		}
		return discovered
	}

	var index sitemapIndexSet
	if err := xml.Unmarshal(body, &index); err == nil {
		for _, s := range index.Sitemaps {
			if s.Loc == "" {
				continue
			}
			if res := p.Enqueue(s.Loc, EnqueueOptions{Tier: tier, Role: RoleSitemap}); res.Accepted {
				discovered++
			}
		}
	}
	return discovered
}

// DiscoverFromRobots extracts "Sitemap:" directives from a robots.txt body
// and returns how many distinct sitemap URLs were found (the caller is
// responsible for fetching and passing each to DiscoverFromSitemap).
func DiscoverFromRobots(body []byte) []string {
	var sitemaps []string
	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSpace(line)
		lower := strings.ToLower(line)
		if !strings.HasPrefix(lower, "sitemap:") {
			continue
		}
		loc := strings.TrimSpace(line[len("sitemap:"):])
		if loc != "" {
			sitemaps = append(sitemaps, loc)
		}
	}
	return sitemaps
}

// hasStrongModelSignal reports whether the URL path contains one of the
// configured model-signal tokens, used to relax the manufacturer-host
// check under broad-discovery mode.
func hasStrongModelSignal(normalizedURL string, tokens []string) bool {
	lower := strings.ToLower(normalizedURL)
	for _, t := range tokens {
		if t == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(t)) {
			return true
		}
	}
	return false
}
