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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmptyPlannerHasNoNext(t *testing.T) {
	p := New(DefaultConfig(), nil)
	require.False(t, p.HasNext())
	_, ok := p.Next()
	require.False(t, ok)
}

func TestDuplicateURLsSilentlyIgnored(t *testing.T) {
	p := New(DefaultConfig(), nil)
	res1 := p.Enqueue("https://www.example.com/a#frag", EnqueueOptions{Tier: TierRetail})
	require.True(t, res1.Accepted)

	res2 := p.Enqueue("https://example.com/a/", EnqueueOptions{Tier: TierRetail})
	require.False(t, res2.Accepted)
	require.Equal(t, reasonDuplicate, res2.Reason)
}

func TestTierOrderingManufacturerFirst(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ManufacturerHosts = map[string]bool{"logitech.com": true}
	p := New(cfg, nil)

	require.True(t, p.Enqueue("https://retailer.com/a", EnqueueOptions{Tier: TierRetail}).Accepted)
	require.True(t, p.Enqueue("https://logitech.com/product", EnqueueOptions{Tier: TierManufacturer}).Accepted)

	src, ok := p.Next()
	require.True(t, ok)
	require.Equal(t, TierManufacturer, src.Tier)

	src2, ok := p.Next()
	require.True(t, ok)
	require.Equal(t, TierRetail, src2.Tier)
}

func TestManufacturerHostMismatchRejected(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ManufacturerHosts = map[string]bool{"logitech.com": true}
	p := New(cfg, nil)

	res := p.Enqueue("https://not-logitech.com/product", EnqueueOptions{Tier: TierManufacturer})
	require.False(t, res.Accepted)
	require.Equal(t, reasonManufacturerReject, res.Reason)
}

func TestBlockHostRemovesQueuedAndFutureURLs(t *testing.T) {
	p := New(DefaultConfig(), nil)
	require.True(t, p.Enqueue("https://bad.com/a", EnqueueOptions{Tier: TierRetail}).Accepted)
	require.True(t, p.Enqueue("https://good.com/a", EnqueueOptions{Tier: TierRetail}).Accepted)

	removed := p.BlockHost("bad.com", "robots_disallow")
	require.Equal(t, 1, removed)

	res := p.Enqueue("https://bad.com/b", EnqueueOptions{Tier: TierRetail})
	require.False(t, res.Accepted)
	require.Equal(t, reasonBlockedHost, res.Reason)

	src, ok := p.Next()
	require.True(t, ok)
	require.Equal(t, "good.com", src.Host)
}

func TestCandidateSourceDisabledByDefault(t *testing.T) {
	p := New(DefaultConfig(), nil)
	res := p.Enqueue("https://random-forum.com/thread", EnqueueOptions{Tier: TierCandidate, CandidateSource: true})
	require.False(t, res.Accepted)
	require.Equal(t, reasonCandidateDisabled, res.Reason)
}

func TestHostCapEnforced(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxPagesPerDomain = 1
	p := New(cfg, nil)

	require.True(t, p.Enqueue("https://retailer.com/a", EnqueueOptions{Tier: TierRetail}).Accepted)
	require.True(t, p.Enqueue("https://retailer.com/b", EnqueueOptions{Tier: TierRetail}).Accepted)

	_, ok := p.Next()
	require.True(t, ok)
	require.False(t, p.HasNext())
}

func TestDiscoverFromSitemapURLSet(t *testing.T) {
	p := New(DefaultConfig(), nil)
	body := []byte(`<?xml version="1.0"?><urlset><url><loc>https://example.com/p1</loc></url><url><loc>https://example.com/p2</loc></url></urlset>`)
	n := p.DiscoverFromSitemap("https://example.com/sitemap.xml", body, TierRetail)
	require.Equal(t, 2, n)
}

func TestDiscoverFromRobotsExtractsSitemapDirectives(t *testing.T) {
	body := []byte("User-agent: *\nDisallow: /admin\nSitemap: https://example.com/sitemap.xml\n")
	sitemaps := DiscoverFromRobots(body)
	require.Equal(t, []string{"https://example.com/sitemap.xml"}, sitemaps)
}
