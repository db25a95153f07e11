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
	"sync"
	"time"
)

// hostPacer enforces a minimum inter-fetch spacing per host. Generalizes
// the teacher's per-provider RateLimiter (egress/rate_limiter.go) from a
// sliding request-count window to a single last-fetch-time gate, which is
// the exact shape spec.md §4.3/§5 calls for ("per-host minimum inter-fetch
// spacing" rather than a requests-per-minute budget).
type hostPacer struct {
	mu           sync.Mutex
	lastFetchAt  map[string]time.Time
	defaultDelay time.Duration
	perHost      map[string]time.Duration
}

func newHostPacer(defaultDelay time.Duration, perHost map[string]time.Duration) *hostPacer {
	if perHost == nil {
		perHost = map[string]time.Duration{}
	}
	return &hostPacer{
		lastFetchAt:  make(map[string]time.Time),
		defaultDelay: defaultDelay,
		perHost:      perHost,
	}
}

// wait returns how long the caller must sleep before fetching host, and
// records the (eventual) fetch time as now+wait so concurrent callers for
// the same host are serialized without holding the mutex across the sleep.
func (p *hostPacer) wait(host string) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	delay := p.defaultDelay
	if d, ok := p.perHost[host]; ok {
		delay = d
	}
	if delay <= 0 {
		p.lastFetchAt[host] = time.Now()
		return 0
	}

	now := time.Now()
	next := now
	if last, ok := p.lastFetchAt[host]; ok {
		earliest := last.Add(delay)
		if earliest.After(now) {
			next = earliest
		}
	}
	p.lastFetchAt[host] = next
	if next.After(now) {
		return next.Sub(now)
	}
	return 0
}
