// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config holds the re-architected configuration surface: an
// explicit HostPolicyTable (replacing the free-form host-policy override
// map the source read from an environment variable), category rule-bundle
// loading, and small env-driven process configuration, all in the
// teacher's plain os.Getenv-with-defaults idiom rather than a config
// framework.
package config

import (
	"os"
	"strconv"
	"strings"
)

// HostPolicy is the per-host fetch policy override.
type HostPolicy struct {
	PageGotoTimeoutMs        int
	PageNetworkIdleTimeoutMs int
	PerHostMinDelayMs        int
	GraphqlReplayEnabled     bool
	RetryBudget              int
	RetryBackoffMs           int
}

// HostPolicyTable maps a normalized host token (lowercased, "www." stripped)
// to its HostPolicy override. Hosts absent from the table use the
// scheduler's DefaultHostPolicy.
type HostPolicyTable struct {
	byHost  map[string]HostPolicy
	Default HostPolicy
}

// DefaultHostPolicy is the fallback policy applied when a host has no
// explicit table entry.
func DefaultHostPolicy() HostPolicy {
	return HostPolicy{
		PageGotoTimeoutMs:        30_000,
		PageNetworkIdleTimeoutMs: 5_000,
		PerHostMinDelayMs:        500,
		GraphqlReplayEnabled:     false,
		RetryBudget:              2,
		RetryBackoffMs:           1_000,
	}
}

// NewHostPolicyTable builds a table from entries, normalizing host keys.
func NewHostPolicyTable(entries map[string]HostPolicy) *HostPolicyTable {
	byHost := make(map[string]HostPolicy, len(entries))
	for host, policy := range entries {
		byHost[NormalizeHost(host)] = policy
	}
	return &HostPolicyTable{byHost: byHost, Default: DefaultHostPolicy()}
}

// NormalizeHost lowercases host and strips a leading "www." — the same
// normalization the Source Planner applies to URLs for dedup.
func NormalizeHost(host string) string {
	h := strings.ToLower(strings.TrimSpace(host))
	return strings.TrimPrefix(h, "www.")
}

// Lookup returns the policy for host, falling back to Default when host has
// no table entry.
func (t *HostPolicyTable) Lookup(host string) HostPolicy {
	if t == nil {
		return DefaultHostPolicy()
	}
	if p, ok := t.byHost[NormalizeHost(host)]; ok {
		return p
	}
	return t.Default
}

// Set installs or replaces the policy for host.
func (t *HostPolicyTable) Set(host string, policy HostPolicy) {
	t.byHost[NormalizeHost(host)] = policy
}

// envInt reads an integer environment variable, falling back to def if
// unset or unparsable.
func envInt(name string, def int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// envString reads a string environment variable, falling back to def if
// unset.
func envString(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}
