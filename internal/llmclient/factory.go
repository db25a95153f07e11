// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llmclient

import "fmt"

// Provider names a supported LLM backend, the same per-role selection the
// teacher's ProviderFactory makes.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// New constructs the Client for the named provider from its environment
// variables. The discovery and escalation planners that use this are
// optional per spec.md §6; a construction error here never blocks the core
// convergence loop, which does not hold a Client reference at all.
func New(provider Provider) (Client, error) {
	switch provider {
	case ProviderAnthropic:
		return NewAnthropicClient()
	case ProviderOpenAI:
		return NewOpenAIClient()
	default:
		return nil, fmt.Errorf("llmclient: unsupported provider %q", provider)
	}
}
