// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llmclient is the "LLM client interface (imported)" of spec.md §6:
// `callLlm({system, user, jsonSchema, model, reason}) → object`. It is used
// only by the optional discovery and escalation planners; the core
// convergence loop's correctness never depends on a call here succeeding.
package llmclient

import "context"

// Message is one turn of a chat-shaped prompt.
type Message struct {
	Role    string
	Content string
}

// CallRequest is spec.md §6's callLlm request shape.
type CallRequest struct {
	System     string
	User       string
	JSONSchema map[string]any
	Model      string
	Reason     string
}

// CallResponse is the parsed result of a call. Object is populated when
// JSONSchema was set and the model's reply parsed as JSON; Raw always holds
// the model's unparsed text.
type CallResponse struct {
	Object map[string]any
	Raw    string
}

// Client is the external LLM collaborator. Callers that do not need
// structured output may leave CallRequest.JSONSchema nil and read Raw.
type Client interface {
	Call(ctx context.Context, req CallRequest) (CallResponse, error)
}
