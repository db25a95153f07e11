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

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAnthropicClientCallParsesJSONObject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "test-key", r.Header.Get("x-api-key"))
		var req anthropicWireRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "claude-test", req.Model)

		resp := anthropicWireResponse{Content: []anthropicWireBlock{
			{Type: "text", Text: `{"weight_g": 60}`},
		}}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	client := &AnthropicClient{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		apiKey:     "test-key",
		model:      "claude-test",
		baseURL:    server.URL,
	}

	resp, err := client.Call(context.Background(), CallRequest{
		User:       "what does it weigh?",
		JSONSchema: map[string]any{"type": "object"},
	})
	require.NoError(t, err)
	require.InDelta(t, 60, resp.Object["weight_g"], 0.001)
}

func TestAnthropicClientCallPropagatesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(anthropicWireResponse{
			Error: &anthropicWireError{Type: "overloaded_error", Message: "try again"},
		})
	}))
	defer server.Close()

	client := &AnthropicClient{httpClient: &http.Client{Timeout: 5 * time.Second}, apiKey: "k", model: "m", baseURL: server.URL}
	_, err := client.Call(context.Background(), CallRequest{User: "hi"})
	require.Error(t, err)
}

func TestOpenAIClientCallReturnsRawText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		resp := openaiWireResponse{Choices: []openaiWireChoice{
			{Message: openaiWireMsg{Role: "assistant", Content: "hello"}},
		}}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := &OpenAIClient{httpClient: &http.Client{Timeout: 5 * time.Second}, apiKey: "test-key", model: "m", baseURL: server.URL}
	resp, err := client.Call(context.Background(), CallRequest{User: "hi"})
	require.NoError(t, err)
	require.Equal(t, "hello", resp.Raw)
	require.Nil(t, resp.Object)
}

func TestNewRejectsUnsupportedProvider(t *testing.T) {
	_, err := New(Provider("mistral"))
	require.Error(t, err)
}

func TestParseJSONObjectStripsSurroundingProse(t *testing.T) {
	obj, err := parseJSONObject("here you go: {\"a\": 1} thanks")
	require.NoError(t, err)
	require.InDelta(t, 1, obj["a"], 0.001)
}
