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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/AleutianAI/spec-harvester/services/llm"
)

const (
	anthropicAPIVersion = "2023-06-01"
	anthropicBaseURL    = "https://api.anthropic.com/v1/messages"
)

type anthropicWireRequest struct {
	Model       string              `json:"model"`
	Messages    []anthropicWireMsg  `json:"messages"`
	System      []anthropicWireText `json:"system,omitempty"`
	MaxTokens   int                 `json:"max_tokens"`
	Temperature *float32            `json:"temperature,omitempty"`
}

type anthropicWireMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicWireText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicWireResponse struct {
	Content []anthropicWireBlock `json:"content"`
	Error   *anthropicWireError  `json:"error,omitempty"`
}

type anthropicWireBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicWireError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// AnthropicClient implements Client against the Anthropic Messages API,
// adapted from services/llm's raw net/http request shape (no vendor SDK
// exists in this module's dependency graph for the Anthropic wire format).
type AnthropicClient struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
}

// NewAnthropicClient builds a client from ANTHROPIC_API_KEY and CLAUDE_MODEL,
// the same environment contract as services/llm.NewAnthropicClient.
func NewAnthropicClient() (*AnthropicClient, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("llmclient: ANTHROPIC_API_KEY is missing")
	}
	model := os.Getenv("CLAUDE_MODEL")
	if model == "" {
		model = "claude-3-5-sonnet-20240620"
	}
	return &AnthropicClient{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		apiKey:     apiKey,
		model:      model,
		baseURL:    anthropicBaseURL,
	}, nil
}

func (a *AnthropicClient) Call(ctx context.Context, req CallRequest) (CallResponse, error) {
	model := a.model
	if req.Model != "" {
		model = req.Model
	}

	system := req.System
	if len(req.JSONSchema) > 0 {
		schemaBytes, err := json.Marshal(req.JSONSchema)
		if err != nil {
			return CallResponse{}, fmt.Errorf("llmclient: marshaling json schema: %w", err)
		}
		system = strings.TrimSpace(system + "\n\nRespond with a single JSON object matching this schema, no prose:\n" + string(schemaBytes))
	}

	wireReq := anthropicWireRequest{
		Model:     model,
		Messages:  []anthropicWireMsg{{Role: "user", Content: req.User}},
		MaxTokens: 4096,
	}
	if system != "" {
		wireReq.System = []anthropicWireText{{Type: "text", Text: system}}
	}

	body, err := json.Marshal(wireReq)
	if err != nil {
		return CallResponse{}, fmt.Errorf("llmclient: marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, bytes.NewReader(body))
	if err != nil {
		return CallResponse{}, fmt.Errorf("llmclient: building request: %w", err)
	}
	httpReq.Header.Set("x-api-key", a.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)
	httpReq.Header.Set("content-type", "application/json")

	slog.Debug("llmclient: calling anthropic", "model", model, "reason", req.Reason)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return CallResponse{}, fmt.Errorf("llmclient: anthropic request failed: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return CallResponse{}, fmt.Errorf("llmclient: reading anthropic response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return CallResponse{}, fmt.Errorf("llmclient: anthropic returned status %d: %s", resp.StatusCode, llm.SafeLogString(string(respBytes)))
	}

	var wireResp anthropicWireResponse
	if err := json.Unmarshal(respBytes, &wireResp); err != nil {
		return CallResponse{}, fmt.Errorf("llmclient: parsing anthropic response: %w", err)
	}
	if wireResp.Error != nil {
		return CallResponse{}, fmt.Errorf("llmclient: anthropic API error: %s", wireResp.Error.Message)
	}

	var text strings.Builder
	for _, block := range wireResp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return CallResponse{}, fmt.Errorf("llmclient: anthropic returned no text content")
	}

	out := CallResponse{Raw: text.String()}
	if len(req.JSONSchema) > 0 {
		obj, parseErr := parseJSONObject(out.Raw)
		if parseErr != nil {
			return out, fmt.Errorf("llmclient: anthropic reply did not parse as JSON: %w", parseErr)
		}
		out.Object = obj
	}
	return out, nil
}

func parseJSONObject(raw string) (map[string]any, error) {
	trimmed := strings.TrimSpace(raw)
	if i := strings.Index(trimmed, "{"); i > 0 {
		trimmed = trimmed[i:]
	}
	if j := strings.LastIndex(trimmed, "}"); j >= 0 && j < len(trimmed)-1 {
		trimmed = trimmed[:j+1]
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
		return nil, err
	}
	return obj, nil
}
