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

const openaiBaseURL = "https://api.openai.com/v1/chat/completions"

type openaiWireRequest struct {
	Model    string            `json:"model"`
	Messages []openaiWireMsg   `json:"messages"`
}

type openaiWireMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiWireResponse struct {
	Choices []openaiWireChoice `json:"choices"`
	Error   *openaiWireError   `json:"error,omitempty"`
}

type openaiWireChoice struct {
	Message openaiWireMsg `json:"message"`
}

type openaiWireError struct {
	Message string `json:"message"`
}

// OpenAIClient implements Client against the Chat Completions API, adapted
// from services/llm's raw net/http shape the same way AnthropicClient is.
type OpenAIClient struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
}

// NewOpenAIClient builds a client from OPENAI_API_KEY and OPENAI_MODEL.
func NewOpenAIClient() (*OpenAIClient, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("llmclient: OPENAI_API_KEY is missing")
	}
	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIClient{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		apiKey:     apiKey,
		model:      model,
		baseURL:    openaiBaseURL,
	}, nil
}

func (o *OpenAIClient) Call(ctx context.Context, req CallRequest) (CallResponse, error) {
	model := o.model
	if req.Model != "" {
		model = req.Model
	}

	var messages []openaiWireMsg
	system := req.System
	if len(req.JSONSchema) > 0 {
		schemaBytes, err := json.Marshal(req.JSONSchema)
		if err != nil {
			return CallResponse{}, fmt.Errorf("llmclient: marshaling json schema: %w", err)
		}
		system = strings.TrimSpace(system + "\n\nRespond with a single JSON object matching this schema, no prose:\n" + string(schemaBytes))
	}
	if system != "" {
		messages = append(messages, openaiWireMsg{Role: "system", Content: system})
	}
	messages = append(messages, openaiWireMsg{Role: "user", Content: req.User})

	body, err := json.Marshal(openaiWireRequest{Model: model, Messages: messages})
	if err != nil {
		return CallResponse{}, fmt.Errorf("llmclient: marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL, bytes.NewReader(body))
	if err != nil {
		return CallResponse{}, fmt.Errorf("llmclient: building request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	httpReq.Header.Set("content-type", "application/json")

	slog.Debug("llmclient: calling openai", "model", model, "reason", req.Reason)

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return CallResponse{}, fmt.Errorf("llmclient: openai request failed: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return CallResponse{}, fmt.Errorf("llmclient: reading openai response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return CallResponse{}, fmt.Errorf("llmclient: openai returned status %d: %s", resp.StatusCode, llm.SafeLogString(string(respBytes)))
	}

	var wireResp openaiWireResponse
	if err := json.Unmarshal(respBytes, &wireResp); err != nil {
		return CallResponse{}, fmt.Errorf("llmclient: parsing openai response: %w", err)
	}
	if wireResp.Error != nil {
		return CallResponse{}, fmt.Errorf("llmclient: openai API error: %s", wireResp.Error.Message)
	}
	if len(wireResp.Choices) == 0 {
		return CallResponse{}, fmt.Errorf("llmclient: openai returned no choices")
	}

	out := CallResponse{Raw: wireResp.Choices[0].Message.Content}
	if len(req.JSONSchema) > 0 {
		obj, parseErr := parseJSONObject(out.Raw)
		if parseErr != nil {
			return out, fmt.Errorf("llmclient: openai reply did not parse as JSON: %w", parseErr)
		}
		out.Object = obj
	}
	return out, nil
}
