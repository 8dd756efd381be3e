// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/AleutianAI/ComponentArchitect/services/architect/datatypes"
)

const (
	anthropicAPIVersion   = "2023-06-01"
	anthropicMessagesURL  = "https://api.anthropic.com/v1/messages"
	defaultAnthropicModel = "claude-3-5-sonnet-20240620"
	defaultAnthropicMax   = 4096
)

type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float32           `json:"temperature,omitempty"`
	TopP        *float32           `json:"top_p,omitempty"`
	TopK        *int               `json:"top_k,omitempty"`
	StopSeqs    []string           `json:"stop_sequences,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []anthropicContent `json:"content"`
	Error   *anthropicError    `json:"error,omitempty"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// AnthropicClient calls the Messages REST API directly.
type AnthropicClient struct {
	httpClient *http.Client
	apiKey     string
	model      string
	url        string
}

// NewAnthropicClient creates a client for the "anthropic" backend.
//
// The key comes from cfg.APIKey, then ANTHROPIC_API_KEY (or cfg.APIKeyEnv),
// then /run/secrets/anthropic_api_key.
func NewAnthropicClient(cfg Config) (*AnthropicClient, error) {
	envVar := "ANTHROPIC_API_KEY"
	if cfg.APIKeyEnv != "" {
		envVar = cfg.APIKeyEnv
	}
	apiKey, err := resolveAPIKey(cfg.APIKey, envVar, "anthropic_api_key")
	if err != nil {
		return nil, err
	}
	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
		slog.Info("Anthropic model not set, defaulting", "model", model)
	}
	url := anthropicMessagesURL
	if cfg.BaseURL != "" {
		url = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	return &AnthropicClient{
		httpClient: &http.Client{Timeout: cfg.timeout()},
		apiKey:     apiKey,
		model:      model,
		url:        url,
	}, nil
}

// Generate implements LLMClient.
func (a *AnthropicClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	return a.Chat(ctx, []datatypes.Message{{Role: datatypes.RoleUser, Content: prompt}}, params)
}

// Chat implements LLMClient. System messages move to the top-level system field.
func (a *AnthropicClient) Chat(ctx context.Context, messages []datatypes.Message, params GenerationParams) (string, error) {
	system, turns := splitSystem(messages)

	payload := anthropicRequest{
		Model:       a.model,
		System:      system,
		MaxTokens:   defaultAnthropicMax,
		Temperature: params.Temperature,
		TopP:        params.TopP,
		TopK:        params.TopK,
		StopSeqs:    params.Stop,
	}
	if params.MaxTokens != nil {
		payload.MaxTokens = *params.MaxTokens
	}
	for _, m := range turns {
		payload.Messages = append(payload.Messages, anthropicMessage{Role: m.Role, Content: m.Content})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicAPIVersion)
	req.Header.Set("content-type", "application/json")

	slog.Debug("Sending REST request to Anthropic", "model", a.model, "messages", len(turns))
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", gatewayError(BackendAnthropic, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", gatewayError(BackendAnthropic, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", gatewayError(BackendAnthropic, fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody)))
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", gatewayError(BackendAnthropic, fmt.Errorf("parse response: %w", err))
	}
	if apiResp.Error != nil {
		return "", gatewayError(BackendAnthropic, fmt.Errorf("%s: %s", apiResp.Error.Type, apiResp.Error.Message))
	}

	var text strings.Builder
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", gatewayError(BackendAnthropic, ErrEmptyResponse)
	}
	return text.String(), nil
}
