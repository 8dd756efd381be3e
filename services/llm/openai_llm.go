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
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/AleutianAI/ComponentArchitect/services/architect/datatypes"
	"github.com/sashabaranov/go-openai"
)

const (
	defaultOpenAIModel = "gpt-4o-mini"
	defaultGroqModel   = "llama-3.3-70b-versatile"
	groqBaseURL        = "https://api.groq.com/openai/v1"
)

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint
// (OpenAI itself, Groq, vLLM, LM Studio).
type OpenAIClient struct {
	client  *openai.Client
	model   string
	backend string
}

// NewOpenAIClient creates a client for the "openai" backend.
//
// The key comes from cfg.APIKey, then OPENAI_API_KEY (or cfg.APIKeyEnv),
// then /run/secrets/openai_api_key.
func NewOpenAIClient(cfg Config) (*OpenAIClient, error) {
	return newOpenAICompatible(cfg, BackendOpenAI, "OPENAI_API_KEY", "openai_api_key", "", defaultOpenAIModel)
}

// NewGroqClient creates a client for the "groq" backend, which speaks the
// OpenAI protocol at a different base URL.
func NewGroqClient(cfg Config) (*OpenAIClient, error) {
	return newOpenAICompatible(cfg, BackendGroq, "GROQ_API_KEY", "groq_api_key", groqBaseURL, defaultGroqModel)
}

func newOpenAICompatible(cfg Config, backend, envVar, secret, baseURL, model string) (*OpenAIClient, error) {
	if cfg.APIKeyEnv != "" {
		envVar = cfg.APIKeyEnv
	}
	apiKey, err := resolveAPIKey(cfg.APIKey, envVar, secret)
	if err != nil {
		return nil, err
	}
	if cfg.BaseURL != "" {
		baseURL = cfg.BaseURL
	}
	if cfg.Model != "" {
		model = cfg.Model
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientCfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.timeout()}

	slog.Info("Initializing OpenAI-compatible client", "backend", backend, "model", model, "base_url", clientCfg.BaseURL)
	return &OpenAIClient{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   model,
		backend: backend,
	}, nil
}

// Generate implements LLMClient.
func (o *OpenAIClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	return o.Chat(ctx, []datatypes.Message{{Role: datatypes.RoleUser, Content: prompt}}, params)
}

// Chat implements LLMClient.
func (o *OpenAIClient) Chat(ctx context.Context, messages []datatypes.Message, params GenerationParams) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	if params.Temperature != nil {
		req.Temperature = *params.Temperature
	}
	if params.MaxTokens != nil {
		req.MaxCompletionTokens = *params.MaxTokens
	}
	if params.TopP != nil {
		req.TopP = *params.TopP
	}
	if len(params.Stop) > 0 {
		req.Stop = params.Stop
	}

	slog.Debug("Sending chat completion", "backend", o.backend, "model", o.model, "messages", len(messages))
	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", gatewayError(o.backend, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", gatewayError(o.backend, ErrEmptyResponse)
	}
	slog.Debug("Received chat completion", "backend", o.backend, "finish_reason", resp.Choices[0].FinishReason)
	return resp.Choices[0].Message.Content, nil
}
