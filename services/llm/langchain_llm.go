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
	"fmt"
	"log/slog"
	"net/http"

	"github.com/AleutianAI/ComponentArchitect/services/architect/datatypes"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// LangChainClient drives an OpenAI-compatible endpoint through langchaingo.
// It defaults to Groq, which is where the architect originally ran.
type LangChainClient struct {
	llm   llms.Model
	model string
}

// NewLangChainClient creates a client for the "langchain" backend.
func NewLangChainClient(cfg Config) (*LangChainClient, error) {
	envVar := "GROQ_API_KEY"
	if cfg.APIKeyEnv != "" {
		envVar = cfg.APIKeyEnv
	}
	apiKey, err := resolveAPIKey(cfg.APIKey, envVar, "groq_api_key")
	if err != nil {
		return nil, err
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = groqBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultGroqModel
	}

	client, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithModel(model),
		openai.WithBaseURL(baseURL),
		openai.WithHTTPClient(&http.Client{Timeout: cfg.timeout()}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create langchain client: %w", err)
	}
	slog.Info("Initializing langchain client", "model", model, "base_url", baseURL)
	return &LangChainClient{llm: client, model: model}, nil
}

// Generate implements LLMClient.
func (l *LangChainClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	return l.Chat(ctx, []datatypes.Message{{Role: datatypes.RoleUser, Content: prompt}}, params)
}

// Chat implements LLMClient.
func (l *LangChainClient) Chat(ctx context.Context, messages []datatypes.Message, params GenerationParams) (string, error) {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		content = append(content, llms.TextParts(chatMessageType(m.Role), m.Content))
	}

	var opts []llms.CallOption
	if params.Temperature != nil {
		opts = append(opts, llms.WithTemperature(float64(*params.Temperature)))
	}
	if params.TopP != nil {
		opts = append(opts, llms.WithTopP(float64(*params.TopP)))
	}
	if params.TopK != nil {
		opts = append(opts, llms.WithTopK(*params.TopK))
	}
	if params.MaxTokens != nil {
		opts = append(opts, llms.WithMaxTokens(*params.MaxTokens))
	}
	if len(params.Stop) > 0 {
		opts = append(opts, llms.WithStopWords(params.Stop))
	}

	resp, err := l.llm.GenerateContent(ctx, content, opts...)
	if err != nil {
		return "", gatewayError(BackendLangChain, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		return "", gatewayError(BackendLangChain, ErrEmptyResponse)
	}
	return resp.Choices[0].Content, nil
}

func chatMessageType(role string) llms.ChatMessageType {
	switch role {
	case datatypes.RoleSystem:
		return llms.ChatMessageTypeSystem
	case datatypes.RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
