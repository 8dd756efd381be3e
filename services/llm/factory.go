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
	"errors"
	"fmt"
	"strings"
	"time"
)

// Backend names accepted by NewClient.
const (
	BackendOpenAI    = "openai"
	BackendGroq      = "groq"
	BackendAnthropic = "anthropic"
	BackendOllama    = "ollama"
	BackendGemini    = "gemini"
	BackendLangChain = "langchain"
	BackendMock      = "mock"
)

// DefaultTimeout bounds a single gateway call.
const DefaultTimeout = 2 * time.Minute

// ErrUnknownBackend is returned for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown llm backend")

// Config selects and configures a backend.
type Config struct {
	// Backend is one of the Backend* constants. Default: groq.
	Backend string `yaml:"backend" json:"backend"`

	// Model overrides the backend's default model.
	Model string `yaml:"model" json:"model"`

	// BaseURL overrides the backend's endpoint.
	BaseURL string `yaml:"base_url" json:"base_url"`

	// APIKey is an explicit key. Prefer APIKeyEnv or mounted secrets.
	APIKey string `yaml:"-" json:"-"`

	// APIKeyEnv overrides the environment variable the key is read from.
	APIKeyEnv string `yaml:"api_key_env" json:"api_key_env"`

	// Timeout bounds each call. Default: DefaultTimeout.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// RequestsPerMinute throttles calls when positive.
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

// NewClient builds the configured backend, wrapped in a rate limiter when
// RequestsPerMinute is set.
func NewClient(ctx context.Context, cfg Config) (LLMClient, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend == "" {
		backend = BackendGroq
	}

	var (
		client LLMClient
		err    error
	)
	switch backend {
	case BackendOpenAI:
		client, err = NewOpenAIClient(cfg)
	case BackendGroq:
		client, err = NewGroqClient(cfg)
	case BackendAnthropic:
		client, err = NewAnthropicClient(cfg)
	case BackendOllama:
		client, err = NewOllamaClient(cfg)
	case BackendGemini:
		client, err = NewGeminiClient(ctx, cfg)
	case BackendLangChain:
		client, err = NewLangChainClient(cfg)
	case BackendMock:
		client = NewMockClient()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s backend: %w", backend, err)
	}

	if cfg.RequestsPerMinute > 0 {
		client = NewRateLimitedClient(client, cfg.RequestsPerMinute)
	}
	return client, nil
}
