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
	"time"

	"github.com/AleutianAI/ComponentArchitect/services/architect/datatypes"
	"golang.org/x/time/rate"
)

// RateLimitedClient throttles calls to the wrapped client.
//
// Waiting for a token honors ctx. A canceled wait returns ctx's error; a wait
// the limiter refuses (the next token lands after ctx's deadline) is a
// *GatewayError. In both cases the wrapped client is not called.
type RateLimitedClient struct {
	next    LLMClient
	limiter *rate.Limiter
}

// NewRateLimitedClient allows perMinute calls per minute with a burst of one.
func NewRateLimitedClient(next LLMClient, perMinute int) *RateLimitedClient {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &RateLimitedClient{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
}

// Generate implements LLMClient.
func (r *RateLimitedClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	if err := r.wait(ctx); err != nil {
		return "", err
	}
	return r.next.Generate(ctx, prompt, params)
}

// Chat implements LLMClient.
func (r *RateLimitedClient) Chat(ctx context.Context, messages []datatypes.Message, params GenerationParams) (string, error) {
	if err := r.wait(ctx); err != nil {
		return "", err
	}
	return r.next.Chat(ctx, messages, params)
}

func (r *RateLimitedClient) wait(ctx context.Context) error {
	err := r.limiter.Wait(ctx)
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return gatewayError("ratelimit", err)
}

var (
	_ LLMClient = (*RateLimitedClient)(nil)
	_ LLMClient = (*OpenAIClient)(nil)
	_ LLMClient = (*AnthropicClient)(nil)
	_ LLMClient = (*OllamaClient)(nil)
	_ LLMClient = (*GeminiClient)(nil)
	_ LLMClient = (*LangChainClient)(nil)
	_ LLMClient = (*MockClient)(nil)
)
