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
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/AleutianAI/ComponentArchitect/services/architect/datatypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var conversation = []datatypes.Message{
	{Role: datatypes.RoleSystem, Content: "be terse"},
	{Role: datatypes.RoleUser, Content: "build a card"},
}

// =============================================================================
// Secrets and errors
// =============================================================================

func TestResolveAPIKey_Precedence(t *testing.T) {
	dir := t.TempDir()
	orig := secretsDir
	secretsDir = dir
	t.Cleanup(func() { secretsDir = orig })
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test_key"), []byte(" from-secret \n"), 0600))

	key, err := resolveAPIKey("explicit", "ARCHITECT_TEST_KEY", "test_key")
	require.NoError(t, err)
	assert.Equal(t, "explicit", key)

	t.Setenv("ARCHITECT_TEST_KEY", "from-env")
	key, err = resolveAPIKey("", "ARCHITECT_TEST_KEY", "test_key")
	require.NoError(t, err)
	assert.Equal(t, "from-env", key)

	t.Setenv("ARCHITECT_TEST_KEY", "")
	key, err = resolveAPIKey("", "ARCHITECT_TEST_KEY", "test_key")
	require.NoError(t, err)
	assert.Equal(t, "from-secret", key)

	_, err = resolveAPIKey("", "ARCHITECT_TEST_KEY", "absent")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestGatewayError_MatchesSentinelAndCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := gatewayError("ollama", cause)

	assert.ErrorIs(t, err, ErrGatewayUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "ollama gateway call failed")

	var ge *GatewayError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, "ollama", ge.Backend)
	assert.Same(t, err, gatewayError("other", err), "already wrapped errors pass through")
}

func TestSplitSystem(t *testing.T) {
	system, turns := splitSystem([]datatypes.Message{
		{Role: datatypes.RoleSystem, Content: "a"},
		{Role: datatypes.RoleUser, Content: "u"},
		{Role: datatypes.RoleSystem, Content: "b"},
	})
	assert.Equal(t, "a\n\nb", system)
	assert.Equal(t, []datatypes.Message{{Role: datatypes.RoleUser, Content: "u"}}, turns)
}

// =============================================================================
// Backends against fake servers
// =============================================================================

func TestOpenAIClient_Chat(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"ok\":true}"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	client, err := NewOpenAIClient(Config{APIKey: "sk-test", BaseURL: srv.URL, Model: "m1"})
	require.NoError(t, err)

	out, err := client.Chat(context.Background(), conversation, GenerationParams{Temperature: Float32(0.1)})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)
	assert.Equal(t, "m1", got["model"])
	assert.Len(t, got["messages"], 2)
}

func TestOpenAIClient_ServerErrorIsGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"message":"boom","type":"server_error"}}`)
	}))
	defer srv.Close()

	client, err := NewOpenAIClient(Config{APIKey: "sk-test", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), "hi", GenerationParams{})
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
}

func TestGroqClient_DefaultsToGroqModel(t *testing.T) {
	client, err := NewGroqClient(Config{APIKey: "gsk"})
	require.NoError(t, err)
	assert.Equal(t, defaultGroqModel, client.model)
	assert.Equal(t, BackendGroq, client.backend)
}

func TestAnthropicClient_Chat(t *testing.T) {
	var got anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ak", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicAPIVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"content":[{"type":"text","text":"hello "},{"type":"text","text":"world"}]}`)
	}))
	defer srv.Close()

	client, err := NewAnthropicClient(Config{APIKey: "ak", BaseURL: srv.URL})
	require.NoError(t, err)

	out, err := client.Chat(context.Background(), conversation, GenerationParams{MaxTokens: Int(100)})
	require.NoError(t, err)
	assert.Equal(t, "hello world", out)
	assert.Equal(t, "be terse", got.System)
	assert.Equal(t, 100, got.MaxTokens)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, datatypes.RoleUser, got.Messages[0].Role)
}

func TestAnthropicClient_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client, err := NewAnthropicClient(Config{APIKey: "ak", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), "x", GenerationParams{})
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
	assert.Contains(t, err.Error(), "503")
}

func TestOllamaClient_Chat(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"message":{"role":"assistant","content":"done"},"done":true}`)
	}))
	defer srv.Close()

	client, err := NewOllamaClient(Config{BaseURL: srv.URL + "/", Model: "llama"})
	require.NoError(t, err)

	out, err := client.Chat(context.Background(), conversation, GenerationParams{Temperature: Float32(0.7)})
	require.NoError(t, err)
	assert.Equal(t, "done", out)
	assert.False(t, got.Stream)
	assert.Equal(t, "llama", got.Model)
	assert.InDelta(t, 0.7, got.Options["temperature"], 0.001)
	assert.EqualValues(t, 8192, got.Options["num_predict"])
}

func TestOllamaClient_EmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"message":{"role":"assistant","content":""},"done":true}`)
	}))
	defer srv.Close()

	client, err := NewOllamaClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), "x", GenerationParams{})
	assert.ErrorIs(t, err, ErrEmptyResponse)
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
}

// =============================================================================
// Factory, rate limiting, mock
// =============================================================================

func TestNewClient(t *testing.T) {
	client, err := NewClient(context.Background(), Config{Backend: "MOCK"})
	require.NoError(t, err)
	assert.IsType(t, &MockClient{}, client)

	client, err = NewClient(context.Background(), Config{Backend: "mock", RequestsPerMinute: 60})
	require.NoError(t, err)
	assert.IsType(t, &RateLimitedClient{}, client)

	_, err = NewClient(context.Background(), Config{Backend: "palm"})
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestNewClient_MissingKey(t *testing.T) {
	t.Setenv("ARCHITECT_ABSENT_KEY", "")
	_, err := NewClient(context.Background(), Config{Backend: BackendAnthropic, APIKeyEnv: "ARCHITECT_ABSENT_KEY"})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestRateLimitedClient_CanceledWaitSkipsCall(t *testing.T) {
	mock := NewMockClient()
	limited := NewRateLimitedClient(mock, 1)

	_, err := limited.Generate(context.Background(), "first", GenerationParams{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = limited.Chat(ctx, conversation, GenerationParams{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrGatewayUnavailable)
	assert.Equal(t, 1, mock.CallCount())
}

func TestRateLimitedClient_RefusedWaitIsGatewayError(t *testing.T) {
	mock := NewMockClient()
	limited := NewRateLimitedClient(mock, 1)

	_, err := limited.Chat(context.Background(), conversation, GenerationParams{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = limited.Generate(ctx, "second", GenerationParams{})

	assert.ErrorIs(t, err, ErrGatewayUnavailable)
	var ge *GatewayError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, "ratelimit", ge.Backend)
	assert.Equal(t, 1, mock.CallCount())
}

func TestMockClient_Ordering(t *testing.T) {
	mock := NewMockClient().QueueResponse("one").QueueError(errors.New("down")).SetDefaultResponse("fallback")
	ctx := context.Background()

	out, err := mock.Generate(ctx, "a", GenerationParams{})
	require.NoError(t, err)
	assert.Equal(t, "one", out)

	_, err = mock.Generate(ctx, "b", GenerationParams{})
	assert.ErrorIs(t, err, ErrGatewayUnavailable)

	out, err = mock.Chat(ctx, conversation, GenerationParams{})
	require.NoError(t, err)
	assert.Equal(t, "fallback", out)

	assert.Equal(t, 3, mock.CallCount())
	assert.Equal(t, conversation, mock.LastMessages())

	mock.Reset()
	assert.Zero(t, mock.CallCount())
	assert.Nil(t, mock.LastMessages())
}

func TestMockClient_ResponseFuncAndCancel(t *testing.T) {
	mock := NewMockClient().WithResponseFunc(func(msgs []datatypes.Message) (string, error) {
		return msgs[len(msgs)-1].Content, nil
	})
	out, err := mock.Chat(context.Background(), conversation, GenerationParams{})
	require.NoError(t, err)
	assert.Equal(t, "build a card", out)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = mock.WithDelay(time.Second).Generate(ctx, "x", GenerationParams{})
	assert.ErrorIs(t, err, context.Canceled)
}
