// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm is the generative gateway: one interface over the chat
// completion backends the architect can talk to.
//
// Every call is a single request/response exchange. Backends never retry on
// their own; retry policy belongs to the pipeline.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/AleutianAI/ComponentArchitect/services/architect/datatypes"
)

// GenerationParams are optional sampling settings. Nil means backend default.
type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopK        *int     `json:"top_k"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// LLMClient defines the standard interface for any LLM backend.
type LLMClient interface {
	// Generate sends a single user prompt.
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)

	// Chat sends an ordered message list and returns the assistant text.
	Chat(ctx context.Context, messages []datatypes.Message, params GenerationParams) (string, error)
}

// ErrGatewayUnavailable matches every failure returned by a backend call.
var ErrGatewayUnavailable = errors.New("generative gateway unavailable")

// ErrEmptyResponse indicates the backend answered without any text.
var ErrEmptyResponse = errors.New("gateway returned no content")

// ErrMissingAPIKey indicates no key was found in config, env or secrets.
var ErrMissingAPIKey = errors.New("api key not configured")

// GatewayError wraps a backend failure.
//
// errors.Is(err, ErrGatewayUnavailable) holds for every GatewayError, and the
// underlying cause stays reachable through errors.Is/As.
type GatewayError struct {
	Backend string
	Err     error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s gateway call failed: %v", e.Backend, e.Err)
}

// Unwrap exposes both the sentinel and the cause.
func (e *GatewayError) Unwrap() []error {
	return []error{ErrGatewayUnavailable, e.Err}
}

func gatewayError(backend string, err error) error {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return err
	}
	return &GatewayError{Backend: backend, Err: err}
}

// Float32 returns a pointer to v, for GenerationParams literals.
func Float32(v float32) *float32 { return &v }

// Int returns a pointer to v, for GenerationParams literals.
func Int(v int) *int { return &v }

// secretsDir is where container secrets are mounted.
var secretsDir = "/run/secrets"

// resolveAPIKey returns the explicit key, else the env var, else the mounted secret.
func resolveAPIKey(explicit, envVar, secretName string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if envVar != "" {
		if v := strings.TrimSpace(os.Getenv(envVar)); v != "" {
			return v, nil
		}
	}
	if secretName != "" {
		if content, err := os.ReadFile(filepath.Join(secretsDir, secretName)); err == nil {
			if key := strings.TrimSpace(string(content)); key != "" {
				slog.Info("Read API key from mounted secret", "secret", secretName)
				return key, nil
			}
		}
	}
	return "", fmt.Errorf("%w: set %s or mount %s/%s", ErrMissingAPIKey, envVar, secretsDir, secretName)
}

// splitSystem separates system messages (joined) from conversation turns.
// Backends with a dedicated system field use it.
func splitSystem(messages []datatypes.Message) (string, []datatypes.Message) {
	var system []string
	turns := make([]datatypes.Message, 0, len(messages))
	for _, m := range messages {
		if strings.EqualFold(m.Role, datatypes.RoleSystem) {
			system = append(system, m.Content)
			continue
		}
		turns = append(turns, m)
	}
	return strings.Join(system, "\n\n"), turns
}
