// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package generator turns a prompt into a candidate three-file artifact with
// one gateway call.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/ComponentArchitect/services/architect/datatypes"
	"github.com/AleutianAI/ComponentArchitect/services/architect/design"
	"github.com/AleutianAI/ComponentArchitect/services/llm"
)

// Input is everything one generation call depends on.
type Input struct {
	// Prompt is the user's description of the component.
	Prompt string

	// History holds prior turns, inserted between the system and user messages.
	History []datatypes.Message

	// PriorErrors are the previous attempt's validation errors, if any.
	PriorErrors []string

	// Attempt is carried onto the new artifact unchanged.
	Attempt int
}

// Generator produces artifacts from an LLM.
//
// Thread Safety: Generator is safe for concurrent use if its client is.
type Generator struct {
	client  llm.LLMClient
	palette design.Source
	params  llm.GenerationParams
	logger  *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithParams sets the sampling parameters for every call.
func WithParams(params llm.GenerationParams) Option {
	return func(g *Generator) {
		g.params = params
	}
}

// WithLogger sets the logger. Nil keeps slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// New creates a Generator. A nil palette source means the embedded default.
func New(client llm.LLMClient, palette design.Source, opts ...Option) *Generator {
	if palette == nil {
		palette = design.NewStaticSource(nil)
	}
	g := &Generator{
		client:  client,
		palette: palette,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("node", "generator")
	return g
}

// Generate calls the gateway once and returns a fresh artifact.
//
// Description:
//
//	An unparseable reply is not an error: the returned artifact has empty
//	payloads, a name derived from the prompt, and GenerationError set so the
//	validation pass reports it and the next attempt is told to fix it.
//
// Outputs:
//
//	*datatypes.Artifact - Never nil when error is nil. Attempt equals in.Attempt.
//	error - Palette load failures and gateway failures. Gateway failures
//	        satisfy errors.Is(err, llm.ErrGatewayUnavailable).
func (g *Generator) Generate(ctx context.Context, in Input) (*datatypes.Artifact, error) {
	palette, err := g.palette.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load palette: %w", err)
	}

	g.logger.Info("Calling LLM", "attempt", in.Attempt+1, "prior_errors", len(in.PriorErrors))
	messages := BuildMessages(palette, in)

	raw, err := g.client.Chat(ctx, messages, g.params)
	if err != nil {
		g.logger.Error("Gateway call failed", "error", err)
		return nil, fmt.Errorf("generate component: %w", err)
	}

	payload, err := ParseArtifact(raw)
	if err != nil {
		var pe *ParseError
		cause := err
		if errors.As(err, &pe) {
			cause = pe.Err
		}
		g.logger.Warn("LLM output was not valid JSON or missing keys", "error", cause, "raw_length", len(raw))
		return &datatypes.Artifact{
			Name:            FallbackName(in.Prompt),
			Attempt:         in.Attempt,
			GenerationError: JSONErrorMessage(cause),
		}, nil
	}

	name := payload.Name
	if name == "" {
		name = FallbackName(in.Prompt)
	}
	return &datatypes.Artifact{
		Name:     name,
		Behavior: payload.Behavior,
		Markup:   payload.Markup,
		Style:    payload.Style,
		Attempt:  in.Attempt,
	}, nil
}
