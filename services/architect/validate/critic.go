// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AleutianAI/ComponentArchitect/services/architect/datatypes"
	"github.com/AleutianAI/ComponentArchitect/services/architect/design"
	"github.com/AleutianAI/ComponentArchitect/services/llm"
)

// OutcomeKind classifies a critic review.
type OutcomeKind int

const (
	// OutcomeClean means the critic found nothing.
	OutcomeClean OutcomeKind = iota

	// OutcomeViolations means the critic reported errors.
	OutcomeViolations

	// OutcomeUnavailable means the critic could not be consulted or its
	// reply could not be read. It counts as no additional violations.
	OutcomeUnavailable
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeClean:
		return "clean"
	case OutcomeViolations:
		return "violations"
	case OutcomeUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// CriticOutcome is the result of one critic review.
type CriticOutcome struct {
	Kind   OutcomeKind
	Errors []string
	Err    error
}

// Critic is a semantic reviewer consulted after the rules pass.
type Critic interface {
	Review(ctx context.Context, a *datatypes.Artifact, p *design.Palette) CriticOutcome
}

// ErrCriticReply means the critic answered with something other than the
// expected JSON object.
var ErrCriticReply = errors.New("unreadable critic reply")

// LLMCritic asks the gateway to review an artifact against the palette.
type LLMCritic struct {
	client llm.LLMClient
	params llm.GenerationParams
	logger *slog.Logger
}

// NewLLMCritic creates a critic. A nil logger means slog.Default().
func NewLLMCritic(client llm.LLMClient, params llm.GenerationParams, logger *slog.Logger) *LLMCritic {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMCritic{client: client, params: params, logger: logger.With("node", "validator", "layer", "critic")}
}

// Review implements Critic. It never fails: problems become OutcomeUnavailable.
func (c *LLMCritic) Review(ctx context.Context, a *datatypes.Artifact, p *design.Palette) CriticOutcome {
	c.logger.Info("Layer 1 passed, running LLM critic")
	raw, err := c.client.Chat(ctx, []datatypes.Message{{Role: datatypes.RoleUser, Content: CriticPrompt(a, p)}}, c.params)
	if err != nil {
		c.logger.Warn("LLM critic call failed (non-fatal)", "error", err)
		return CriticOutcome{Kind: OutcomeUnavailable, Err: err}
	}
	outcome := ParseCriticReply(raw)
	if outcome.Kind == OutcomeUnavailable {
		c.logger.Warn("LLM critic reply unreadable (non-fatal)", "error", outcome.Err)
	}
	return outcome
}

type criticReply struct {
	Passed *bool    `json:"passed"`
	Errors []string `json:"errors"`
}

// ParseCriticReply reads {"passed": bool, "errors": [...]}, tolerating code
// fences and surrounding prose. A missing "passed" counts as true.
func ParseCriticReply(raw string) CriticOutcome {
	text := strings.TrimSpace(raw)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return CriticOutcome{Kind: OutcomeUnavailable, Err: ErrCriticReply}
	}

	var reply criticReply
	if err := json.Unmarshal([]byte(text[start:end+1]), &reply); err != nil {
		return CriticOutcome{Kind: OutcomeUnavailable, Err: fmt.Errorf("%w: %v", ErrCriticReply, err)}
	}
	if reply.Passed == nil || *reply.Passed || len(reply.Errors) == 0 {
		return CriticOutcome{Kind: OutcomeClean}
	}
	return CriticOutcome{Kind: OutcomeViolations, Errors: reply.Errors}
}

// CriticPrompt renders the review request for a.
func CriticPrompt(a *datatypes.Artifact, p *design.Palette) string {
	var b strings.Builder
	b.WriteString("You are a strict Angular code validator. Analyze the component below and return ONLY a JSON object.\n\n")
	b.WriteString("DESIGN SYSTEM TOKENS:\n")
	b.WriteString(p.TokensJSON())
	b.WriteString("\n\n--- COMPONENT TO VALIDATE ---\n\n")
	fmt.Fprintf(&b, "TypeScript:\n%s\n\nHTML:\n%s\n\nSCSS:\n%s\n\n", a.Behavior, a.Markup, a.Style)
	b.WriteString("-----------------------------\n\n")
	b.WriteString(`Validation rules to check:
1. No hardcoded colors exist that are NOT in the design tokens list
   (check both HTML inline styles and SCSS rules).
2. TypeScript has a valid @Component decorator with selector and standalone: true.
3. HTML has no unclosed tags.
4. SCSS has no obvious syntax errors (unclosed braces).
5. Component uses Tailwind classes for layout (flex, grid, p-*, m-*, etc.).
6. Primary action buttons use bg-[#6366f1] or the equivalent token color.
7. Background uses #0f172a or #1e293b (surface) where applicable.

Return ONLY a JSON object with this exact structure, no explanation, no markdown:
{
  "passed": true,
  "errors": []
}

If any rule is violated set "passed" to false and list each violation in "errors".
`)
	return b.String()
}

var _ Critic = (*LLMCritic)(nil)
