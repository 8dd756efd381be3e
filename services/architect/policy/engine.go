// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package policy classifies prompts against regex rules before they are
// sent to a model backend. Engine implements extensions.PromptFilter.
package policy

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/AleutianAI/ComponentArchitect/pkg/extensions"
	"gopkg.in/yaml.v3"
)

// ClassPublic is returned by Classify when nothing matches.
const ClassPublic = "public"

// defaultRules is baked into the binary so the rules travel with it.
//
//go:embed prompt_policy.yaml
var defaultRules []byte

// Engine holds compiled classification rules, highest priority first.
// It is immutable after construction and safe for concurrent use.
type Engine struct {
	classifications []Classification
}

var _ extensions.PromptFilter = (*Engine)(nil)

// New creates an engine from the embedded rules.
func New() (*Engine, error) {
	return NewFromYAML(defaultRules)
}

// NewFromYAML creates an engine from a rules document.
//
// Returns an error if the YAML is malformed, names an unknown action or
// confidence, or contains an invalid regex.
func NewFromYAML(data []byte) (*Engine, error) {
	var file classificationFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal the policy rules: %w", err)
	}
	if err := file.compile(); err != nil {
		return nil, err
	}
	file.sortByPriority()
	return &Engine{classifications: file.Classifications}, nil
}

// Classify returns the name of the highest priority classification that
// matches text, or ClassPublic.
func (e *Engine) Classify(text string) string {
	for _, c := range e.classifications {
		for _, p := range c.Patterns {
			if p.compiled.MatchString(text) {
				return c.Name
			}
		}
	}
	return ClassPublic
}

// Scan checks every line of text against every pattern and reports each
// match, in line order then priority order.
func (e *Engine) Scan(text string) []Finding {
	var findings []Finding
	for i, line := range strings.Split(text, "\n") {
		for _, c := range e.classifications {
			for _, p := range c.Patterns {
				for _, match := range p.compiled.FindAllString(line, -1) {
					findings = append(findings, Finding{
						LineNumber:         i + 1,
						MatchedContent:     strings.TrimSpace(match),
						ClassificationName: c.Name,
						PatternID:          p.ID,
						PatternDescription: p.Description,
						Confidence:         p.Confidence,
						Action:             c.Action,
					})
				}
			}
		}
	}
	return findings
}

// FilterInput implements extensions.PromptFilter.
//
// Any match in a block classification rejects the prompt. Otherwise every
// match in a redact classification is replaced with "[REDACTED:<ID>]".
// Detections never carry the matched text.
func (e *Engine) FilterInput(_ context.Context, prompt string) (*extensions.FilterResult, error) {
	result := &extensions.FilterResult{Original: prompt, Filtered: prompt}
	findings := e.Scan(prompt)

	for _, f := range findings {
		if f.Action != ActionBlock {
			continue
		}
		result.Detections = append(result.Detections, extensions.Detection{
			Type:      f.ClassificationName,
			PatternID: f.PatternID,
			Location:  fmt.Sprintf("line %d", f.LineNumber),
			Action:    extensions.ActionBlocked,
		})
	}
	if len(result.Detections) > 0 {
		first := result.Detections[0]
		result.WasBlocked = true
		result.BlockReason = fmt.Sprintf("prompt contains a %s (%s)", first.Type, first.PatternID)
		return result, nil
	}

	filtered := prompt
	for _, c := range e.classifications {
		if c.Action != ActionRedact {
			continue
		}
		for _, p := range c.Patterns {
			if !p.compiled.MatchString(filtered) {
				continue
			}
			filtered = p.compiled.ReplaceAllString(filtered, "[REDACTED:"+p.ID+"]")
			result.Detections = append(result.Detections, extensions.Detection{
				Type:      c.Name,
				PatternID: p.ID,
				Action:    extensions.ActionRedacted,
			})
		}
	}
	result.Filtered = filtered
	result.WasModified = filtered != prompt
	return result, nil
}
