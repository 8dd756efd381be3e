// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validate checks generated artifacts against the design palette.
//
// Validation has two layers. The rules are deterministic regex and counting
// checks. The critic is an optional LLM review that runs only when the rules
// found nothing, and whose failures never fail the pass.
package validate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/ComponentArchitect/services/architect/datatypes"
	"github.com/AleutianAI/ComponentArchitect/services/architect/design"
)

// Report describes one validation pass.
type Report struct {
	// RuleViolations are the rule failures, in rule order.
	RuleViolations []Violation

	// Critic is the critic outcome, nil when the critic was not consulted.
	Critic *CriticOutcome
}

// Validator runs validation passes.
//
// Thread Safety: Validator is safe for concurrent use on distinct artifacts.
type Validator struct {
	palette design.Source
	critic  Critic
	logger  *slog.Logger
}

// NewValidator creates a Validator. critic may be nil to disable the second
// layer; a nil palette source means the embedded default.
func NewValidator(palette design.Source, critic Critic, logger *slog.Logger) *Validator {
	if palette == nil {
		palette = design.NewStaticSource(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{palette: palette, critic: critic, logger: logger.With("node", "validator")}
}

// Validate runs one pass over a and updates it in place.
//
// Description:
//
//	The error list starts with the artifact's GenerationError, if any, then
//	the rule violations. When that list is empty and a critic is configured,
//	the critic's violations are appended. Errors and Passed are overwritten
//	and Attempt is incremented by exactly one.
//
// Outputs:
//
//	Report - What each layer found.
//	error - Only when the palette cannot be loaded; a is then left untouched.
func (v *Validator) Validate(ctx context.Context, a *datatypes.Artifact) (Report, error) {
	palette, err := v.palette.Load(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("load palette: %w", err)
	}

	var report Report
	errs := make([]string, 0)
	if a.GenerationError != "" {
		errs = append(errs, a.GenerationError)
	}
	report.RuleViolations = CheckDetailed(a, palette)
	for _, violation := range report.RuleViolations {
		errs = append(errs, violation.Message)
	}

	if len(errs) == 0 && v.critic != nil {
		outcome := v.critic.Review(ctx, a, palette)
		report.Critic = &outcome
		if outcome.Kind == OutcomeViolations {
			errs = append(errs, outcome.Errors...)
		}
	}

	a.Errors = errs
	a.Passed = len(errs) == 0
	a.Attempt++

	if a.Passed {
		v.logger.Info("Validation PASSED", "attempt", a.Attempt)
	} else {
		v.logger.Info("Validation FAILED", "attempt", a.Attempt, "errors", len(errs))
	}
	return report, nil
}
