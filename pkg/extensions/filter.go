// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package extensions

import (
	"context"
	"errors"
	"fmt"
)

// ErrPromptBlocked is returned when a filter rejects a prompt.
var ErrPromptBlocked = errors.New("prompt blocked by policy")

// Detection actions.
const (
	ActionRedacted = "redacted"
	ActionBlocked  = "blocked"
)

// FilterResult is the outcome of filtering one prompt.
type FilterResult struct {
	// Original is the prompt as received.
	Original string

	// Filtered is the prompt to use. Equal to Original unless WasModified.
	Filtered string

	WasModified bool

	// WasBlocked rejects the prompt; Filtered must not be used.
	WasBlocked  bool
	BlockReason string

	Detections []Detection
}

// Detection is one finding of a filter. It never carries the matched text.
type Detection struct {
	// Type is the finding category, e.g. "secret" or "pii".
	Type string

	// PatternID names the rule that matched.
	PatternID string

	// Location is implementation-specific, e.g. "line 3".
	Location string

	// Action is ActionRedacted or ActionBlocked.
	Action string
}

// PromptFilter inspects a user prompt before it is sent to the model
// gateway. Prompts leave the machine for hosted backends, so this is the
// place to strip or reject secrets.
type PromptFilter interface {
	FilterInput(ctx context.Context, prompt string) (*FilterResult, error)
}

// NopPromptFilter passes every prompt through unchanged.
type NopPromptFilter struct{}

// FilterInput implements PromptFilter.
func (f *NopPromptFilter) FilterInput(_ context.Context, prompt string) (*FilterResult, error) {
	return &FilterResult{Original: prompt, Filtered: prompt}, nil
}

// ApplyFilter runs f on prompt and returns the prompt to use. A blocked
// prompt returns an error wrapping ErrPromptBlocked. A nil filter passes
// the prompt through.
func ApplyFilter(ctx context.Context, f PromptFilter, prompt string) (string, *FilterResult, error) {
	if f == nil {
		return prompt, nil, nil
	}
	result, err := f.FilterInput(ctx, prompt)
	if err != nil {
		return "", nil, fmt.Errorf("prompt filter: %w", err)
	}
	if result.WasBlocked {
		return "", result, fmt.Errorf("%w: %s", ErrPromptBlocked, result.BlockReason)
	}
	return result.Filtered, result, nil
}
