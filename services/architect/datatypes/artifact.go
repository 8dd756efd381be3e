// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes holds the values threaded through the component pipeline:
// chat messages, the generated Artifact, and the per-run Request.
package datatypes

import "slices"

// Message roles understood by every gateway backend.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Artifact is one candidate component: three payloads plus validation state.
//
// The JSON names match the object the generator is asked to emit, so the
// same struct decodes model output and encodes API responses.
//
// Invariants:
//
//	Passed == (len(Errors) == 0) after every validation pass.
//	Attempt never decreases for a given request and grows by exactly one per pass.
type Artifact struct {
	// Name is the PascalCase component name, e.g. "LoginFormComponent".
	Name string `json:"component_name"`

	// Behavior is the .component.ts content.
	Behavior string `json:"typescript_code"`

	// Markup is the .component.html content.
	Markup string `json:"html_template"`

	// Style is the .component.scss content.
	Style string `json:"scss_styles"`

	// Passed is true when the last validation pass found nothing.
	Passed bool `json:"validation_passed"`

	// Errors are the violations found by the last validation pass, in rule order.
	Errors []string `json:"validation_errors"`

	// Attempt counts completed validation passes.
	Attempt int `json:"retry_count"`

	// GenerationError is set when the generator could not produce usable
	// payloads. Validation seeds the error list with it.
	GenerationError string `json:"generation_error,omitempty"`
}

// Clone returns a deep copy so later passes cannot alias earlier results.
func (a *Artifact) Clone() *Artifact {
	if a == nil {
		return nil
	}
	c := *a
	c.Errors = slices.Clone(a.Errors)
	return &c
}

// HasPayload reports whether the artifact carries any generated code.
func (a *Artifact) HasPayload() bool {
	return a != nil && (a.Behavior != "" || a.Markup != "" || a.Style != "")
}
