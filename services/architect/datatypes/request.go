// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"slices"

	"github.com/google/uuid"
)

// Status is the lifecycle marker of a Request.
type Status string

const (
	// StatusPending means the pipeline has not finalized the request.
	StatusPending Status = "pending"

	// StatusDone means the Finalizer ran and Final is set.
	StatusDone Status = "done"
)

// Request is the state of one pipeline run.
//
// A Request is owned by exactly one run. Follow-up turns build a new Request
// whose History summarizes the previous final artifact.
type Request struct {
	// ID correlates logs, spans and events for this run.
	ID string `json:"id"`

	// Prompt is the natural-language description of the component.
	Prompt string `json:"prompt"`

	// History holds earlier turns, oldest first. It never includes the current prompt.
	History []Message `json:"history,omitempty"`

	// Current is the artifact under validation, replaced on every generation.
	Current *Artifact `json:"current,omitempty"`

	// Final is set exactly once, by the Finalizer.
	Final *Artifact `json:"final,omitempty"`

	// Status is pending until finalization.
	Status Status `json:"status"`
}

// NewRequest creates a pending request with a fresh ID and a copy of history.
func NewRequest(prompt string, history []Message) *Request {
	return &Request{
		ID:      uuid.NewString(),
		Prompt:  prompt,
		History: slices.Clone(history),
		Status:  StatusPending,
	}
}

// IsDone reports whether the Finalizer has run.
func (r *Request) IsDone() bool {
	return r.Status == StatusDone && r.Final != nil
}
