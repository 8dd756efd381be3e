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
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxPromptBytes bounds the prompt accepted by the HTTP API.
const MaxPromptBytes = 8 * 1024

// apiValidate is shared by every request type in this file.
var apiValidate *validator.Validate

func init() {
	apiValidate = validator.New()
	_ = apiValidate.RegisterValidation("maxbytes", validateMaxBytes)
	_ = apiValidate.RegisterValidation("notblank", validateNotBlank)
}

// validateMaxBytes checks byte length, not rune count.
func validateMaxBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxPromptBytes
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// ChatEntry is one line of a session's user-visible chat log.
type ChatEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`

	// Summary is only set on assistant entries.
	Summary string `json:"summary,omitempty"`
}

// GenerateRequest is the body of POST /api/generate and the websocket request frame.
//
// SessionID is optional; an unknown or empty ID starts a new session.
type GenerateRequest struct {
	SessionID string `json:"session_id,omitempty" validate:"omitempty,uuid"`
	Prompt    string `json:"prompt" validate:"required,notblank,maxbytes"`
}

// Validate checks the request against its validation tags.
func (r *GenerateRequest) Validate() error {
	return apiValidate.Struct(r)
}

// GenerateResponse is returned by POST /api/generate.
type GenerateResponse struct {
	SessionID        string      `json:"session_id"`
	RequestID        string      `json:"request_id"`
	ComponentName    string      `json:"component_name"`
	TypescriptCode   string      `json:"typescript_code"`
	HTMLTemplate     string      `json:"html_template"`
	SCSSStyles       string      `json:"scss_styles"`
	Summary          string      `json:"summary"`
	ValidationPassed bool        `json:"validation_passed"`
	ValidationErrors []string    `json:"validation_errors"`
	RetryCount       int         `json:"retry_count"`
	RetryExhausted   bool        `json:"retry_exhausted"`
	Files            []string    `json:"files,omitempty"`
	ChatLog          []ChatEntry `json:"chat_log"`
}

// ResetRequest is the body of POST /api/reset.
type ResetRequest struct {
	SessionID string `json:"session_id" validate:"omitempty,uuid"`
}

// Validate checks the request against its validation tags.
func (r *ResetRequest) Validate() error {
	return apiValidate.Struct(r)
}

// SessionResponse is returned by the session endpoints.
type SessionResponse struct {
	SessionID string      `json:"session_id"`
	ChatLog   []ChatEntry `json:"chat_log"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
}
