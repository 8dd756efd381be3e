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
	"log/slog"
	"time"
)

// Audit event types.
const (
	EventComponentGenerated = "component.generated"
	EventGenerationFailed   = "component.failed"
	EventPromptBlocked      = "prompt.blocked"
	EventSessionReset       = "session.reset"
	EventAuthFailed         = "auth.failed"
)

// Audit outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeBlocked = "blocked"
)

// AuditEvent is one security-relevant event.
//
// Example:
//
//	event := AuditEvent{
//	    EventType:  EventComponentGenerated,
//	    UserID:     info.UserID,
//	    SessionID:  sess.ID,
//	    ResourceID: "LoginFormComponent",
//	    Outcome:    OutcomeSuccess,
//	}
type AuditEvent struct {
	// EventType is one of the Event* constants.
	EventType string

	// Timestamp defaults to time.Now().UTC() when zero.
	Timestamp time.Time

	// UserID is "anonymous" when unknown.
	UserID string

	SessionID string

	// ResourceID is the component name for generation events.
	ResourceID string

	// Outcome is one of the Outcome* constants.
	Outcome string

	// Metadata holds event-specific details such as "error" or "retries".
	Metadata map[string]any
}

// AuditLogger records audit events.
//
// Log must not block generation for long; implementations that ship events
// remotely should buffer.
type AuditLogger interface {
	Log(ctx context.Context, event AuditEvent) error
}

// NopAuditLogger discards every event.
type NopAuditLogger struct{}

// Log implements AuditLogger.
func (l *NopAuditLogger) Log(_ context.Context, _ AuditEvent) error {
	return nil
}

// SlogAuditLogger writes events to a structured logger under the "audit"
// message.
type SlogAuditLogger struct {
	logger *slog.Logger
}

// NewSlogAuditLogger creates an audit logger over logger. Nil uses
// slog.Default().
func NewSlogAuditLogger(logger *slog.Logger) *SlogAuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAuditLogger{logger: logger}
}

// Log implements AuditLogger.
func (l *SlogAuditLogger) Log(ctx context.Context, event AuditEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.UserID == "" {
		event.UserID = "anonymous"
	}
	attrs := []any{
		"event_type", event.EventType,
		"timestamp", event.Timestamp,
		"user_id", event.UserID,
		"outcome", event.Outcome,
	}
	if event.SessionID != "" {
		attrs = append(attrs, "session_id", event.SessionID)
	}
	if event.ResourceID != "" {
		attrs = append(attrs, "resource_id", event.ResourceID)
	}
	for k, v := range event.Metadata {
		attrs = append(attrs, k, v)
	}
	l.logger.InfoContext(ctx, "audit", attrs...)
	return nil
}
