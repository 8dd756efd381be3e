// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/AleutianAI/ComponentArchitect/pkg/extensions"
	"github.com/AleutianAI/ComponentArchitect/services/architect/datatypes"
	"github.com/gin-gonic/gin"
)

// authInfoKey is the gin context key holding the *extensions.AuthInfo.
const authInfoKey = "auth_info"

// AuthMiddleware validates the bearer token of every request.
//
// Description:
//
//	The token comes from the Authorization header, or from the token query
//	parameter because browsers cannot set headers on websocket upgrades.
//	Rejected requests get 401 and an auth.failed audit event.
func AuthMiddleware(provider extensions.AuthProvider, audit extensions.AuditLogger) gin.HandlerFunc {
	if provider == nil {
		provider = &extensions.NopAuthProvider{}
	}
	if audit == nil {
		audit = &extensions.NopAuditLogger{}
	}
	return func(c *gin.Context) {
		info, err := provider.Validate(c.Request.Context(), bearerToken(c.Request))
		if err != nil {
			slog.Warn("Rejected request", "path", c.FullPath(), "error", err)
			logAudit(c, audit, extensions.AuditEvent{
				EventType: extensions.EventAuthFailed,
				Outcome:   extensions.OutcomeFailure,
				Metadata:  map[string]any{"path": c.Request.URL.Path, "client_ip": c.ClientIP()},
			})
			c.AbortWithStatusJSON(http.StatusUnauthorized, datatypes.ErrorResponse{Error: "unauthorized"})
			return
		}
		c.Set(authInfoKey, info)
		c.Next()
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// userID returns the authenticated user, or "" when the route has no auth.
func userID(c *gin.Context) string {
	if v, ok := c.Get(authInfoKey); ok {
		if info, ok := v.(*extensions.AuthInfo); ok {
			return info.UserID
		}
	}
	return ""
}

// logAudit records event with the request's user. Audit failures are
// logged and never fail the request.
func logAudit(c *gin.Context, audit extensions.AuditLogger, event extensions.AuditEvent) {
	if event.UserID == "" {
		event.UserID = userID(c)
	}
	if err := audit.Log(c.Request.Context(), event); err != nil {
		slog.Warn("Failed to write audit event", "event_type", event.EventType, "error", err)
	}
}

// auditTurn records the outcome of one generation turn.
func auditTurn(c *gin.Context, audit extensions.AuditLogger, sessionID string, resp *datatypes.GenerateResponse, err error) {
	event := extensions.AuditEvent{SessionID: sessionID}
	switch {
	case errors.Is(err, extensions.ErrPromptBlocked):
		event.EventType = extensions.EventPromptBlocked
		event.Outcome = extensions.OutcomeBlocked
		event.Metadata = map[string]any{"reason": err.Error()}
	case err != nil:
		event.EventType = extensions.EventGenerationFailed
		event.Outcome = extensions.OutcomeFailure
		event.Metadata = map[string]any{"error": err.Error()}
	default:
		event.EventType = extensions.EventComponentGenerated
		event.Outcome = extensions.OutcomeSuccess
		event.ResourceID = resp.ComponentName
		event.Metadata = map[string]any{
			"validation_passed": resp.ValidationPassed,
			"retry_count":       resp.RetryCount,
		}
	}
	logAudit(c, audit, event)
}
