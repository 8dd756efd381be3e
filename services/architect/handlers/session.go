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
	"log/slog"
	"net/http"

	"github.com/AleutianAI/ComponentArchitect/pkg/extensions"
	"github.com/AleutianAI/ComponentArchitect/services/architect/datatypes"
	"github.com/AleutianAI/ComponentArchitect/services/architect/design"
	"github.com/AleutianAI/ComponentArchitect/services/architect/observability"
	"github.com/AleutianAI/ComponentArchitect/services/architect/preview"
	"github.com/AleutianAI/ComponentArchitect/services/architect/session"
	"github.com/gin-gonic/gin"
)

// HealthCheck handles GET /health.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleGetSession handles GET /api/session/:session_id.
func HandleGetSession(sessions *session.Store, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := sessions.Get(c.Param("session_id"))
		if !ok {
			respondError(c, metrics, observability.EndpointSession, http.StatusNotFound, "Session not found.")
			return
		}
		record(metrics, observability.EndpointSession, http.StatusOK)
		c.JSON(http.StatusOK, datatypes.SessionResponse{SessionID: sess.ID, ChatLog: sess.ChatLog()})
	}
}

// HandleReset handles POST /api/reset. It drops the session, if any, and
// returns a fresh session ID.
func HandleReset(sessions *session.Store, metrics *observability.Metrics, audit extensions.AuditLogger) gin.HandlerFunc {
	if audit == nil {
		audit = &extensions.NopAuditLogger{}
	}
	return func(c *gin.Context) {
		var body datatypes.ResetRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			respondError(c, metrics, observability.EndpointReset, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		if err := body.Validate(); err != nil {
			respondError(c, metrics, observability.EndpointReset, http.StatusBadRequest, err.Error())
			return
		}
		fresh := sessions.Reset(body.SessionID)
		slog.Info("Session reset", "old_session_id", body.SessionID, "session_id", fresh.ID)
		logAudit(c, audit, extensions.AuditEvent{
			EventType: extensions.EventSessionReset,
			SessionID: fresh.ID,
			Outcome:   extensions.OutcomeSuccess,
			Metadata:  map[string]any{"old_session_id": body.SessionID},
		})
		record(metrics, observability.EndpointReset, http.StatusOK)
		c.JSON(http.StatusOK, gin.H{"session_id": fresh.ID})
	}
}

// HandleNewSession handles GET /api/new-session.
func HandleNewSession(sessions *session.Store, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Create()
		record(metrics, observability.EndpointNewSession, http.StatusOK)
		c.JSON(http.StatusOK, gin.H{"session_id": sess.ID})
	}
}

// HandlePreview handles GET /api/preview/:session_id and returns the
// preview page of the session's last component.
func HandlePreview(sessions *session.Store, palette design.Source, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := sessions.Get(c.Param("session_id"))
		var last *datatypes.Artifact
		if ok {
			last = sess.LastArtifact()
		}
		if last == nil {
			respondError(c, metrics, observability.EndpointPreview, http.StatusNotFound, "No component in this session yet.")
			return
		}

		p, err := palette.Load(c.Request.Context())
		if err != nil {
			slog.Error("failed to load design palette for preview", "error", err)
			respondError(c, metrics, observability.EndpointPreview, http.StatusInternalServerError, "failed to load design palette")
			return
		}

		record(metrics, observability.EndpointPreview, http.StatusOK)
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(preview.BuildHTML(last.Name, last.Markup, last.Style, p)))
	}
}
