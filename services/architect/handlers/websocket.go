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
	"github.com/AleutianAI/ComponentArchitect/services/architect/agent"
	"github.com/AleutianAI/ComponentArchitect/services/architect/datatypes"
	"github.com/AleutianAI/ComponentArchitect/services/architect/observability"
	"github.com/AleutianAI/ComponentArchitect/services/architect/session"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Frame types sent by the websocket endpoint besides agent events.
const (
	FrameResult = "result"
	FrameError  = "error"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,
}

// WSResult is the last frame of a successful generation.
type WSResult struct {
	Type string `json:"type"`
	datatypes.GenerateResponse
}

// WSError reports a failed frame. The connection stays open.
type WSError struct {
	Type   string `json:"type"`
	Error  string `json:"error"`
	Status int    `json:"status"`
}

func sendJSON(ws *websocket.Conn, v any) error {
	err := ws.WriteJSON(v)
	if err != nil {
		slog.Warn("Failed to write WebSocket JSON", "error", err)
	}
	return err
}

// HandleGenerateWebSocket handles GET /api/generate/ws.
//
// Description:
//
//	Each client frame is a datatypes.GenerateRequest. The server streams
//	every agent.Event of the run, then one WSResult or WSError frame.
//	Frames on one connection are processed in order.
func HandleGenerateWebSocket(runner Runner, sessions *session.Store, metrics *observability.Metrics, ext extensions.ServiceOptions) gin.HandlerFunc {
	ext = ext.WithDefaults()
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("failed to upgrade the websocket", "error", err)
			return
		}
		defer ws.Close()

		if metrics != nil {
			metrics.StreamStarted()
			defer metrics.StreamEnded()
		}
		slog.Info("Websocket client connected")

		for {
			var body datatypes.GenerateRequest
			if err := ws.ReadJSON(&body); err != nil {
				slog.Info("Websocket client disconnected", "error", err.Error())
				return
			}
			if err := body.Validate(); err != nil {
				record(metrics, observability.EndpointGenerateWS, http.StatusBadRequest)
				if sendJSON(ws, WSError{Type: FrameError, Error: err.Error(), Status: http.StatusBadRequest}) != nil {
					return
				}
				continue
			}

			sess := sessions.GetOrCreate(body.SessionID)
			// Events are emitted on this goroutine, so writes never interleave.
			forward := agent.WithRunEventHandler(func(e *agent.Event) {
				_ = sendJSON(ws, e)
			})

			resp, status, err := runTurn(c.Request.Context(), runner, ext.PromptFilter, sess, body.Prompt, forward)
			record(metrics, observability.EndpointGenerateWS, status)
			auditTurn(c, ext.AuditLogger, sess.ID, resp, err)
			if err != nil {
				slog.Error("Generation failed", "session_id", sess.ID, "status", status, "error", err)
				if sendJSON(ws, WSError{Type: FrameError, Error: err.Error(), Status: status}) != nil {
					return
				}
				continue
			}
			if sendJSON(ws, WSResult{Type: FrameResult, GenerateResponse: *resp}) != nil {
				return
			}
		}
	}
}
