// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers implements the HTTP and websocket endpoints of the
// component architect service.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/AleutianAI/ComponentArchitect/pkg/extensions"
	"github.com/AleutianAI/ComponentArchitect/services/architect/agent"
	"github.com/AleutianAI/ComponentArchitect/services/architect/datatypes"
	"github.com/AleutianAI/ComponentArchitect/services/architect/observability"
	"github.com/AleutianAI/ComponentArchitect/services/architect/session"
	"github.com/AleutianAI/ComponentArchitect/services/llm"
	"github.com/gin-gonic/gin"
)

// ErrSessionBusy indicates a run is already in progress on the session.
var ErrSessionBusy = errors.New("session already has a generation in progress")

// Runner runs one pipeline request. *agent.Pipeline implements it.
type Runner interface {
	Run(ctx context.Context, req *datatypes.Request, opts ...agent.RunOption) (*agent.Result, error)
}

// runTurn executes one conversation turn on sess.
//
// Description:
//
//	Filters the prompt, acquires the session, builds the request from its
//	history, runs the pipeline, and records the final artifact. The user
//	turn stays in the history even when the run fails. A blocked prompt
//	never reaches the session.
//
// Outputs:
//
//	*datatypes.GenerateResponse - Set on success.
//	int - The HTTP status to report.
//	error - ErrSessionBusy, extensions.ErrPromptBlocked or the pipeline error.
func runTurn(ctx context.Context, runner Runner, filter extensions.PromptFilter, sess *session.Session, prompt string, opts ...agent.RunOption) (*datatypes.GenerateResponse, int, error) {
	prompt, _, err := extensions.ApplyFilter(ctx, filter, prompt)
	if err != nil {
		return nil, statusForError(err), err
	}
	if !sess.TryAcquire() {
		return nil, http.StatusConflict, ErrSessionBusy
	}
	defer sess.Release()

	req := session.BuildRequest(sess, prompt)
	result, err := runner.Run(ctx, req, opts...)
	if err != nil {
		return nil, statusForError(err), err
	}

	final := result.Artifact()
	summary := session.Record(sess, prompt, final)

	errs := final.Errors
	if errs == nil {
		errs = []string{}
	}
	return &datatypes.GenerateResponse{
		SessionID:        sess.ID,
		RequestID:        req.ID,
		ComponentName:    final.Name,
		TypescriptCode:   final.Behavior,
		HTMLTemplate:     final.Markup,
		SCSSStyles:       final.Style,
		Summary:          summary,
		ValidationPassed: final.Passed,
		ValidationErrors: errs,
		RetryCount:       final.Attempt,
		RetryExhausted:   result.RetryExhausted,
		Files:            result.Files,
		ChatLog:          sess.ChatLog(),
	}, http.StatusOK, nil
}

// statusForError maps pipeline errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, ErrSessionBusy):
		return http.StatusConflict
	case errors.Is(err, agent.ErrEmptyPrompt), errors.Is(err, extensions.ErrPromptBlocked):
		return http.StatusBadRequest
	case errors.Is(err, llm.ErrGatewayUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, agent.ErrCanceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// HandleGenerate handles POST /api/generate.
//
// Description:
//
//	Generates, or iterates on, a component within a session. An empty or
//	unknown session_id starts a new session; the response carries its ID.
//
// Responses:
//
//	200 - datatypes.GenerateResponse
//	400 - Invalid body, or the prompt filter blocked the prompt
//	401 - Rejected by the auth middleware
//	409 - The session is busy
//	502 - The model gateway failed before any artifact existed
//	500 - Anything else
func HandleGenerate(runner Runner, sessions *session.Store, metrics *observability.Metrics, ext extensions.ServiceOptions) gin.HandlerFunc {
	ext = ext.WithDefaults()
	return func(c *gin.Context) {
		var body datatypes.GenerateRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			respondError(c, metrics, observability.EndpointGenerate, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		if err := body.Validate(); err != nil {
			respondError(c, metrics, observability.EndpointGenerate, http.StatusBadRequest, err.Error())
			return
		}

		sess := sessions.GetOrCreate(body.SessionID)
		slog.Info("Received generate request", "session_id", sess.ID, "prompt_length", len(body.Prompt))

		resp, status, err := runTurn(c.Request.Context(), runner, ext.PromptFilter, sess, body.Prompt)
		auditTurn(c, ext.AuditLogger, sess.ID, resp, err)
		if err != nil {
			slog.Error("Generation failed", "session_id", sess.ID, "status", status, "error", err)
			respondError(c, metrics, observability.EndpointGenerate, status, err.Error())
			return
		}

		record(metrics, observability.EndpointGenerate, http.StatusOK)
		c.JSON(http.StatusOK, resp)
	}
}

func respondError(c *gin.Context, metrics *observability.Metrics, endpoint string, status int, msg string) {
	record(metrics, endpoint, status)
	c.JSON(status, datatypes.ErrorResponse{Error: msg})
}

func record(metrics *observability.Metrics, endpoint string, status int) {
	if metrics != nil {
		metrics.RecordRequest(endpoint, status)
	}
}
