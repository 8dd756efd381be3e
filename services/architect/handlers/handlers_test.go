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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/AleutianAI/ComponentArchitect/pkg/extensions"
	"github.com/AleutianAI/ComponentArchitect/services/architect/agent"
	"github.com/AleutianAI/ComponentArchitect/services/architect/datatypes"
	"github.com/AleutianAI/ComponentArchitect/services/architect/design"
	"github.com/AleutianAI/ComponentArchitect/services/architect/generator"
	"github.com/AleutianAI/ComponentArchitect/services/architect/observability"
	"github.com/AleutianAI/ComponentArchitect/services/architect/session"
	"github.com/AleutianAI/ComponentArchitect/services/architect/storage"
	"github.com/AleutianAI/ComponentArchitect/services/architect/validate"
	"github.com/AleutianAI/ComponentArchitect/services/llm"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const cleanReply = `{"component_name":"LoginFormComponent",
"typescript_code":"@Component({ selector: 'app-login-form', standalone: true })\nexport class LoginFormComponent {}",
"html_template":"<form (ngSubmit)=\"go()\"><button class=\"bg-[#6366f1]\">Sign in</button></form>",
"scss_styles":":host { display: block; }"}`

type testServer struct {
	router   *gin.Engine
	mock     *llm.MockClient
	sessions *session.Store
	metrics  *observability.Metrics
}

func newTestServer(t *testing.T, runner Runner) *testServer {
	t.Helper()
	return newTestServerWithExtensions(t, runner, extensions.DefaultOptions())
}

func newTestServerWithExtensions(t *testing.T, runner Runner, ext extensions.ServiceOptions) *testServer {
	t.Helper()
	mock := llm.NewMockClient().SetDefaultResponse(cleanReply)
	if runner == nil {
		p, err := agent.NewPipeline(
			generator.New(mock, nil),
			validate.NewValidator(nil, nil, nil),
			storage.NewFileSink(t.TempDir()),
		)
		require.NoError(t, err)
		runner = p
	}

	ts := &testServer{
		router:   gin.New(),
		mock:     mock,
		sessions: session.NewStore(),
		metrics:  observability.NewMetrics(prometheus.NewRegistry()),
	}
	ts.router.GET("/health", HealthCheck)
	ts.router.POST("/api/generate", HandleGenerate(runner, ts.sessions, ts.metrics, ext))
	ts.router.GET("/api/generate/ws", HandleGenerateWebSocket(runner, ts.sessions, ts.metrics, ext))
	ts.router.GET("/api/preview/:session_id", HandlePreview(ts.sessions, design.NewStaticSource(nil), ts.metrics))
	ts.router.GET("/api/session/:session_id", HandleGetSession(ts.sessions, ts.metrics))
	ts.router.POST("/api/reset", HandleReset(ts.sessions, ts.metrics, ext.AuditLogger))
	ts.router.GET("/api/new-session", HandleNewSession(ts.sessions, ts.metrics))
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// =============================================================================
// HealthCheck Tests
// =============================================================================

func TestHealthCheck_ReturnsOK(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, "GET", "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, w)["status"])
}

// =============================================================================
// Generate Tests
// =============================================================================

func TestGenerate_NewSession(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, "POST", "/api/generate", datatypes.GenerateRequest{Prompt: "build a login form"})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[datatypes.GenerateResponse](t, w)
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, "LoginFormComponent", resp.ComponentName)
	assert.True(t, resp.ValidationPassed)
	assert.Empty(t, resp.ValidationErrors)
	assert.Equal(t, 1, resp.RetryCount)
	assert.Equal(t, "Built 'LoginFormComponent' for 'build a login form' — validation passed.", resp.Summary)
	assert.Len(t, resp.ChatLog, 2)
	assert.Contains(t, w.Body.String(), `"validation_errors":[]`)
	assert.Equal(t, 1.0, testutil.ToFloat64(ts.metrics.RequestsTotal.WithLabelValues(observability.EndpointGenerate, "2xx")))
}

func TestGenerate_FollowUpUsesSessionHistory(t *testing.T) {
	// Arrange
	ts := newTestServer(t, nil)
	first := decode[datatypes.GenerateResponse](t, ts.do(t, "POST", "/api/generate",
		datatypes.GenerateRequest{Prompt: "build a login form"}))

	// Act
	w := ts.do(t, "POST", "/api/generate",
		datatypes.GenerateRequest{SessionID: first.SessionID, Prompt: "make the button larger"})

	// Assert
	require.Equal(t, http.StatusOK, w.Code)
	second := decode[datatypes.GenerateResponse](t, w)
	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Len(t, second.ChatLog, 4)

	msgs := ts.mock.LastMessages()
	require.Len(t, msgs, 5)
	assert.Equal(t, "build a login form", msgs[1].Content)
	assert.Equal(t, "Generated component 'LoginFormComponent' successfully.", msgs[2].Content)
	assert.True(t, strings.HasPrefix(msgs[3].Content, "Previously generated component 'LoginFormComponent':"))
	assert.Equal(t, "Generate an Angular component for: make the button larger", msgs[4].Content)
}

func TestGenerate_InvalidBodies(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := []struct {
		name string
		body any
	}{
		{"malformed json", "{not json"},
		{"missing prompt", map[string]string{}},
		{"blank prompt", datatypes.GenerateRequest{Prompt: "   "}},
		{"bad session id", datatypes.GenerateRequest{SessionID: "abc", Prompt: "x"}},
		{"oversized prompt", datatypes.GenerateRequest{Prompt: strings.Repeat("a", datatypes.MaxPromptBytes+1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, "POST", "/api/generate", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.NotEmpty(t, decode[datatypes.ErrorResponse](t, w).Error)
		})
	}
	assert.Zero(t, ts.mock.CallCount())
}

type errRunner struct{ err error }

func (r errRunner) Run(context.Context, *datatypes.Request, ...agent.RunOption) (*agent.Result, error) {
	return nil, r.err
}

func TestGenerate_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"gateway", &llm.GatewayError{Backend: "groq", Err: errors.New("down")}, http.StatusBadGateway},
		{"rate limited", fmt.Errorf("generate component: %w", &llm.GatewayError{Backend: "ratelimit", Err: errors.New("would exceed context deadline")}), http.StatusBadGateway},
		{"canceled", fmt.Errorf("%w: %w", agent.ErrCanceled, context.Canceled), http.StatusGatewayTimeout},
		{"persist", fmt.Errorf("%w: disk full", agent.ErrPersistFailed), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, errRunner{err: tt.err})
			w := ts.do(t, "POST", "/api/generate", datatypes.GenerateRequest{Prompt: "x"})
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

type blockingRunner struct {
	started chan struct{}
	release chan struct{}
}

func (r *blockingRunner) Run(ctx context.Context, req *datatypes.Request, _ ...agent.RunOption) (*agent.Result, error) {
	close(r.started)
	<-r.release
	req.Final = &datatypes.Artifact{Name: "XComponent", Passed: true, Attempt: 1, Errors: []string{}}
	req.Status = datatypes.StatusDone
	return &agent.Result{Request: req}, nil
}

func TestGenerate_BusySessionConflict(t *testing.T) {
	runner := &blockingRunner{started: make(chan struct{}), release: make(chan struct{})}
	ts := newTestServer(t, runner)
	sess := ts.sessions.Create()

	done := make(chan int)
	go func() {
		w := ts.do(t, "POST", "/api/generate", datatypes.GenerateRequest{SessionID: sess.ID, Prompt: "first"})
		done <- w.Code
	}()
	<-runner.started

	w := ts.do(t, "POST", "/api/generate", datatypes.GenerateRequest{SessionID: sess.ID, Prompt: "second"})
	assert.Equal(t, http.StatusConflict, w.Code)

	close(runner.release)
	assert.Equal(t, http.StatusOK, <-done)
}

// =============================================================================
// Session Endpoint Tests
// =============================================================================

func TestSessionEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)

	created := decode[map[string]string](t, ts.do(t, "GET", "/api/new-session", nil))
	id := created["session_id"]
	require.NotEmpty(t, id)

	w := ts.do(t, "GET", "/api/session/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	info := decode[datatypes.SessionResponse](t, w)
	assert.Equal(t, id, info.SessionID)
	assert.NotNil(t, info.ChatLog)
	assert.Contains(t, w.Body.String(), `"chat_log":[]`)

	assert.Equal(t, http.StatusNotFound, ts.do(t, "GET", "/api/session/unknown", nil).Code)
}

func TestReset(t *testing.T) {
	ts := newTestServer(t, nil)
	old := ts.sessions.Create()

	w := ts.do(t, "POST", "/api/reset", datatypes.ResetRequest{SessionID: old.ID})

	require.Equal(t, http.StatusOK, w.Code)
	fresh := decode[map[string]string](t, w)["session_id"]
	assert.NotEqual(t, old.ID, fresh)
	_, ok := ts.sessions.Get(old.ID)
	assert.False(t, ok)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, "POST", "/api/reset", datatypes.ResetRequest{SessionID: "x"}).Code)
}

// =============================================================================
// Preview Tests
// =============================================================================

func TestPreview(t *testing.T) {
	ts := newTestServer(t, nil)
	resp := decode[datatypes.GenerateResponse](t, ts.do(t, "POST", "/api/generate",
		datatypes.GenerateRequest{Prompt: "build a login form"}))

	w := ts.do(t, "GET", "/api/preview/"+resp.SessionID, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "LoginFormComponent")
	assert.Contains(t, w.Body.String(), "<form><button")
}

func TestPreview_NotFound(t *testing.T) {
	ts := newTestServer(t, nil)
	empty := ts.sessions.Create()

	assert.Equal(t, http.StatusNotFound, ts.do(t, "GET", "/api/preview/"+empty.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, "GET", "/api/preview/unknown", nil).Code)
}

// =============================================================================
// WebSocket Tests
// =============================================================================

func TestGenerateWebSocket_StreamsEventsThenResult(t *testing.T) {
	// Arrange
	ts := newTestServer(t, nil)
	srv := httptest.NewServer(ts.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/generate/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	// Act
	require.NoError(t, ws.WriteJSON(datatypes.GenerateRequest{Prompt: "build a login form"}))

	// Assert
	var types []string
	var result WSResult
	for {
		_, data, err := ws.ReadMessage()
		require.NoError(t, err)
		var frame struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(data, &frame))
		types = append(types, frame.Type)
		if frame.Type == FrameResult {
			require.NoError(t, json.Unmarshal(data, &result))
			break
		}
		require.NotEqual(t, FrameError, frame.Type, string(data))
	}

	assert.Equal(t, string(agent.EventRunStarted), types[0])
	assert.Contains(t, types, string(agent.EventTransition))
	assert.Equal(t, string(agent.EventRunCompleted), types[len(types)-2])
	assert.Equal(t, "LoginFormComponent", result.ComponentName)
	assert.True(t, result.ValidationPassed)
}

func TestGenerateWebSocket_InvalidFrameKeepsConnection(t *testing.T) {
	ts := newTestServer(t, nil)
	srv := httptest.NewServer(ts.router)
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/generate/ws", nil)
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, ws.WriteJSON(datatypes.GenerateRequest{Prompt: ""}))
	var frame WSError
	require.NoError(t, ws.ReadJSON(&frame))
	assert.Equal(t, FrameError, frame.Type)
	assert.Equal(t, http.StatusBadRequest, frame.Status)

	require.NoError(t, ws.WriteJSON(datatypes.GenerateRequest{Prompt: "card"}))
	var next map[string]any
	require.NoError(t, ws.ReadJSON(&next))
	assert.Equal(t, string(agent.EventRunStarted), next["type"])
}

// =============================================================================
// Extension Tests
// =============================================================================

type recordingAuditor struct {
	mu     sync.Mutex
	events []extensions.AuditEvent
}

func (a *recordingAuditor) Log(_ context.Context, e extensions.AuditEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
	return nil
}

func (a *recordingAuditor) Events() []extensions.AuditEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]extensions.AuditEvent(nil), a.events...)
}

type blockAll struct{}

func (blockAll) FilterInput(_ context.Context, prompt string) (*extensions.FilterResult, error) {
	return &extensions.FilterResult{Original: prompt, WasBlocked: true, BlockReason: "prompt contains a secret (TEST)"}, nil
}

type redactAll struct{}

func (redactAll) FilterInput(_ context.Context, prompt string) (*extensions.FilterResult, error) {
	return &extensions.FilterResult{Original: prompt, Filtered: "[REDACTED]", WasModified: true}, nil
}

func TestGenerate_AuditsSuccess(t *testing.T) {
	// Arrange
	auditor := &recordingAuditor{}
	ts := newTestServerWithExtensions(t, nil, extensions.DefaultOptions().WithAudit(auditor))

	// Act
	w := ts.do(t, "POST", "/api/generate", datatypes.GenerateRequest{Prompt: "build a login form"})

	// Assert
	require.Equal(t, http.StatusOK, w.Code)
	events := auditor.Events()
	require.Len(t, events, 1)
	assert.Equal(t, extensions.EventComponentGenerated, events[0].EventType)
	assert.Equal(t, extensions.OutcomeSuccess, events[0].Outcome)
	assert.Equal(t, "LoginFormComponent", events[0].ResourceID)
	assert.Equal(t, decode[datatypes.GenerateResponse](t, w).SessionID, events[0].SessionID)
}

func TestGenerate_BlockedPromptNeverReachesSession(t *testing.T) {
	// Arrange
	auditor := &recordingAuditor{}
	ts := newTestServerWithExtensions(t, nil, extensions.ServiceOptions{AuditLogger: auditor, PromptFilter: blockAll{}})
	sess := ts.sessions.Create()

	// Act
	w := ts.do(t, "POST", "/api/generate", datatypes.GenerateRequest{SessionID: sess.ID, Prompt: "key AKIA..."})

	// Assert
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[datatypes.ErrorResponse](t, w).Error, "prompt contains a secret")
	assert.Zero(t, ts.mock.CallCount())
	assert.Empty(t, sess.ChatLog())
	require.Len(t, auditor.Events(), 1)
	assert.Equal(t, extensions.EventPromptBlocked, auditor.Events()[0].EventType)
}

func TestGenerate_RedactedPromptIsStored(t *testing.T) {
	ts := newTestServerWithExtensions(t, nil, extensions.ServiceOptions{PromptFilter: redactAll{}})

	w := ts.do(t, "POST", "/api/generate", datatypes.GenerateRequest{Prompt: "a card for jdoe@example.com"})

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[datatypes.GenerateResponse](t, w)
	assert.Equal(t, "[REDACTED]", resp.ChatLog[0].Content)
	assert.NotContains(t, w.Body.String(), "jdoe@example.com")
}

func TestReset_Audited(t *testing.T) {
	auditor := &recordingAuditor{}
	ts := newTestServerWithExtensions(t, nil, extensions.DefaultOptions().WithAudit(auditor))

	w := ts.do(t, "POST", "/api/reset", datatypes.ResetRequest{})

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, auditor.Events(), 1)
	assert.Equal(t, extensions.EventSessionReset, auditor.Events()[0].EventType)
}

func TestAuthMiddleware(t *testing.T) {
	auditor := &recordingAuditor{}
	router := gin.New()
	router.Use(AuthMiddleware(extensions.NewTokenAuthProvider("s3cret"), auditor))
	router.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, userID(c))
	})

	tests := []struct {
		name     string
		header   string
		query    string
		wantCode int
	}{
		{name: "bearer header", header: "Bearer s3cret", wantCode: http.StatusOK},
		{name: "query token", query: "?token=s3cret", wantCode: http.StatusOK},
		{name: "wrong token", header: "Bearer nope", wantCode: http.StatusUnauthorized},
		{name: "non-bearer scheme", header: "Basic s3cret", wantCode: http.StatusUnauthorized},
		{name: "missing", wantCode: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/whoami"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantCode == http.StatusOK {
				assert.Equal(t, "api-token", w.Body.String())
			}
		})
	}
	assert.Len(t, auditor.Events(), 3)
	for _, e := range auditor.Events() {
		assert.Equal(t, extensions.EventAuthFailed, e.EventType)
	}
}
