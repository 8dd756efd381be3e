// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/AleutianAI/ComponentArchitect/pkg/extensions"
	"github.com/AleutianAI/ComponentArchitect/services/architect/agent"
	"github.com/AleutianAI/ComponentArchitect/services/architect/design"
	"github.com/AleutianAI/ComponentArchitect/services/architect/generator"
	"github.com/AleutianAI/ComponentArchitect/services/architect/observability"
	"github.com/AleutianAI/ComponentArchitect/services/architect/session"
	"github.com/AleutianAI/ComponentArchitect/services/architect/storage"
	"github.com/AleutianAI/ComponentArchitect/services/architect/validate"
	"github.com/AleutianAI/ComponentArchitect/services/llm"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testDeps(t *testing.T) (Dependencies, *prometheus.Registry) {
	t.Helper()
	pipeline, err := agent.NewPipeline(
		generator.New(llm.NewMockClient(), nil),
		validate.NewValidator(nil, nil, nil),
		storage.NewFileSink(t.TempDir()),
	)
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	return Dependencies{
		Runner:   pipeline,
		Sessions: session.NewStore(),
		Palette:  design.NewStaticSource(nil),
		Metrics:  observability.NewMetrics(reg),
		Gatherer: reg,
	}, reg
}

func TestSetupRoutes_RegistersAPI(t *testing.T) {
	router := gin.New()
	deps, _ := testDeps(t)

	SetupRoutes(router, deps)

	expected := []struct {
		method string
		path   string
	}{
		{"GET", "/health"},
		{"GET", "/metrics"},
		{"POST", "/api/generate"},
		{"GET", "/api/generate/ws"},
		{"GET", "/api/preview/:session_id"},
		{"GET", "/api/session/:session_id"},
		{"POST", "/api/reset"},
		{"GET", "/api/new-session"},
	}

	routes := router.Routes()
	for _, want := range expected {
		found := false
		for _, r := range routes {
			if r.Method == want.method && r.Path == want.path {
				found = true
				break
			}
		}
		assert.True(t, found, "route %s %s not registered", want.method, want.path)
	}
}

func TestSetupRoutes_MetricsEndpoint(t *testing.T) {
	router := gin.New()
	deps, _ := testDeps(t)
	SetupRoutes(router, deps)
	deps.Metrics.RecordRequest(observability.EndpointGenerate, http.StatusOK)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/metrics", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `architect_api_requests_total{endpoint="generate",status="2xx"} 1`)
}

func TestSetupRoutes_UI(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>architect</h1>"), 0o644))

	router := gin.New()
	deps, _ := testDeps(t)
	deps.UIDir = dir
	SetupRoutes(router, deps)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/ui/", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "architect")
}

func TestSetupRoutes_NoUIByDefault(t *testing.T) {
	router := gin.New()
	deps, _ := testDeps(t)
	SetupRoutes(router, deps)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/ui/", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSetupRoutes_APIRequiresTokenWhenConfigured(t *testing.T) {
	router := gin.New()
	deps, _ := testDeps(t)
	deps.Extensions = extensions.DefaultOptions().WithAuth(extensions.NewTokenAuthProvider("s3cret"))
	SetupRoutes(router, deps)

	do := func(path, token string) int {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusUnauthorized, do("/api/new-session", ""))
	assert.Equal(t, http.StatusOK, do("/api/new-session", "s3cret"))
	assert.Equal(t, http.StatusOK, do("/health", ""))
}
