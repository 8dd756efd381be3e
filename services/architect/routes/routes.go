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

	"github.com/AleutianAI/ComponentArchitect/pkg/extensions"
	"github.com/AleutianAI/ComponentArchitect/services/architect/design"
	"github.com/AleutianAI/ComponentArchitect/services/architect/handlers"
	"github.com/AleutianAI/ComponentArchitect/services/architect/observability"
	"github.com/AleutianAI/ComponentArchitect/services/architect/session"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies are the collaborators the handlers need.
type Dependencies struct {
	Runner   handlers.Runner
	Sessions *session.Store
	Palette  design.Source

	// Metrics may be nil. Gatherer backs /metrics; nil uses the default registry.
	Metrics  *observability.Metrics
	Gatherer prometheus.Gatherer

	// UIDir, when set, is served under /ui.
	UIDir string

	// Extensions guard the /api group. Nil fields use no-op defaults.
	Extensions extensions.ServiceOptions
}

// SetupRoutes registers every endpoint on router.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	ext := deps.Extensions.WithDefaults()
	router.GET("/health", handlers.HealthCheck)

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	if deps.UIDir != "" {
		router.StaticFS("/ui", http.Dir(deps.UIDir))
		router.GET("/", func(c *gin.Context) {
			c.Redirect(http.StatusMovedPermanently, "/ui/")
		})
	}

	api := router.Group("/api")
	api.Use(handlers.AuthMiddleware(ext.AuthProvider, ext.AuditLogger))
	{
		api.POST("/generate", handlers.HandleGenerate(deps.Runner, deps.Sessions, deps.Metrics, ext))
		api.GET("/generate/ws", handlers.HandleGenerateWebSocket(deps.Runner, deps.Sessions, deps.Metrics, ext))
		api.GET("/preview/:session_id", handlers.HandlePreview(deps.Sessions, deps.Palette, deps.Metrics))
		api.GET("/session/:session_id", handlers.HandleGetSession(deps.Sessions, deps.Metrics))
		api.POST("/reset", handlers.HandleReset(deps.Sessions, deps.Metrics, ext.AuditLogger))
		api.GET("/new-session", handlers.HandleNewSession(deps.Sessions, deps.Metrics))
	}
}
