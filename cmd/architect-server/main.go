// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command architect-server starts the Component Architect HTTP server.
//
// This is the entry point for the containerized service. It reads its
// configuration from environment variables; use 'architect serve' for a
// YAML-configured local server.
//
// # Environment Variables
//
//   - ARCHITECT_PORT: HTTP server port (default: 12230)
//   - LLM_BACKEND_TYPE: groq, openai, anthropic, ollama, gemini, langchain (default: groq)
//   - LLM_MODEL: model override (optional)
//   - LLM_BASE_URL: endpoint override (optional)
//   - LLM_REQUESTS_PER_MINUTE: client-side rate limit (optional)
//   - ARCHITECT_MAX_RETRIES: validation passes per request (default: 2)
//   - ARCHITECT_DISABLE_CRITIC: "true" skips the semantic critic
//   - ARCHITECT_PROMPT_POLICY: "false" sends prompts unfiltered (default: true)
//   - ARCHITECT_API_TOKEN: bearer token required on /api routes (optional)
//   - ARCHITECT_PALETTE: JSON or YAML palette path (optional)
//   - ARCHITECT_WATCH_PALETTE: "true" reloads the palette on change
//   - ARCHITECT_STORAGE: file, badger, gcs (default: file)
//   - ARCHITECT_OUTPUT_DIR: file backend root (default: generated_project)
//   - ARCHITECT_BADGER_PATH: badger directory
//   - ARCHITECT_GCS_BUCKET, ARCHITECT_GCS_PREFIX: gcs destination
//   - ARCHITECT_UI_DIR: static frontend served under /ui (optional)
//   - ARCHITECT_SESSION_TTL: idle session lifetime, e.g. 12h (default: 24h)
//   - ARCHITECT_LOG_LEVEL: debug, info, warn, error (default: info)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (optional)
//
// # Usage
//
//	go build -o architect-server ./cmd/architect-server
//	LLM_BACKEND_TYPE=ollama ./architect-server
package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/AleutianAI/ComponentArchitect/pkg/logging"
	"github.com/AleutianAI/ComponentArchitect/services/architect"
	"github.com/AleutianAI/ComponentArchitect/services/architect/storage"
	"github.com/AleutianAI/ComponentArchitect/services/llm"
)

func main() {
	level, err := logging.ParseLevel(getEnvString("ARCHITECT_LOG_LEVEL", "info"))
	logger := logging.New(logging.Config{
		Level:   level,
		Service: "architect-server",
		JSON:    true,
		Output:  os.Stdout,
	})
	defer logger.Close()
	logger.SetDefault()
	if err != nil {
		logger.Warn("Unknown log level, using info", "error", err)
	}

	cfg := configFromEnv()
	logger.Info("Starting component architect",
		"port", cfg.Port,
		"llm_backend", cfg.LLM.Backend,
		"storage", cfg.Storage.Backend,
		"critic", !cfg.DisableCritic,
		"prompt_policy", cfg.PromptPolicy,
		"auth", cfg.APIToken != "",
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := architect.New(ctx, cfg, &architect.Options{Logger: logger.Slog()})
	if err != nil {
		logger.Error("Failed to create service", "error", err)
		os.Exit(1)
	}

	// Run blocks until ctx is canceled.
	if err := svc.Run(ctx); err != nil {
		logger.Error("Service error", "error", err)
		os.Exit(1)
	}
}

// configFromEnv builds the service configuration from the environment.
func configFromEnv() architect.Config {
	cfg := architect.Config{
		Port: getEnvInt("ARCHITECT_PORT", 12230),
		LLM: llm.Config{
			Backend:           getEnvString("LLM_BACKEND_TYPE", llm.BackendGroq),
			Model:             os.Getenv("LLM_MODEL"),
			BaseURL:           os.Getenv("LLM_BASE_URL"),
			RequestsPerMinute: getEnvInt("LLM_REQUESTS_PER_MINUTE", 0),
		},
		DisableCritic: getEnvBool("ARCHITECT_DISABLE_CRITIC", false),
		PalettePath:   os.Getenv("ARCHITECT_PALETTE"),
		WatchPalette:  getEnvBool("ARCHITECT_WATCH_PALETTE", false),
		Storage: storage.Config{
			Backend: getEnvString("ARCHITECT_STORAGE", storage.BackendFile),
			Dir:     os.Getenv("ARCHITECT_OUTPUT_DIR"),
			Badger:  storage.BadgerConfig{Path: os.Getenv("ARCHITECT_BADGER_PATH"), SyncWrites: true},
			GCS: storage.GCSConfig{
				Bucket: os.Getenv("ARCHITECT_GCS_BUCKET"),
				Prefix: os.Getenv("ARCHITECT_GCS_PREFIX"),
			},
		},
		OTelEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		UIDir:        os.Getenv("ARCHITECT_UI_DIR"),
		APIToken:     os.Getenv("ARCHITECT_API_TOKEN"),
		PromptPolicy: getEnvBool("ARCHITECT_PROMPT_POLICY", true),
	}
	if v := os.Getenv("ARCHITECT_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxRetries = &n
		}
	}
	if v := os.Getenv("ARCHITECT_SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.SessionTTL = d
		}
	}
	return cfg
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvBool returns the environment variable as bool or a default.
func getEnvBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}
