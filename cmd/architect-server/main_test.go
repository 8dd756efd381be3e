// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFromEnv_Defaults(t *testing.T) {
	cfg := configFromEnv()

	assert.Equal(t, 12230, cfg.Port)
	assert.Equal(t, "groq", cfg.LLM.Backend)
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Nil(t, cfg.MaxRetries)
	assert.False(t, cfg.DisableCritic)
	assert.True(t, cfg.PromptPolicy)
	assert.Empty(t, cfg.APIToken)
}

func TestConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("ARCHITECT_PORT", "9000")
	t.Setenv("LLM_BACKEND_TYPE", "ollama")
	t.Setenv("ARCHITECT_MAX_RETRIES", "3")
	t.Setenv("ARCHITECT_DISABLE_CRITIC", "true")
	t.Setenv("ARCHITECT_STORAGE", "badger")
	t.Setenv("ARCHITECT_BADGER_PATH", "/data/badger")
	t.Setenv("ARCHITECT_SESSION_TTL", "90m")
	t.Setenv("ARCHITECT_PROMPT_POLICY", "false")
	t.Setenv("ARCHITECT_API_TOKEN", "s3cret")

	cfg := configFromEnv()

	assert.False(t, cfg.PromptPolicy)
	assert.Equal(t, "s3cret", cfg.APIToken)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "ollama", cfg.LLM.Backend)
	require.NotNil(t, cfg.MaxRetries)
	assert.Equal(t, 3, *cfg.MaxRetries)
	assert.True(t, cfg.DisableCritic)
	assert.Equal(t, "badger", cfg.Storage.Backend)
	assert.Equal(t, "/data/badger", cfg.Storage.Badger.Path)
	assert.Equal(t, 90*time.Minute, cfg.SessionTTL)
}

func TestConfigFromEnv_IgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("ARCHITECT_PORT", "not-a-port")
	t.Setenv("ARCHITECT_MAX_RETRIES", "two")
	t.Setenv("ARCHITECT_SESSION_TTL", "forever")

	cfg := configFromEnv()

	assert.Equal(t, 12230, cfg.Port)
	assert.Nil(t, cfg.MaxRetries)
	assert.Zero(t, cfg.SessionTTL)
}
