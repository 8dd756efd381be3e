// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"time"

	"github.com/AleutianAI/ComponentArchitect/pkg/logging"
	"github.com/AleutianAI/ComponentArchitect/services/architect"
	"github.com/AleutianAI/ComponentArchitect/services/architect/storage"
	"github.com/AleutianAI/ComponentArchitect/services/llm"
)

type ArchitectConfig struct {
	// ModelBackend: which gateway generates components
	ModelBackend BackendConfig `yaml:"model_backend"`

	// Pipeline: retry bound and critic
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Design: where the token palette comes from
	Design DesignConfig `yaml:"design"`

	// Output: where finalized components are written
	Output OutputConfig `yaml:"output"`

	// Server: the HTTP API started by `architect serve`
	Server ServerConfig `yaml:"server"`

	Logging LoggingConfig `yaml:"logging"`
}

type BackendConfig struct {
	// Type can be "groq", "openai", "anthropic", "ollama", "gemini" or "langchain"
	Type              string        `yaml:"type"`
	Model             string        `yaml:"model,omitempty"`
	BaseURL           string        `yaml:"base_url,omitempty"`
	APIKeyEnv         string        `yaml:"api_key_env,omitempty"`
	Timeout           time.Duration `yaml:"timeout,omitempty"`
	RequestsPerMinute int           `yaml:"requests_per_minute,omitempty"`
	Temperature       *float32      `yaml:"temperature,omitempty"`
}

type PipelineConfig struct {
	MaxRetries int `yaml:"max_retries"`
	MaxSteps   int `yaml:"max_steps,omitempty"`

	// Critic: the semantic review after the rule checks pass
	Critic CriticConfig `yaml:"critic"`

	// PromptPolicy blocks prompts with secrets and redacts personal data
	PromptPolicy bool `yaml:"prompt_policy"`
}

type CriticConfig struct {
	Enabled bool `yaml:"enabled"`

	// Backend overrides model_backend for the critic only
	Backend *BackendConfig `yaml:"backend,omitempty"`
}

type DesignConfig struct {
	// PalettePath is a JSON or YAML palette; empty uses the built-in one
	PalettePath string `yaml:"palette_path,omitempty"`
	Watch       bool   `yaml:"watch"`
}

type OutputConfig struct {
	// Backend is "file", "badger" or "gcs"
	Backend string `yaml:"backend"`
	Dir     string `yaml:"dir"`

	BadgerPath string `yaml:"badger_path,omitempty"`

	GCSBucket          string `yaml:"gcs_bucket,omitempty"`
	GCSPrefix          string `yaml:"gcs_prefix,omitempty"`
	GCSCredentialsFile string `yaml:"gcs_credentials_file,omitempty"`
}

type ServerConfig struct {
	Port         int           `yaml:"port"`
	OTelEndpoint string        `yaml:"otel_endpoint,omitempty"`
	UIDir        string        `yaml:"ui_dir,omitempty"`
	SessionTTL   time.Duration `yaml:"session_ttl"`

	// APITokenEnv names the variable holding the bearer token for /api.
	// Unset or empty disables auth.
	APITokenEnv string `yaml:"api_token_env,omitempty"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir,omitempty"`
	JSON  bool   `yaml:"json"`
}

func DefaultConfig() ArchitectConfig {
	return ArchitectConfig{
		ModelBackend: BackendConfig{
			Type:    llm.BackendGroq,
			Timeout: llm.DefaultTimeout,
		},
		Pipeline: PipelineConfig{
			MaxRetries:   2,
			Critic:       CriticConfig{Enabled: true},
			PromptPolicy: true,
		},
		Design: DesignConfig{},
		Output: OutputConfig{
			Backend: storage.BackendFile,
			Dir:     "generated_project",
		},
		Server: ServerConfig{
			Port:       12230,
			SessionTTL: 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "~/.architect/logs",
		},
	}
}

// LLM converts a backend section to the gateway config.
func (b BackendConfig) LLM() llm.Config {
	return llm.Config{
		Backend:           b.Type,
		Model:             b.Model,
		BaseURL:           b.BaseURL,
		APIKeyEnv:         b.APIKeyEnv,
		Timeout:           b.Timeout,
		RequestsPerMinute: b.RequestsPerMinute,
	}
}

// Storage converts the output section to the storage config.
func (o OutputConfig) Storage() storage.Config {
	return storage.Config{
		Backend: o.Backend,
		Dir:     o.Dir,
		Badger: storage.BadgerConfig{
			Path:       o.BadgerPath,
			SyncWrites: true,
		},
		GCS: storage.GCSConfig{
			Bucket:          o.GCSBucket,
			Prefix:          o.GCSPrefix,
			CredentialsFile: o.GCSCredentialsFile,
		},
	}
}

// Service converts the whole file to the service config used by both
// `architect serve` and the local commands.
func (c ArchitectConfig) Service() architect.Config {
	retries := c.Pipeline.MaxRetries
	cfg := architect.Config{
		Port:          c.Server.Port,
		LLM:           c.ModelBackend.LLM(),
		DisableCritic: !c.Pipeline.Critic.Enabled,
		MaxRetries:    &retries,
		MaxSteps:      c.Pipeline.MaxSteps,
		Temperature:   c.ModelBackend.Temperature,
		PalettePath:   c.Design.PalettePath,
		WatchPalette:  c.Design.Watch,
		Storage:       c.Output.Storage(),
		OTelEndpoint:  c.Server.OTelEndpoint,
		UIDir:         c.Server.UIDir,
		SessionTTL:    c.Server.SessionTTL,
		PromptPolicy:  c.Pipeline.PromptPolicy,
	}
	if c.Server.APITokenEnv != "" {
		cfg.APIToken = os.Getenv(c.Server.APITokenEnv)
	}
	if c.Pipeline.Critic.Backend != nil {
		critic := c.Pipeline.Critic.Backend.LLM()
		cfg.CriticLLM = &critic
	}
	return cfg
}

// LoggingConfig converts the logging section. Unknown levels fall back to info.
func (c ArchitectConfig) LoggingConfig(service string) logging.Config {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		level = logging.LevelInfo
	}
	return logging.Config{
		Level:   level,
		LogDir:  c.Logging.Dir,
		Service: service,
		JSON:    c.Logging.JSON,
	}
}
