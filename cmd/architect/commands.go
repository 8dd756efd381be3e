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
	"github.com/AleutianAI/ComponentArchitect/cmd/architect/config"
	"github.com/AleutianAI/ComponentArchitect/pkg/logging"
	"github.com/AleutianAI/ComponentArchitect/pkg/ux"
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	configPath       string
	backendType      string
	logLevel         string
	personalityLevel string // UX personality level (standard/minimal/machine)
	jsonOutput       bool
	noOpen           bool

	// appConfig and appLogger are set by setup before any command runs.
	appConfig config.ArchitectConfig
	appLogger *logging.Logger

	rootCmd = &cobra.Command{
		Use:   "architect",
		Short: "Generate Angular components that follow your design system",
		Long: `architect turns a component description into a standalone Angular
component (TypeScript, HTML, SCSS), checks it against the design palette,
feeds any violations back to the model, and writes the result to disk.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		PersistentPostRun: teardown,
	}

	chatCmd = &cobra.Command{
		Use:   "chat",
		Short: "Interactive session; follow-up prompts edit the last component",
		Args:  cobra.NoArgs,
		RunE:  runChat, // Defined in cmd_chat.go
	}

	generateCmd = &cobra.Command{
		Use:   "generate [description]",
		Short: "Generate a single component and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runGenerate, // Defined in cmd_generate.go
	}

	lintCmd = &cobra.Command{
		Use:   "lint [component-id or directory]",
		Short: "Run the design rules against a generated component",
		Args:  cobra.ExactArgs(1),
		RunE:  runLint, // Defined in cmd_lint.go
	}

	previewCmd = &cobra.Command{
		Use:   "preview [component-id]",
		Short: "List components, or write and open a browser preview of one",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runPreview, // Defined in cmd_preview.go
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP and websocket API",
		Args:  cobra.NoArgs,
		RunE:  runServe, // Defined in cmd_serve.go
	}

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage ~/.architect/architect.yaml",
	}
	configInitCmd = &cobra.Command{
		Use:   "init",
		Short: "Interactively write the config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigInit, // Defined in cmd_config.go
	}
	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow, // Defined in cmd_config.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.architect/architect.yaml)")
	rootCmd.PersistentFlags().StringVar(&backendType, "backend", "", "Override model_backend.type (groq, openai, anthropic, ollama, gemini, langchain)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); enables console logs")
	rootCmd.PersistentFlags().StringVar(&personalityLevel, "personality", "", "Output style (standard, minimal, machine)")

	generateCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
	previewCmd.Flags().BoolVar(&noOpen, "no-open", false, "Write the preview without opening a browser")

	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(chatCmd, generateCmd, lintCmd, previewCmd, serveCmd, configCmd)
}

// setup loads the config, applies flag overrides, and installs the logger.
func setup(cmd *cobra.Command, args []string) error {
	if personalityLevel != "" {
		ux.SetPersonality(ux.ParsePersonalityLevel(personalityLevel))
	} else {
		ux.InitPersonality()
	}

	var err error
	if configPath != "" {
		appConfig, err = config.LoadFile(configPath)
	} else {
		err = config.Load("")
		appConfig = config.Global
	}
	if err != nil {
		return err
	}
	if backendType != "" {
		appConfig.ModelBackend.Type = backendType
	}
	if logLevel != "" {
		appConfig.Logging.Level = logLevel
	}

	lc := appConfig.LoggingConfig("architect")
	lc.Output = cmd.ErrOrStderr()
	// Console logs stay off for local commands unless requested. The log
	// file still records everything.
	lc.Quiet = logLevel == "" && cmd.Name() != "serve"
	appLogger = logging.New(lc)
	appLogger.SetDefault()
	return nil
}

func teardown(cmd *cobra.Command, args []string) {
	if appLogger != nil {
		_ = appLogger.Close()
	}
}
