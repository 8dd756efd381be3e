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
	"fmt"
	"io"

	"github.com/AleutianAI/ComponentArchitect/cmd/architect/config"
	"github.com/AleutianAI/ComponentArchitect/pkg/ux"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func runConfigInit(cmd *cobra.Command, args []string) error {
	path, err := resolvedConfigPath()
	if err != nil {
		return err
	}
	cfg := appConfig
	if err := config.RunWizard(&cfg, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
		return err
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}
	ux.Success(cmd.OutOrStdout(), fmt.Sprintf("Saved %s", path))
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	path, err := resolvedConfigPath()
	if err != nil {
		return err
	}
	return showConfig(cmd.OutOrStdout(), path, appConfig)
}

// showConfig prints the effective config as YAML.
func showConfig(out io.Writer, path string, cfg config.ArchitectConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	ux.Muted(out, "# "+path)
	_, err = out.Write(data)
	return err
}

func resolvedConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.DefaultPath()
}
