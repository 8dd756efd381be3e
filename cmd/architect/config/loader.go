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
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	// Global is a singleton instance
	Global ArchitectConfig
	once   sync.Once
)

// DefaultPath returns ~/.architect/architect.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".architect", "architect.yaml"), nil
}

// Load ensures the config at path (DefaultPath when empty) is loaded into
// Global. Only the first call does any work.
func Load(path string) error {
	var err error
	once.Do(func() {
		if path == "" {
			path, err = DefaultPath()
			if err != nil {
				return
			}
		}
		Global, err = LoadFile(path)
	})
	return err
}

// LoadFile reads the config at path, creating it with defaults on first
// run. Fields missing from the file keep their defaults.
func LoadFile(path string) (ArchitectConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, " First run detected, creating the config at %s\n", path)
		if err := createDefault(path); err != nil {
			return ArchitectConfig{}, err
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ArchitectConfig{}, fmt.Errorf("failed to read the config file %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ArchitectConfig{}, fmt.Errorf("failed to parse the config at %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating the directory.
func Save(path string, cfg ArchitectConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create the config directory %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode the config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func createDefault(path string) error {
	return Save(path, DefaultConfig())
}
