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
	"io"
	"strconv"
	"strings"

	"github.com/AleutianAI/ComponentArchitect/services/architect/storage"
	"github.com/AleutianAI/ComponentArchitect/services/llm"
	"github.com/charmbracelet/huh"
)

// WizardAnswers holds the form values before they are applied.
type WizardAnswers struct {
	Backend     string
	Model       string
	MaxRetries  string
	Critic      bool
	PalettePath string
	Output      string
	OutputDir   string
}

// answersFrom seeds the form with cfg.
func answersFrom(cfg ArchitectConfig) WizardAnswers {
	return WizardAnswers{
		Backend:     cfg.ModelBackend.Type,
		Model:       cfg.ModelBackend.Model,
		MaxRetries:  strconv.Itoa(cfg.Pipeline.MaxRetries),
		Critic:      cfg.Pipeline.Critic.Enabled,
		PalettePath: cfg.Design.PalettePath,
		Output:      cfg.Output.Backend,
		OutputDir:   cfg.Output.Dir,
	}
}

// Apply copies the answers onto cfg.
func (a WizardAnswers) Apply(cfg *ArchitectConfig) error {
	retries, err := parseRetries(a.MaxRetries)
	if err != nil {
		return err
	}
	cfg.ModelBackend.Type = a.Backend
	cfg.ModelBackend.Model = strings.TrimSpace(a.Model)
	cfg.Pipeline.MaxRetries = retries
	cfg.Pipeline.Critic.Enabled = a.Critic
	cfg.Design.PalettePath = strings.TrimSpace(a.PalettePath)
	cfg.Output.Backend = a.Output
	cfg.Output.Dir = strings.TrimSpace(a.OutputDir)
	return nil
}

func parseRetries(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("max retries must be a non-negative integer, got %q", s)
	}
	return n, nil
}

// newWizardForm builds the form bound to a.
func newWizardForm(a *WizardAnswers) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Model backend").
				Options(huh.NewOptions(
					llm.BackendGroq, llm.BackendOpenAI, llm.BackendAnthropic,
					llm.BackendOllama, llm.BackendGemini, llm.BackendLangChain,
				)...).
				Value(&a.Backend),
			huh.NewInput().
				Title("Model").
				Description("Leave empty for the backend default.").
				Value(&a.Model),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Max retries").
				Validate(func(s string) error {
					_, err := parseRetries(s)
					return err
				}).
				Value(&a.MaxRetries),
			huh.NewConfirm().
				Title("Run the semantic critic after the rule checks?").
				Value(&a.Critic),
			huh.NewInput().
				Title("Palette file").
				Description("JSON or YAML. Leave empty for the built-in palette.").
				Value(&a.PalettePath),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Output backend").
				Options(huh.NewOptions(storage.BackendFile, storage.BackendBadger, storage.BackendGCS)...).
				Value(&a.Output),
			huh.NewInput().
				Title("Output directory").
				Value(&a.OutputDir),
		),
	)
}

// RunWizard asks for the common settings and applies them to cfg.
func RunWizard(cfg *ArchitectConfig, in io.Reader, out io.Writer) error {
	answers := answersFrom(*cfg)
	form := newWizardForm(&answers).WithInput(in).WithOutput(out)
	if err := form.Run(); err != nil {
		return fmt.Errorf("config wizard: %w", err)
	}
	return answers.Apply(cfg)
}
