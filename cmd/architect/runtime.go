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
	"context"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/ComponentArchitect/cmd/architect/config"
	"github.com/AleutianAI/ComponentArchitect/pkg/extensions"
	"github.com/AleutianAI/ComponentArchitect/pkg/ux"
	"github.com/AleutianAI/ComponentArchitect/services/architect"
	"github.com/AleutianAI/ComponentArchitect/services/architect/agent"
	"github.com/AleutianAI/ComponentArchitect/services/architect/datatypes"
	"github.com/AleutianAI/ComponentArchitect/services/architect/design"
	"github.com/AleutianAI/ComponentArchitect/services/architect/policy"
	"github.com/AleutianAI/ComponentArchitect/services/architect/storage"
	"github.com/AleutianAI/ComponentArchitect/services/llm"
)

// newLLMClient builds gateway clients. Tests replace it with a mock.
var newLLMClient = llm.NewClient

// pipelineRunner is the part of *agent.Pipeline the commands use.
type pipelineRunner interface {
	Run(ctx context.Context, req *datatypes.Request, opts ...agent.RunOption) (*agent.Result, error)
	MaxRetries() int
}

// localRuntime is everything a local command needs to run the pipeline.
type localRuntime struct {
	config   architect.Config
	pipeline *agent.Pipeline
	palette  design.Source
	store    storage.StoreCloser

	// filter is nil when the prompt policy is off.
	filter extensions.PromptFilter
}

// openStore opens the configured output store without building a pipeline.
func openStore(ctx context.Context, cfg config.ArchitectConfig) (storage.StoreCloser, error) {
	store, err := storage.Open(ctx, cfg.Output.Storage())
	if err != nil {
		return nil, fmt.Errorf("open %s output: %w", cfg.Output.Backend, err)
	}
	return store, nil
}

// loadPalette loads the configured palette once.
func loadPalette(ctx context.Context, cfg config.ArchitectConfig, logger *slog.Logger) (design.Source, *design.Palette, error) {
	source, _ := architect.OpenPalette(cfg.Design.PalettePath, logger)
	palette, err := source.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load design palette: %w", err)
	}
	return source, palette, nil
}

// openRuntime builds the gateway clients, palette, store and pipeline.
// Close releases the store.
func openRuntime(ctx context.Context, cfg config.ArchitectConfig, logger *slog.Logger) (*localRuntime, error) {
	svc := cfg.Service()

	client, err := newLLMClient(ctx, svc.LLM)
	if err != nil {
		return nil, fmt.Errorf("model backend: %w", err)
	}
	var criticClient llm.LLMClient
	if svc.CriticLLM != nil && !svc.DisableCritic {
		criticClient, err = newLLMClient(ctx, *svc.CriticLLM)
		if err != nil {
			return nil, fmt.Errorf("critic backend: %w", err)
		}
	}

	palette, _, err := loadPalette(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	var filter extensions.PromptFilter
	if svc.PromptPolicy {
		engine, err := policy.New()
		if err != nil {
			return nil, fmt.Errorf("prompt policy: %w", err)
		}
		filter = engine
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	pipeline, err := architect.BuildPipeline(svc, architect.PipelineDeps{
		Client:       client,
		CriticClient: criticClient,
		Palette:      palette,
		Sink:         store,
		EventHandler: agent.LoggingHandler(logger),
		Logger:       logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return &localRuntime{config: svc, pipeline: pipeline, palette: palette, store: store, filter: filter}, nil
}

func (r *localRuntime) Close() error {
	return r.store.Close()
}

// progressHandler turns pipeline events into progress lines.
func progressHandler(p *ux.Progress, maxRetries int) agent.EventHandler {
	return func(event *agent.Event) {
		status, step := describeEvent(event, maxRetries)
		if step != "" {
			p.Step(step)
		}
		if status != "" {
			p.Status(status)
		}
	}
}

// describeEvent returns the spinner text and the completed-step line for
// event. Either may be empty.
func describeEvent(event *agent.Event, maxRetries int) (status, step string) {
	switch event.Type {
	case agent.EventRunStarted:
		return "Generating component...", ""
	case agent.EventRunFailed:
		return "", fmt.Sprintf("%s pipeline failed: %s", ux.IconError, event.Error)
	case agent.EventNodeCompleted:
	default:
		return "", ""
	}

	switch event.Node {
	case agent.NodeGenerator:
		switch event.Outcome {
		case agent.OutcomeParseError:
			return "Validating...", fmt.Sprintf("%s generator: reply could not be parsed", ux.IconWarning)
		case agent.OutcomeCarriedForward:
			return "Validating...", fmt.Sprintf("%s generator: gateway failed, keeping previous attempt", ux.IconWarning)
		case agent.OutcomeGatewayError:
			return "", fmt.Sprintf("%s generator: %s", ux.IconError, event.Error)
		}
		return "Validating...", fmt.Sprintf("%s generator: %s", ux.IconSuccess, event.ComponentName)
	case agent.NodeValidator:
		if event.Passed {
			return "Writing files...", fmt.Sprintf("%s validator: passed (attempt %d)", ux.IconSuccess, event.Attempt)
		}
		line := fmt.Sprintf("%s validator: %d error(s) (attempt %d/%d)", ux.IconWarning, len(event.Errors), event.Attempt, maxRetries)
		if event.Decision == agent.DecisionFinalize {
			return "Writing files...", line
		}
		return "Correcting...", line
	case agent.NodeCorrector:
		return "Regenerating with feedback...", fmt.Sprintf("%s corrector: sending %d error(s) back", ux.IconArrow, len(event.Errors))
	case agent.NodeFinalizer:
		return "", fmt.Sprintf("%s finalizer: wrote %d file(s)", ux.IconSuccess, len(event.Files))
	}
	return "", ""
}

// runPrompt runs one turn of conv with live progress and records the result.
// A nil filter sends the prompt as typed; a blocked prompt never reaches
// the conversation.
func runPrompt(ctx context.Context, runner pipelineRunner, conv conversation, filter extensions.PromptFilter, prompt string, progress *ux.Progress) (*agent.Result, string, error) {
	prompt, filtered, err := extensions.ApplyFilter(ctx, filter, prompt)
	if err != nil {
		return nil, "", err
	}

	req := conv.Begin(prompt)
	progress.Start("Generating component...")
	if filtered != nil && filtered.WasModified {
		progress.Step(fmt.Sprintf("%s prompt: redacted %d item(s) before sending", ux.IconWarning, len(filtered.Detections)))
	}
	result, err := runner.Run(ctx, req, agent.WithRunEventHandler(progressHandler(progress, runner.MaxRetries())))
	progress.Stop()
	if err != nil {
		return nil, "", err
	}
	summary := conv.Complete(prompt, result.Request.Final)
	return result, summary, nil
}

// conversation is the session API the commands drive.
type conversation interface {
	Begin(prompt string) *datatypes.Request
	Complete(prompt string, final *datatypes.Artifact) string
	Reset()
}

// componentView adapts a result for display.
func componentView(result *agent.Result, summary string) ux.ComponentView {
	final := result.Request.Final
	return ux.ComponentView{
		Name:     final.Name,
		Behavior: final.Behavior,
		Markup:   final.Markup,
		Style:    final.Style,
		Passed:   final.Passed,
		Errors:   final.Errors,
		Files:    result.Files,
		Summary:  summary,
	}
}
