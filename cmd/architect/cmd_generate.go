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
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/AleutianAI/ComponentArchitect/pkg/extensions"
	"github.com/AleutianAI/ComponentArchitect/pkg/ux"
	"github.com/AleutianAI/ComponentArchitect/services/architect/datatypes"
	"github.com/AleutianAI/ComponentArchitect/services/architect/session"
	"github.com/spf13/cobra"
)

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := openRuntime(ctx, appConfig, appLogger.Slog())
	if err != nil {
		return err
	}
	defer rt.Close()

	prompt := strings.Join(args, " ")
	return generateOnce(ctx, rt.pipeline, prompt, cmd.OutOrStdout(), generateOptions{
		JSON:        jsonOutput,
		Interactive: !jsonOutput && ux.IsInteractive(),
		Renderer:    ux.NewMarkdownRenderer(80),
		Filter:      rt.filter,
	})
}

type generateOptions struct {
	JSON        bool
	Interactive bool
	Renderer    ux.MarkdownRenderer
	Filter      extensions.PromptFilter
}

// generateOnce runs a single prompt in a fresh session and prints the result.
func generateOnce(ctx context.Context, runner pipelineRunner, prompt string, out io.Writer, opts generateOptions) error {
	conv := session.NewConversation()

	progressOut := out
	if opts.JSON {
		progressOut = io.Discard
	}
	result, summary, err := runPrompt(ctx, runner, conv, opts.Filter, prompt, ux.NewProgress(progressOut, opts.Interactive))
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	if !opts.JSON {
		return ux.RenderComponent(out, componentView(result, summary), opts.Renderer)
	}

	final := result.Request.Final
	errs := final.Errors
	if errs == nil {
		errs = []string{}
	}
	resp := datatypes.GenerateResponse{
		SessionID:        conv.Session().ID,
		RequestID:        result.Request.ID,
		ComponentName:    final.Name,
		TypescriptCode:   final.Behavior,
		HTMLTemplate:     final.Markup,
		SCSSStyles:       final.Style,
		Summary:          summary,
		ValidationPassed: final.Passed,
		ValidationErrors: errs,
		RetryCount:       final.Attempt,
		RetryExhausted:   result.RetryExhausted,
		Files:            result.Files,
		ChatLog:          conv.Session().ChatLog(),
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
