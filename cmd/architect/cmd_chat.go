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
	"errors"
	"io"
	"os"
	"strings"

	"github.com/AleutianAI/ComponentArchitect/pkg/extensions"
	"github.com/AleutianAI/ComponentArchitect/pkg/ux"
	"github.com/AleutianAI/ComponentArchitect/services/architect/session"
	"github.com/spf13/cobra"
)

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	logger := appLogger.Slog()

	rt, err := openRuntime(ctx, appConfig, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	interactive := ux.IsInteractive()
	var reader ux.InputReader
	if interactive {
		reader = ux.NewInteractiveReader(os.Stdin, out)
	} else {
		reader = ux.NewLineReader(cmd.InOrStdin(), out)
	}

	ui := ux.NewChatUI(out, ux.GetPersonality())
	ui.Header(ux.HeaderConfig{
		Backend:    appConfig.ModelBackend.Type,
		Model:      appConfig.ModelBackend.Model,
		OutputDir:  appConfig.Output.Dir,
		Critic:     appConfig.Pipeline.Critic.Enabled,
		MaxRetries: rt.pipeline.MaxRetries(),
	})

	loop := &chatLoop{
		runner:      rt.pipeline,
		conv:        session.NewConversation(),
		reader:      reader,
		ui:          ui,
		out:         out,
		renderer:    ux.NewMarkdownRenderer(80),
		filter:      rt.filter,
		interactive: interactive,
	}
	return loop.Run(ctx)
}

// chatLoop is the REPL: 'new' clears the session, 'exit' quits, anything
// else is a prompt. A failed turn is reported and the loop continues.
type chatLoop struct {
	runner      pipelineRunner
	conv        conversation
	reader      ux.InputReader
	ui          ux.ChatUI
	out         io.Writer
	renderer    ux.MarkdownRenderer
	filter      extensions.PromptFilter
	interactive bool
}

func (l *chatLoop) Run(ctx context.Context) error {
	for {
		line, err := l.reader.ReadLine(ctx, l.ui.Prompt())
		if errors.Is(err, ux.ErrInputClosed) || errors.Is(err, context.Canceled) {
			l.ui.Goodbye()
			return nil
		}
		if err != nil {
			return err
		}

		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			l.ui.Goodbye()
			return nil
		case "new":
			l.conv.Reset()
			l.ui.NewSession()
			continue
		}

		result, summary, err := runPrompt(ctx, l.runner, l.conv, l.filter, line, ux.NewProgress(l.out, l.interactive))
		if err != nil {
			if ctx.Err() != nil {
				l.ui.Goodbye()
				return nil
			}
			l.ui.Error(err)
			continue
		}
		if err := ux.RenderComponent(l.out, componentView(result, summary), l.renderer); err != nil {
			l.ui.Error(err)
		}
	}
}
