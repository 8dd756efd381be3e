// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"fmt"
	"io"
	"strings"
)

// HeaderConfig contains what the chat header shows.
//
// # Fields
//
//   - Backend: Gateway backend name (e.g. "groq").
//   - Model: Model identifier.
//   - OutputDir: Where components are written.
//   - Critic: Whether the semantic critic is enabled.
//   - MaxRetries: Validation pass bound.
type HeaderConfig struct {
	Backend    string
	Model      string
	OutputDir  string
	Critic     bool
	MaxRetries int
}

// ChatUI renders the chat REPL chrome.
type ChatUI interface {
	// Header displays the banner and usage hint.
	Header(config HeaderConfig)

	// Prompt returns the input prompt string.
	Prompt() string

	// NewSession confirms that history was cleared.
	NewSession()

	// Error displays a failed turn.
	Error(err error)

	// Goodbye displays the exit line.
	Goodbye()
}

// terminalChatUI implements ChatUI for terminal output.
type terminalChatUI struct {
	writer      io.Writer
	personality PersonalityLevel
}

// NewChatUI creates a ChatUI that writes to w at the given level.
func NewChatUI(w io.Writer, personality PersonalityLevel) ChatUI {
	return &terminalChatUI{writer: w, personality: personality}
}

func (u *terminalChatUI) Header(config HeaderConfig) {
	if u.personality == PersonalityMachine {
		fmt.Fprintf(u.writer, "component-architect backend=%s model=%s output=%s critic=%t max_retries=%d\n",
			config.Backend, config.Model, config.OutputDir, config.Critic, config.MaxRetries)
		return
	}

	critic := "off"
	if config.Critic {
		critic = "on"
	}
	lines := []string{
		fmt.Sprintf("%s %s", Styles.Muted.Render("Backend:"), config.Backend),
		fmt.Sprintf("%s %s", Styles.Muted.Render("Model:  "), config.Model),
		fmt.Sprintf("%s %s", Styles.Muted.Render("Output: "), config.OutputDir),
		fmt.Sprintf("%s %s, %d retries", Styles.Muted.Render("Critic: "), critic, config.MaxRetries),
	}
	if u.personality == PersonalityMinimal {
		fmt.Fprintln(u.writer, Styles.Title.Render("Component Architect"))
		fmt.Fprintln(u.writer, strings.Join(lines, "\n"))
	} else {
		fmt.Fprintln(u.writer, Styles.Box.Width(60).Render(Styles.Title.Render("Component Architect")+"\n"+strings.Join(lines, "\n")))
	}
	fmt.Fprintln(u.writer)
	fmt.Fprintln(u.writer, "Describe an Angular component to generate it.")
	fmt.Fprintln(u.writer, Styles.Muted.Render("Commands: 'new' starts a fresh session, 'exit' quits."))
	fmt.Fprintln(u.writer)
}

func (u *terminalChatUI) Prompt() string {
	if u.personality == PersonalityMachine {
		return "> "
	}
	return Styles.Highlight.Render("You: ")
}

func (u *terminalChatUI) NewSession() {
	if u.personality == PersonalityMachine {
		fmt.Fprintln(u.writer, "SESSION: new")
		return
	}
	fmt.Fprintln(u.writer)
	Info(u.writer, "New session started. Conversation history cleared.")
	fmt.Fprintln(u.writer)
}

func (u *terminalChatUI) Error(err error) {
	Error(u.writer, err.Error())
}

func (u *terminalChatUI) Goodbye() {
	if u.personality == PersonalityMachine {
		return
	}
	fmt.Fprintln(u.writer, Styles.Muted.Render("Goodbye!"))
}
