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

	"github.com/charmbracelet/glamour"
)

// Preview lengths, in characters, for each generated file.
const (
	PreviewBehaviorChars = 500
	PreviewMarkupChars   = 500
	PreviewStyleChars    = 300
)

// ComponentView is what the CLI shows for a finished run.
//
// # Fields
//
//   - Name: Component class name.
//   - Behavior, Markup, Style: The three file payloads.
//   - Passed: Final validation verdict.
//   - Errors: Remaining validation errors when Passed is false.
//   - Files: Paths written by the finalizer.
//   - Summary: One-line summary recorded in the session chat log.
type ComponentView struct {
	Name     string
	Behavior string
	Markup   string
	Style    string
	Passed   bool
	Errors   []string
	Files    []string
	Summary  string
}

// Truncate shortens s to at most n characters, appending "..." when cut.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// PreviewMarkdown returns fenced previews of the three files.
func PreviewMarkdown(v ComponentView) string {
	var b strings.Builder
	writeBlock := func(title, lang, code string, limit int) {
		fmt.Fprintf(&b, "### %s\n\n```%s\n%s\n```\n\n", title, lang, Truncate(code, limit))
	}
	writeBlock("TypeScript (.component.ts)", "typescript", v.Behavior, PreviewBehaviorChars)
	writeBlock("HTML (.component.html)", "html", v.Markup, PreviewMarkupChars)
	writeBlock("SCSS (.component.scss)", "scss", v.Style, PreviewStyleChars)
	return b.String()
}

// MarkdownRenderer turns markdown into terminal output.
type MarkdownRenderer interface {
	Render(markdown string) (string, error)
}

// glamourRenderer renders markdown with syntax highlighting.
type glamourRenderer struct {
	r *glamour.TermRenderer
}

// NewGlamourRenderer creates a renderer that picks a dark or light style
// from the terminal background and wraps at width.
func NewGlamourRenderer(width int) (MarkdownRenderer, error) {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("create markdown renderer: %w", err)
	}
	return &glamourRenderer{r: r}, nil
}

func (g *glamourRenderer) Render(markdown string) (string, error) {
	return g.r.Render(markdown)
}

// PlainRenderer returns markdown unchanged.
type PlainRenderer struct{}

func (PlainRenderer) Render(markdown string) (string, error) {
	return markdown, nil
}

// NewMarkdownRenderer returns a glamour renderer for standard output and a
// PlainRenderer otherwise, or when glamour cannot be initialized.
func NewMarkdownRenderer(width int) MarkdownRenderer {
	if GetPersonality() != PersonalityStandard {
		return PlainRenderer{}
	}
	r, err := NewGlamourRenderer(width)
	if err != nil {
		return PlainRenderer{}
	}
	return r
}

// RenderComponent prints the run summary: name, validation status,
// remaining errors, file previews and written paths.
func RenderComponent(w io.Writer, v ComponentView, r MarkdownRenderer) error {
	if r == nil {
		r = PlainRenderer{}
	}
	divider := strings.Repeat("=", 60)
	fmt.Fprintln(w)
	fmt.Fprintln(w, Styles.Muted.Render(divider))
	fmt.Fprintf(w, "  Component : %s\n", Styles.Highlight.Render(v.Name))
	if v.Passed {
		fmt.Fprintf(w, "  Validation: %s\n", Styles.Success.Render(string(IconSuccess)+" PASSED"))
	} else {
		fmt.Fprintf(w, "  Validation: %s\n", Styles.Warning.Render(string(IconWarning)+" FAILED (finalized after max retries)"))
		for _, e := range v.Errors {
			Bullet(w, e)
		}
	}

	rendered, err := r.Render(PreviewMarkdown(v))
	if err != nil {
		return fmt.Errorf("render previews: %w", err)
	}
	fmt.Fprintln(w)
	fmt.Fprint(w, rendered)

	if len(v.Files) > 0 {
		fmt.Fprintln(w, "  Files written:")
		for _, f := range v.Files {
			fmt.Fprintf(w, "    %s %s\n", IconArrow, f)
		}
	}
	if v.Summary != "" {
		fmt.Fprintf(w, "  %s\n", Styles.Muted.Render(v.Summary))
	}
	fmt.Fprintln(w, Styles.Muted.Render(divider))
	return nil
}
