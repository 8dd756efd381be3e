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
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// ErrInputClosed is returned when the user ends input (EOF, Ctrl+C, Ctrl+D).
var ErrInputClosed = errors.New("input closed")

// InputReader reads one line of user input.
type InputReader interface {
	ReadLine(ctx context.Context, prompt string) (string, error)
}

// LineReader reads lines from any io.Reader. Used for piped input and tests.
type LineReader struct {
	out     io.Writer
	scanner *bufio.Scanner
}

// NewLineReader creates a LineReader that echoes prompts to out.
func NewLineReader(in io.Reader, out io.Writer) *LineReader {
	return &LineReader{out: out, scanner: bufio.NewScanner(in)}
}

// ReadLine prints prompt and returns the next line, trimmed.
func (r *LineReader) ReadLine(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if prompt != "" && r.out != nil {
		fmt.Fprint(r.out, prompt)
	}
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", fmt.Errorf("read input: %w", err)
		}
		return "", ErrInputClosed
	}
	return strings.TrimSpace(r.scanner.Text()), nil
}

// inputModel is a single-line bubbletea text input.
type inputModel struct {
	input     textinput.Model
	submitted bool
	canceled  bool
}

func newInputModel(prompt string) inputModel {
	ti := textinput.New()
	ti.Prompt = prompt
	ti.Placeholder = "Describe a component, or 'new' / 'exit'"
	ti.PromptStyle = Styles.Highlight
	ti.CharLimit = 4000
	ti.Width = 76
	ti.Focus()
	return inputModel{input: ti}
}

func (m inputModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m inputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.submitted = true
			return m, tea.Quit
		case tea.KeyCtrlC, tea.KeyCtrlD, tea.KeyEsc:
			m.canceled = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m inputModel) View() string {
	if m.submitted || m.canceled {
		return m.input.Prompt + m.input.Value() + "\n"
	}
	return m.input.View()
}

// InteractiveReader reads input with a bubbletea text field.
type InteractiveReader struct {
	in  io.Reader
	out io.Writer
}

// NewInteractiveReader creates an InteractiveReader on the given terminal
// streams.
func NewInteractiveReader(in io.Reader, out io.Writer) *InteractiveReader {
	return &InteractiveReader{in: in, out: out}
}

// ReadLine shows the input field and returns the submitted line, trimmed.
func (r *InteractiveReader) ReadLine(ctx context.Context, prompt string) (string, error) {
	prog := tea.NewProgram(newInputModel(prompt),
		tea.WithContext(ctx),
		tea.WithInput(r.in),
		tea.WithOutput(r.out),
	)
	final, err := prog.Run()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("read input: %w", err)
	}
	m, ok := final.(inputModel)
	if !ok || m.canceled {
		return "", ErrInputClosed
	}
	return strings.TrimSpace(m.input.Value()), nil
}

var (
	_ InputReader = (*LineReader)(nil)
	_ InputReader = (*InteractiveReader)(nil)
)
