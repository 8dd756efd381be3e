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
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

type (
	statusMsg string
	stepMsg   string
	stopMsg   struct{}
)

// progressModel is the bubbletea model behind an interactive Progress.
type progressModel struct {
	spinner spinner.Model
	status  string
	steps   []string
	done    bool
}

func newProgressModel(status string) progressModel {
	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(Styles.Highlight),
	)
	return progressModel{spinner: sp, status: status}
}

func (m progressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case statusMsg:
		m.status = string(msg)
		return m, nil
	case stepMsg:
		m.steps = append(m.steps, string(msg))
		return m, nil
	case stopMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m progressModel) View() string {
	var b strings.Builder
	for _, s := range m.steps {
		b.WriteString(s)
		b.WriteString("\n")
	}
	if !m.done {
		b.WriteString(m.spinner.View())
		b.WriteString(" ")
		b.WriteString(m.status)
		b.WriteString("\n")
	}
	return b.String()
}

// Progress shows live pipeline progress.
//
// Interactive progress runs a bubbletea program with a spinner line under
// the completed steps. Otherwise each status and step is printed as a plain
// line as it arrives.
//
// Thread Safety: Progress is safe for concurrent use.
type Progress struct {
	w           io.Writer
	interactive bool

	mu      sync.Mutex
	program *tea.Program
	done    chan struct{}
	running bool
	last    string
}

// NewProgress creates a Progress that writes to w.
func NewProgress(w io.Writer, interactive bool) *Progress {
	return &Progress{w: w, interactive: interactive}
}

// Start begins showing status. Calling Start on a running Progress is a no-op.
func (p *Progress) Start(status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true

	if !p.interactive {
		p.printStatus(status)
		return
	}

	p.program = tea.NewProgram(newProgressModel(status),
		tea.WithOutput(p.w),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	)
	p.done = make(chan struct{})
	go func(prog *tea.Program, done chan struct{}) {
		defer close(done)
		_, _ = prog.Run()
	}(p.program, p.done)
}

// Status replaces the spinner text.
func (p *Progress) Status(status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	if !p.interactive {
		p.printStatus(status)
		return
	}
	p.program.Send(statusMsg(status))
}

// Step records a completed step above the spinner.
func (p *Progress) Step(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	if !p.interactive {
		fmt.Fprintln(p.w, line)
		return
	}
	p.program.Send(stepMsg(line))
}

// Stop ends the display and waits for the final frame.
func (p *Progress) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	prog, done := p.program, p.done
	p.program, p.done = nil, nil
	p.mu.Unlock()

	if prog == nil {
		return
	}
	prog.Send(stopMsg{})
	<-done
}

// printStatus writes a status line, skipping repeats. Callers hold mu.
func (p *Progress) printStatus(status string) {
	if status == "" || status == p.last {
		return
	}
	p.last = status
	if GetPersonality() == PersonalityMachine {
		fmt.Fprintf(p.w, "PROGRESS: %s\n", status)
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", Styles.Muted.Render(string(IconPending)), status)
}

// WithProgress runs fn while showing message, then prints the outcome.
func WithProgress(w io.Writer, interactive bool, message string, fn func(p *Progress) error) error {
	p := NewProgress(w, interactive)
	p.Start(message)
	err := fn(p)
	p.Stop()
	if err != nil {
		Error(w, fmt.Sprintf("%s: %v", message, err))
		return err
	}
	return nil
}
