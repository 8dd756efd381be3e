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
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withPersonality sets the level for the duration of the test.
func withPersonality(t *testing.T, level PersonalityLevel) {
	t.Helper()
	prev := GetPersonality()
	SetPersonality(level)
	t.Cleanup(func() { SetPersonality(prev) })
}

// =============================================================================
// Personality Tests
// =============================================================================

func TestParsePersonalityLevel(t *testing.T) {
	tests := map[string]PersonalityLevel{
		"standard": PersonalityStandard,
		"":         PersonalityStandard,
		"unknown":  PersonalityStandard,
		"MINIMAL":  PersonalityMinimal,
		"min":      PersonalityMinimal,
		"machine":  PersonalityMachine,
		" quiet ":  PersonalityMachine,
		"plain":    PersonalityMachine,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParsePersonalityLevel(in), "input %q", in)
	}
}

func TestInitPersonality_EnvOverride(t *testing.T) {
	withPersonality(t, PersonalityStandard)
	t.Setenv(PersonalityEnvVar, "minimal")

	InitPersonality()

	assert.Equal(t, PersonalityMinimal, GetPersonality())
}

func TestIsTerminal_NonTTY(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()

	assert.False(t, IsTerminal(f))
	assert.False(t, IsTerminal(nil))
}

// =============================================================================
// Output Tests
// =============================================================================

func TestOutput_MachineMode(t *testing.T) {
	withPersonality(t, PersonalityMachine)
	var buf bytes.Buffer

	Title(&buf, "hidden")
	Muted(&buf, "hidden too")
	Success(&buf, "written")
	Warning(&buf, "careful")
	Error(&buf, "broken")
	Info(&buf, "plain")
	Bullet(&buf, "item")
	Box(&buf, "Title", "content")
	FileStatus(&buf, "a.ts", IconSuccess, "ok")

	want := "OK: written\nWARN: careful\nERROR: broken\nplain\n  - item\nTitle: content\n✓\ta.ts\tok\n"
	assert.Equal(t, want, buf.String())
}

func TestOutput_StandardMode(t *testing.T) {
	withPersonality(t, PersonalityStandard)
	var buf bytes.Buffer

	Title(&buf, "Component Architect")
	Success(&buf, "written")
	Box(&buf, "Result", "LoginForm")

	out := buf.String()
	assert.Contains(t, out, "Component Architect")
	assert.Contains(t, out, string(IconSuccess))
	assert.Contains(t, out, "written")
	assert.Contains(t, out, "LoginForm")
}

func TestIcon_Render(t *testing.T) {
	for _, icon := range []Icon{IconSuccess, IconWarning, IconError, IconPending, IconArrow, IconBullet} {
		assert.Contains(t, icon.Render(), string(icon))
	}
}

// =============================================================================
// Progress Tests
// =============================================================================

func TestProgress_Plain(t *testing.T) {
	withPersonality(t, PersonalityMachine)
	var buf bytes.Buffer
	p := NewProgress(&buf, false)

	// Act
	p.Start("Generating")
	p.Status("Generating")
	p.Step("generator: LoginForm")
	p.Status("Validating")
	p.Stop()
	p.Step("after stop")

	// Assert
	want := "PROGRESS: Generating\ngenerator: LoginForm\nPROGRESS: Validating\n"
	assert.Equal(t, want, buf.String())
}

func TestProgress_StopWithoutStart(t *testing.T) {
	p := NewProgress(&bytes.Buffer{}, true)
	p.Stop()
	p.Status("ignored")
}

func TestProgress_Interactive(t *testing.T) {
	withPersonality(t, PersonalityStandard)
	var buf bytes.Buffer
	p := NewProgress(&buf, true)

	// Act
	p.Start("Generating")
	p.Step("generator done")
	p.Status("Validating")
	p.Stop()

	// Assert
	assert.Contains(t, buf.String(), "generator done")
}

func TestProgressModel_Update(t *testing.T) {
	m := newProgressModel("Generating")

	next, _ := m.Update(stepMsg("step one"))
	next, _ = next.Update(statusMsg("Validating"))
	view := next.View()
	assert.Contains(t, view, "step one")
	assert.Contains(t, view, "Validating")

	next, cmd := next.Update(stopMsg{})
	require.NotNil(t, cmd)
	assert.Equal(t, "step one\n", next.View())
}

func TestWithProgress_Error(t *testing.T) {
	withPersonality(t, PersonalityMachine)
	var buf bytes.Buffer
	boom := errors.New("boom")

	err := WithProgress(&buf, false, "Generating", func(p *Progress) error {
		p.Step("partial")
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Contains(t, buf.String(), "ERROR: Generating: boom")
}

// =============================================================================
// Renderer Tests
// =============================================================================

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello world", 5, "hello..."},
		{"ünïcödé", 3, "ünï..."},
		{"anything", 0, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Truncate(tt.in, tt.n))
	}
}

func TestPreviewMarkdown_Limits(t *testing.T) {
	v := ComponentView{
		Behavior: strings.Repeat("t", 600),
		Markup:   strings.Repeat("h", 600),
		Style:    strings.Repeat("s", 400),
	}

	md := PreviewMarkdown(v)

	assert.Contains(t, md, "```typescript\n"+strings.Repeat("t", PreviewBehaviorChars)+"...\n```")
	assert.Contains(t, md, "```html\n"+strings.Repeat("h", PreviewMarkupChars)+"...\n```")
	assert.Contains(t, md, "```scss\n"+strings.Repeat("s", PreviewStyleChars)+"...\n```")
	assert.NotContains(t, md, strings.Repeat("s", PreviewStyleChars+1))
}

func TestRenderComponent_Plain(t *testing.T) {
	withPersonality(t, PersonalityMachine)
	var buf bytes.Buffer
	v := ComponentView{
		Name:     "LoginForm",
		Behavior: "export class LoginForm {}",
		Markup:   "<form></form>",
		Style:    ".a { color: red; }",
		Errors:   []string{"Unauthorized color '#123456'"},
		Files:    []string{"components/login-form/login-form.component.ts"},
		Summary:  "Built 'LoginForm'",
	}

	// Act
	err := RenderComponent(&buf, v, nil)

	// Assert
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Component : LoginForm")
	assert.Contains(t, out, "FAILED (finalized after max retries)")
	assert.Contains(t, out, "  - Unauthorized color '#123456'")
	assert.Contains(t, out, "export class LoginForm {}")
	assert.Contains(t, out, "components/login-form/login-form.component.ts")
	assert.Contains(t, out, "Built 'LoginForm'")
}

func TestRenderComponent_Glamour(t *testing.T) {
	withPersonality(t, PersonalityStandard)
	r, err := NewGlamourRenderer(80)
	require.NoError(t, err)
	var buf bytes.Buffer

	err = RenderComponent(&buf, ComponentView{Name: "Card", Behavior: "export class Card {}", Passed: true}, r)

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "PASSED")
	assert.Contains(t, buf.String(), "Card")
}

type failingRenderer struct{}

func (failingRenderer) Render(string) (string, error) { return "", errors.New("no style") }

func TestRenderComponent_RendererError(t *testing.T) {
	err := RenderComponent(&bytes.Buffer{}, ComponentView{Name: "X"}, failingRenderer{})
	assert.ErrorContains(t, err, "render previews")
}

func TestNewMarkdownRenderer_PlainOutsideStandard(t *testing.T) {
	withPersonality(t, PersonalityMinimal)
	_, ok := NewMarkdownRenderer(80).(PlainRenderer)
	assert.True(t, ok)
}

// =============================================================================
// Reader Tests
// =============================================================================

func TestLineReader(t *testing.T) {
	var out bytes.Buffer
	r := NewLineReader(strings.NewReader("  login form  \nexit\n"), &out)
	ctx := context.Background()

	first, err := r.ReadLine(ctx, "You: ")
	require.NoError(t, err)
	second, err := r.ReadLine(ctx, "You: ")
	require.NoError(t, err)
	_, err = r.ReadLine(ctx, "You: ")

	assert.Equal(t, "login form", first)
	assert.Equal(t, "exit", second)
	assert.ErrorIs(t, err, ErrInputClosed)
	assert.Equal(t, "You: You: You: ", out.String())
}

func TestLineReader_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLineReader(strings.NewReader("x\n"), nil).ReadLine(ctx, "")

	assert.ErrorIs(t, err, context.Canceled)
}

func TestInputModel_Keys(t *testing.T) {
	m := newInputModel("You: ")
	m.input.SetValue("  a card  ")

	next, cmd := m.Update(enterKey())
	require.NotNil(t, cmd)
	final := next.(inputModel)
	assert.True(t, final.submitted)
	assert.Equal(t, "You:   a card  \n", final.View())

	next, _ = newInputModel("").Update(ctrlCKey())
	assert.True(t, next.(inputModel).canceled)
}

func enterKey() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyEnter} }

func ctrlCKey() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyCtrlC} }

// =============================================================================
// Chat UI Tests
// =============================================================================

func TestChatUI_Machine(t *testing.T) {
	var buf bytes.Buffer
	ui := NewChatUI(&buf, PersonalityMachine)

	ui.Header(HeaderConfig{Backend: "groq", Model: "m", OutputDir: "out", Critic: true, MaxRetries: 2})
	ui.NewSession()
	ui.Goodbye()

	assert.Equal(t, "component-architect backend=groq model=m output=out critic=true max_retries=2\nSESSION: new\n", buf.String())
	assert.Equal(t, "> ", ui.Prompt())
}

func TestChatUI_Standard(t *testing.T) {
	withPersonality(t, PersonalityStandard)
	var buf bytes.Buffer
	ui := NewChatUI(&buf, PersonalityStandard)

	ui.Header(HeaderConfig{Backend: "ollama", Model: "llama3", OutputDir: "generated_project", MaxRetries: 2})
	ui.Error(errors.New("gateway down"))
	ui.Goodbye()

	out := buf.String()
	assert.Contains(t, out, "Component Architect")
	assert.Contains(t, out, "ollama")
	assert.Contains(t, out, "off, 2 retries")
	assert.Contains(t, out, "gateway down")
	assert.Contains(t, out, "Goodbye!")
	assert.Contains(t, ui.Prompt(), "You:")
}
