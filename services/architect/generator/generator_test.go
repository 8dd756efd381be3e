// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package generator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/AleutianAI/ComponentArchitect/services/architect/datatypes"
	"github.com/AleutianAI/ComponentArchitect/services/architect/design"
	"github.com/AleutianAI/ComponentArchitect/services/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validReply = `{
  "component_name": "LoginFormComponent",
  "typescript_code": "@Component({ selector: 'app-login-form', standalone: true })\nexport class LoginFormComponent {}",
  "html_template": "<form class=\"p-4\"><button>Go</button></form>",
  "scss_styles": ":host { display: block; }"
}`

// =============================================================================
// ParseArtifact Tests
// =============================================================================

func TestParseArtifact_Clean(t *testing.T) {
	p, err := ParseArtifact(validReply)
	require.NoError(t, err)

	assert.Equal(t, "LoginFormComponent", p.Name)
	assert.Contains(t, p.Markup, `class="p-4"`)
	assert.Equal(t, ":host { display: block; }", p.Style)
}

func TestParseArtifact_ProseWrapped(t *testing.T) {
	raw := "Sure! Here is the component:\n" + validReply + "\nLet me know if you need anything else."

	p, err := ParseArtifact(raw)
	require.NoError(t, err)
	assert.Equal(t, "LoginFormComponent", p.Name)
}

func TestParseArtifact_FencedWithInnerMarkers(t *testing.T) {
	// The inner marker sits between '{' and '}', so only the fallback pass
	// that strips markers can decode it.
	raw := "```json\n{```json\n\"component_name\": \"CardComponent\", \"typescript_code\": \"@Component({})\", \"html_template\": \"<div></div>\", \"scss_styles\": \"\"}\n```"

	p, err := ParseArtifact(raw)
	require.NoError(t, err)
	assert.Equal(t, "CardComponent", p.Name)
}

func TestParseArtifact_UnescapesDoubleEscapedQuotes(t *testing.T) {
	raw := `{"component_name":"A","typescript_code":"x","html_template":"<div class=\\\"p-4\\\"></div>","scss_styles":""}`

	p, err := ParseArtifact(raw)
	require.NoError(t, err)
	assert.Equal(t, `<div class="p-4"></div>`, p.Markup)
}

func TestParseArtifact_Failures(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		missing bool
	}{
		{name: "no json", raw: "I cannot help with that."},
		{name: "truncated", raw: `{"component_name": "A", "typescript_code": "x`},
		{name: "missing html", raw: `{"component_name":"A","typescript_code":"x","scss_styles":""}`, missing: true},
		{name: "empty typescript", raw: `{"typescript_code":"","html_template":"<div></div>"}`, missing: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseArtifact(tt.raw)

			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.raw, pe.Raw)
			assert.Equal(t, tt.missing, errors.Is(err, ErrMissingPayload))
		})
	}
}

func TestFallbackName(t *testing.T) {
	assert.Equal(t, "BuildComponent", FallbackName("build a login form"))
	assert.Equal(t, "LoginComponent", FallbackName("  LOGIN card"))
	assert.Equal(t, "42Component", FallbackName("42 widgets"))
	assert.Equal(t, "GeneratedComponent", FallbackName("!!! ???"))
	assert.Equal(t, "GeneratedComponent", FallbackName(""))
}

// =============================================================================
// Prompt Tests
// =============================================================================

func TestBuildMessages_Order(t *testing.T) {
	history := []datatypes.Message{
		{Role: datatypes.RoleUser, Content: "first"},
		{Role: datatypes.RoleAssistant, Content: "Generated component 'X' successfully."},
	}

	msgs := BuildMessages(design.Default(), Input{Prompt: "a card", History: history})

	require.Len(t, msgs, 4)
	assert.Equal(t, datatypes.RoleSystem, msgs[0].Role)
	assert.Equal(t, history, msgs[1:3])
	assert.Equal(t, datatypes.Message{Role: datatypes.RoleUser, Content: "Generate an Angular component for: a card"}, msgs[3])
	assert.NotContains(t, msgs[0].Content, ErrorBlockHeader)
}

func TestSystemPrompt_ListsPriorErrors(t *testing.T) {
	errs := []string{"Unauthorized color: #123456 — use a design-token color", "Missing @Component decorator in TypeScript file"}

	prompt := SystemPrompt(design.Default(), errs)

	assert.Contains(t, prompt, ErrorBlockHeader)
	for _, e := range errs {
		assert.Contains(t, prompt, "- "+e+"\n")
	}
	assert.Contains(t, prompt, `"primary": "#6366f1"`)
	assert.Contains(t, prompt, "standalone: true")
}

// =============================================================================
// Generate Tests
// =============================================================================

func TestGenerate_Success(t *testing.T) {
	// Arrange
	mock := llm.NewMockClient().QueueResponse(validReply)
	g := New(mock, nil)

	// Act
	a, err := g.Generate(context.Background(), Input{Prompt: "login form", Attempt: 1, PriorErrors: []string{"fix me"}})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "LoginFormComponent", a.Name)
	assert.Equal(t, 1, a.Attempt)
	assert.Empty(t, a.GenerationError)
	assert.False(t, a.Passed)
	assert.Equal(t, 1, mock.CallCount(), "exactly one gateway call")
	assert.Contains(t, mock.LastMessages()[0].Content, "- fix me")
}

func TestGenerate_MissingNameFallsBack(t *testing.T) {
	mock := llm.NewMockClient().QueueResponse(`{"typescript_code":"@Component({})","html_template":"<div></div>","scss_styles":""}`)

	a, err := New(mock, nil).Generate(context.Background(), Input{Prompt: "pricing table"})
	require.NoError(t, err)
	assert.Equal(t, "PricingComponent", a.Name)
}

func TestGenerate_ParseFailureYieldsSyntheticArtifact(t *testing.T) {
	mock := llm.NewMockClient().QueueResponse("sorry, no JSON today")

	a, err := New(mock, nil).Generate(context.Background(), Input{Prompt: "build a login form", Attempt: 1})

	require.NoError(t, err)
	assert.Equal(t, "BuildComponent", a.Name)
	assert.False(t, a.HasPayload())
	assert.Equal(t, 1, a.Attempt)
	assert.True(t, strings.HasPrefix(a.GenerationError, "JSON Error: "))
	assert.True(t, strings.HasSuffix(a.GenerationError,
		"Focus on providing ONLY a JSON object with keys: component_name, typescript_code, html_template, scss_styles."))
}

func TestGenerate_GatewayFailure(t *testing.T) {
	mock := llm.NewMockClient().WithError(errors.New("connection refused"))

	a, err := New(mock, nil).Generate(context.Background(), Input{Prompt: "x"})

	assert.Nil(t, a)
	assert.ErrorIs(t, err, llm.ErrGatewayUnavailable)
	var ge *llm.GatewayError
	assert.ErrorAs(t, err, &ge)
}

type failingSource struct{}

func (failingSource) Load(context.Context) (*design.Palette, error) {
	return nil, errors.New("disk on fire")
}

func TestGenerate_PaletteFailureSkipsGateway(t *testing.T) {
	mock := llm.NewMockClient()

	_, err := New(mock, failingSource{}).Generate(context.Background(), Input{Prompt: "x"})

	assert.ErrorContains(t, err, "disk on fire")
	assert.Zero(t, mock.CallCount())
}

func TestGenerate_PassesParams(t *testing.T) {
	mock := llm.NewMockClient().QueueResponse(validReply)
	g := New(mock, nil, WithParams(llm.GenerationParams{Temperature: llm.Float32(0.3)}), WithLogger(nil))

	_, err := g.Generate(context.Background(), Input{Prompt: "x"})
	require.NoError(t, err)

	calls := mock.GetCalls()
	require.Len(t, calls, 1)
	require.NotNil(t, calls[0].Params.Temperature)
	assert.InDelta(t, 0.3, *calls[0].Params.Temperature, 0.0001)
}
