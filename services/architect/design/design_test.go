// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package design

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlPalette = `
tokens:
  primary: "#FFF"
  ink: "#123456"
  radius: 8px
tailwind_classes:
  card: ["p-4", "rounded-lg"]
`

// =============================================================================
// Palette Tests
// =============================================================================

func TestDefault_ContainsCoreTokens(t *testing.T) {
	p := Default()

	for _, c := range []string{"#6366f1", "#4f46e5", "#06b6d4", "#1e293b", "#0f172a"} {
		assert.True(t, p.AllowsColor(c), c)
	}
	assert.NotEmpty(t, p.UtilityClasses["primary-button"])
	assert.Same(t, p, Default(), "embedded palette is parsed once")
}

func TestParse_YAML(t *testing.T) {
	p, err := Parse([]byte(yamlPalette), FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, []string{"#123456", "#fff"}, p.Colors())
	assert.Equal(t, []string{"p-4", "rounded-lg"}, p.UtilityClasses["card"])
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte(`{"tokens": {}}`), FormatJSON)
	assert.ErrorIs(t, err, ErrEmptyPalette)

	_, err = Parse([]byte(`{not json`), FormatJSON)
	assert.Error(t, err)
}

func TestPalette_AllowsColor(t *testing.T) {
	p, err := Parse([]byte(yamlPalette), FormatYAML)
	require.NoError(t, err)

	tests := []struct {
		literal string
		want    bool
	}{
		{"#123456", true},
		{"#123ABC", false},
		{"#fff", true},
		{"#FFF", true},
		{"#FFFFFF", false}, // palette shorthand is not expanded
		{"#ffffff", false},
		{"#000", false},
	}
	for _, tt := range tests {
		t.Run(tt.literal, func(t *testing.T) {
			assert.Equal(t, tt.want, p.AllowsColor(tt.literal))
		})
	}
}

func TestPalette_AllowsColor_LiteralShorthand(t *testing.T) {
	p, err := Parse([]byte(`{"tokens":{"white":"#ffffff"}}`), FormatJSON)
	require.NoError(t, err)

	assert.True(t, p.AllowsColor("#FFF"))
}

func TestExpandHex(t *testing.T) {
	assert.Equal(t, "#aabbcc", ExpandHex("#abc"))
	assert.Equal(t, "#abcd", ExpandHex("#abcd"))
	assert.Equal(t, "abc", ExpandHex("abc"))
}

func TestPalette_PromptRendering(t *testing.T) {
	p := Default()

	assert.Contains(t, p.TokensJSON(), `"primary": "#6366f1"`)
	assert.Contains(t, p.ClassesJSON(), `"primary-button": [`)
}

func TestFormatForPath(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatForPath("tokens.YML"))
	assert.Equal(t, FormatYAML, FormatForPath("/etc/design.yaml"))
	assert.Equal(t, FormatJSON, FormatForPath("design_system.json"))
	assert.Equal(t, FormatJSON, FormatForPath("noext"))
}

// =============================================================================
// Source Tests
// =============================================================================

func TestStaticSource(t *testing.T) {
	src := NewStaticSource(nil)

	p, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Same(t, Default(), p)
}

func TestFileSource_LoadCachesUntilReload(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "design.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlPalette), 0600))
	src := NewFileSource(path, nil)

	// Act
	first, err := src.Load(context.Background())
	require.NoError(t, err)
	second, err := src.Load(context.Background())
	require.NoError(t, err)

	// Assert
	assert.Same(t, first, second)

	require.NoError(t, os.WriteFile(path, []byte("tokens:\n  ink: \"#000000\"\n"), 0600))
	require.NoError(t, src.Reload(context.Background()))
	third, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, third.AllowsColor("#000"))
	assert.False(t, third.AllowsColor("#123456"))
}

func TestFileSource_MissingFile(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "missing.json"), nil)

	_, err := src.Load(context.Background())
	assert.Error(t, err)
}

func TestFileSource_BadReloadKeepsPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "design.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"tokens":{"a":"#abcdef"}}`), 0600))
	src := NewFileSource(path, nil)
	first, err := src.Load(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`{broken`), 0600))
	require.NoError(t, src.Reload(context.Background()))

	p, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, p)
}

func TestFileSource_ConcurrentLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "design.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"tokens":{"a":"#abcdef"}}`), 0600))
	src := NewFileSource(path, nil)

	var wg sync.WaitGroup
	results := make([]*Palette, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := src.Load(context.Background())
			assert.NoError(t, err)
			results[i] = p
		}(i)
	}
	wg.Wait()

	for _, p := range results {
		require.NotNil(t, p)
		assert.True(t, p.AllowsColor("#abcdef"))
	}
}

func TestFileSource_CanceledContext(t *testing.T) {
	src := NewFileSource("unused.json", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := src.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileSource_WatchPicksUpChanges(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "design.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"tokens":{"a":"#abcdef"}}`), 0600))
	src := NewFileSource(path, nil)
	_, err := src.Load(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- src.Watch(ctx) }()
	time.Sleep(100 * time.Millisecond)

	// Act
	require.NoError(t, os.WriteFile(path, []byte(`{"tokens":{"b":"#010203"}}`), 0600))

	// Assert
	assert.Eventually(t, func() bool {
		p, err := src.Load(context.Background())
		return err == nil && p.AllowsColor("#010203")
	}, 3*time.Second, 50*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
