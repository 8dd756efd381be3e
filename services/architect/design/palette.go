// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package design loads the design-token palette that every generated
// component must conform to.
//
// A Palette is immutable once parsed and may be shared across goroutines
// without synchronization. Sources decide how often a palette is re-read.
package design

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed design_system.json
var defaultPaletteJSON []byte

// ErrEmptyPalette is returned when a palette defines no tokens.
var ErrEmptyPalette = errors.New("palette defines no tokens")

// Format selects the palette file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath picks a Format from a file extension. Unknown extensions are JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Palette is the set of design tokens and preferred utility classes.
type Palette struct {
	// Tokens maps token names to values. Values starting with "#" are colors.
	Tokens map[string]string `json:"tokens" yaml:"tokens"`

	// UtilityClasses maps a role (e.g. "primary-button") to Tailwind classes.
	UtilityClasses map[string][]string `json:"tailwind_classes" yaml:"tailwind_classes"`

	// colors holds the lowercased color values as written.
	colors map[string]struct{}
}

// Parse decodes and indexes a palette.
//
// Inputs:
//
//	data - Encoded palette with "tokens" and optional "tailwind_classes".
//	format - FormatJSON or FormatYAML.
//
// Outputs:
//
//	*Palette - The parsed palette, ready for concurrent reads.
//	error - Decode failure or ErrEmptyPalette.
func Parse(data []byte, format Format) (*Palette, error) {
	var p Palette
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &p)
	default:
		err = json.Unmarshal(data, &p)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s palette: %w", format, err)
	}
	if len(p.Tokens) == 0 {
		return nil, ErrEmptyPalette
	}
	if p.UtilityClasses == nil {
		p.UtilityClasses = map[string][]string{}
	}

	p.colors = make(map[string]struct{})
	for _, v := range p.Tokens {
		v = strings.ToLower(strings.TrimSpace(v))
		if strings.HasPrefix(v, "#") {
			p.colors[v] = struct{}{}
		}
	}
	return &p, nil
}

var defaultPalette = sync.OnceValue(func() *Palette {
	p, err := Parse(defaultPaletteJSON, FormatJSON)
	if err != nil {
		panic(fmt.Sprintf("embedded design system is invalid: %v", err))
	}
	return p
})

// Default returns the embedded palette.
func Default() *Palette {
	return defaultPalette()
}

// AllowsColor reports whether a "#hex" literal is a palette color.
//
// The comparison is case-insensitive and accepts both the literal and its
// six-digit expansion when the literal uses three-digit shorthand. Only the
// literal is expanded: a "#fff" token does not admit "#ffffff".
func (p *Palette) AllowsColor(literal string) bool {
	lit := strings.ToLower(literal)
	if _, ok := p.colors[lit]; ok {
		return true
	}
	_, ok := p.colors[ExpandHex(lit)]
	return ok
}

// Colors returns the palette's color values, sorted.
func (p *Palette) Colors() []string {
	out := make([]string, 0, len(p.colors))
	for _, v := range p.Tokens {
		v = strings.ToLower(strings.TrimSpace(v))
		if strings.HasPrefix(v, "#") && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return out
}

// TokensJSON renders the tokens as indented JSON with sorted keys, for prompts.
func (p *Palette) TokensJSON() string {
	data, _ := json.MarshalIndent(p.Tokens, "", "  ")
	return string(data)
}

// ClassesJSON renders the utility-class map as indented JSON with sorted keys.
func (p *Palette) ClassesJSON() string {
	data, _ := json.MarshalIndent(p.UtilityClasses, "", "  ")
	return string(data)
}

// ExpandHex expands "#abc" to "#aabbcc". Other inputs are returned unchanged.
func ExpandHex(literal string) string {
	if len(literal) != 4 || literal[0] != '#' {
		return literal
	}
	var b strings.Builder
	b.WriteByte('#')
	for i := 1; i < 4; i++ {
		b.WriteByte(literal[i])
		b.WriteByte(literal[i])
	}
	return b.String()
}
