// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package preview renders a generated component as a standalone HTML page.
//
// The page loads Tailwind from its CDN, exposes the palette tokens as CSS
// custom properties, converts the SCSS to plain CSS, and strips Angular
// template syntax so the layout renders in a browser without a build.
package preview

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"github.com/AleutianAI/ComponentArchitect/services/architect/design"
)

//go:embed page.html.tmpl
var pageSource string

var page = template.Must(template.New("preview").Parse(pageSource))

var (
	scssVarDecl = regexp.MustCompile(`\$([a-zA-Z0-9_-]+)\s*:\s*([^;]+);`)
	rgbaHex     = regexp.MustCompile(`rgba\(#([0-9a-fA-F]{3,6}),\s*([^)]+)\)`)
	parentColon = regexp.MustCompile(`&:`)

	// Applied in order.
	angularSyntax = []*regexp.Regexp{
		regexp.MustCompile(`\s*\*ngIf="[^"]*"`),
		regexp.MustCompile(`\s*\*ngFor="[^"]*"`),
		regexp.MustCompile(`@if\s*\([^)]*\)\s*\{`),
		regexp.MustCompile(`@for\s*\([^)]*\)\s*\{`),
		regexp.MustCompile(`@empty\s*\{`),
		regexp.MustCompile(`@switch\s*\([^)]*\)\s*\{`),
		regexp.MustCompile(`@case\s*\([^)]*\)\s*\{`),
		regexp.MustCompile(`@default\s*\{`),
		regexp.MustCompile(`\}`),
		regexp.MustCompile(`\s*\[\(ngModel\)\]="[^"]*"`),
		regexp.MustCompile(`\s*\(ngSubmit\)="[^"]*"`),
		regexp.MustCompile(`\s*\([a-zA-Z]+\)="[^"]*"`),
		regexp.MustCompile(`\s*\[[a-zA-Z]+\]="[^"]*"`),
	}
	interpolation = regexp.MustCompile(`\{\{[^}]*\}\}`)
)

// SCSSToCSS applies the light conversion the preview needs: SCSS variables
// are inlined and their declarations dropped, rgba(#hex, a) becomes
// rgba(r,g,b,a), and "&:" becomes ":".
func SCSSToCSS(scss string) string {
	vars := map[string]string{}
	var names []string
	for _, m := range scssVarDecl.FindAllStringSubmatch(scss, -1) {
		if _, seen := vars[m[1]]; !seen {
			names = append(names, m[1])
		}
		vars[m[1]] = strings.TrimSpace(m[2])
	}
	css := scssVarDecl.ReplaceAllString(scss, "")

	// Longest names first so $primary does not clobber $primary-hover.
	sort.SliceStable(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })
	for _, name := range names {
		css = strings.ReplaceAll(css, "$"+name, vars[name])
	}

	css = rgbaHex.ReplaceAllStringFunc(css, func(match string) string {
		m := rgbaHex.FindStringSubmatch(match)
		hex := strings.TrimPrefix(design.ExpandHex("#"+m[1]), "#")
		if len(hex) != 6 {
			return match
		}
		r, _ := strconv.ParseUint(hex[0:2], 16, 8)
		g, _ := strconv.ParseUint(hex[2:4], 16, 8)
		b, _ := strconv.ParseUint(hex[4:6], 16, 8)
		return fmt.Sprintf("rgba(%d,%d,%d,%s)", r, g, b, m[2])
	})

	return parentColon.ReplaceAllString(css, ":")
}

// StripAngular replaces {{ }} interpolations with an ellipsis and removes
// structural directives, control-flow blocks and bindings.
func StripAngular(markup string) string {
	// Interpolations go first; the block pass drops every closing brace.
	markup = interpolation.ReplaceAllString(markup, "…")
	for _, re := range angularSyntax {
		markup = re.ReplaceAllString(markup, "")
	}
	return markup
}

type pageData struct {
	Name        string
	TokenVars   string
	ColorConfig string
	CSS         string
	Markup      string
}

// BuildHTML renders the preview page for one component.
//
// Inputs:
//
//	name - Shown in the title and the banner.
//	markup - The .component.html content.
//	style - The .component.scss content.
//	palette - Tokens to expose. Nil uses design.Default().
//
// Outputs:
//
//	string - A complete HTML document.
func BuildHTML(name, markup, style string, palette *design.Palette) string {
	if palette == nil {
		palette = design.Default()
	}

	keys := make([]string, 0, len(palette.Tokens))
	for k := range palette.Tokens {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var vars strings.Builder
	colors := map[string]string{}
	for _, k := range keys {
		v := palette.Tokens[k]
		fmt.Fprintf(&vars, "      --%s: %s;\n", k, v)
		if strings.HasPrefix(strings.TrimSpace(v), "#") {
			colors[k] = v
		}
	}
	colorJSON, _ := json.Marshal(colors)

	var buf bytes.Buffer
	// The template only references pageData fields, so Execute cannot fail.
	_ = page.Execute(&buf, pageData{
		Name:        name,
		TokenVars:   strings.TrimRight(vars.String(), "\n"),
		ColorConfig: string(colorJSON),
		CSS:         SCSSToCSS(style),
		Markup:      StripAngular(markup),
	})
	return buf.String()
}
