// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/AleutianAI/ComponentArchitect/services/architect/datatypes"
	"github.com/AleutianAI/ComponentArchitect/services/architect/design"
)

// Rule names, used as metric labels and in lint output.
const (
	RuleColor     = "color"
	RuleStructure = "structure"
	RuleBraces    = "braces"
	RuleTags      = "tags"
)

// Violation is one rule failure.
type Violation struct {
	Rule    string
	Message string
}

// Rule is a deterministic check over an artifact.
type Rule struct {
	Name  string
	Check func(a *datatypes.Artifact, p *design.Palette) []string
}

// CheckedTags are the elements whose open/close counts must balance.
var CheckedTags = []string{"div", "form", "button", "span", "ul", "li", "section"}

// DefaultRules returns the rules in reporting order.
func DefaultRules() []Rule {
	return []Rule{
		{Name: RuleColor, Check: checkColors},
		{Name: RuleStructure, Check: checkStructure},
		{Name: RuleBraces, Check: checkBraces},
		{Name: RuleTags, Check: checkTags},
	}
}

// Check runs every default rule and returns the violation messages in order.
// It is pure: the same artifact and palette always give the same list.
func Check(a *datatypes.Artifact, p *design.Palette) []string {
	violations := CheckDetailed(a, p)
	out := make([]string, 0, len(violations))
	for _, v := range violations {
		out = append(out, v.Message)
	}
	return out
}

// CheckDetailed is Check with the rule name kept on each violation.
func CheckDetailed(a *datatypes.Artifact, p *design.Palette) []Violation {
	var out []Violation
	for _, rule := range DefaultRules() {
		for _, msg := range rule.Check(a, p) {
			out = append(out, Violation{Rule: rule.Name, Message: msg})
		}
	}
	return out
}

var hexLiteral = regexp.MustCompile(`#[0-9a-fA-F]{3,8}\b`)

// checkColors reports every distinct hex literal outside the palette, in
// order of first occurrence. A literal repeated in the code yields one
// violation, not one per occurrence. HTML numeric character references are
// skipped.
func checkColors(a *datatypes.Artifact, p *design.Palette) []string {
	code := a.Behavior + a.Markup + a.Style
	seen := make(map[string]struct{})
	var out []string
	for _, loc := range hexLiteral.FindAllStringIndex(code, -1) {
		if loc[0] > 0 && code[loc[0]-1] == '&' {
			continue
		}
		literal := code[loc[0]:loc[1]]
		if _, dup := seen[literal]; dup {
			continue
		}
		seen[literal] = struct{}{}
		if p.AllowsColor(literal) {
			continue
		}
		out = append(out, fmt.Sprintf("Unauthorized color: %s — use a design-token color", literal))
	}
	return out
}

var standaloneFlag = regexp.MustCompile(`standalone\s*:\s*true`)

// checkStructure runs even on empty behavior, so an artifact without code
// always fails.
func checkStructure(a *datatypes.Artifact, _ *design.Palette) []string {
	if !strings.Contains(a.Behavior, "@Component") {
		return []string{"Missing @Component decorator in TypeScript file"}
	}
	if !standaloneFlag.MatchString(a.Behavior) {
		return []string{"@Component must include 'standalone: true'"}
	}
	return nil
}

func checkBraces(a *datatypes.Artifact, _ *design.Palette) []string {
	opens := strings.Count(a.Style, "{")
	closes := strings.Count(a.Style, "}")
	if opens != closes {
		return []string{fmt.Sprintf("SCSS syntax error: mismatched braces (open=%d, close=%d)", opens, closes)}
	}
	return nil
}

type tagPatterns struct {
	name      string
	open      *regexp.Regexp
	close     *regexp.Regexp
	selfClose *regexp.Regexp
}

var tagMatchers = func() []tagPatterns {
	out := make([]tagPatterns, 0, len(CheckedTags))
	for _, tag := range CheckedTags {
		out = append(out, tagPatterns{
			name:      tag,
			open:      regexp.MustCompile(`<` + tag + `[\s/>]`),
			close:     regexp.MustCompile(`</` + tag + `\s*>`),
			selfClose: regexp.MustCompile(`<` + tag + `(?:\s[^>]*)?/>`),
		})
	}
	return out
}()

// checkTags counts self-closing tags as opens, so they balance themselves.
func checkTags(a *datatypes.Artifact, _ *design.Palette) []string {
	var out []string
	for _, m := range tagMatchers {
		opens := len(m.open.FindAllStringIndex(a.Markup, -1))
		closes := len(m.close.FindAllStringIndex(a.Markup, -1))
		selfCloses := len(m.selfClose.FindAllStringIndex(a.Markup, -1))
		if opens != closes+selfCloses {
			out = append(out, fmt.Sprintf("HTML tag mismatch for <%s>: %d opened, %d closed", m.name, opens, closes))
		}
	}
	return out
}
