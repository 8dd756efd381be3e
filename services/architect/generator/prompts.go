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
	"fmt"
	"strings"

	"github.com/AleutianAI/ComponentArchitect/services/architect/datatypes"
	"github.com/AleutianAI/ComponentArchitect/services/architect/design"
)

// UserTurnPrefix starts the final user message of every generation call.
const UserTurnPrefix = "Generate an Angular component for: "

// ErrorBlockHeader introduces the prior validation errors in the system message.
const ErrorBlockHeader = "PREVIOUS VALIDATION ERRORS — you MUST fix ALL of these before responding:"

const systemTemplate = `You are an expert Angular component developer. Adhere to every rule below absolutely.

OUTPUT FORMAT:
  Respond ONLY with a valid JSON object.
  No markdown, no explanation, no code fences.

DESIGN SYSTEM:
  Use ONLY the colors and tokens defined below. No other colors are permitted.

FRAMEWORK:
  Generate Angular 17+ standalone components using Tailwind CSS utility classes.
  Do NOT use Angular Material. Tailwind only.

REQUIRED JSON KEYS (exactly these four, no others):
  component_name   : PascalCase name, e.g. "LoginCardComponent"
  typescript_code  : Full .component.ts file content
  html_template    : Full .component.html file content
  scss_styles      : Full .component.scss file content

-------------------------------------------
DESIGN TOKENS (only these hex values allowed):
%s

TAILWIND CLASS MAPPINGS (prefer these exact classes):
%s
-------------------------------------------

ANGULAR COMPONENT RULES:
  TypeScript:
    - Decorator: @Component with standalone: true, selector, and templateUrl / styleUrls
    - Import CommonModule in the imports array
    - Use proper TypeScript typing throughout

  HTML:
    - Use Tailwind utility classes for all layout and spacing
    - Reference design-token colors via their exact hex values when inline styles are needed
    - Avoid unclosed tags: every opened tag must be properly closed

  SCSS:
    - Minimal: prefer Tailwind classes; only add SCSS for complex animations or glassmorphism
    - Glassmorphism effect (use when relevant):
        backdrop-filter: blur(10px);
        background: rgba(30, 41, 59, 0.7);
    - All color values in SCSS must match a design-token hex value exactly
    - Ensure all braces are balanced (every { must have a matching })
`

// SystemPrompt renders the output contract, the palette and, when non-empty,
// the list of errors the next attempt must fix.
func SystemPrompt(palette *design.Palette, priorErrors []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, systemTemplate, palette.TokensJSON(), palette.ClassesJSON())
	if len(priorErrors) > 0 {
		b.WriteString("\n")
		b.WriteString(ErrorBlockHeader)
		b.WriteString("\n")
		for _, e := range priorErrors {
			b.WriteString("- ")
			b.WriteString(e)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// BuildMessages returns the system message, then history in order, then the
// user turn for prompt.
func BuildMessages(palette *design.Palette, in Input) []datatypes.Message {
	messages := make([]datatypes.Message, 0, len(in.History)+2)
	messages = append(messages, datatypes.Message{
		Role:    datatypes.RoleSystem,
		Content: SystemPrompt(palette, in.PriorErrors),
	})
	messages = append(messages, in.History...)
	messages = append(messages, datatypes.Message{
		Role:    datatypes.RoleUser,
		Content: UserTurnPrefix + in.Prompt,
	})
	return messages
}
