// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package storage

import (
	"path"
	"strings"
	"unicode"
)

// ComponentsDir is the top-level directory for finalized components.
const ComponentsDir = "components"

// ComponentID converts a PascalCase component name to a kebab-case id that is
// always safe as a single path segment.
//
//	"LoginFormComponent" -> "login-form"
//	"../Evil"            -> "evil"
//	""                   -> "component"
func ComponentID(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "Component", ""))

	var b strings.Builder
	for i, r := range name {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte('-')
		}
		b.WriteRune(unicode.ToLower(r))
	}

	var out strings.Builder
	lastDash := true
	for _, r := range b.String() {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			out.WriteRune(r)
			lastDash = false
			continue
		}
		if !lastDash {
			out.WriteByte('-')
			lastDash = true
		}
	}
	id := strings.Trim(out.String(), "-")
	if id == "" {
		return "component"
	}
	return id
}

// ComponentFiles are the three paths a finalized component is written to.
type ComponentFiles struct {
	Behavior string
	Markup   string
	Style    string
}

// All returns the paths in write order.
func (f ComponentFiles) All() []string {
	return []string{f.Behavior, f.Markup, f.Style}
}

// FilesFor returns the paths for id under ComponentsDir.
func FilesFor(id string) ComponentFiles {
	base := path.Join(ComponentsDir, id, id)
	return ComponentFiles{
		Behavior: base + ".component.ts",
		Markup:   base + ".component.html",
		Style:    base + ".component.scss",
	}
}
