// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package preview

import (
	"context"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/AleutianAI/ComponentArchitect/services/architect/design"
	"github.com/AleutianAI/ComponentArchitect/services/architect/storage"
)

// PreviewsDir is where Generate writes preview pages.
const PreviewsDir = "previews"

const missingMarkup = "<p>No HTML template found.</p>"

// ErrComponentNotFound indicates no files exist for the requested component.
var ErrComponentNotFound = errors.New("component not found")

// Components lists the IDs of every component under storage.ComponentsDir.
func Components(ctx context.Context, reader storage.Reader) ([]string, error) {
	paths, err := reader.List(ctx, storage.ComponentsDir+"/")
	if err != nil {
		return nil, fmt.Errorf("list components: %w", err)
	}
	var ids []string
	for _, p := range paths {
		rest := strings.TrimPrefix(p, storage.ComponentsDir+"/")
		id, _, ok := strings.Cut(rest, "/")
		if ok && !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// Path returns the storage path of the preview page for id.
func Path(id string) string {
	return path.Join(PreviewsDir, id+".preview.html")
}

// Render reads a stored component and builds its preview page.
//
// A missing markup file renders a placeholder; a missing style file
// renders no CSS. ErrComponentNotFound is returned when neither exists.
func Render(ctx context.Context, reader storage.Reader, palette *design.Palette, id string) (string, error) {
	files := storage.FilesFor(id)

	markup, markupErr := readOptional(ctx, reader, files.Markup)
	if markupErr != nil {
		return "", markupErr
	}
	style, styleErr := readOptional(ctx, reader, files.Style)
	if styleErr != nil {
		return "", styleErr
	}
	if markup == nil && style == nil {
		available, _ := Components(ctx, reader)
		return "", fmt.Errorf("%w: %q (available: %s)", ErrComponentNotFound, id, strings.Join(available, ", "))
	}

	html := missingMarkup
	if markup != nil {
		html = string(markup)
	}
	return BuildHTML(id, html, string(style), palette), nil
}

// Generate renders the preview for id and writes it to Path(id) in store.
//
// Outputs:
//
//	string - The storage path written.
//	error - ErrComponentNotFound, a read error, or a write error.
func Generate(ctx context.Context, store storage.Store, palette *design.Palette, id string) (string, error) {
	html, err := Render(ctx, store, palette, id)
	if err != nil {
		return "", err
	}
	out := Path(id)
	if err := store.Write(ctx, out, []byte(html)); err != nil {
		return "", fmt.Errorf("write preview: %w", err)
	}
	return out, nil
}

func readOptional(ctx context.Context, reader storage.Reader, p string) ([]byte, error) {
	data, err := reader.Read(ctx, p)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return data, nil
}
