// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"regexp"
	"strings"

	"github.com/AleutianAI/ComponentArchitect/pkg/ux"
	"github.com/AleutianAI/ComponentArchitect/services/architect/datatypes"
	"github.com/AleutianAI/ComponentArchitect/services/architect/design"
	"github.com/AleutianAI/ComponentArchitect/services/architect/storage"
	"github.com/AleutianAI/ComponentArchitect/services/architect/validate"
	"github.com/spf13/cobra"
)

// errLintFailed makes the command exit non-zero when rules are violated.
var errLintFailed = errors.New("rule violations found")

var classNamePattern = regexp.MustCompile(`export\s+class\s+(\w+)`)

func runLint(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	_, palette, err := loadPalette(ctx, appConfig, appLogger.Slog())
	if err != nil {
		return err
	}

	target := args[0]
	var a *datatypes.Artifact
	if info, statErr := os.Stat(target); statErr == nil && info.IsDir() {
		a, err = loadComponent(ctx, storage.NewFileSink(target), "")
	} else {
		store, openErr := openStore(ctx, appConfig)
		if openErr != nil {
			return openErr
		}
		defer store.Close()
		a, err = loadComponent(ctx, store, storage.ComponentID(target))
	}
	if err != nil {
		return err
	}
	return lintComponent(cmd.OutOrStdout(), a, palette)
}

// loadComponent reads a component's three files from reader. With an empty
// id, the files are found by suffix anywhere under the reader's root.
func loadComponent(ctx context.Context, reader storage.Reader, id string) (*datatypes.Artifact, error) {
	var files storage.ComponentFiles
	if id != "" {
		files = storage.FilesFor(id)
	} else {
		paths, err := reader.List(ctx, "")
		if err != nil {
			return nil, fmt.Errorf("list component files: %w", err)
		}
		for _, p := range paths {
			switch {
			case strings.HasSuffix(p, ".component.ts") && files.Behavior == "":
				files.Behavior = p
			case strings.HasSuffix(p, ".component.html") && files.Markup == "":
				files.Markup = p
			case strings.HasSuffix(p, ".component.scss") && files.Style == "":
				files.Style = p
			}
		}
	}

	read := func(p string) (string, error) {
		if p == "" {
			return "", nil
		}
		data, err := reader.Read(ctx, p)
		if errors.Is(err, storage.ErrNotFound) {
			return "", nil
		}
		if err != nil {
			return "", fmt.Errorf("read %s: %w", p, err)
		}
		return string(data), nil
	}

	a := &datatypes.Artifact{}
	var err error
	if a.Behavior, err = read(files.Behavior); err != nil {
		return nil, err
	}
	if a.Markup, err = read(files.Markup); err != nil {
		return nil, err
	}
	if a.Style, err = read(files.Style); err != nil {
		return nil, err
	}
	if a.Behavior == "" && a.Markup == "" && a.Style == "" {
		return nil, fmt.Errorf("no component files found for %q", id)
	}

	if m := classNamePattern.FindStringSubmatch(a.Behavior); m != nil {
		a.Name = m[1]
	} else if files.Behavior != "" {
		a.Name = strings.TrimSuffix(path.Base(files.Behavior), ".component.ts")
	} else {
		a.Name = id
	}
	return a, nil
}

// lintComponent prints every rule violation and returns errLintFailed when
// there is at least one.
func lintComponent(out io.Writer, a *datatypes.Artifact, palette *design.Palette) error {
	violations := validate.CheckDetailed(a, palette)
	if len(violations) == 0 {
		ux.Success(out, fmt.Sprintf("%s: no rule violations", a.Name))
		return nil
	}
	ux.Warning(out, fmt.Sprintf("%s: %d rule violation(s)", a.Name, len(violations)))
	for _, v := range violations {
		ux.FileStatus(out, v.Message, ux.IconError, v.Rule)
	}
	return errLintFailed
}
