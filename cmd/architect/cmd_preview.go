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
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/AleutianAI/ComponentArchitect/pkg/ux"
	"github.com/AleutianAI/ComponentArchitect/services/architect/design"
	"github.com/AleutianAI/ComponentArchitect/services/architect/preview"
	"github.com/AleutianAI/ComponentArchitect/services/architect/storage"
	"github.com/spf13/cobra"
)

// openBrowser opens a file or URL with the platform's default handler.
// Tests replace it.
var openBrowser = func(target string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", target)
	case "darwin":
		cmd = exec.Command("open", target)
	default:
		cmd = exec.Command("xdg-open", target)
	}
	return cmd.Start()
}

func runPreview(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	store, err := openStore(ctx, appConfig)
	if err != nil {
		return err
	}
	defer store.Close()

	if len(args) == 0 {
		return listComponents(ctx, out, store)
	}

	_, palette, err := loadPalette(ctx, appConfig, appLogger.Slog())
	if err != nil {
		return err
	}
	return writePreview(ctx, out, store, palette, storage.ComponentID(args[0]), !noOpen)
}

// listComponents prints the generated component IDs.
func listComponents(ctx context.Context, out io.Writer, reader storage.Reader) error {
	ids, err := preview.Components(ctx, reader)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		ux.Info(out, "No components generated yet.")
		return nil
	}
	ux.Title(out, "Generated components")
	for _, id := range ids {
		ux.Bullet(out, id)
	}
	ux.Muted(out, "Run 'architect preview <id>' to open one.")
	return nil
}

// writePreview renders id into the store and optionally opens it.
func writePreview(ctx context.Context, out io.Writer, store storage.Store, palette *design.Palette, id string, open bool) error {
	written, err := preview.Generate(ctx, store, palette, id)
	if err != nil {
		return err
	}

	local, err := localCopy(ctx, store, written)
	if err != nil {
		return err
	}
	ux.Success(out, fmt.Sprintf("Preview written to %s", local))

	if !open {
		return nil
	}
	if err := openBrowser(local); err != nil {
		ux.Warning(out, fmt.Sprintf("Could not open a browser: %v", err))
	}
	return nil
}

// localCopy returns a filesystem path for a stored file. Non-file stores
// get a copy in the temp directory.
func localCopy(ctx context.Context, store storage.Store, p string) (string, error) {
	if fs, ok := store.(*storage.FileSink); ok {
		return filepath.Join(fs.Root(), filepath.FromSlash(p)), nil
	}
	data, err := store.Read(ctx, p)
	if err != nil {
		return "", fmt.Errorf("read preview: %w", err)
	}
	local := filepath.Join(os.TempDir(), filepath.Base(p))
	if err := os.WriteFile(local, data, 0644); err != nil {
		return "", fmt.Errorf("write local preview: %w", err)
	}
	return local, nil
}
