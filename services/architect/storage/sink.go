// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package storage persists finalized component files.
//
// Paths are always slash-separated and relative, e.g.
// "components/login-form/login-form.component.ts". Three backends share
// the same contract: the local filesystem, an embedded BadgerDB, and a
// Google Cloud Storage bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

var (
	// ErrPathEscapesRoot indicates an absolute path or one that climbs out
	// of the sink's root with "..".
	ErrPathEscapesRoot = errors.New("path escapes storage root")

	// ErrNotFound indicates no file exists at the path.
	ErrNotFound = errors.New("file not found")
)

// Sink accepts file writes. A nil error means the content is durable.
type Sink interface {
	Write(ctx context.Context, path string, content []byte) error
}

// Reader reads back what a Sink wrote.
type Reader interface {
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns the paths under prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Store is a Sink that can also be read.
type Store interface {
	Sink
	Reader
}

// CleanPath normalizes p and rejects paths that are absolute or leave the root.
func CleanPath(p string) (string, error) {
	p = strings.ReplaceAll(p, "\\", "/")
	if p == "" || strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("%w: %q", ErrPathEscapesRoot, p)
	}
	cleaned := path.Clean(p)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrPathEscapesRoot, p)
	}
	return cleaned, nil
}
