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
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/singleflight"
)

// Source supplies the palette consulted by each validation pass.
//
// Implementations must be safe for concurrent use and must never mutate a
// Palette they have already returned.
type Source interface {
	Load(ctx context.Context) (*Palette, error)
}

// StaticSource always returns the same palette.
type StaticSource struct {
	palette *Palette
}

// NewStaticSource wraps p. A nil palette means the embedded default.
func NewStaticSource(p *Palette) *StaticSource {
	if p == nil {
		p = Default()
	}
	return &StaticSource{palette: p}
}

// Load implements Source.
func (s *StaticSource) Load(context.Context) (*Palette, error) {
	return s.palette, nil
}

// FileSource reads a palette from disk and caches it until the file changes.
//
// Concurrent loads of a stale palette are collapsed into one read. When a
// reload fails after a successful load, the previous palette keeps being
// served and the failure is logged.
//
// Thread Safety: FileSource is safe for concurrent use.
type FileSource struct {
	path   string
	format Format
	logger *slog.Logger

	current atomic.Pointer[Palette]
	stale   atomic.Bool
	flight  singleflight.Group
}

// NewFileSource creates a source for path. The file is read on first Load.
func NewFileSource(path string, logger *slog.Logger) *FileSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSource{
		path:   path,
		format: FormatForPath(path),
		logger: logger.With("component", "palette", "path", path),
	}
}

// Path returns the watched file path.
func (s *FileSource) Path() string {
	return s.path
}

// Load implements Source.
func (s *FileSource) Load(ctx context.Context) (*Palette, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p := s.current.Load(); p != nil && !s.stale.Load() {
		return p, nil
	}
	return s.reload()
}

// Reload forces a re-read of the file.
func (s *FileSource) Reload(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.stale.Store(true)
	_, err := s.reload()
	return err
}

func (s *FileSource) reload() (*Palette, error) {
	v, err, _ := s.flight.Do("load", func() (any, error) {
		data, err := os.ReadFile(s.path)
		if err != nil {
			return nil, fmt.Errorf("read palette: %w", err)
		}
		p, err := Parse(data, s.format)
		if err != nil {
			return nil, err
		}
		s.current.Store(p)
		s.stale.Store(false)
		s.logger.Info("palette loaded", "tokens", len(p.Tokens), "colors", len(p.Colors()))
		return p, nil
	})
	if err != nil {
		if prev := s.current.Load(); prev != nil {
			s.logger.Warn("palette reload failed, keeping previous palette", "error", err)
			s.stale.Store(false)
			return prev, nil
		}
		return nil, err
	}
	return v.(*Palette), nil
}

// Watch marks the palette stale whenever its file is written, created or
// renamed, then reloads it. It blocks until ctx is done.
//
// The parent directory is watched so editors that replace the file are seen.
func (s *FileSource) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create palette watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	target := filepath.Clean(s.path)
	s.logger.Info("watching palette for changes")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			s.stale.Store(true)
			if _, err := s.reload(); err != nil {
				s.logger.Warn("palette changed but could not be loaded", "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("palette watcher error", "error", err)
		}
	}
}

var (
	_ Source = (*StaticSource)(nil)
	_ Source = (*FileSource)(nil)
)
