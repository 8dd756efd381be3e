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
	"context"
	"errors"
	"fmt"
	"io"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendBadger = "badger"
	BackendGCS    = "gcs"
)

// ErrUnknownBackend indicates an unsupported Config.Backend.
var ErrUnknownBackend = errors.New("unknown storage backend")

// Config selects and configures a storage backend.
type Config struct {
	// Backend is "file" (default), "badger" or "gcs".
	Backend string

	// Dir is the FileSink root.
	Dir string

	Badger BadgerConfig
	GCS    GCSConfig
}

// StoreCloser is a Store holding resources that must be released.
type StoreCloser interface {
	Store
	io.Closer
}

// Open creates the configured backend.
//
// Outputs:
//
//	StoreCloser - The store. Callers must Close it.
//	error - ErrUnknownBackend or the backend's open error.
func Open(ctx context.Context, cfg Config) (StoreCloser, error) {
	switch cfg.Backend {
	case "", BackendFile:
		if cfg.Dir == "" {
			return nil, fmt.Errorf("file storage requires a directory")
		}
		return NewFileSink(cfg.Dir), nil
	case BackendBadger:
		sink, err := OpenBadgerSink(cfg.Badger)
		if err != nil {
			return nil, err
		}
		return sink, nil
	case BackendGCS:
		sink, err := NewGCSSink(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}
		return sink, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

// Close implements io.Closer. FileSink holds no resources.
func (s *FileSink) Close() error {
	return nil
}
