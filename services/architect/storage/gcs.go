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
	"os"
	"path"
	"slices"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSConfig configures a GCSSink.
type GCSConfig struct {
	Bucket string

	// Prefix is prepended to every object name, e.g. "architect/".
	Prefix string

	// CredentialsFile is a service account key. Empty uses application
	// default credentials.
	CredentialsFile string
}

// GCSSink writes component files as objects in a Cloud Storage bucket.
// An object is durable once its writer closes without error.
type GCSSink struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSSink creates the storage client.
func NewGCSSink(ctx context.Context, cfg GCSConfig) (*GCSSink, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("gcs bucket is required")
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		if _, err := os.Stat(cfg.CredentialsFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("service account key not found at path: %s", cfg.CredentialsFile)
		}
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}
	return newGCSSinkWithClient(client, cfg), nil
}

func newGCSSinkWithClient(client *storage.Client, cfg GCSConfig) *GCSSink {
	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &GCSSink{client: client, bucket: cfg.Bucket, prefix: prefix}
}

func (s *GCSSink) objectName(p string) (string, error) {
	cleaned, err := CleanPath(p)
	if err != nil {
		return "", err
	}
	return s.prefix + cleaned, nil
}

// Write implements Sink.
func (s *GCSSink) Write(ctx context.Context, p string, content []byte) error {
	name, err := s.objectName(p)
	if err != nil {
		return err
	}
	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	w.ContentType = ContentType(p)
	w.CacheControl = "no-cache, no-store, must-revalidate"

	if _, err := w.Write(content); err != nil {
		w.Close()
		return fmt.Errorf("failed to write GCS object %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer for %s: %w", name, err)
	}
	return nil
}

// Read implements Reader.
func (s *GCSSink) Read(ctx context.Context, p string) ([]byte, error) {
	name, err := s.objectName(p)
	if err != nil {
		return nil, err
	}
	r, err := s.client.Bucket(s.bucket).Object(name).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	if err != nil {
		return nil, fmt.Errorf("open GCS object %s: %w", name, err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

// List implements Reader.
func (s *GCSSink) List(ctx context.Context, prefix string) ([]string, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: s.prefix + prefix})
	var out []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list gs://%s/%s: %w", s.bucket, s.prefix+prefix, err)
		}
		out = append(out, strings.TrimPrefix(attrs.Name, s.prefix))
	}
	slices.Sort(out)
	return out, nil
}

// Close releases the storage client.
func (s *GCSSink) Close() error {
	return s.client.Close()
}

// ContentType maps a component file extension to a MIME type.
func ContentType(p string) string {
	switch path.Ext(p) {
	case ".ts":
		return "text/typescript; charset=utf-8"
	case ".html":
		return "text/html; charset=utf-8"
	case ".scss":
		return "text/x-scss; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

var _ Store = (*GCSSink)(nil)
