// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package extensions defines the hooks a deployment can plug into the
// component architect without changing the pipeline.
//
// # Extension Categories
//
//   - auth.go: Bearer token authentication (AuthProvider)
//   - audit.go: Audit trail of generation and session events (AuditLogger)
//   - filter.go: Prompt inspection before it reaches the model (PromptFilter)
//
// # Usage
//
// A local single-user setup uses the no-op defaults:
//
//	opts := extensions.DefaultOptions()
//
// A shared deployment injects real implementations:
//
//	opts := extensions.DefaultOptions().
//	    WithAuth(extensions.NewTokenAuthProvider(token)).
//	    WithAudit(extensions.NewSlogAuditLogger(logger)).
//	    WithFilter(policyEngine)
//
// # Thread Safety
//
// All implementations must be safe for concurrent use.
package extensions

// ServiceOptions groups the extension points of the service.
//
// Nil fields are replaced with no-op implementations by WithDefaults.
type ServiceOptions struct {
	// AuthProvider validates bearer tokens on /api routes.
	// Default: NopAuthProvider (every request is the local user)
	AuthProvider AuthProvider

	// AuditLogger records generation and session events.
	// Default: NopAuditLogger (discards all events)
	AuditLogger AuditLogger

	// PromptFilter inspects prompts before generation.
	// Default: NopPromptFilter (passes through unchanged)
	PromptFilter PromptFilter
}

// DefaultOptions returns ServiceOptions with no-op defaults.
func DefaultOptions() ServiceOptions {
	return ServiceOptions{
		AuthProvider: &NopAuthProvider{},
		AuditLogger:  &NopAuditLogger{},
		PromptFilter: &NopPromptFilter{},
	}
}

// WithDefaults returns a copy of opts with every nil field set to its
// no-op implementation.
func (opts ServiceOptions) WithDefaults() ServiceOptions {
	defaults := DefaultOptions()
	if opts.AuthProvider == nil {
		opts.AuthProvider = defaults.AuthProvider
	}
	if opts.AuditLogger == nil {
		opts.AuditLogger = defaults.AuditLogger
	}
	if opts.PromptFilter == nil {
		opts.PromptFilter = defaults.PromptFilter
	}
	return opts
}

// WithAuth returns a copy of opts with the given AuthProvider.
func (opts ServiceOptions) WithAuth(provider AuthProvider) ServiceOptions {
	opts.AuthProvider = provider
	return opts
}

// WithAudit returns a copy of opts with the given AuditLogger.
func (opts ServiceOptions) WithAudit(logger AuditLogger) ServiceOptions {
	opts.AuditLogger = logger
	return opts
}

// WithFilter returns a copy of opts with the given PromptFilter.
func (opts ServiceOptions) WithFilter(filter PromptFilter) ServiceOptions {
	opts.PromptFilter = filter
	return opts
}
