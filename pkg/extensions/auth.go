// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package extensions

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
)

// ErrUnauthorized is returned when a token is missing or invalid.
// Implementations wrap it with context.
var ErrUnauthorized = errors.New("unauthorized")

// LocalUserID is the identity NopAuthProvider reports.
const LocalUserID = "local-user"

// AuthInfo is the identity behind an authenticated request.
type AuthInfo struct {
	// UserID is never empty.
	UserID string

	// Roles may be empty.
	Roles []string
}

// HasRole reports whether the user has role.
func (a *AuthInfo) HasRole(role string) bool {
	if a == nil {
		return false
	}
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// AuthProvider validates bearer tokens.
//
// # Contract
//
//   - A valid token returns a non-nil AuthInfo with a UserID.
//   - An invalid or missing token returns an error wrapping ErrUnauthorized.
type AuthProvider interface {
	Validate(ctx context.Context, token string) (*AuthInfo, error)
}

// NopAuthProvider accepts every request as the local user.
type NopAuthProvider struct{}

// Validate implements AuthProvider.
func (p *NopAuthProvider) Validate(_ context.Context, _ string) (*AuthInfo, error) {
	return &AuthInfo{UserID: LocalUserID, Roles: []string{"admin"}}, nil
}

// TokenAuthProvider accepts a single shared token.
type TokenAuthProvider struct {
	token []byte
}

// NewTokenAuthProvider creates a provider that accepts token. An empty
// token rejects everything.
func NewTokenAuthProvider(token string) *TokenAuthProvider {
	return &TokenAuthProvider{token: []byte(token)}
}

// Validate implements AuthProvider.
func (p *TokenAuthProvider) Validate(_ context.Context, token string) (*AuthInfo, error) {
	if token == "" {
		return nil, fmt.Errorf("missing bearer token: %w", ErrUnauthorized)
	}
	if len(p.token) == 0 || subtle.ConstantTimeCompare(p.token, []byte(token)) != 1 {
		return nil, fmt.Errorf("invalid bearer token: %w", ErrUnauthorized)
	}
	return &AuthInfo{UserID: "api-token", Roles: []string{"user"}}, nil
}
