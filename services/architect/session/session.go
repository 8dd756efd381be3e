// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package session keeps multi-turn conversation state between pipeline runs.
//
// A Session remembers the chat history, the last final artifact, and the
// user-visible chat log. BuildRequest turns that state into the History of
// the next agent request; Record folds a finished run back in.
package session

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/AleutianAI/ComponentArchitect/services/architect/datatypes"
	"github.com/google/uuid"
)

// Session is the state of one conversation.
//
// Thread Safety: Session is safe for concurrent use. TryAcquire/Release
// serialize pipeline runs on the same session.
type Session struct {
	// ID is a UUID, immutable after creation.
	ID string

	// CreatedAt is when the session was created.
	CreatedAt time.Time

	mu           sync.RWMutex
	lastActiveAt time.Time
	history      []datatypes.Message
	lastArtifact *datatypes.Artifact
	chatLog      []datatypes.ChatEntry
	inProgress   bool
}

func newSession() *Session {
	now := time.Now()
	return &Session{
		ID:           uuid.NewString(),
		CreatedAt:    now,
		lastActiveAt: now,
	}
}

// TryAcquire marks the session busy. It returns false if a run is already
// in progress.
func (s *Session) TryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inProgress {
		return false
	}
	s.inProgress = true
	s.lastActiveAt = time.Now()
	return true
}

// Release marks the session idle.
func (s *Session) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inProgress = false
	s.lastActiveAt = time.Now()
}

// LastActiveAt returns the time of the last acquire, release or turn.
func (s *Session) LastActiveAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActiveAt
}

// History returns a copy of the conversation turns, oldest first.
func (s *Session) History() []datatypes.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.history)
}

// ChatLog returns a copy of the user-visible chat log. It is never nil.
func (s *Session) ChatLog() []datatypes.ChatEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]datatypes.ChatEntry, len(s.chatLog))
	copy(out, s.chatLog)
	return out
}

// LastArtifact returns a copy of the last final artifact, or nil.
func (s *Session) LastArtifact() *datatypes.Artifact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastArtifact.Clone()
}

// AppendUserTurn records a user prompt in the history and the chat log.
func (s *Session) AppendUserTurn(prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, datatypes.Message{Role: datatypes.RoleUser, Content: prompt})
	s.chatLog = append(s.chatLog, datatypes.ChatEntry{Role: datatypes.RoleUser, Content: prompt})
	s.lastActiveAt = time.Now()
}

// AppendAssistantTurn records a generated component in the history and
// the chat log. Only the name reaches the history; the code itself is
// replayed through BuildRequest.
func (s *Session) AppendAssistantTurn(componentName, summary string) {
	msg := fmt.Sprintf("Generated component '%s' successfully.", componentName)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, datatypes.Message{Role: datatypes.RoleAssistant, Content: msg})
	s.chatLog = append(s.chatLog, datatypes.ChatEntry{Role: datatypes.RoleAssistant, Content: msg, Summary: summary})
	s.lastActiveAt = time.Now()
}

func (s *Session) setLastArtifact(a *datatypes.Artifact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastArtifact = a.Clone()
}

// PreviousArtifactTurn is the transient assistant turn that shows the
// generator what it built last time.
func PreviousArtifactTurn(a *datatypes.Artifact) datatypes.Message {
	return datatypes.Message{
		Role: datatypes.RoleAssistant,
		Content: fmt.Sprintf("Previously generated component '%s':\nTypeScript:\n%s\n\nHTML:\n%s",
			a.Name, a.Behavior, a.Markup),
	}
}

// BuildRequest creates the next agent request for prompt.
//
// Description:
//
//	The request history is the session history as it stood before this
//	turn, plus a PreviousArtifactTurn when the session has a last artifact.
//	That turn is not stored in the session. The prompt is then appended to
//	the session as a user turn.
//
// Inputs:
//
//	s - The session. Callers hold it via TryAcquire.
//	prompt - The new user prompt.
//
// Outputs:
//
//	*datatypes.Request - A pending request.
func BuildRequest(s *Session, prompt string) *datatypes.Request {
	history := s.History()
	if last := s.LastArtifact(); last != nil {
		history = append(history, PreviousArtifactTurn(last))
	}
	s.AppendUserTurn(prompt)
	return datatypes.NewRequest(prompt, history)
}

// Summary is the one-line chat log summary of a finished run.
func Summary(prompt, componentName string, passed bool) string {
	status := "passed"
	if !passed {
		status = "completed with warnings"
	}
	return fmt.Sprintf("Built '%s' for '%s' — validation %s.", componentName, prompt, status)
}

// Record folds a final artifact into the session and returns its summary.
// An artifact without code is logged but never replaces the last artifact,
// so the next turn still iterates on real code.
func Record(s *Session, prompt string, final *datatypes.Artifact) string {
	if !final.HasPayload() {
		summary := fmt.Sprintf("No code generated for '%s'; the model did not return a usable component.", prompt)
		s.AppendAssistantTurn(final.Name, summary)
		return summary
	}
	summary := Summary(prompt, final.Name, final.Passed)
	s.setLastArtifact(final)
	s.AppendAssistantTurn(final.Name, summary)
	return summary
}
