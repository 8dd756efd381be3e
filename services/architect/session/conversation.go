// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package session

import "github.com/AleutianAI/ComponentArchitect/services/architect/datatypes"

// Conversation is a single-session wrapper for the interactive CLI.
//
// Thread Safety: Not safe for concurrent use; the REPL drives it from one
// goroutine.
type Conversation struct {
	session *Session
}

// NewConversation starts an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{session: newSession()}
}

// Session returns the underlying session.
func (c *Conversation) Session() *Session {
	return c.session
}

// Begin builds the request for prompt and records the user turn.
func (c *Conversation) Begin(prompt string) *datatypes.Request {
	return BuildRequest(c.session, prompt)
}

// Complete records a finished run and returns its summary.
func (c *Conversation) Complete(prompt string, final *datatypes.Artifact) string {
	return Record(c.session, prompt, final)
}

// Reset forgets the history and the last artifact.
func (c *Conversation) Reset() {
	c.session = newSession()
}
