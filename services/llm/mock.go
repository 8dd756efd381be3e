// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/AleutianAI/ComponentArchitect/services/architect/datatypes"
)

// MockClient is a scripted LLM client for testing.
//
// Responses are served in order: a configured error, then the response
// function, then queued replies, then the default response.
//
// Thread Safety:
//
//	MockClient is safe for concurrent use.
type MockClient struct {
	mu sync.Mutex

	// replies are queued responses, consumed one per call.
	replies []mockReply

	// defaultResponse is returned when no queued replies remain.
	defaultResponse string

	// calls records all calls.
	calls []ChatCall

	// responseFunc allows dynamic response generation.
	responseFunc func([]datatypes.Message) (string, error)

	// delay adds artificial latency to responses.
	delay time.Duration

	// errorToReturn causes every call to return this error.
	errorToReturn error
}

type mockReply struct {
	content string
	err     error
}

// ChatCall records one call to the mock.
type ChatCall struct {
	Messages  []datatypes.Message
	Params    GenerationParams
	Timestamp time.Time
}

// NewMockClient creates a mock whose default reply is an empty JSON object.
func NewMockClient() *MockClient {
	return &MockClient{defaultResponse: "{}"}
}

// WithDelay adds artificial latency.
func (c *MockClient) WithDelay(d time.Duration) *MockClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delay = d
	return c
}

// WithError configures the client to return an error on every call.
func (c *MockClient) WithError(err error) *MockClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errorToReturn = err
	return c
}

// WithResponseFunc sets a dynamic response function.
func (c *MockClient) WithResponseFunc(f func([]datatypes.Message) (string, error)) *MockClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responseFunc = f
	return c
}

// QueueResponse adds a reply to the queue.
func (c *MockClient) QueueResponse(content string) *MockClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies = append(c.replies, mockReply{content: content})
	return c
}

// QueueError queues a single failing call. The error is wrapped as a
// GatewayError, like a real backend failure.
func (c *MockClient) QueueError(err error) *MockClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies = append(c.replies, mockReply{err: gatewayError(BackendMock, err)})
	return c
}

// SetDefaultResponse sets the reply used when the queue is empty.
func (c *MockClient) SetDefaultResponse(content string) *MockClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaultResponse = content
	return c
}

// Generate implements LLMClient.
func (c *MockClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	return c.Chat(ctx, []datatypes.Message{{Role: datatypes.RoleUser, Content: prompt}}, params)
}

// Chat implements LLMClient.
func (c *MockClient) Chat(ctx context.Context, messages []datatypes.Message, params GenerationParams) (string, error) {
	c.mu.Lock()
	c.calls = append(c.calls, ChatCall{
		Messages:  slices.Clone(messages),
		Params:    params,
		Timestamp: time.Now(),
	})
	delay := c.delay
	c.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.errorToReturn != nil {
		return "", gatewayError(BackendMock, c.errorToReturn)
	}
	if c.responseFunc != nil {
		return c.responseFunc(messages)
	}
	if len(c.replies) > 0 {
		reply := c.replies[0]
		c.replies = c.replies[1:]
		return reply.content, reply.err
	}
	return c.defaultResponse, nil
}

// GetCalls returns a copy of all recorded calls.
func (c *MockClient) GetCalls() []ChatCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.calls)
}

// CallCount returns the number of calls made.
func (c *MockClient) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

// LastMessages returns the messages of the most recent call, or nil.
func (c *MockClient) LastMessages() []datatypes.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.calls) == 0 {
		return nil
	}
	return c.calls[len(c.calls)-1].Messages
}

// Reset clears recorded calls and queued replies.
func (c *MockClient) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = nil
	c.replies = nil
}
