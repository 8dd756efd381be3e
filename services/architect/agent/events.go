// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package agent

import (
	"log/slog"
	"time"
)

// EventType identifies an Event.
type EventType string

const (
	EventRunStarted    EventType = "run_started"
	EventNodeCompleted EventType = "node_completed"
	EventTransition    EventType = "state_transition"
	EventRunCompleted  EventType = "run_completed"
	EventRunFailed     EventType = "run_failed"
)

// Generator outcomes reported on generator node events.
const (
	OutcomeOK             = "ok"
	OutcomeParseError     = "parse_error"
	OutcomeGatewayError   = "gateway_error"
	OutcomeCarriedForward = "carried_forward"
)

// Event describes progress through a run. Fields not relevant to the event
// type are left zero.
type Event struct {
	Type      EventType `json:"type"`
	RequestID string    `json:"request_id"`
	Step      int       `json:"step"`
	Timestamp time.Time `json:"timestamp"`

	// Node is set on node_completed.
	Node string `json:"node,omitempty"`

	// From, To and Reason are set on state_transition.
	From   State  `json:"from,omitempty"`
	To     State  `json:"to,omitempty"`
	Reason string `json:"reason,omitempty"`

	Attempt       int      `json:"attempt,omitempty"`
	ComponentName string   `json:"component_name,omitempty"`
	Passed        bool     `json:"passed,omitempty"`
	Errors        []string `json:"errors,omitempty"`

	// Outcome is the generator outcome, one of the Outcome* constants.
	Outcome string `json:"outcome,omitempty"`

	// Critic is the critic outcome on validator events, empty when skipped.
	Critic string `json:"critic,omitempty"`

	// RuleHits names the rule behind each rule violation, in order.
	RuleHits []string `json:"rule_hits,omitempty"`

	// Decision is the router verdict on validator events.
	Decision Decision `json:"decision,omitempty"`

	// Files are the paths written, on finalizer events.
	Files []string `json:"files,omitempty"`

	// RetryExhausted is set on run_completed.
	RetryExhausted bool `json:"retry_exhausted,omitempty"`

	Duration time.Duration `json:"duration_ns,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// EventHandler receives events synchronously on the run's goroutine.
// Handlers must not block for long.
type EventHandler func(event *Event)

// LoggingHandler creates a handler that logs events at debug level.
func LoggingHandler(logger *slog.Logger) EventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(event *Event) {
		attrs := []any{
			slog.String("event_type", string(event.Type)),
			slog.String("request_id", event.RequestID),
			slog.Int("step", event.Step),
		}
		switch event.Type {
		case EventTransition:
			attrs = append(attrs, slog.String("from_state", event.From.String()), slog.String("to_state", event.To.String()))
		case EventNodeCompleted:
			attrs = append(attrs, slog.String("node", event.Node), slog.Int("attempt", event.Attempt))
		case EventRunFailed:
			attrs = append(attrs, slog.String("error", event.Error))
		}
		logger.Debug("pipeline event", attrs...)
	}
}

// MultiHandler creates a handler that calls every non-nil handler in order.
func MultiHandler(handlers ...EventHandler) EventHandler {
	return func(event *Event) {
		for _, h := range handlers {
			if h != nil {
				h(event)
			}
		}
	}
}
