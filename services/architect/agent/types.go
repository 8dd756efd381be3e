// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package agent drives the generate, validate, correct, finalize loop.
//
// A Pipeline runs one Request through a finite state machine with states
// GENERATING, VALIDATING, CORRECTING, FINALIZING, DONE and FAILED. Every
// Run is independent; the only thing runs share is the immutable palette.
//
// Thread Safety:
//
//	Pipeline is safe for concurrent use. A Request must not be shared
//	between concurrent runs.
package agent

import (
	"sync"
	"time"

	"github.com/AleutianAI/ComponentArchitect/services/architect/datatypes"
)

// State represents a state in the pipeline state machine.
type State string

const (
	// StateGenerating calls the generator for a new artifact.
	StateGenerating State = "GENERATING"

	// StateValidating runs the rules and, if clean, the critic.
	StateValidating State = "VALIDATING"

	// StateCorrecting hands the errors back for another attempt.
	StateCorrecting State = "CORRECTING"

	// StateFinalizing writes the artifact to the sink.
	StateFinalizing State = "FINALIZING"

	// StateDone indicates the request was finalized.
	StateDone State = "DONE"

	// StateFailed indicates an unrecoverable error.
	StateFailed State = "FAILED"
)

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// IsTerminal returns true for DONE and FAILED.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// AllStates returns all valid states.
func AllStates() []State {
	return []State{
		StateGenerating,
		StateValidating,
		StateCorrecting,
		StateFinalizing,
		StateDone,
		StateFailed,
	}
}

// Node names, used as log attributes, span names and event fields.
const (
	NodeGenerator = "generator"
	NodeValidator = "validator"
	NodeCorrector = "corrector"
	NodeFinalizer = "finalizer"
	NodeRouter    = "router"
)

// Defaults for a Pipeline.
const (
	// DefaultMaxRetries is the number of validation passes after which a
	// failing artifact is finalized anyway.
	DefaultMaxRetries = 2

	// DefaultMaxSteps caps node executions per run.
	DefaultMaxSteps = 20
)

// MinSteps is the smallest step ceiling that lets a run with maxRetries
// complete: each attempt costs at most three nodes.
func MinSteps(maxRetries int) int {
	return 3 * (maxRetries + 1)
}

// Result is the outcome of a finalized run.
type Result struct {
	// Request is the request as finalized. Request.Final is set.
	Request *datatypes.Request

	// ComponentID is the kebab-case directory name.
	ComponentID string

	// Files are the paths written, in write order.
	Files []string

	// RetryExhausted is true when the artifact was finalized with errors.
	RetryExhausted bool

	// Warning explains RetryExhausted.
	Warning string

	// GeneratorCalls counts gateway calls made by the generator.
	GeneratorCalls int

	// Steps counts node executions.
	Steps int

	// Duration is the wall time of the run.
	Duration time.Duration
}

// Artifact returns the finalized artifact.
func (r *Result) Artifact() *datatypes.Artifact {
	return r.Request.Final
}

// Run tracks one execution of the pipeline.
//
// Thread Safety: Run's accessors are safe for concurrent use, so event
// handlers on other goroutines may inspect it.
type Run struct {
	mu sync.RWMutex

	request        *datatypes.Request
	state          State
	steps          int
	generatorCalls int
	startedAt      time.Time

	// eventHandler receives this run's events in addition to the
	// pipeline's handler. Set once before the loop starts.
	eventHandler EventHandler
}

func newRun(req *datatypes.Request) *Run {
	return &Run{
		request:   req,
		state:     StateGenerating,
		startedAt: time.Now(),
	}
}

// ID returns the request ID.
func (r *Run) ID() string {
	return r.request.ID
}

// State returns the current state.
func (r *Run) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

func (r *Run) setState(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = s
}

// Steps returns the number of node executions so far.
func (r *Run) Steps() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.steps
}

func (r *Run) incrementSteps() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps++
	return r.steps
}

// GeneratorCalls returns the number of generator invocations so far.
func (r *Run) GeneratorCalls() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generatorCalls
}

func (r *Run) incrementGeneratorCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generatorCalls++
	return r.generatorCalls
}
