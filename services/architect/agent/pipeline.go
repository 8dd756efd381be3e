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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/AleutianAI/ComponentArchitect/services/architect/datatypes"
	"github.com/AleutianAI/ComponentArchitect/services/architect/generator"
	"github.com/AleutianAI/ComponentArchitect/services/architect/storage"
	"github.com/AleutianAI/ComponentArchitect/services/architect/validate"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("architect.agent")

// ArtifactGenerator produces a fresh artifact. *generator.Generator
// implements it.
type ArtifactGenerator interface {
	Generate(ctx context.Context, in generator.Input) (*datatypes.Artifact, error)
}

// ArtifactValidator runs a validation pass in place. *validate.Validator
// implements it.
type ArtifactValidator interface {
	Validate(ctx context.Context, a *datatypes.Artifact) (validate.Report, error)
}

// Pipeline wires the nodes together.
//
// Thread Safety: Pipeline is safe for concurrent use.
type Pipeline struct {
	generator ArtifactGenerator
	validator ArtifactValidator
	sink      storage.Sink

	stateMachine *StateMachine
	maxRetries   int
	maxSteps     int
	eventHandler EventHandler
	logger       *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMaxRetries sets the validation pass count after which failing
// artifacts are finalized. Default: DefaultMaxRetries.
func WithMaxRetries(n int) Option {
	return func(p *Pipeline) {
		p.maxRetries = n
	}
}

// WithMaxSteps sets the node execution ceiling. Default: DefaultMaxSteps.
func WithMaxSteps(n int) Option {
	return func(p *Pipeline) {
		p.maxSteps = n
	}
}

// WithEventHandler sets the handler that receives run events.
func WithEventHandler(h EventHandler) Option {
	return func(p *Pipeline) {
		p.eventHandler = h
	}
}

// WithLogger sets the logger. Nil keeps slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// RunOption configures a single call to Pipeline.Run.
type RunOption func(*Run)

// WithRunEventHandler adds a handler that receives only this run's events,
// after the pipeline's own handler.
func WithRunEventHandler(h EventHandler) RunOption {
	return func(r *Run) {
		r.eventHandler = h
	}
}

// NewPipeline creates a pipeline.
//
// Outputs:
//
//	*Pipeline - The configured pipeline.
//	error - ErrInvalidConfig when a dependency is nil, maxRetries is
//	        negative, or maxSteps is below MinSteps(maxRetries).
func NewPipeline(gen ArtifactGenerator, val ArtifactValidator, sink storage.Sink, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		generator:    gen,
		validator:    val,
		sink:         sink,
		stateMachine: defaultStateMachine,
		maxRetries:   DefaultMaxRetries,
		maxSteps:     DefaultMaxSteps,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if gen == nil || val == nil || sink == nil {
		return nil, fmt.Errorf("%w: generator, validator and sink are required", ErrInvalidConfig)
	}
	if p.maxRetries < 0 {
		return nil, fmt.Errorf("%w: max retries %d is negative", ErrInvalidConfig, p.maxRetries)
	}
	if p.maxSteps < MinSteps(p.maxRetries) {
		return nil, fmt.Errorf("%w: max steps %d is below %d needed for %d retries",
			ErrInvalidConfig, p.maxSteps, MinSteps(p.maxRetries), p.maxRetries)
	}
	return p, nil
}

// MaxRetries returns the configured retry bound.
func (p *Pipeline) MaxRetries() int {
	return p.maxRetries
}

// Run drives req to DONE.
//
// Description:
//
//	Starts in GENERATING and executes one node per step until a terminal
//	state. The generator is called at most maxRetries+1 times. A failing
//	artifact is still finalized once retries run out; the Result then has
//	RetryExhausted set.
//
// Inputs:
//
//	ctx - Cancellation flows into every gateway and sink call.
//	req - A pending request with a non-empty prompt. Mutated in place.
//	opts - Per-run options such as WithRunEventHandler.
//
// Outputs:
//
//	*Result - Set when the run reached DONE.
//	error - Gateway failure on the first attempt, palette load failure,
//	        ErrPersistFailed, ErrCanceled, or ErrStepLimitExceeded.
func (p *Pipeline) Run(ctx context.Context, req *datatypes.Request, opts ...RunOption) (*Result, error) {
	if req == nil || strings.TrimSpace(req.Prompt) == "" {
		return nil, ErrEmptyPrompt
	}
	if req.Status == datatypes.StatusDone {
		return nil, ErrRequestDone
	}

	run := newRun(req)
	for _, opt := range opts {
		opt(run)
	}
	logger := p.logger.With("request_id", req.ID)
	logger.Info("Pipeline starting", "prompt_length", len(req.Prompt), "history", len(req.History))
	p.emit(run, &Event{Type: EventRunStarted, RequestID: req.ID})

	var result *Result
	for {
		if err := ctx.Err(); err != nil {
			return nil, p.fail(run, fmt.Errorf("%w: %w", ErrCanceled, err))
		}

		current := run.State()
		if current.IsTerminal() {
			break
		}
		if run.Steps() >= p.maxSteps {
			return nil, p.fail(run, fmt.Errorf("%w: %d steps in state %s", ErrStepLimitExceeded, run.Steps(), current))
		}

		next, res, err := p.executeNode(ctx, run, logger)
		if res != nil {
			result = res
		}
		if err != nil {
			return nil, p.fail(run, err)
		}
		if err := p.transition(run, next); err != nil {
			return nil, p.fail(run, err)
		}
	}

	result.Steps = run.Steps()
	result.GeneratorCalls = run.GeneratorCalls()
	result.Duration = time.Since(run.startedAt)
	p.emit(run, &Event{
		Type:           EventRunCompleted,
		RequestID:      req.ID,
		Step:           result.Steps,
		Attempt:        req.Final.Attempt,
		ComponentName:  req.Final.Name,
		Passed:         req.Final.Passed,
		Errors:         req.Final.Errors,
		Files:          result.Files,
		RetryExhausted: result.RetryExhausted,
		Duration:       result.Duration,
	})
	logger.Info("Pipeline finished",
		"component", req.Final.Name,
		"passed", req.Final.Passed,
		"attempts", req.Final.Attempt,
		"generator_calls", result.GeneratorCalls,
		"duration", result.Duration,
	)
	return result, nil
}

// executeNode runs the node for the run's current state and returns the
// next state.
func (p *Pipeline) executeNode(ctx context.Context, run *Run, logger *slog.Logger) (State, *Result, error) {
	step := run.incrementSteps()
	switch state := run.State(); state {
	case StateGenerating:
		next, err := p.generate(ctx, run, step, logger.With("node", NodeGenerator))
		return next, nil, err
	case StateValidating:
		next, err := p.validate(ctx, run, step, logger.With("node", NodeValidator))
		return next, nil, err
	case StateCorrecting:
		return p.correct(run, step, logger.With("node", NodeCorrector)), nil, nil
	case StateFinalizing:
		res, err := p.finalize(ctx, run, step, logger.With("node", NodeFinalizer))
		if err != nil {
			return StateFailed, nil, err
		}
		return StateDone, res, nil
	default:
		return StateFailed, nil, fmt.Errorf("no node registered for state %s", state)
	}
}

func (p *Pipeline) transition(run *Run, to State) error {
	from := run.State()
	if err := p.stateMachine.Transition(run, to); err != nil {
		return err
	}
	p.emit(run, &Event{
		Type:      EventTransition,
		RequestID: run.ID(),
		Step:      run.Steps(),
		From:      from,
		To:        to,
		Reason:    p.stateMachine.TransitionReason(from, to),
	})
	return nil
}

// fail moves the run to FAILED when the table allows it and reports err.
func (p *Pipeline) fail(run *Run, err error) error {
	from := run.State()
	if p.stateMachine.CanTransition(from, StateFailed) {
		_ = p.transition(run, StateFailed)
	} else {
		run.setState(StateFailed)
	}
	p.logger.Error("Pipeline failed", "request_id", run.ID(), "state", from, "error", err)
	p.emit(run, &Event{
		Type:      EventRunFailed,
		RequestID: run.ID(),
		Step:      run.Steps(),
		From:      from,
		Error:     err.Error(),
	})
	return err
}

func (p *Pipeline) emit(run *Run, event *Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if p.eventHandler != nil {
		p.eventHandler(event)
	}
	if run.eventHandler != nil {
		run.eventHandler(event)
	}
}

// isCanceled reports whether err came from ctx rather than a backend.
func isCanceled(ctx context.Context, err error) bool {
	return ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}
