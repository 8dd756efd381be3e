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

	"github.com/AleutianAI/ComponentArchitect/services/architect/datatypes"
	"github.com/AleutianAI/ComponentArchitect/services/architect/generator"
	"github.com/AleutianAI/ComponentArchitect/services/architect/storage"
	"github.com/AleutianAI/ComponentArchitect/services/llm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// GatewayErrorMessage is the synthetic validation error recorded when a
// retry's gateway call fails and the previous payloads are carried forward.
func GatewayErrorMessage(err error) string {
	return fmt.Sprintf("Gateway Error: %v. The previous attempt is kept; regenerate the component as a single JSON object.", err)
}

// generate calls the generator once.
//
// On a retry, a gateway failure does not fail the run: the previous
// artifact is carried forward with the failure recorded as its
// GenerationError, so validation fails it and routing proceeds as usual.
func (p *Pipeline) generate(ctx context.Context, run *Run, step int, logger *slog.Logger) (State, error) {
	req := run.request
	in := generator.Input{
		Prompt:  req.Prompt,
		History: req.History,
	}
	if req.Current != nil {
		in.PriorErrors = req.Current.Errors
		in.Attempt = req.Current.Attempt
	}

	ctx, span := tracer.Start(ctx, "agent.generator")
	defer span.End()
	span.SetAttributes(
		attribute.String("request.id", req.ID),
		attribute.Int("attempt", in.Attempt+1),
		attribute.Int("prior_errors", len(in.PriorErrors)),
	)

	calls := run.incrementGeneratorCalls()
	logger.Info("Calling LLM", "attempt", in.Attempt+1, "call", calls)

	artifact, err := p.generator.Generate(ctx, in)
	outcome := OutcomeOK
	switch {
	case err == nil && artifact.GenerationError != "":
		outcome = OutcomeParseError
	case err != nil && isCanceled(ctx, err):
		span.RecordError(err)
		span.SetStatus(codes.Error, "canceled")
		return StateFailed, fmt.Errorf("%w: %w", ErrCanceled, err)
	case err != nil && errors.Is(err, llm.ErrGatewayUnavailable) && req.Current != nil:
		span.RecordError(err)
		logger.Warn("Gateway failed on retry, carrying previous attempt forward", "error", err)
		artifact = req.Current.Clone()
		artifact.GenerationError = GatewayErrorMessage(err)
		outcome = OutcomeCarriedForward
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		p.emit(run, &Event{
			Type:      EventNodeCompleted,
			RequestID: req.ID,
			Step:      step,
			Node:      NodeGenerator,
			Attempt:   in.Attempt,
			Outcome:   OutcomeGatewayError,
			Error:     err.Error(),
		})
		return StateFailed, err
	}

	req.Current = artifact
	span.SetAttributes(attribute.String("outcome", outcome), attribute.String("component", artifact.Name))
	p.emit(run, &Event{
		Type:          EventNodeCompleted,
		RequestID:     req.ID,
		Step:          step,
		Node:          NodeGenerator,
		Attempt:       artifact.Attempt,
		ComponentName: artifact.Name,
		Outcome:       outcome,
		Error:         artifact.GenerationError,
	})
	return StateValidating, nil
}

// validate runs one validation pass and routes on the result.
func (p *Pipeline) validate(ctx context.Context, run *Run, step int, logger *slog.Logger) (State, error) {
	req := run.request

	ctx, span := tracer.Start(ctx, "agent.validator")
	defer span.End()
	span.SetAttributes(attribute.String("request.id", req.ID))

	report, err := p.validator.Validate(ctx, req.Current)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed to run")
		return StateFailed, fmt.Errorf("validate: %w", err)
	}

	a := req.Current
	decision := Route(a, p.maxRetries)
	span.SetAttributes(
		attribute.Bool("passed", a.Passed),
		attribute.Int("errors", len(a.Errors)),
		attribute.Int("attempt", a.Attempt),
		attribute.String("decision", string(decision)),
	)

	event := &Event{
		Type:          EventNodeCompleted,
		RequestID:     req.ID,
		Step:          step,
		Node:          NodeValidator,
		Attempt:       a.Attempt,
		ComponentName: a.Name,
		Passed:        a.Passed,
		Errors:        a.Errors,
		Decision:      decision,
	}
	for _, v := range report.RuleViolations {
		event.RuleHits = append(event.RuleHits, v.Rule)
	}
	if report.Critic != nil {
		event.Critic = report.Critic.Kind.String()
	}
	p.emit(run, event)

	routerLog := logger.With("node", NodeRouter)
	switch {
	case a.Passed:
		routerLog.Info("Validation passed, finalizing")
		return StateFinalizing, nil
	case decision == DecisionFinalize:
		routerLog.Warn("Max retries reached, finalizing with errors", "max_retries", p.maxRetries, "errors", a.Errors)
		return StateFinalizing, nil
	default:
		routerLog.Info("Retrying", "attempt", a.Attempt, "max_retries", p.maxRetries)
		return StateCorrecting, nil
	}
}

// correct leaves the request unchanged; the generator reads the errors
// from the current artifact.
func (p *Pipeline) correct(run *Run, step int, logger *slog.Logger) State {
	a := run.request.Current
	logger.Info("Sending errors back to generator",
		"errors", len(a.Errors),
		"attempt", a.Attempt,
		"max_retries", p.maxRetries,
	)
	p.emit(run, &Event{
		Type:      EventNodeCompleted,
		RequestID: run.ID(),
		Step:      step,
		Node:      NodeCorrector,
		Attempt:   a.Attempt,
		Errors:    a.Errors,
	})
	return StateGenerating
}

// finalize writes the three files and marks the request done.
func (p *Pipeline) finalize(ctx context.Context, run *Run, step int, logger *slog.Logger) (*Result, error) {
	req := run.request
	a := req.Current

	ctx, span := tracer.Start(ctx, "agent.finalizer")
	defer span.End()

	id := storage.ComponentID(a.Name)
	files := storage.FilesFor(id)
	span.SetAttributes(attribute.String("component.id", id))
	logger.Info("Writing component files", "component_id", id)

	contents := map[string]string{
		files.Behavior: a.Behavior,
		files.Markup:   a.Markup,
		files.Style:    a.Style,
	}
	for _, path := range files.All() {
		if err := p.sink.Write(ctx, path, []byte(contents[path])); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "write failed")
			return nil, fmt.Errorf("%w: %s: %w", ErrPersistFailed, path, err)
		}
	}

	final := a.Clone()
	req.Final = final
	req.Status = datatypes.StatusDone

	result := &Result{
		Request:     req,
		ComponentID: id,
		Files:       files.All(),
	}
	if !final.Passed {
		result.RetryExhausted = true
		result.Warning = fmt.Sprintf("Written with %d remaining error(s) after %d attempt(s)", len(final.Errors), final.Attempt)
		logger.Warn("Written with remaining errors (max retries exhausted)", "errors", len(final.Errors))
	}

	p.emit(run, &Event{
		Type:          EventNodeCompleted,
		RequestID:     req.ID,
		Step:          step,
		Node:          NodeFinalizer,
		Attempt:       final.Attempt,
		ComponentName: final.Name,
		Passed:        final.Passed,
		Files:         result.Files,
	})
	return result, nil
}
