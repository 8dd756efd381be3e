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

import "errors"

// Sentinel errors for the agent package.
var (
	// ErrInvalidTransition indicates an invalid state transition was attempted.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrStepLimitExceeded indicates a run executed more nodes than allowed.
	ErrStepLimitExceeded = errors.New("step limit exceeded")

	// ErrInvalidConfig indicates pipeline options that cannot work together.
	ErrInvalidConfig = errors.New("invalid pipeline configuration")

	// ErrEmptyPrompt indicates the request has no prompt.
	ErrEmptyPrompt = errors.New("prompt must not be empty")

	// ErrRequestDone indicates the request was already finalized.
	ErrRequestDone = errors.New("request already finalized")

	// ErrCanceled indicates the run was canceled via context.
	ErrCanceled = errors.New("run canceled")

	// ErrPersistFailed indicates the finalizer could not write a file.
	ErrPersistFailed = errors.New("failed to persist component")
)
