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

import "github.com/AleutianAI/ComponentArchitect/services/architect/datatypes"

// Decision is the router's verdict after a validation pass.
type Decision string

const (
	// DecisionFinalize writes the artifact as it is.
	DecisionFinalize Decision = "finalize"

	// DecisionCorrect sends the errors back for another attempt.
	DecisionCorrect Decision = "correct"
)

// Route decides what follows a validation pass. It is pure.
//
// A passing artifact is finalized. A failing one is finalized once Attempt
// has reached maxRetries, and corrected otherwise.
func Route(a *datatypes.Artifact, maxRetries int) Decision {
	if a.Passed {
		return DecisionFinalize
	}
	if a.Attempt >= maxRetries {
		return DecisionFinalize
	}
	return DecisionCorrect
}
