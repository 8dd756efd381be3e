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
	"fmt"
	"slices"
)

// StateMachine holds the valid state transitions for a run.
//
// The state machine enforces the following transition graph:
//
//	GENERATING → VALIDATING   : Artifact produced (possibly synthetic)
//	GENERATING → FAILED       : Gateway or palette failure with nothing to carry
//	VALIDATING → CORRECTING   : Errors found and retries remain
//	VALIDATING → FINALIZING   : Passed, or retries exhausted
//	VALIDATING → FAILED       : Palette could not be loaded
//	CORRECTING → GENERATING   : Errors handed back to the generator
//	FINALIZING → DONE         : Files written
//	FINALIZING → FAILED       : Sink write failed
//
// Thread Safety:
//
//	StateMachine is immutable after construction and safe for concurrent use.
type StateMachine struct {
	// transitions maps (from, to) pairs that are valid.
	transitions map[State]map[State]bool
}

// NewStateMachine creates a state machine with all valid transitions.
func NewStateMachine() *StateMachine {
	sm := &StateMachine{
		transitions: make(map[State]map[State]bool),
	}
	for _, state := range AllStates() {
		sm.transitions[state] = make(map[State]bool)
	}

	sm.addTransition(StateGenerating, StateValidating)
	sm.addTransition(StateGenerating, StateFailed)

	sm.addTransition(StateValidating, StateCorrecting)
	sm.addTransition(StateValidating, StateFinalizing)
	sm.addTransition(StateValidating, StateFailed)

	sm.addTransition(StateCorrecting, StateGenerating)

	sm.addTransition(StateFinalizing, StateDone)
	sm.addTransition(StateFinalizing, StateFailed)

	return sm
}

var defaultStateMachine = NewStateMachine()

func (sm *StateMachine) addTransition(from, to State) {
	sm.transitions[from][to] = true
}

// CanTransition reports whether from → to is allowed.
func (sm *StateMachine) CanTransition(from, to State) bool {
	if toMap, ok := sm.transitions[from]; ok {
		return toMap[to]
	}
	return false
}

// Transition moves run to the target state.
//
// Outputs:
//
//	error - ErrInvalidTransition if the transition is not allowed. The run's
//	        state is unchanged in that case.
func (sm *StateMachine) Transition(run *Run, to State) error {
	from := run.State()
	if !sm.CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s (valid: %v)", ErrInvalidTransition, from, to, sm.ValidTransitionsFrom(from))
	}
	run.setState(to)
	return nil
}

// ValidTransitionsFrom returns the valid targets of from, sorted.
func (sm *StateMachine) ValidTransitionsFrom(from State) []State {
	var result []State
	for state, valid := range sm.transitions[from] {
		if valid {
			result = append(result, state)
		}
	}
	slices.Sort(result)
	return result
}

var transitionReasons = map[string]string{
	"GENERATING->VALIDATING": "Artifact produced",
	"GENERATING->FAILED":     "Generation failed with nothing to carry forward",
	"VALIDATING->CORRECTING": "Validation failed, retries remain",
	"VALIDATING->FINALIZING": "Validation passed or retries exhausted",
	"VALIDATING->FAILED":     "Validation could not run",
	"CORRECTING->GENERATING": "Errors handed back to generator",
	"FINALIZING->DONE":       "Component files written",
	"FINALIZING->FAILED":     "Component files could not be written",
}

// TransitionReason provides a human-readable description of a transition.
func (sm *StateMachine) TransitionReason(from, to State) string {
	if reason, ok := transitionReasons[from.String()+"->"+to.String()]; ok {
		return reason
	}
	return "Unknown transition"
}
