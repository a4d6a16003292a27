package workflow

import (
	"context"
	"fmt"
)

// State is implemented by the state types a machine can be built over.
// Both order statuses and session phases satisfy it.
type State interface {
	comparable
	fmt.Stringer
	IsValid() bool
}

// Trigger is implemented by the event types that move a machine between states.
type Trigger interface {
	comparable
	fmt.Stringer
}

// StateMachine tracks a current state and validates transitions
type StateMachine[S State, T Trigger] interface {
	// State returns the current state
	State() S

	// CanFire returns true if the trigger is permitted in the current state
	CanFire(trigger T) bool

	// Fire attempts to execute the trigger, transitioning to the new state if allowed
	Fire(ctx context.Context, trigger T) error

	// PermittedTriggers returns all triggers that can be fired in the current state
	PermittedTriggers() []T
}
