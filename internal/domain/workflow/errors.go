package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when the transition table forbids a move
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrUnknownStatus is returned when a status is not part of the lifecycle
	ErrUnknownStatus = errors.New("unknown status")

	// ErrUnknownAction is returned when an action is not part of the action set
	ErrUnknownAction = errors.New("unknown action")
)
