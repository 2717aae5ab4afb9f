package policy

import "errors"

var (
	// ErrUnknownRole is returned when a role is not part of the registry
	ErrUnknownRole = errors.New("unknown role")

	// ErrUnknownRating is returned when a client rating is not in A..E
	ErrUnknownRating = errors.New("unknown client rating")

	// ErrInvalidAmount is returned for non-numeric or negative amounts
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidPolicy is returned when a policy fails validation
	ErrInvalidPolicy = errors.New("invalid policy")
)
