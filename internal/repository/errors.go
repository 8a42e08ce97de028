package repository

import "errors"

var (
	// ErrEventNotFound is returned when an event id does not resolve
	ErrEventNotFound = errors.New("event not found")
	// ErrInvalidEvent is returned when a request body is missing required
	// fields or violates an event invariant
	ErrInvalidEvent = errors.New("invalid event")
)
