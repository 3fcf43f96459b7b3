// Package queue - errors.go
// Centralized, comparable error values used across the queue engine.
package queue

import "errors"

// qerr is a lightweight comparable error type.
// Using constants of this type allows errors.Is to work as expected.
type qerr string

func (e qerr) Error() string { return string(e) }

// User-correctable conditions. They are surfaced to the requesting player
// with a specific reason and never logged as failures.
var (
	ErrNotFound             = qerr("queue not found")
	ErrQueueClosed          = qerr("queue is closed")
	ErrQueueFull            = qerr("queue is full")
	ErrPlayerInAnotherQueue = qerr("player is in another queue")
	ErrNotMember            = qerr("player not in queue")
	ErrQueueAlreadyExists   = qerr("an open queue of this type already exists")
	ErrUnknownRole          = qerr("unknown role")
	ErrUnknownType          = qerr("unknown queue type")
)

// ErrExists reports a handle collision on create. Handles come from the
// rendering step, so this one is a caller bug rather than a user mistake.
var ErrExists = qerr("queue handle already exists")

var userErrors = []error{
	ErrNotFound,
	ErrQueueClosed,
	ErrQueueFull,
	ErrPlayerInAnotherQueue,
	ErrNotMember,
	ErrQueueAlreadyExists,
	ErrUnknownRole,
	ErrUnknownType,
}

// IsUserError reports whether err is a rejection the player can act on,
// as opposed to an infrastructure failure.
func IsUserError(err error) bool {
	for _, target := range userErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
