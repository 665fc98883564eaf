package errors

import (
	stderrors "errors"
	"fmt"
)

// Kinds. Every specific error below wraps exactly one of them so callers
// can classify a failure with Is.
var (
	ErrNotAuthorized = fmt.Errorf("not authorized")
	ErrNotFound      = fmt.Errorf("not found")
	ErrInvalidState  = fmt.Errorf("invalid state")
	ErrValidation    = fmt.Errorf("validation error")
)

var (
	ErrWorkerPanic         = fmt.Errorf("worker panic")
	ErrCoordinatorStopped  = fmt.Errorf("coordinator stopped")
	ErrRoomBusy            = fmt.Errorf("room is busy, try again: %w", ErrInvalidState)
	ErrSlowConsumer        = fmt.Errorf("connection buffer is full")
	ErrConnectionClosed    = fmt.Errorf("connection closed")
	ErrTargetImmutable     = fmt.Errorf("target role is immutable: %w", ErrNotAuthorized)
	ErrInvalidRoleForActor = fmt.Errorf("role cannot be assigned by this user: %w", ErrNotAuthorized)
	ErrInvalidRejoinToken  = fmt.Errorf("session expired or invalid: %w", ErrNotAuthorized)
	ErrRoomNotFound        = fmt.Errorf("room %w", ErrNotFound)
	ErrUserNotFound        = fmt.Errorf("user %w", ErrNotFound)
	ErrTaskNotFound        = fmt.Errorf("task %w", ErrNotFound)
	ErrVoteNotFound        = fmt.Errorf("vote %w", ErrNotFound)
	ErrRoomFinished        = fmt.Errorf("room is finished: %w", ErrInvalidState)
	ErrNoActiveTask        = fmt.Errorf("no active voting task: %w", ErrInvalidState)
	ErrTaskNotVoting       = fmt.Errorf("task is not open for voting: %w", ErrInvalidState)
	ErrTaskNotPending      = fmt.Errorf("only pending tasks can be reordered: %w", ErrInvalidState)
	ErrRoomAlreadyExists   = fmt.Errorf("room already exists: %w", ErrInvalidState)
	ErrUserAlreadyExists   = fmt.Errorf("user already exists: %w", ErrInvalidState)
	ErrTaskAlreadyExists   = fmt.Errorf("task already exists: %w", ErrInvalidState)
	ErrNotInRoom           = fmt.Errorf("not in a room: %w", ErrInvalidState)
	ErrNotRegistered       = fmt.Errorf("user not registered: %w", ErrInvalidState)
	ErrTooManyRequests     = fmt.Errorf("too many requests: %w", ErrInvalidState)
	ErrEmptyName           = fmt.Errorf("name must not be empty: %w", ErrValidation)
	ErrEmptyTitle          = fmt.Errorf("title must not be empty: %w", ErrValidation)
	ErrInvalidVoteValue    = fmt.Errorf("vote value must be one of 0, 1, 2, 3, 5, 8: %w", ErrValidation)
	ErrUnknownEvent        = fmt.Errorf("unknown event: %w", ErrValidation)
	ErrMalformedPayload    = fmt.Errorf("malformed payload: %w", ErrValidation)
)

func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Kind returns the taxonomy sentinel err belongs to, or nil for
// infrastructure failures that fit none of them.
func Kind(err error) error {
	for _, kind := range []error{ErrNotAuthorized, ErrNotFound, ErrInvalidState, ErrValidation} {
		if stderrors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// Public renders err for a participant. Infrastructure errors are never
// exposed verbatim.
func Public(err error) string {
	if Kind(err) == nil {
		return "internal error"
	}
	return err.Error()
}
