package poker

import (
	"errors"
	"fmt"
)

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomExpired         = errors.New("room expired")
	ErrParticipantNotFound = errors.New("participant not found in room")
	ErrObserverVote        = errors.New("observers cannot vote")
	ErrVotingClosed        = errors.New("cards are revealed; reset to vote again")
	ErrInvalidCard         = errors.New("invalid card value")
)

// ValidationError is a bad input caught before anything was written.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError means the room does not exist.
type NotFoundError struct {
	Code string
}

func (e *NotFoundError) Error() string {
	return ErrRoomNotFound.Error()
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrRoomNotFound
}

// ExpiredError means the room outlived RoomTTL. By the time it is returned
// the room has already been swept.
type ExpiredError struct {
	Code string
}

func (e *ExpiredError) Error() string {
	return ErrRoomExpired.Error()
}

func (e *ExpiredError) Is(target error) bool {
	return target == ErrRoomExpired
}

// SyncError wraps a failure of the shared tree itself.
type SyncError struct {
	Op   string
	Path string
	Err  error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}
