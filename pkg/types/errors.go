package types

import "errors"

// Validation error types for event payloads.
var (
	ErrInvalidRole        = errors.New("role must be 'teacher' or 'student'")
	ErrInvalidDisplayName = errors.New("display name must be 1-50 characters")
	ErrEmptyQuestion      = errors.New("poll question cannot be empty")
	ErrNoOptions          = errors.New("poll must have at least one option")
	ErrEmptyOptionText    = errors.New("poll option text cannot be empty")
	ErrInvalidTimer       = errors.New("poll timer must be a positive number of seconds")
	ErrMissingPollID      = errors.New("poll id is required")
	ErrEmptyAnswer        = errors.New("answer option text cannot be empty")
	ErrEmptyChatText      = errors.New("chat text must be 1-2000 characters")
	ErrMissingKickTarget  = errors.New("kick target display name is required")
)
