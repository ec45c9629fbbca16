package session

import "errors"

// Coordinator lifecycle and dispatch error types.
var (
	ErrAlreadyRunning   = errors.New("coordinator is already running")
	ErrNotRunning       = errors.New("coordinator is not running")
	ErrCommandQueueFull = errors.New("coordinator command queue is full")
)
