package websocket

import "errors"

// Connection-level error types.
var (
	ErrConnectionClosed = errors.New("connection is closed")
	ErrSendBufferFull   = errors.New("connection send buffer is full")
	ErrInvalidJSON      = errors.New("failed to marshal event to JSON")
)
