package poll

import "errors"

// Engine error types. All are local and non-fatal: the coordinator drops
// the offending request without broadcasting anything.
var (
	ErrNoActivePoll  = errors.New("no active poll matches the given id")
	ErrUnknownOption = errors.New("option text is not part of the active poll")
	ErrAlreadyVoted  = errors.New("voter has already voted on this poll")
)
