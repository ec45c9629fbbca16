// Package poll owns the single active poll, its vote tally, and the
// transition of ended polls into history.
package poll

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"pollboard/internal/history"
	"pollboard/pkg/types"
)

// Engine tracks the current poll and its running tally. Mutations are
// serialized by the session coordinator; the engine's own mutex makes
// concurrent reads (health stats, snapshots) safe as well.
type Engine struct {
	mu     sync.Mutex
	store  history.Store
	active *types.Poll
	tally  types.VoteTally
	voted  map[string]string // voterID -> option text for the active poll
}

// NewEngine creates an engine that appends ended polls to store.
func NewEngine(store history.Store) *Engine {
	return &Engine{store: store}
}

// Create starts a new poll with a zeroed tally for every option text. If a
// poll is still active it is implicitly ended first (recorded to history);
// endedPrevious reports that so the caller can broadcast the transition.
func (e *Engine) Create(ctx context.Context, req types.CreatePollPayload, teacherHandle string) (poll *types.Poll, endedPrevious bool, err error) {
	if err := req.Validate(); err != nil {
		return nil, false, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active != nil {
		var endErr error
		endedPrevious, endErr = e.endLocked(ctx, e.active.ID)
		if endErr != nil {
			// The previous poll is ended either way; the new poll must not
			// be held hostage by the history backend.
			log.Error().Err(endErr).Msg("failed to record replaced poll in history")
		}
	}

	poll = &types.Poll{
		ID:            NewPollID(),
		Question:      req.Question,
		Options:       append([]types.PollOption(nil), req.Options...),
		TimerSeconds:  req.TimerSeconds,
		CreatedAt:     time.Now().UTC(),
		IsActive:      true,
		TeacherHandle: teacherHandle,
	}

	tally := make(types.VoteTally, len(poll.Options))
	for _, option := range poll.Options {
		tally[option.Text] = 0
	}

	e.active = poll
	e.tally = tally
	e.voted = make(map[string]string)

	return poll.Clone(), endedPrevious, nil
}

// Vote records one vote for optionText on the active poll. Each voter
// identity may vote at most once per poll; a second submission is rejected
// with ErrAlreadyVoted whether or not it names a different option.
func (e *Engine) Vote(pollID, optionText, voterID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active == nil || e.active.ID != pollID {
		return ErrNoActivePoll
	}
	if _, known := e.tally[optionText]; !known {
		return ErrUnknownOption
	}
	if _, already := e.voted[voterID]; already {
		return ErrAlreadyVoted
	}

	e.voted[voterID] = optionText
	e.tally[optionText]++
	return nil
}

// End closes the poll identified by pollID; an empty pollID targets
// whichever poll is active. Idempotent: only the first active-to-inactive
// transition appends a history record and returns ended=true. Clients
// racing their local countdowns against the teacher's explicit end all
// funnel into this one transition.
func (e *Engine) End(ctx context.Context, pollID string) (ended bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.endLocked(ctx, pollID)
}

func (e *Engine) endLocked(ctx context.Context, pollID string) (bool, error) {
	if e.active == nil {
		return false, nil
	}
	if pollID != "" && e.active.ID != pollID {
		return false, nil
	}

	e.active.IsActive = false
	record := &types.PollRecord{
		Poll:    e.active.Clone(),
		Results: e.tally.Clone(),
	}
	e.active = nil
	e.tally = nil
	e.voted = nil

	if err := e.store.Append(ctx, record); err != nil {
		// The poll is ended regardless; history is best-effort on failure.
		return true, err
	}
	return true, nil
}

// Active returns a copy of the active poll, or nil if none.
func (e *Engine) Active() *types.Poll {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active.Clone()
}

// Results returns a copy of the live tally, or nil if no poll is active.
func (e *Engine) Results() types.VoteTally {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == nil {
		return nil
	}
	return e.tally.Clone()
}
