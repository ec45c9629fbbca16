// Package client contains the reconciler a connected client runs over the
// server event stream. It is a pure state machine: feed it wire events in
// the order they arrive and read UI-facing state out; it performs no I/O.
package client

import (
	"encoding/json"

	"pollboard/pkg/types"
)

// State is everything a client view needs to render the room.
type State struct {
	DisplayName string
	Role        string

	Poll        *types.Poll
	Results     types.VoteTally
	SecondsLeft int
	PollOver    bool

	Selected  string
	Submitted bool

	Participants []types.ParticipantView
	Chat         []types.ChatMessage

	Kicked bool
}

// Reconciler derives State from server events. Events apply idempotently
// and may arrive in any order relative to the client's own requests; a
// connect or reconnect simply starts from whatever snapshots the server
// replays.
type Reconciler struct {
	state State
	fired bool // countdown end request already issued for this poll
}

// NewReconciler creates a reconciler for a client with the given declared
// identity.
func NewReconciler(displayName, role string) *Reconciler {
	return &Reconciler{
		state: State{DisplayName: displayName, Role: role},
	}
}

// State returns the current derived state.
func (r *Reconciler) State() State {
	return r.state
}

type wireEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Apply folds one wire event into the state. Unknown event types and
// malformed payloads are ignored; after a kick everything is ignored
// until the client rejoins through a fresh reconciler.
func (r *Reconciler) Apply(data []byte) error {
	if r.state.Kicked {
		return nil
	}

	var event wireEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return err
	}

	switch event.Type {
	case types.EventPollCreated:
		var poll types.Poll
		if err := json.Unmarshal(event.Payload, &poll); err != nil {
			return err
		}
		r.applyPoll(&poll)

	case types.EventPollResults:
		var results types.VoteTally
		if err := json.Unmarshal(event.Payload, &results); err != nil {
			return err
		}
		r.state.Results = results

	case types.EventPollEnded:
		// May legitimately arrive before the local countdown hits zero.
		r.state.PollOver = true
		r.state.SecondsLeft = 0

	case types.EventParticipantsUpdate:
		var roster []types.ParticipantView
		if err := json.Unmarshal(event.Payload, &roster); err != nil {
			return err
		}
		r.state.Participants = roster

	case types.EventChatMessage:
		var message types.ChatMessage
		if err := json.Unmarshal(event.Payload, &message); err != nil {
			return err
		}
		r.state.Chat = append(r.state.Chat, message)

	case types.EventKickedOut:
		// Terminal: identity is invalidated and the client must re-enter
		// through the join flow.
		r.state = State{Kicked: true}
	}

	return nil
}

// applyPoll installs a poll snapshot. A replayed snapshot of the poll the
// client already tracks keeps selection state; a genuinely new poll
// resets it so the previous question's choice never leaks forward.
func (r *Reconciler) applyPoll(poll *types.Poll) {
	if r.state.Poll != nil && r.state.Poll.ID == poll.ID {
		r.state.Poll = poll
		return
	}

	r.state.Poll = poll
	r.state.Results = nil
	r.state.SecondsLeft = poll.TimerSeconds
	r.state.PollOver = false
	r.state.Selected = ""
	r.state.Submitted = false
	r.fired = false
}

// Select records the locally highlighted option before submission.
func (r *Reconciler) Select(optionText string) {
	if r.state.Poll == nil || r.state.PollOver || r.state.Submitted {
		return
	}
	r.state.Selected = optionText
}

// MarkSubmitted records that the client sent its answer.
func (r *Reconciler) MarkSubmitted() {
	r.state.Submitted = true
}

// Tick advances the local countdown by one second. It returns true
// exactly once per poll, when the countdown reaches zero: the caller then
// issues an end-poll request. The server's end-of-poll broadcast may race
// this; both paths converge on the same idempotent operation.
func (r *Reconciler) Tick() bool {
	if r.state.Poll == nil || r.state.PollOver || r.state.SecondsLeft <= 0 {
		return false
	}

	r.state.SecondsLeft--
	if r.state.SecondsLeft == 0 && !r.fired {
		r.fired = true
		return true
	}
	return false
}
