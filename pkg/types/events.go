package types

import "encoding/json"

// Client-to-server event types.
const (
	EventJoin         = "join"
	EventCreatePoll   = "createPoll"
	EventSubmitAnswer = "submitAnswer"
	EventEndPoll      = "endPoll"
	EventKick         = "kick"
	EventChat         = "chat"
)

// Server-to-client event types.
const (
	EventPollCreated        = "pollCreated"
	EventPollResults        = "pollResults"
	EventPollEnded          = "pollEnded"
	EventParticipantsUpdate = "participantsUpdate"
	EventKickedOut          = "kickedOut"
	EventChatMessage        = "chatMessage"
)

// ClientEvent is the tagged envelope for everything a client sends.
// Payloads are decoded per Type at the transport boundary; malformed
// payloads are dropped there and never reach the coordinator.
type ClientEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ServerEvent is the tagged envelope for everything sent to clients.
// Broadcast payloads are always full-state snapshots, never deltas.
type ServerEvent struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// JoinPayload declares a connection's identity.
type JoinPayload struct {
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

// CreatePollPayload starts a new poll.
type CreatePollPayload struct {
	Question     string       `json:"question"`
	Options      []PollOption `json:"options"`
	TimerSeconds int          `json:"timerSeconds"`
}

// SubmitAnswerPayload records one vote against the active poll.
type SubmitAnswerPayload struct {
	PollID     string `json:"pollId"`
	OptionText string `json:"optionText"`
}

// KickPayload removes a participant by display name.
type KickPayload struct {
	DisplayName string `json:"displayName"`
}

// ChatPayload is a chat line from the sending participant.
type ChatPayload struct {
	Text string `json:"text"`
}
