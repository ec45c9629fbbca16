package types

import (
	"time"
)

// Participant roles. Roles are declared by the client at join time; the
// system attaches them as labels and does not authenticate beyond that.
const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// TeacherLabel is the display label other participants see for the teacher,
// regardless of the internal handle minted at login.
const TeacherLabel = "Teacher"

// Participant is one live connection's declared identity.
// Owned exclusively by the connection registry.
type Participant struct {
	ConnectionID string `json:"connectionId"`
	DisplayName  string `json:"displayName"`
	Role         string `json:"role"`
}

// ExternalLabel returns the name shown to other participants: the fixed
// teacher label for the teacher role, the declared name for students.
func (p *Participant) ExternalLabel() string {
	if p.Role == RoleTeacher {
		return TeacherLabel
	}
	return p.DisplayName
}

// ParticipantView is the roster entry broadcast to all clients.
type ParticipantView struct {
	DisplayName   string `json:"displayName"`
	Role          string `json:"role"`
	ExternalLabel string `json:"externalLabel"`
}

// PollOption is one answer choice. IDs are client-assigned ordinals;
// option text is what votes reference.
type PollOption struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// Poll is a single multiple-choice question. At most one poll is active
// at any time; once IsActive goes false the poll is immutable and lives
// only in history.
type Poll struct {
	ID            string       `json:"id"`
	Question      string       `json:"question"`
	Options       []PollOption `json:"options"`
	TimerSeconds  int          `json:"timerSeconds"`
	CreatedAt     time.Time    `json:"createdAt"`
	IsActive      bool         `json:"isActive"`
	TeacherHandle string       `json:"teacherHandle"`
}

// Clone returns a deep copy safe to hand outside the owning component.
func (p *Poll) Clone() *Poll {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Options = make([]PollOption, len(p.Options))
	copy(cp.Options, p.Options)
	return &cp
}

// VoteTally maps option text to vote count. Every key corresponds to one
// of the poll's option texts; counts are never decremented.
type VoteTally map[string]int

// Clone returns a copy of the tally.
func (t VoteTally) Clone() VoteTally {
	cp := make(VoteTally, len(t))
	for option, count := range t {
		cp[option] = count
	}
	return cp
}

// Sum returns the total number of recorded votes.
func (t VoteTally) Sum() int {
	total := 0
	for _, count := range t {
		total += count
	}
	return total
}

// ChatMessage is a broadcast chat line. Sender carries the external label;
// OriginalSender keeps the raw display name so clients can recognize their
// own messages. Chat is transient and not persisted server-side.
type ChatMessage struct {
	Sender         string    `json:"sender"`
	OriginalSender string    `json:"originalSender"`
	Text           string    `json:"text"`
	Timestamp      time.Time `json:"timestamp"`
}

// PollRecord pairs an ended poll with its final tally. Immutable after
// insertion into history.
type PollRecord struct {
	Poll    *Poll     `json:"poll"`
	Results VoteTally `json:"results"`
}
