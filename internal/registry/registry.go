package registry

import (
	"sync"

	"pollboard/pkg/types"
)

// Conn is the transport-side handle the registry tracks for each
// participant. Implemented by the websocket connection wrapper; tests use
// in-memory fakes.
type Conn interface {
	ID() string
	Send(event types.ServerEvent) error
	Close() error
}

type entry struct {
	conn        Conn
	participant *types.Participant
}

// Registry maps live connections to their declared identities. It is a
// leaf component: it tracks state but never broadcasts; roster fan-out is
// the coordinator's job.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry // connectionID -> entry
	order   []string          // connectionIDs in insertion order
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*entry),
	}
}

// Register records a connection under its declared identity. Duplicate
// display names are tolerated: the connection is registered regardless and
// ErrDuplicateName is returned alongside the participant so the caller can
// decide how loud to be about it.
func (r *Registry) Register(conn Conn, displayName, role string) (*types.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	participant := &types.Participant{
		ConnectionID: conn.ID(),
		DisplayName:  displayName,
		Role:         role,
	}

	duplicate := false
	for _, id := range r.order {
		if r.entries[id].participant.DisplayName == displayName {
			duplicate = true
			break
		}
	}

	if _, exists := r.entries[conn.ID()]; !exists {
		r.order = append(r.order, conn.ID())
	}
	r.entries[conn.ID()] = &entry{conn: conn, participant: participant}

	if duplicate {
		return participant, ErrDuplicateName
	}
	return participant, nil
}

// Unregister removes a connection and returns its participant, or nil if
// the connection was not registered. Idempotent.
func (r *Registry) Unregister(connectionID string) *types.Participant {
	r.mu.Lock()
	defer r.mu.Unlock()

	ent, exists := r.entries[connectionID]
	if !exists {
		return nil
	}

	delete(r.entries, connectionID)
	for i, id := range r.order {
		if id == connectionID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	return ent.participant
}

// Get returns the participant for a connection.
func (r *Registry) Get(connectionID string) (*types.Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ent, exists := r.entries[connectionID]
	if !exists {
		return nil, false
	}
	return ent.participant, true
}

// FindByName returns the first participant registered under the given
// display name, in insertion order.
func (r *Registry) FindByName(displayName string) (Conn, *types.Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		ent := r.entries[id]
		if ent.participant.DisplayName == displayName {
			return ent.conn, ent.participant, true
		}
	}
	return nil, nil, false
}

// List returns all participants in insertion order.
func (r *Registry) List() []*types.Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	participants := make([]*types.Participant, 0, len(r.order))
	for _, id := range r.order {
		participants = append(participants, r.entries[id].participant)
	}
	return participants
}

// Conns returns all connections in insertion order, for fan-out.
func (r *Registry) Conns() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]Conn, 0, len(r.order))
	for _, id := range r.order {
		conns = append(conns, r.entries[id].conn)
	}
	return conns
}

// Snapshot returns the roster as broadcast to clients, with role-dependent
// external labels, in insertion order.
func (r *Registry) Snapshot() []types.ParticipantView {
	r.mu.RLock()
	defer r.mu.RUnlock()

	views := make([]types.ParticipantView, 0, len(r.order))
	for _, id := range r.order {
		p := r.entries[id].participant
		views = append(views, types.ParticipantView{
			DisplayName:   p.DisplayName,
			Role:          p.Role,
			ExternalLabel: p.ExternalLabel(),
		})
	}
	return views
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
