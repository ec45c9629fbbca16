// Package session contains the coordinator: the single actor that owns
// all shared polling-room state. Every mutating operation is applied as a
// serialized step by one goroutine, so concurrent connections can never
// lose vote increments or observe broadcasts in different orders.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"pollboard/internal/poll"
	"pollboard/internal/registry"
	"pollboard/pkg/types"
)

const commandBuffer = 256

// Coordinator serializes join, poll, vote, kick, chat, and disconnect
// operations against the registry and poll engine, and fans resulting
// events out to every connection. Connection I/O runs on its own
// goroutines but may mutate state only through these entry points.
type Coordinator struct {
	commands chan func(context.Context)
	shutdown chan struct{}

	registry *registry.Registry
	engine   *poll.Engine

	running bool
	mu      sync.RWMutex
	wg      sync.WaitGroup
}

// NewCoordinator creates a coordinator around the given registry and
// engine. The coordinator takes exclusive ownership of the engine; no
// other component may call it once Start has been invoked.
func NewCoordinator(reg *registry.Registry, engine *poll.Engine) *Coordinator {
	return &Coordinator{
		commands: make(chan func(context.Context), commandBuffer),
		shutdown: make(chan struct{}),
		registry: reg,
		engine:   engine,
	}
}

// Start begins the coordinator's processing loop.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	c.running = true
	c.mu.Unlock()

	c.wg.Add(1)
	go c.run(ctx)

	log.Info().Msg("session coordinator started")
	return nil
}

// Stop shuts down the processing loop. Queued commands are discarded.
func (c *Coordinator) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return ErrNotRunning
	}
	c.running = false
	c.mu.Unlock()

	close(c.shutdown)
	c.wg.Wait()

	log.Info().Msg("session coordinator stopped")
	return nil
}

// run applies commands one at a time. Single goroutine ownership of
// registry/engine mutation is the serialization point the whole design
// relies on.
func (c *Coordinator) run(ctx context.Context) {
	defer c.wg.Done()

	for {
		select {
		case cmd := <-c.commands:
			cmd(ctx)
		case <-c.shutdown:
			return
		case <-ctx.Done():
			return
		}
	}
}

// dispatch queues an operation for the actor goroutine. Non-blocking: a
// full queue rejects the request rather than stalling a connection's read
// loop.
func (c *Coordinator) dispatch(cmd func(context.Context)) error {
	c.mu.RLock()
	if !c.running {
		c.mu.RUnlock()
		return ErrNotRunning
	}
	c.mu.RUnlock()

	select {
	case c.commands <- cmd:
		return nil
	default:
		return ErrCommandQueueFull
	}
}

// Join registers a connection under its declared identity, replays the
// active poll and tally to late-joining students, and broadcasts the
// updated roster to everyone.
func (c *Coordinator) Join(conn registry.Conn, displayName, role string) error {
	return c.dispatch(func(ctx context.Context) {
		participant, err := c.registry.Register(conn, displayName, role)
		if err == registry.ErrDuplicateName {
			// Tolerated: the roster simply shows the name twice.
			log.Warn().Str("name", displayName).Msg("duplicate display name joined")
		}

		log.Info().
			Str("name", participant.DisplayName).
			Str("role", participant.Role).
			Msg("participant joined")

		// Snapshot-on-join: a late-joining student must never be stuck
		// with empty state while a poll is running.
		if role == types.RoleStudent {
			if active := c.engine.Active(); active != nil {
				c.sendTo(conn, types.ServerEvent{Type: types.EventPollCreated, Payload: active})
				c.sendTo(conn, types.ServerEvent{Type: types.EventPollResults, Payload: c.engine.Results()})
			}
		}

		c.broadcastRoster()
	})
}

// CreatePoll starts a new poll on behalf of the teacher connection and
// broadcasts it with a zeroed tally. A still-active poll is implicitly
// ended (and its pollEnded broadcast) first.
func (c *Coordinator) CreatePoll(connectionID string, req types.CreatePollPayload) error {
	return c.dispatch(func(ctx context.Context) {
		sender, ok := c.registry.Get(connectionID)
		if !ok || sender.Role != types.RoleTeacher {
			log.Debug().Str("conn", connectionID).Msg("createPoll from non-teacher dropped")
			return
		}

		newPoll, endedPrevious, err := c.engine.Create(ctx, req, sender.DisplayName)
		if endedPrevious {
			c.broadcast(types.ServerEvent{Type: types.EventPollEnded})
		}
		if err != nil {
			log.Debug().Err(err).Msg("createPoll rejected")
			return
		}

		log.Info().Str("poll", newPoll.ID).Str("question", newPoll.Question).Msg("poll created")
		c.broadcast(types.ServerEvent{Type: types.EventPollCreated, Payload: newPoll})
		c.broadcast(types.ServerEvent{Type: types.EventPollResults, Payload: c.engine.Results()})
	})
}

// SubmitAnswer applies one vote and, if accepted, broadcasts the full
// updated tally. Rejected votes are dropped without any broadcast.
func (c *Coordinator) SubmitAnswer(connectionID string, req types.SubmitAnswerPayload) error {
	return c.dispatch(func(ctx context.Context) {
		if err := c.engine.Vote(req.PollID, req.OptionText, connectionID); err != nil {
			log.Debug().Err(err).Str("conn", connectionID).Msg("vote dropped")
			return
		}
		c.broadcast(types.ServerEvent{Type: types.EventPollResults, Payload: c.engine.Results()})
	})
}

// EndPoll closes the active poll. Both the teacher's explicit end and
// every client's local countdown converge here; only the first transition
// produces a pollEnded broadcast and a history entry.
func (c *Coordinator) EndPoll(connectionID string) error {
	return c.dispatch(func(ctx context.Context) {
		ended, err := c.engine.End(ctx, "")
		if err != nil {
			log.Error().Err(err).Msg("failed to record ended poll in history")
		}
		if ended {
			log.Info().Str("conn", connectionID).Msg("poll ended")
			c.broadcast(types.ServerEvent{Type: types.EventPollEnded})
		}
	})
}

// Kick sends the target a kickedOut signal, removes them from the
// registry, and broadcasts the updated roster. Silently ignores absent
// targets and requests from non-teachers.
func (c *Coordinator) Kick(connectionID, targetName string) error {
	return c.dispatch(func(ctx context.Context) {
		sender, ok := c.registry.Get(connectionID)
		if !ok || sender.Role != types.RoleTeacher {
			log.Debug().Str("conn", connectionID).Msg("kick from non-teacher dropped")
			return
		}

		targetConn, target, found := c.registry.FindByName(targetName)
		if !found {
			return
		}

		c.sendTo(targetConn, types.ServerEvent{Type: types.EventKickedOut})
		c.registry.Unregister(target.ConnectionID)
		log.Info().Str("name", targetName).Msg("participant kicked")

		// Removal completed above, so the kicked participant can never
		// appear in this or any later roster snapshot.
		c.broadcastRoster()
	})
}

// Chat broadcasts a chat line under the sender's external label with a
// server-assigned timestamp. The raw display name rides along so clients
// can mark their own messages.
func (c *Coordinator) Chat(connectionID, text string) error {
	return c.dispatch(func(ctx context.Context) {
		sender, ok := c.registry.Get(connectionID)
		if !ok {
			return
		}

		c.broadcast(types.ServerEvent{
			Type: types.EventChatMessage,
			Payload: types.ChatMessage{
				Sender:         sender.ExternalLabel(),
				OriginalSender: sender.DisplayName,
				Text:           text,
				Timestamp:      time.Now().UTC(),
			},
		})
	})
}

// Disconnect removes a connection and broadcasts the updated roster.
func (c *Coordinator) Disconnect(connectionID string) error {
	return c.dispatch(func(ctx context.Context) {
		participant := c.registry.Unregister(connectionID)
		if participant == nil {
			return
		}
		log.Info().Str("name", participant.DisplayName).Msg("participant disconnected")
		c.broadcastRoster()
	})
}

// Stats returns coordinator state for the health endpoint.
func (c *Coordinator) Stats() map[string]int {
	activePolls := 0
	if c.engine.Active() != nil {
		activePolls = 1
	}
	return map[string]int{
		"participants": c.registry.Len(),
		"active_polls": activePolls,
	}
}

// broadcast fans an event out to every connection. A slow connection
// whose outbound queue is full just misses this event; it never delays
// the others, and the next full-snapshot broadcast catches it up.
func (c *Coordinator) broadcast(event types.ServerEvent) {
	for _, conn := range c.registry.Conns() {
		c.sendTo(conn, event)
	}
}

func (c *Coordinator) sendTo(conn registry.Conn, event types.ServerEvent) {
	if err := conn.Send(event); err != nil {
		log.Debug().Err(err).Str("conn", conn.ID()).Str("event", event.Type).Msg("send dropped")
	}
}

func (c *Coordinator) broadcastRoster() {
	c.broadcast(types.ServerEvent{
		Type:    types.EventParticipantsUpdate,
		Payload: c.registry.Snapshot(),
	})
}
