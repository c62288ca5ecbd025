// Package roster tracks the players the host reports as online and buffers
// the messages addressed to them until the host collects them.
package roster

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/mmynk/partykeeper/internal/models"
	"github.com/mmynk/partykeeper/internal/registry"
)

// DefaultInboxSize bounds the queued messages per player. The oldest
// message is dropped when the inbox is full.
const DefaultInboxSize = 64

type player struct {
	id   uuid.UUID
	name string
	loc  models.Location
}

func (p player) ID() uuid.UUID             { return p.id }
func (p player) Name() string              { return p.name }
func (p player) Location() models.Location { return p.loc }

// Roster is an in-memory registry.PlayerDirectory and registry.Messenger.
// It is safe for concurrent use.
type Roster struct {
	mu        sync.RWMutex
	online    map[uuid.UUID]player
	inbox     map[uuid.UUID][]string
	inboxSize int
}

// New creates an empty roster. A non-positive inboxSize uses
// DefaultInboxSize.
func New(inboxSize int) *Roster {
	if inboxSize <= 0 {
		inboxSize = DefaultInboxSize
	}
	return &Roster{
		online:    make(map[uuid.UUID]player),
		inbox:     make(map[uuid.UUID][]string),
		inboxSize: inboxSize,
	}
}

// Connect marks the player online, or updates name and position when they
// already are.
func (r *Roster) Connect(id uuid.UUID, name string, loc models.Location) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.online[id] = player{id: id, name: name, loc: loc}
}

// Move updates the position of an online player. Reports false when the
// player is offline.
func (r *Roster) Move(id uuid.UUID, loc models.Location) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.online[id]
	if !ok {
		return false
	}
	p.loc = loc
	r.online[id] = p
	return true
}

// Disconnect marks the player offline and drops their undelivered messages.
// Reports whether they were online.
func (r *Roster) Disconnect(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.online[id]
	delete(r.online, id)
	delete(r.inbox, id)
	return ok
}

// Lookup returns the online player with the given id.
func (r *Roster) Lookup(id uuid.UUID) (registry.Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.online[id]
	if !ok {
		return nil, false
	}
	return p, true
}

// Online returns every online player in id order.
func (r *Roster) Online() []registry.Player {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]registry.Player, 0, len(r.online))
	for _, p := range r.online {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID().String() < out[j].ID().String()
	})
	return out
}

// SendTo queues text for an online player. Messages to offline players are
// discarded.
func (r *Roster) SendTo(id uuid.UUID, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.online[id]; !ok {
		return
	}
	msgs := append(r.inbox[id], text)
	if len(msgs) > r.inboxSize {
		msgs = msgs[len(msgs)-r.inboxSize:]
	}
	r.inbox[id] = msgs
}

// Drain returns and clears the queued messages for the player.
func (r *Roster) Drain(id uuid.UUID) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := r.inbox[id]
	delete(r.inbox, id)
	return msgs
}
