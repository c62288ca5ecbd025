package registry

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/partykeeper/internal/models"
)

// ephemeralRetention is the minimum time cooldown stamps are kept. Longer
// configured cooldowns extend it.
const ephemeralRetention = time.Hour

// RecordPlayerName remembers the display name for id.
func (r *Registry) RecordPlayerName(id uuid.UUID, name string) {
	r.lock()
	defer r.unlock()
	r.setNameLocked(id, name)
}

func (r *Registry) setNameLocked(id uuid.UUID, name string) {
	name = strings.TrimSpace(name)
	if name == "" || r.names[id] == name {
		return
	}
	r.names[id] = name
	r.markDirty()
}

func (r *Registry) recordOnlineNameLocked(id uuid.UUID) {
	if p, ok := r.players.Lookup(id); ok {
		r.setNameLocked(id, p.Name())
	}
}

// PlayerName returns the live name of an online player, else the last
// recorded name, else the first eight characters of the id.
func (r *Registry) PlayerName(id uuid.UUID) string {
	r.lock()
	defer r.unlock()

	if p, ok := r.players.Lookup(id); ok {
		r.setNameLocked(id, p.Name())
		return p.Name()
	}
	if name, ok := r.names[id]; ok {
		return name
	}
	return id.String()[:8]
}

// OnlineMemberCount returns how many members of the party are online.
func (r *Registry) OnlineMemberCount(partyID uuid.UUID) int {
	r.lock()
	defer r.unlock()

	p, ok := r.parties[partyID]
	if !ok {
		return 0
	}
	n := 0
	for member := range p.Members {
		if r.isOnline(member) {
			n++
		}
	}
	return n
}

// Broadcast sends text to every online member and returns how many
// received it. Delivery happens after the registry lock is released.
func (r *Registry) Broadcast(partyID uuid.UUID, text string) int {
	r.lock()
	p, ok := r.parties[partyID]
	var recipients []uuid.UUID
	if ok {
		for _, member := range p.SortedMembers() {
			if r.isOnline(member) {
				recipients = append(recipients, member)
			}
		}
	}
	r.unlock()

	if r.messenger == nil {
		return 0
	}
	for _, id := range recipients {
		r.messenger.SendTo(id, text)
	}
	return len(recipients)
}

// CommandCooldownRemaining returns how long the player must wait before
// the next command. Zero means ready.
func (r *Registry) CommandCooldownRemaining(player uuid.UUID) time.Duration {
	r.lock()
	defer r.unlock()
	return r.remaining(r.commandUsed, player, r.cfg.CommandCooldown)
}

// TouchCommandCooldown starts the command cooldown for player.
func (r *Registry) TouchCommandCooldown(player uuid.UUID) {
	r.lock()
	defer r.unlock()
	r.commandUsed[player] = r.nowMs()
}

// TeleportCooldownRemaining returns how long the player must wait before
// the next teleport. Zero means ready.
func (r *Registry) TeleportCooldownRemaining(player uuid.UUID) time.Duration {
	r.lock()
	defer r.unlock()
	return r.remaining(r.teleportUsed, player, r.cfg.TeleportCooldown)
}

// TouchTeleportCooldown starts the teleport cooldown for player. Call it
// after a teleport actually happened.
func (r *Registry) TouchTeleportCooldown(player uuid.UUID) {
	r.lock()
	defer r.unlock()
	r.teleportUsed[player] = r.nowMs()
}

func (r *Registry) remaining(stamps map[uuid.UUID]int64, player uuid.UUID, cooldown time.Duration) time.Duration {
	if cooldown <= 0 {
		return 0
	}
	last, ok := stamps[player]
	if !ok {
		return 0
	}
	elapsed := time.Duration(r.nowMs()-last) * time.Millisecond
	if elapsed >= cooldown {
		return 0
	}
	return cooldown - elapsed
}

// MarkerMoved records the player's position for proximity markers and
// reports whether it changed by at least threshold blocks since the last
// call. The first sighting always counts as moved.
func (r *Registry) MarkerMoved(player uuid.UUID, pos models.Location, threshold float64) bool {
	r.lock()
	defer r.unlock()

	last, seen := r.markers[player]
	r.markers[player] = pos
	if !seen {
		return true
	}
	dx, dy, dz := pos.X-last.X, pos.Y-last.Y, pos.Z-last.Z
	return dx*dx+dy*dy+dz*dz >= threshold*threshold
}

// ForgetPlayer drops the cooldowns and marker position kept for player,
// typically when they disconnect.
func (r *Registry) ForgetPlayer(player uuid.UUID) {
	r.lock()
	defer r.unlock()

	delete(r.commandUsed, player)
	delete(r.teleportUsed, player)
	delete(r.markers, player)
}

// PruneEphemeral drops cooldown stamps older than the retention window and
// marker positions of players that are no longer online. The window is an
// hour or the longest configured cooldown, whichever is longer.
func (r *Registry) PruneEphemeral() {
	r.lock()
	defer r.unlock()

	retention := max(ephemeralRetention, r.cfg.TeleportCooldown, r.cfg.CommandCooldown)
	cutoff := r.nowMs() - retention.Milliseconds()
	for _, stamps := range []map[uuid.UUID]int64{r.commandUsed, r.teleportUsed} {
		for id, at := range stamps {
			if at < cutoff {
				delete(stamps, id)
			}
		}
	}
	for id := range r.markers {
		if !r.isOnline(id) {
			delete(r.markers, id)
		}
	}
}

// AccruePlayTime adds delta of shared play time to every party with at
// least one online member, then re-checks their achievements. Returns the
// number of parties credited.
func (r *Registry) AccruePlayTime(delta time.Duration) int {
	if delta <= 0 {
		return 0
	}

	online := make(map[uuid.UUID]struct{})
	for _, p := range r.players.Online() {
		online[p.ID()] = struct{}{}
	}

	r.lock()
	defer r.unlock()

	credited := 0
	for _, p := range r.parties {
		for member := range p.Members {
			if _, ok := online[member]; ok {
				p.AddPlayTime(delta.Milliseconds())
				r.checkAchievements(p)
				credited++
				break
			}
		}
	}
	if credited > 0 {
		r.markDirty()
	}
	return credited
}
