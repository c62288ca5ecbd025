package registry

import (
	"math"

	"github.com/google/uuid"

	"github.com/mmynk/partykeeper/internal/models"
)

// HomeTeleport validates a teleport of player to their party home and
// returns the destination. The caller performs the move and then calls
// TouchTeleportCooldown.
func (r *Registry) HomeTeleport(player uuid.UUID) (models.Location, error) {
	r.lock()
	defer r.unlock()

	origin, p, err := r.teleportOriginLocked(player)
	if err != nil {
		return models.Location{}, err
	}
	if p.Home == nil {
		return models.Location{}, ErrHomeNotSet
	}
	dest := *p.Home
	if err := r.checkDestination(origin, dest); err != nil {
		return models.Location{}, err
	}
	return dest, nil
}

// LeaderTeleport validates a teleport of player to their online party
// leader and returns the destination.
func (r *Registry) LeaderTeleport(player uuid.UUID) (models.Location, error) {
	r.lock()
	defer r.unlock()

	origin, p, err := r.teleportOriginLocked(player)
	if err != nil {
		return models.Location{}, err
	}
	if p.IsLeader(player) {
		return models.Location{}, ErrAlreadyLeader
	}
	leader, ok := r.players.Lookup(p.Leader)
	if !ok {
		return models.Location{}, ErrLeaderOffline
	}
	dest := leader.Location()
	if err := r.checkDestination(origin, dest); err != nil {
		return models.Location{}, err
	}
	return dest, nil
}

func (r *Registry) teleportOriginLocked(player uuid.UUID) (models.Location, *models.Party, error) {
	if !r.cfg.TeleportEnabled {
		return models.Location{}, nil, ErrTeleportDisabled
	}
	p, err := r.playerPartyLocked(player)
	if err != nil {
		return models.Location{}, nil, err
	}
	if r.remaining(r.teleportUsed, player, r.cfg.TeleportCooldown) > 0 {
		return models.Location{}, nil, ErrTeleportCooldown
	}
	online, ok := r.players.Lookup(player)
	if !ok {
		return models.Location{}, nil, ErrPlayerOffline
	}
	return online.Location(), p, nil
}

// checkDestination applies the distance limit within a dimension and the
// safety predicate. Crossing dimensions is never too far.
func (r *Registry) checkDestination(origin, dest models.Location) error {
	if origin.SameDimension(dest) && r.cfg.MaxTeleportDistance > 0 {
		if r.distance(origin, dest) > r.cfg.MaxTeleportDistance {
			return ErrTooFar
		}
	}
	if r.cfg.SafeTeleport && r.safety != nil && !r.safety.IsSafe(dest) {
		return ErrUnsafeLocation
	}
	return nil
}

func (r *Registry) distance(a, b models.Location) float64 {
	if r.safety != nil {
		return r.safety.Distance(a, b)
	}
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
