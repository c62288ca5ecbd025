package registry

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/mmynk/partykeeper/internal/models"
)

const (
	maxNameLength = 24
	maxIconLength = 3
)

// Colors maps the color names players may pick to their formatting codes.
var Colors = map[string]string{
	"gold":       "§6",
	"yellow":     "§e",
	"green":      "§a",
	"aqua":       "§b",
	"red":        "§c",
	"purple":     "§5",
	"white":      "§f",
	"gray":       "§7",
	"blue":       "§9",
	"dark_green": "§2",
}

// SetRole changes a member's rank. Leadership only moves through
// TransferLeadership.
func (r *Registry) SetRole(partyID, target uuid.UUID, role models.Role) error {
	r.lock()
	defer r.unlock()

	p, err := r.partyLocked(partyID)
	if err != nil {
		return err
	}
	if !p.IsMember(target) {
		return ErrNotMember
	}
	if p.IsLeader(target) || role == models.RoleLeader || !role.Valid() {
		return ErrInvalidRole
	}
	if p.RoleOf(target) == role {
		return nil
	}
	p.SetRole(target, role)
	r.markDirty()
	return nil
}

// TransferLeadership hands the party to another member. The previous leader
// becomes an officer.
func (r *Registry) TransferLeadership(partyID, newLeader uuid.UUID) error {
	r.lock()
	defer r.unlock()

	p, err := r.partyLocked(partyID)
	if err != nil {
		return err
	}
	if !p.IsMember(newLeader) {
		return ErrNotMember
	}
	if p.IsLeader(newLeader) {
		return nil
	}
	p.TransferLeadership(newLeader)
	r.markDirty()
	r.logger.Info("Party leadership transferred", "party_id", p.ID, "leader", newLeader)
	return nil
}

// SetHome stores the party home.
func (r *Registry) SetHome(partyID uuid.UUID, loc models.Location) error {
	return r.updateParty(partyID, func(p *models.Party) error {
		p.Home = &loc
		return nil
	})
}

// ClearHome removes the party home.
func (r *Registry) ClearHome(partyID uuid.UUID) error {
	return r.updateParty(partyID, func(p *models.Party) error {
		if p.Home == nil {
			return ErrHomeNotSet
		}
		p.Home = nil
		return nil
	})
}

// SetName sets the display name after trimming spaces and wrapping quotes.
func (r *Registry) SetName(partyID uuid.UUID, name string) error {
	name = strings.TrimSpace(name)
	if len(name) >= 2 && (name[0] == '"' || name[0] == '\'') && name[len(name)-1] == name[0] {
		name = strings.TrimSpace(name[1 : len(name)-1])
	}
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return ErrInvalidName
	}
	return r.updateParty(partyID, func(p *models.Party) error {
		p.Name = name
		return nil
	})
}

// SetColor sets the party color by name (see Colors).
func (r *Registry) SetColor(partyID uuid.UUID, color string) error {
	code, ok := Colors[strings.ToLower(strings.TrimSpace(color))]
	if !ok {
		return ErrInvalidColor
	}
	return r.updateParty(partyID, func(p *models.Party) error {
		p.Color = code
		return nil
	})
}

// SetIcon sets the party icon, one to three characters.
func (r *Registry) SetIcon(partyID uuid.UUID, icon string) error {
	icon = strings.TrimSpace(icon)
	if n := utf8.RuneCountInString(icon); n == 0 || n > maxIconLength {
		return ErrInvalidIcon
	}
	return r.updateParty(partyID, func(p *models.Party) error {
		p.Icon = icon
		return nil
	})
}

// SetPublic opens or closes the party to direct joins.
func (r *Registry) SetPublic(partyID uuid.UUID, public bool) error {
	return r.updateParty(partyID, func(p *models.Party) error {
		p.IsPublic = public
		return nil
	})
}

// updateParty applies fn to the party and marks the registry dirty unless
// fn fails. fn must not mutate p before returning an error.
func (r *Registry) updateParty(partyID uuid.UUID, fn func(p *models.Party) error) error {
	r.lock()
	defer r.unlock()

	p, err := r.partyLocked(partyID)
	if err != nil {
		return err
	}
	if err := fn(p); err != nil {
		return err
	}
	r.markDirty()
	return nil
}

// AddAlly allies two parties with each other.
func (r *Registry) AddAlly(a, b uuid.UUID) error {
	r.lock()
	defer r.unlock()

	if a == b {
		return ErrSameParty
	}
	pa, err := r.partyLocked(a)
	if err != nil {
		return err
	}
	pb, err := r.partyLocked(b)
	if err != nil {
		return err
	}
	if pa.IsAlly(b) && pb.IsAlly(a) {
		return ErrAlreadyAllied
	}
	pa.AddAlly(b)
	pb.AddAlly(a)
	r.markDirty()
	return nil
}

// RemoveAlly ends the alliance on both sides.
func (r *Registry) RemoveAlly(a, b uuid.UUID) error {
	r.lock()
	defer r.unlock()

	pa, err := r.partyLocked(a)
	if err != nil {
		return err
	}
	pb, err := r.partyLocked(b)
	if err != nil {
		return err
	}
	if !pa.IsAlly(b) && !pb.IsAlly(a) {
		return ErrNotAllied
	}
	pa.RemoveAlly(b)
	pb.RemoveAlly(a)
	r.markDirty()
	return nil
}

// RecordKill credits a kill to the player's party.
func (r *Registry) RecordKill(player uuid.UUID) error {
	return r.updatePlayerParty(player, func(p *models.Party) error {
		p.RecordKill()
		return nil
	})
}

// RecordDeath charges a death to the player's party.
func (r *Registry) RecordDeath(player uuid.UUID) error {
	return r.updatePlayerParty(player, func(p *models.Party) error {
		p.RecordDeath()
		return nil
	})
}

// ClaimDailyReward records the player's daily claim and returns the party's
// resulting streak in days.
func (r *Registry) ClaimDailyReward(player uuid.UUID) (streak int, err error) {
	err = r.updatePlayerParty(player, func(p *models.Party) error {
		now := r.nowMs()
		if !p.CanClaimDailyReward(player, now) {
			return ErrRewardNotReady
		}
		p.ClaimDailyReward(player, now)
		streak = p.ConsecutiveDays
		return nil
	})
	return streak, err
}

// MarkSeen records that the player went offline now.
func (r *Registry) MarkSeen(player uuid.UUID) error {
	return r.updatePlayerParty(player, func(p *models.Party) error {
		p.MarkSeen(player, r.nowMs())
		return nil
	})
}

// updatePlayerParty is updateParty for the player's own party. Achievements
// are re-checked after fn succeeds.
func (r *Registry) updatePlayerParty(player uuid.UUID, fn func(p *models.Party) error) error {
	r.lock()
	defer r.unlock()

	p, err := r.playerPartyLocked(player)
	if err != nil {
		return err
	}
	if err := fn(p); err != nil {
		return err
	}
	r.checkAchievements(p)
	r.markDirty()
	return nil
}

// UnlockAchievement grants an achievement to the party directly.
func (r *Registry) UnlockAchievement(partyID uuid.UUID, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrBadAchievement
	}
	return r.updateParty(partyID, func(p *models.Party) error {
		if !p.UnlockAchievement(id) {
			return ErrAlreadyUnlocked
		}
		r.unlocks = append(r.unlocks, Unlock{PartyID: p.ID, Achievement: id})
		return nil
	})
}
