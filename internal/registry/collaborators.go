package registry

import (
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/partykeeper/internal/models"
)

// Player is an online player handle supplied by the host.
type Player interface {
	ID() uuid.UUID
	Name() string
	Location() models.Location
}

// PlayerDirectory resolves online players. Lookup reports false for
// offline or unknown ids.
type PlayerDirectory interface {
	Lookup(id uuid.UUID) (Player, bool)
	Online() []Player
}

// Messenger delivers text to a single online player.
type Messenger interface {
	SendTo(id uuid.UUID, text string)
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SafetyChecker judges teleport destinations.
type SafetyChecker interface {
	IsSafe(loc models.Location) bool
	Distance(a, b models.Location) float64
}

// AchievementChecker unlocks whatever p has earned and returns the ids that
// were newly unlocked.
type AchievementChecker interface {
	Check(p *models.Party) []string
}

// Unlock reports an achievement newly earned by a party.
type Unlock struct {
	PartyID     uuid.UUID
	Achievement string
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
