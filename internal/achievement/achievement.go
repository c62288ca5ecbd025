// Package achievement defines the party achievements and the rules that
// unlock them.
package achievement

import (
	"github.com/mmynk/partykeeper/internal/models"
)

// Achievement IDs.
const (
	PartyStarted = "party_started"
	TeamPlayer   = "team_player"
	FullHouse    = "full_house"
	Dedicated    = "dedicated"
	Veteran      = "veteran"
	FirstBlood   = "first_blood"
	Slayer       = "slayer"
	Survivor     = "survivor"
	Consistent   = "consistent"
	Devoted      = "devoted"
)

const hourMs = int64(60 * 60 * 1000)

// Achievement describes one unlockable goal and the experience it awards.
type Achievement struct {
	ID          string
	Name        string
	Description string
	RewardXP    int

	earned func(p *models.Party, maxMembers int) bool
}

// Catalog evaluates the default achievements. It satisfies the registry's
// AchievementChecker.
type Catalog struct {
	maxMembers int
	list       []Achievement
	byID       map[string]int
}

// NewCatalog returns the default catalog. maxMembers is the party size that
// earns FullHouse.
func NewCatalog(maxMembers int) *Catalog {
	c := &Catalog{maxMembers: maxMembers, byID: make(map[string]int)}
	for _, a := range defaults() {
		c.byID[a.ID] = len(c.list)
		c.list = append(c.list, a)
	}
	return c
}

func defaults() []Achievement {
	return []Achievement{
		{PartyStarted, "Party Started", "Create your first party", 100,
			func(p *models.Party, _ int) bool { return len(p.Members) >= 1 }},
		{TeamPlayer, "Team Player", "Have 5 members in your party", 250,
			func(p *models.Party, _ int) bool { return len(p.Members) >= 5 }},
		{FullHouse, "Full House", "Fill your party to max capacity", 500,
			func(p *models.Party, limit int) bool { return len(p.Members) >= limit }},
		{Dedicated, "Dedicated", "10 hours of party playtime", 500,
			func(p *models.Party, _ int) bool { return p.TotalPlayTimeMs >= 10*hourMs }},
		{Veteran, "Veteran", "50 hours of party playtime", 2000,
			func(p *models.Party, _ int) bool { return p.TotalPlayTimeMs >= 50*hourMs }},
		{FirstBlood, "First Blood", "Get 10 party kills", 200,
			func(p *models.Party, _ int) bool { return p.TotalKills >= 10 }},
		{Slayer, "Slayer", "Get 100 party kills", 1000,
			func(p *models.Party, _ int) bool { return p.TotalKills >= 100 }},
		{Survivor, "Survivor", "Reach 2.0 K/D ratio", 750,
			func(p *models.Party, _ int) bool {
				return p.TotalDeaths > 0 && float64(p.TotalKills)/float64(p.TotalDeaths) >= 2
			}},
		{Consistent, "Consistent", "Claim rewards for 7 days straight", 500,
			func(p *models.Party, _ int) bool { return p.ConsecutiveDays >= 7 }},
		{Devoted, "Devoted", "Claim rewards for 30 days straight", 2500,
			func(p *models.Party, _ int) bool { return p.ConsecutiveDays >= 30 }},
	}
}

// All returns the achievements in catalog order.
func (c *Catalog) All() []Achievement {
	out := make([]Achievement, len(c.list))
	copy(out, c.list)
	return out
}

// Get looks up an achievement by id.
func (c *Catalog) Get(id string) (Achievement, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Achievement{}, false
	}
	return c.list[i], true
}

// Check unlocks every achievement p has earned but not yet unlocked and
// returns their ids in catalog order.
func (c *Catalog) Check(p *models.Party) []string {
	var unlocked []string
	for _, a := range c.list {
		if p.HasAchievement(a.ID) || !a.earned(p, c.maxMembers) {
			continue
		}
		if p.UnlockAchievement(a.ID) {
			unlocked = append(unlocked, a.ID)
		}
	}
	return unlocked
}
