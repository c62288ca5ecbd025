package models

import (
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// MillisPerDay is the length of a daily-reward day.
const MillisPerDay int64 = 24 * 60 * 60 * 1000

const (
	DefaultColor = "§6"
	DefaultIcon  = "*"
)

// Party represents one group of players.
//
// Fields are exported for reading. Writes go through the methods below so
// the package invariants hold; the registry is the only caller that mutates
// a live Party.
type Party struct {
	// ID is the unique identifier for the party. It is never reused.
	ID uuid.UUID

	// Leader is the member who owns the party.
	Leader uuid.UUID

	// Members is the set of player IDs in the party, leader included.
	Members map[uuid.UUID]struct{}

	// Roles maps every member to its rank.
	Roles map[uuid.UUID]Role

	// Invites maps invited players to the time the invite was sent (ms).
	Invites map[uuid.UUID]int64

	// JoinRequests maps requesting players to the time they asked (ms).
	JoinRequests map[uuid.UUID]int64

	// BannedPlayers may not join, request to join, or be invited.
	BannedPlayers map[uuid.UUID]struct{}

	// Home is the party's saved teleport point, nil until set.
	Home *Location

	// CreatedAt is the Unix millisecond timestamp when the party was created.
	CreatedAt int64

	Name     string
	Color    string
	Icon     string
	IsPublic bool

	// Allies holds the IDs of allied parties. The registry keeps the
	// relation symmetric.
	Allies map[uuid.UUID]struct{}

	TotalKills      int64
	TotalDeaths     int64
	TotalPlayTimeMs int64

	// Achievements holds unlocked achievement IDs.
	Achievements map[string]struct{}

	// LastDailyReward maps members to their last reward claim (ms).
	LastDailyReward map[uuid.UUID]int64
	ConsecutiveDays int
	LastRewardDate  int64

	// LastSeen maps members to the last time they went offline (ms).
	LastSeen map[uuid.UUID]int64
}

// NewParty creates a public party led by leader.
func NewParty(leader uuid.UUID, nowMs int64) *Party {
	p := emptyParty(uuid.New(), leader)
	p.CreatedAt = nowMs
	p.Members[leader] = struct{}{}
	p.Roles[leader] = RoleLeader
	return p
}

func emptyParty(id, leader uuid.UUID) *Party {
	return &Party{
		ID:              id,
		Leader:          leader,
		Members:         make(map[uuid.UUID]struct{}),
		Roles:           make(map[uuid.UUID]Role),
		Invites:         make(map[uuid.UUID]int64),
		JoinRequests:    make(map[uuid.UUID]int64),
		BannedPlayers:   make(map[uuid.UUID]struct{}),
		Color:           DefaultColor,
		Icon:            DefaultIcon,
		IsPublic:        true,
		Allies:          make(map[uuid.UUID]struct{}),
		Achievements:    make(map[string]struct{}),
		LastDailyReward: make(map[uuid.UUID]int64),
		LastSeen:        make(map[uuid.UUID]int64),
	}
}

// IsMember reports whether id belongs to the party.
func (p *Party) IsMember(id uuid.UUID) bool {
	_, ok := p.Members[id]
	return ok
}

// IsLeader reports whether id leads the party.
func (p *Party) IsLeader(id uuid.UUID) bool {
	return p.Leader == id
}

// IsBanned reports whether id is on the ban list.
func (p *Party) IsBanned(id uuid.UUID) bool {
	_, ok := p.BannedPlayers[id]
	return ok
}

// HasInvite reports whether id holds an invite, expired or not.
func (p *Party) HasInvite(id uuid.UUID) bool {
	_, ok := p.Invites[id]
	return ok
}

// HasJoinRequest reports whether id has asked to join.
func (p *Party) HasJoinRequest(id uuid.UUID) bool {
	_, ok := p.JoinRequests[id]
	return ok
}

// RoleOf returns the member's role. Non-members read as RoleMember.
func (p *Party) RoleOf(id uuid.UUID) Role {
	if role, ok := p.Roles[id]; ok {
		return role
	}
	return RoleMember
}

// SortedMembers returns the member IDs ordered by their canonical string.
func (p *Party) SortedMembers() []uuid.UUID {
	return sortedIDs(p.Members)
}

// AddMember inserts id as a plain member and drops any pending invite or
// join request it held.
func (p *Party) AddMember(id uuid.UUID) {
	p.Members[id] = struct{}{}
	delete(p.Invites, id)
	delete(p.JoinRequests, id)
	if _, ok := p.Roles[id]; !ok {
		p.Roles[id] = RoleMember
	}
}

// RemoveMember erases id and every per-member record the party holds for it.
// Removing the leader leaves the party leaderless until TransferLeadership.
func (p *Party) RemoveMember(id uuid.UUID) {
	delete(p.Members, id)
	delete(p.Invites, id)
	delete(p.JoinRequests, id)
	delete(p.Roles, id)
	delete(p.LastDailyReward, id)
	delete(p.LastSeen, id)
}

// SetRole changes a member's rank. The leader and non-members are ignored;
// leadership only moves through TransferLeadership.
func (p *Party) SetRole(id uuid.UUID, role Role) {
	if id == p.Leader || !p.IsMember(id) || role == RoleLeader {
		return
	}
	p.Roles[id] = role
}

// TransferLeadership hands the party to newLeader. The outgoing leader, if
// still a member, becomes an officer. Returns false when newLeader is not
// a member.
func (p *Party) TransferLeadership(newLeader uuid.UUID) bool {
	if !p.IsMember(newLeader) {
		return false
	}
	if p.Leader != newLeader {
		if p.IsMember(p.Leader) {
			p.Roles[p.Leader] = RoleOfficer
		}
		p.Leader = newLeader
	}
	p.Roles[p.Leader] = RoleLeader
	return true
}

// Invite records an invite for id sent at nowMs.
func (p *Party) Invite(id uuid.UUID, nowMs int64) {
	p.Invites[id] = nowMs
}

// RemoveInvite drops the invite for id, if any.
func (p *Party) RemoveInvite(id uuid.UUID) {
	delete(p.Invites, id)
}

// AddJoinRequest records a join request from id sent at nowMs.
func (p *Party) AddJoinRequest(id uuid.UUID, nowMs int64) {
	p.JoinRequests[id] = nowMs
}

// RemoveJoinRequest drops the join request from id, if any.
func (p *Party) RemoveJoinRequest(id uuid.UUID) {
	delete(p.JoinRequests, id)
}

// Expired reports whether something sent at sentMs has outlived ttlMs.
func Expired(sentMs, ttlMs, nowMs int64) bool {
	return nowMs-sentMs >= ttlMs
}

// SweepExpiredInvites removes and returns every invite older than ttlMs.
func (p *Party) SweepExpiredInvites(ttlMs, nowMs int64) []uuid.UUID {
	return sweep(p.Invites, ttlMs, nowMs)
}

// SweepExpiredJoinRequests removes and returns every join request older
// than ttlMs.
func (p *Party) SweepExpiredJoinRequests(ttlMs, nowMs int64) []uuid.UUID {
	return sweep(p.JoinRequests, ttlMs, nowMs)
}

func sweep(entries map[uuid.UUID]int64, ttlMs, nowMs int64) []uuid.UUID {
	var expired []uuid.UUID
	for id, sentAt := range entries {
		if Expired(sentAt, ttlMs, nowMs) {
			expired = append(expired, id)
			delete(entries, id)
		}
	}
	return expired
}

// Ban adds id to the ban list and removes it from the party.
func (p *Party) Ban(id uuid.UUID) {
	p.BannedPlayers[id] = struct{}{}
	p.RemoveMember(id)
}

// Unban lifts a ban. Membership is not restored.
func (p *Party) Unban(id uuid.UUID) {
	delete(p.BannedPlayers, id)
}

// AddAlly marks other as allied. Symmetry is the caller's responsibility.
func (p *Party) AddAlly(other uuid.UUID) {
	if other == p.ID {
		return
	}
	p.Allies[other] = struct{}{}
}

// RemoveAlly drops the alliance with other.
func (p *Party) RemoveAlly(other uuid.UUID) {
	delete(p.Allies, other)
}

// IsAlly reports whether other is allied with this party.
func (p *Party) IsAlly(other uuid.UUID) bool {
	_, ok := p.Allies[other]
	return ok
}

// AddPlayTime accumulates shared play time. Negative durations are ignored.
func (p *Party) AddPlayTime(ms int64) {
	if ms > 0 {
		p.TotalPlayTimeMs += ms
	}
}

func (p *Party) RecordKill()  { p.TotalKills++ }
func (p *Party) RecordDeath() { p.TotalDeaths++ }

// UnlockAchievement adds id to the unlocked set and reports whether it was new.
func (p *Party) UnlockAchievement(id string) bool {
	if _, ok := p.Achievements[id]; ok {
		return false
	}
	p.Achievements[id] = struct{}{}
	return true
}

// HasAchievement reports whether id has been unlocked.
func (p *Party) HasAchievement(id string) bool {
	_, ok := p.Achievements[id]
	return ok
}

// MarkSeen records that a member went offline at nowMs.
func (p *Party) MarkSeen(id uuid.UUID, nowMs int64) {
	if p.IsMember(id) {
		p.LastSeen[id] = nowMs
	}
}

// CanClaimDailyReward reports whether id may claim at nowMs: never claimed,
// or at least one day since the last claim.
func (p *Party) CanClaimDailyReward(id uuid.UUID, nowMs int64) bool {
	last, ok := p.LastDailyReward[id]
	if !ok {
		return true
	}
	return nowMs-last >= MillisPerDay
}

// ClaimDailyReward records a claim by id and advances the party streak.
// A claim exactly one day after the previous party claim extends the
// streak; a longer gap restarts it at 1.
func (p *Party) ClaimDailyReward(id uuid.UUID, nowMs int64) {
	p.LastDailyReward[id] = nowMs

	// A streak is only ever 0 before the first claim, so it marks a prior
	// claim even when that claim happened at timestamp 0.
	if p.ConsecutiveDays > 0 || p.LastRewardDate > 0 {
		daysSince := (nowMs - p.LastRewardDate) / MillisPerDay
		switch {
		case daysSince == 1:
			p.ConsecutiveDays++
		case daysSince > 1:
			p.ConsecutiveDays = 1
		}
	} else {
		p.ConsecutiveDays = 1
	}

	p.LastRewardDate = nowMs
}

// Clone returns a deep copy of the party.
func (p *Party) Clone() *Party {
	c := *p
	c.Members = maps.Clone(p.Members)
	c.Roles = maps.Clone(p.Roles)
	c.Invites = maps.Clone(p.Invites)
	c.JoinRequests = maps.Clone(p.JoinRequests)
	c.BannedPlayers = maps.Clone(p.BannedPlayers)
	c.Allies = maps.Clone(p.Allies)
	c.Achievements = maps.Clone(p.Achievements)
	c.LastDailyReward = maps.Clone(p.LastDailyReward)
	c.LastSeen = maps.Clone(p.LastSeen)
	if p.Home != nil {
		home := *p.Home
		c.Home = &home
	}
	return &c
}

// Repair restores the leader invariants on a party assembled from
// untrusted data, drops invites and join requests held by members or
// banned players, and reports whether anything changed.
func (p *Party) Repair() bool {
	changed := false
	if !p.IsMember(p.Leader) {
		p.Members[p.Leader] = struct{}{}
		changed = true
	}
	if p.Roles[p.Leader] != RoleLeader {
		p.Roles[p.Leader] = RoleLeader
		changed = true
	}
	for id := range p.Roles {
		if !p.IsMember(id) {
			delete(p.Roles, id)
			changed = true
		}
	}
	for id := range p.Members {
		if _, ok := p.Roles[id]; !ok {
			p.Roles[id] = RoleMember
			changed = true
		}
		if p.HasInvite(id) || p.HasJoinRequest(id) {
			delete(p.Invites, id)
			delete(p.JoinRequests, id)
			changed = true
		}
		if p.IsBanned(id) {
			delete(p.BannedPlayers, id)
			changed = true
		}
	}
	for id := range p.BannedPlayers {
		if p.HasInvite(id) || p.HasJoinRequest(id) {
			delete(p.Invites, id)
			delete(p.JoinRequests, id)
			changed = true
		}
	}
	return changed
}

func sortedIDs[V any](set map[uuid.UUID]V) []uuid.UUID {
	ids := slices.Collect(maps.Keys(set))
	slices.SortFunc(ids, func(a, b uuid.UUID) int {
		return strings.Compare(a.String(), b.String())
	})
	return ids
}
