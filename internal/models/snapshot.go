package models

import (
	"errors"
	"fmt"
	"slices"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// ErrUnusableSnapshot is returned when a snapshot lacks a parseable party
// or leader ID. Such an entry cannot be restored and must be skipped.
var ErrUnusableSnapshot = errors.New("models: snapshot has no usable party or leader id")

// PartySnapshot is the persisted form of a Party. Identifiers are canonical
// UUID strings and timestamps are Unix milliseconds.
type PartySnapshot struct {
	ID              string            `json:"id"`
	Leader          string            `json:"leader"`
	Members         []string          `json:"members"`
	Invites         map[string]int64  `json:"invites"`
	JoinRequests    map[string]int64  `json:"join_requests"`
	Home            *Location         `json:"home"`
	CreatedAt       int64             `json:"created_at"`
	Name            string            `json:"name,omitempty"`
	IsPublic        bool              `json:"is_public"`
	Roles           map[string]string `json:"roles"`
	BannedPlayers   []string          `json:"banned_players"`
	TotalPlayTimeMs int64             `json:"total_play_time_ms"`
	TotalKills      int64             `json:"total_kills"`
	TotalDeaths     int64             `json:"total_deaths"`
	Color           string            `json:"color"`
	Icon            string            `json:"icon"`
	Allies          []string          `json:"allies"`
	LastDailyReward map[string]int64  `json:"last_daily_reward"`
	ConsecutiveDays int               `json:"consecutive_days"`
	LastRewardDate  int64             `json:"last_reward_date"`
	Achievements    []string          `json:"achievements"`
	LastSeen        map[string]int64  `json:"last_seen"`
}

// ToSnapshot converts the party to its persisted form. Lists are sorted so
// equal parties produce identical documents.
func (p *Party) ToSnapshot() PartySnapshot {
	var home *Location
	if p.Home != nil {
		h := *p.Home
		home = &h
	}
	roles := make(map[string]string, len(p.Roles))
	for id, role := range p.Roles {
		roles[id.String()] = string(role)
	}
	achievements := make([]string, 0, len(p.Achievements))
	for id := range p.Achievements {
		achievements = append(achievements, id)
	}
	slices.Sort(achievements)

	return PartySnapshot{
		ID:              p.ID.String(),
		Leader:          p.Leader.String(),
		Members:         idStrings(p.Members),
		Invites:         timestampStrings(p.Invites),
		JoinRequests:    timestampStrings(p.JoinRequests),
		Home:            home,
		CreatedAt:       p.CreatedAt,
		Name:            p.Name,
		IsPublic:        p.IsPublic,
		Roles:           roles,
		BannedPlayers:   idStrings(p.BannedPlayers),
		TotalPlayTimeMs: p.TotalPlayTimeMs,
		TotalKills:      p.TotalKills,
		TotalDeaths:     p.TotalDeaths,
		Color:           p.Color,
		Icon:            p.Icon,
		Allies:          idStrings(p.Allies),
		LastDailyReward: timestampStrings(p.LastDailyReward),
		ConsecutiveDays: p.ConsecutiveDays,
		LastRewardDate:  p.LastRewardDate,
		Achievements:    achievements,
		LastSeen:        timestampStrings(p.LastSeen),
	}
}

// FromSnapshot rebuilds a Party. Entries with unparseable identifiers are
// dropped one by one; only a bad party or leader ID fails the whole
// snapshot. The party invariants are restored if the snapshot broke them.
func FromSnapshot(s PartySnapshot) (*Party, error) {
	p, _, err := fromSnapshot(s)
	return p, err
}

func fromSnapshot(s PartySnapshot) (*Party, bool, error) {
	id, err := uuid.Parse(s.ID)
	if err != nil {
		return nil, false, fmt.Errorf("%w: id %q", ErrUnusableSnapshot, s.ID)
	}
	leader, err := uuid.Parse(s.Leader)
	if err != nil {
		return nil, false, fmt.Errorf("%w: leader %q", ErrUnusableSnapshot, s.Leader)
	}

	p := emptyParty(id, leader)
	p.CreatedAt = s.CreatedAt
	p.Name = s.Name
	p.IsPublic = s.IsPublic
	p.TotalPlayTimeMs = s.TotalPlayTimeMs
	p.TotalKills = s.TotalKills
	p.TotalDeaths = s.TotalDeaths
	p.ConsecutiveDays = s.ConsecutiveDays
	p.LastRewardDate = s.LastRewardDate
	if s.Color != "" {
		p.Color = s.Color
	}
	if s.Icon != "" {
		p.Icon = s.Icon
	}
	if s.Home != nil {
		home := *s.Home
		p.Home = &home
	}

	parseIDSet(s.Members, p.Members)
	parseIDSet(s.BannedPlayers, p.BannedPlayers)
	parseIDSet(s.Allies, p.Allies)
	parseTimestamps(s.Invites, p.Invites)
	parseTimestamps(s.JoinRequests, p.JoinRequests)
	parseTimestamps(s.LastDailyReward, p.LastDailyReward)
	parseTimestamps(s.LastSeen, p.LastSeen)
	for raw, role := range s.Roles {
		if member, err := uuid.Parse(raw); err == nil {
			p.Roles[member] = ParseRole(role)
		}
	}
	for _, a := range s.Achievements {
		if a != "" {
			p.Achievements[a] = struct{}{}
		}
	}

	return p, p.Repair(), nil
}

// EncodeParty serializes the party snapshot as compact JSON.
func EncodeParty(p *Party) ([]byte, error) {
	return json.Marshal(p.ToSnapshot())
}

// DecodeParty parses one JSON party snapshot. Nested entries of the wrong
// JSON type are dropped individually instead of failing the whole party.
func DecodeParty(data []byte) (*Party, error) {
	p, _, err := DecodeAndRepair(data)
	return p, err
}

// DecodeAndRepair is DecodeParty that also reports whether the stored
// party broke an invariant and had to be repaired.
func DecodeAndRepair(data []byte) (p *Party, repaired bool, err error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrUnusableSnapshot, err)
	}
	return fromSnapshot(looseSnapshot(fields))
}

func looseSnapshot(fields map[string]json.RawMessage) PartySnapshot {
	s := PartySnapshot{
		ID:              looseString(fields["id"]),
		Leader:          looseString(fields["leader"]),
		Members:         looseStrings(fields["members"]),
		Invites:         looseTimestamps(fields["invites"]),
		JoinRequests:    looseTimestamps(fields["join_requests"]),
		CreatedAt:       looseInt(fields["created_at"]),
		Name:            looseString(fields["name"]),
		IsPublic:        true,
		Roles:           looseStringMap(fields["roles"]),
		BannedPlayers:   looseStrings(fields["banned_players"]),
		TotalPlayTimeMs: looseInt(fields["total_play_time_ms"]),
		TotalKills:      looseInt(fields["total_kills"]),
		TotalDeaths:     looseInt(fields["total_deaths"]),
		Color:           looseString(fields["color"]),
		Icon:            looseString(fields["icon"]),
		Allies:          looseStrings(fields["allies"]),
		LastDailyReward: looseTimestamps(fields["last_daily_reward"]),
		ConsecutiveDays: int(looseInt(fields["consecutive_days"])),
		LastRewardDate:  looseInt(fields["last_reward_date"]),
		Achievements:    looseStrings(fields["achievements"]),
		LastSeen:        looseTimestamps(fields["last_seen"]),
	}
	if raw, ok := fields["is_public"]; ok {
		var public bool
		if json.Unmarshal(raw, &public) == nil {
			s.IsPublic = public
		}
	}
	if raw, ok := fields["home"]; ok {
		var home Location
		if json.Unmarshal(raw, &home) == nil && string(raw) != "null" {
			s.Home = &home
		}
	}
	return s
}

func looseString(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

func looseInt(raw json.RawMessage) int64 {
	var n int64
	if len(raw) == 0 || json.Unmarshal(raw, &n) != nil {
		return 0
	}
	return n
}

func looseStrings(raw json.RawMessage) []string {
	var items []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &items) != nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if json.Unmarshal(item, &s) == nil {
			out = append(out, s)
		}
	}
	return out
}

func looseStringMap(raw json.RawMessage) map[string]string {
	var items map[string]json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &items) != nil {
		return nil
	}
	out := make(map[string]string, len(items))
	for k, v := range items {
		var s string
		if json.Unmarshal(v, &s) == nil {
			out[k] = s
		}
	}
	return out
}

func looseTimestamps(raw json.RawMessage) map[string]int64 {
	var items map[string]json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &items) != nil {
		return nil
	}
	out := make(map[string]int64, len(items))
	for k, v := range items {
		var n int64
		if json.Unmarshal(v, &n) == nil {
			out[k] = n
		}
	}
	return out
}

func parseIDSet(raw []string, into map[uuid.UUID]struct{}) {
	for _, s := range raw {
		if id, err := uuid.Parse(s); err == nil {
			into[id] = struct{}{}
		}
	}
}

func parseTimestamps(raw map[string]int64, into map[uuid.UUID]int64) {
	for s, ts := range raw {
		if id, err := uuid.Parse(s); err == nil {
			into[id] = ts
		}
	}
}

func idStrings(set map[uuid.UUID]struct{}) []string {
	ids := sortedIDs(set)
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func timestampStrings(m map[uuid.UUID]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for id, ts := range m {
		out[id.String()] = ts
	}
	return out
}
