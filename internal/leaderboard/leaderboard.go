// Package leaderboard ranks parties by their shared statistics.
package leaderboard

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/mmynk/partykeeper/internal/models"
)

// Metric is a ranking criterion.
type Metric string

const (
	Kills        Metric = "kills"
	PlayTime     Metric = "playtime"
	Members      Metric = "members"
	KillRatio    Metric = "kd"
	Achievements Metric = "achievements"
)

// DefaultLimit is used when a caller asks for a non-positive limit.
const DefaultLimit = 10

// Metrics lists every supported metric.
var Metrics = []Metric{Kills, PlayTime, Members, KillRatio, Achievements}

// ParseMetric resolves a metric name, case-insensitively.
func ParseMetric(s string) (Metric, error) {
	m := Metric(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(Metrics, m) {
		return m, nil
	}
	return "", fmt.Errorf("unknown leaderboard metric %q", s)
}

// Value returns the party's score for m.
func (m Metric) Value(p *models.Party) float64 {
	switch m {
	case Kills:
		return float64(p.TotalKills)
	case PlayTime:
		return float64(p.TotalPlayTimeMs)
	case Members:
		return float64(len(p.Members))
	case KillRatio:
		if p.TotalDeaths > 0 {
			return float64(p.TotalKills) / float64(p.TotalDeaths)
		}
		return float64(p.TotalKills)
	case Achievements:
		return float64(len(p.Achievements))
	}
	return 0
}

// Entry is one ranked party.
type Entry struct {
	Rank  int
	Party *models.Party
	Value float64
}

// Top returns up to limit parties ordered by m, highest first. Ties go to
// the older party, then to the smaller id.
func Top(parties []*models.Party, m Metric, limit int) []Entry {
	if limit <= 0 {
		limit = DefaultLimit
	}
	entries := make([]Entry, 0, len(parties))
	for _, p := range parties {
		entries = append(entries, Entry{Party: p, Value: m.Value(p)})
	}
	slices.SortFunc(entries, func(a, b Entry) int {
		return cmp.Or(
			cmp.Compare(b.Value, a.Value),
			cmp.Compare(a.Party.CreatedAt, b.Party.CreatedAt),
			strings.Compare(a.Party.ID.String(), b.Party.ID.String()),
		)
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
