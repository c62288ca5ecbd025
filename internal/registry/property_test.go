package registry

import (
	"maps"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"pgregory.net/rapid"

	"github.com/mmynk/partykeeper/internal/models"
)

// registryState is a comparable copy of everything a rejected operation
// must leave alone.
type registryState struct {
	parties       []*models.Party
	playerToParty map[uuid.UUID]uuid.UUID
	pendingInvite map[uuid.UUID]uuid.UUID
	dirty         bool
}

func stateOf(r *Registry) registryState {
	parties := r.Parties()
	r.mu.Lock()
	defer r.mu.Unlock()
	return registryState{
		parties:       parties,
		playerToParty: maps.Clone(r.playerToParty),
		pendingInvite: maps.Clone(r.pendingInvite),
		dirty:         r.dirty,
	}
}

func TestRandomOperationsKeepInvariants(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		maxMembers := rapid.IntRange(1, 4).Draw(rt, "maxMembers")
		h := newHarness(rt, func(c *Config) {
			c.MaxMembers = maxMembers
			c.MaxPendingInvites = 3
			c.InviteTTL = time.Minute
		})
		r := h.reg

		players := make([]uuid.UUID, 8)
		for i := range players {
			players[i] = uuid.New()
		}
		player := rapid.SampledFrom(players)

		// partyOf picks an existing party id, or a random one when none exist.
		partyOf := func(rt *rapid.T) uuid.UUID {
			parties := r.Parties()
			if len(parties) == 0 {
				return uuid.New()
			}
			return rapid.SampledFrom(parties).Draw(rt, "party").ID
		}

		// step runs op and, when it is rejected, checks nothing changed.
		step := func(rt *rapid.T, op func() error) {
			before := stateOf(r)
			if err := op(); err != nil {
				if after := stateOf(r); !reflect.DeepEqual(before, after) {
					rt.Fatalf("rejected operation (%v) changed state", err)
				}
			}
		}

		rt.Repeat(map[string]func(*rapid.T){
			"create": func(rt *rapid.T) {
				p := player.Draw(rt, "player")
				step(rt, func() error { _, err := r.CreateParty(p); return err })
			},
			"invite": func(rt *rapid.T) {
				id, p := partyOf(rt), player.Draw(rt, "target")
				step(rt, func() error { return r.InvitePlayer(id, p) })
			},
			"accept": func(rt *rapid.T) {
				id, p := partyOf(rt), player.Draw(rt, "player")
				step(rt, func() error { return r.AcceptInvite(p, id) })
			},
			"decline": func(rt *rapid.T) {
				id, p := partyOf(rt), player.Draw(rt, "player")
				step(rt, func() error { return r.DeclineInvite(p, id) })
			},
			"leave": func(rt *rapid.T) {
				p := player.Draw(rt, "player")
				step(rt, func() error { _, err := r.LeaveParty(p); return err })
			},
			"kick": func(rt *rapid.T) {
				id, p := partyOf(rt), player.Draw(rt, "target")
				step(rt, func() error { return r.KickPlayer(id, p) })
			},
			"ban": func(rt *rapid.T) {
				id, p := partyOf(rt), player.Draw(rt, "target")
				step(rt, func() error { return r.BanPlayer(id, p) })
			},
			"unban": func(rt *rapid.T) {
				id, p := partyOf(rt), player.Draw(rt, "target")
				step(rt, func() error { return r.UnbanPlayer(id, p) })
			},
			"request": func(rt *rapid.T) {
				id, p := partyOf(rt), player.Draw(rt, "player")
				step(rt, func() error { return r.RequestToJoin(p, id) })
			},
			"approve": func(rt *rapid.T) {
				id, p := partyOf(rt), player.Draw(rt, "requester")
				step(rt, func() error { return r.AcceptJoinRequest(id, p) })
			},
			"join": func(rt *rapid.T) {
				id, p := partyOf(rt), player.Draw(rt, "player")
				step(rt, func() error { return r.AddPlayerToParty(p, id) })
			},
			"transfer": func(rt *rapid.T) {
				id, p := partyOf(rt), player.Draw(rt, "leader")
				step(rt, func() error { return r.TransferLeadership(id, p) })
			},
			"ally": func(rt *rapid.T) {
				a, b := partyOf(rt), partyOf(rt)
				step(rt, func() error { return r.AddAlly(a, b) })
			},
			"disband": func(rt *rapid.T) {
				id := partyOf(rt)
				step(rt, func() error { return r.DisbandParty(id) })
			},
			"connect": func(rt *rapid.T) {
				p := player.Draw(rt, "player")
				if rapid.Bool().Draw(rt, "online") {
					h.players.connect(p, "P")
				} else {
					h.players.disconnect(p)
				}
			},
			"tick": func(rt *rapid.T) {
				h.clock.Advance(time.Duration(rapid.IntRange(0, 90).Draw(rt, "seconds")) * time.Second)
				r.CleanupExpiredInvites()
			},
			"": func(rt *rapid.T) {
				checkRegistry(rt, r)
				for _, p := range r.Parties() {
					if len(p.Members) > maxMembers {
						rt.Fatalf("party %s has %d members, limit %d", p.ID, len(p.Members), maxMembers)
					}
				}
			},
		})
	})
}
