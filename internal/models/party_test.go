package models

import (
	"testing"

	"github.com/google/uuid"
)

func checkInvariants(t *testing.T, p *Party) {
	t.Helper()
	if !p.IsMember(p.Leader) {
		t.Errorf("leader %s is not a member", p.Leader)
	}
	if p.Roles[p.Leader] != RoleLeader {
		t.Errorf("leader role = %q, want %q", p.Roles[p.Leader], RoleLeader)
	}
	for id := range p.Roles {
		if !p.IsMember(id) {
			t.Errorf("role entry for non-member %s", id)
		}
	}
	for id := range p.Members {
		if p.HasInvite(id) || p.HasJoinRequest(id) || p.IsBanned(id) {
			t.Errorf("member %s also invited, requesting or banned", id)
		}
	}
}

func TestNewParty(t *testing.T) {
	leader := uuid.New()
	p := NewParty(leader, 1000)

	if p.ID == uuid.Nil {
		t.Error("Expected party ID to be generated")
	}
	if p.CreatedAt != 1000 {
		t.Errorf("CreatedAt = %d, want 1000", p.CreatedAt)
	}
	if !p.IsPublic {
		t.Error("Expected new parties to be public")
	}
	if p.Color != DefaultColor || p.Icon != DefaultIcon {
		t.Errorf("display defaults = %q/%q", p.Color, p.Icon)
	}
	if len(p.Members) != 1 {
		t.Errorf("members = %d, want 1", len(p.Members))
	}
	checkInvariants(t, p)

	if NewParty(leader, 1000).ID == p.ID {
		t.Error("Expected distinct IDs for distinct parties")
	}
}

func TestMembership(t *testing.T) {
	leader, alice := uuid.New(), uuid.New()
	p := NewParty(leader, 0)

	t.Run("AddMember clears pending entries", func(t *testing.T) {
		p.Invite(alice, 10)
		p.AddJoinRequest(alice, 11)
		p.AddMember(alice)

		if p.HasInvite(alice) || p.HasJoinRequest(alice) {
			t.Error("Expected invite and join request to be cleared")
		}
		if p.RoleOf(alice) != RoleMember {
			t.Errorf("role = %q, want member", p.RoleOf(alice))
		}
		checkInvariants(t, p)
	})

	t.Run("RemoveMember clears bookkeeping", func(t *testing.T) {
		p.ClaimDailyReward(alice, 100)
		p.MarkSeen(alice, 200)
		p.RemoveMember(alice)

		if p.IsMember(alice) {
			t.Error("Expected alice to be removed")
		}
		if _, ok := p.LastDailyReward[alice]; ok {
			t.Error("Expected reward bookkeeping to be cleared")
		}
		if _, ok := p.LastSeen[alice]; ok {
			t.Error("Expected last-seen entry to be cleared")
		}
		if _, ok := p.Roles[alice]; ok {
			t.Error("Expected role entry to be cleared")
		}
		checkInvariants(t, p)
	})
}

func TestSetRole(t *testing.T) {
	leader, alice, stranger := uuid.New(), uuid.New(), uuid.New()
	p := NewParty(leader, 0)
	p.AddMember(alice)

	p.SetRole(alice, RoleOfficer)
	if p.RoleOf(alice) != RoleOfficer {
		t.Errorf("alice role = %q, want officer", p.RoleOf(alice))
	}

	p.SetRole(leader, RoleRecruit)
	if p.RoleOf(leader) != RoleLeader {
		t.Error("SetRole must not demote the leader")
	}

	p.SetRole(alice, RoleLeader)
	if p.Leader != leader || p.RoleOf(alice) != RoleOfficer {
		t.Error("SetRole must not grant leadership")
	}

	p.SetRole(stranger, RoleOfficer)
	if _, ok := p.Roles[stranger]; ok {
		t.Error("SetRole must ignore non-members")
	}
	checkInvariants(t, p)
}

func TestTransferLeadership(t *testing.T) {
	leader, alice, stranger := uuid.New(), uuid.New(), uuid.New()
	p := NewParty(leader, 0)
	p.AddMember(alice)

	if p.TransferLeadership(stranger) {
		t.Fatal("Expected transfer to a non-member to fail")
	}
	if p.Leader != leader {
		t.Fatal("Failed transfer must not mutate the party")
	}

	if !p.TransferLeadership(leader) {
		t.Fatal("Transfer to the current leader should succeed as a no-op")
	}
	if p.RoleOf(leader) != RoleLeader {
		t.Error("Self transfer must keep the leader role")
	}

	if !p.TransferLeadership(alice) {
		t.Fatal("Expected transfer to alice to succeed")
	}
	if p.Leader != alice {
		t.Errorf("leader = %s, want alice", p.Leader)
	}
	if p.RoleOf(leader) != RoleOfficer {
		t.Errorf("old leader role = %q, want officer", p.RoleOf(leader))
	}
	checkInvariants(t, p)
}

func TestSweepExpired(t *testing.T) {
	p := NewParty(uuid.New(), 0)
	fresh, stale, edge := uuid.New(), uuid.New(), uuid.New()
	p.Invite(fresh, 900)
	p.Invite(stale, 100)
	p.Invite(edge, 500)
	p.AddJoinRequest(stale, 100)

	expired := p.SweepExpiredInvites(500, 1000)
	if len(expired) != 2 {
		t.Fatalf("expired = %d invites, want 2", len(expired))
	}
	if !p.HasInvite(fresh) || p.HasInvite(stale) || p.HasInvite(edge) {
		t.Errorf("unexpected invites left: %v", p.Invites)
	}

	if got := p.SweepExpiredJoinRequests(500, 1000); len(got) != 1 || got[0] != stale {
		t.Errorf("expired join requests = %v, want [%s]", got, stale)
	}
}

func TestExpired(t *testing.T) {
	tests := []struct {
		sent, ttl, now int64
		want           bool
	}{
		{sent: 0, ttl: 100, now: 99, want: false},
		{sent: 0, ttl: 100, now: 100, want: true},
		{sent: 50, ttl: 100, now: 10, want: false},
	}
	for _, tt := range tests {
		if got := Expired(tt.sent, tt.ttl, tt.now); got != tt.want {
			t.Errorf("Expired(%d, %d, %d) = %v, want %v", tt.sent, tt.ttl, tt.now, got, tt.want)
		}
	}
}

func TestBan(t *testing.T) {
	p := NewParty(uuid.New(), 0)
	alice := uuid.New()
	p.AddMember(alice)

	p.Ban(alice)
	p.Ban(alice)
	if p.IsMember(alice) || !p.IsBanned(alice) {
		t.Fatal("Expected alice to be banned and removed")
	}
	checkInvariants(t, p)

	p.Unban(alice)
	if p.IsBanned(alice) || p.IsMember(alice) {
		t.Error("Unban must lift the ban without restoring membership")
	}
}

func TestDailyRewardStreak(t *testing.T) {
	p := NewParty(uuid.New(), 0)
	player := p.Leader
	t0 := int64(1_700_000_000_000)

	claims := []struct {
		at   int64
		want int
	}{
		{t0, 1},
		{t0 + MillisPerDay, 2},
		{t0 + 3*MillisPerDay, 1},
	}
	for _, c := range claims {
		if !p.CanClaimDailyReward(player, c.at) {
			t.Fatalf("Expected claim at %d to be allowed", c.at)
		}
		p.ClaimDailyReward(player, c.at)
		if p.ConsecutiveDays != c.want {
			t.Errorf("after claim at %d: streak = %d, want %d", c.at, p.ConsecutiveDays, c.want)
		}
	}

	if p.CanClaimDailyReward(player, t0+3*MillisPerDay+MillisPerDay-1) {
		t.Error("Expected claim within a day to be refused")
	}
}

func TestDailyRewardStreakFromEpoch(t *testing.T) {
	p := NewParty(uuid.New(), 0)

	p.ClaimDailyReward(p.Leader, 0)
	p.ClaimDailyReward(p.Leader, MillisPerDay)
	if p.ConsecutiveDays != 2 {
		t.Errorf("streak = %d, want 2", p.ConsecutiveDays)
	}
}

func TestCountersAndAchievements(t *testing.T) {
	p := NewParty(uuid.New(), 0)
	p.AddPlayTime(60_000)
	p.AddPlayTime(-5)
	p.RecordKill()
	p.RecordDeath()

	if p.TotalPlayTimeMs != 60_000 {
		t.Errorf("play time = %d, want 60000", p.TotalPlayTimeMs)
	}
	if p.TotalKills != 1 || p.TotalDeaths != 1 {
		t.Errorf("kills/deaths = %d/%d", p.TotalKills, p.TotalDeaths)
	}
	if !p.UnlockAchievement("first_blood") {
		t.Error("Expected first unlock to report new")
	}
	if p.UnlockAchievement("first_blood") {
		t.Error("Expected second unlock to report existing")
	}
}

func TestAllies(t *testing.T) {
	p := NewParty(uuid.New(), 0)
	other := uuid.New()

	p.AddAlly(p.ID)
	if p.IsAlly(p.ID) {
		t.Error("A party cannot ally itself")
	}
	p.AddAlly(other)
	if !p.IsAlly(other) {
		t.Error("Expected alliance to be recorded")
	}
	p.RemoveAlly(other)
	if p.IsAlly(other) {
		t.Error("Expected alliance to be removed")
	}
}

func TestClone(t *testing.T) {
	p := NewParty(uuid.New(), 0)
	p.Home = &Location{Level: "world", Dimension: "overworld", X: 1}
	c := p.Clone()

	c.AddMember(uuid.New())
	c.Home.X = 99
	c.Name = "changed"

	if len(p.Members) != 1 {
		t.Error("Clone shares the member set with the original")
	}
	if p.Home.X != 1 {
		t.Error("Clone shares the home location with the original")
	}
	if p.Name != "" {
		t.Error("Clone shares scalar fields with the original")
	}
}

func TestParseRole(t *testing.T) {
	tests := map[string]Role{
		"leader":   RoleLeader,
		" OFFICER": RoleOfficer,
		"recruit":  RoleRecruit,
		"member":   RoleMember,
		"":         RoleMember,
		"admin":    RoleMember,
	}
	for in, want := range tests {
		if got := ParseRole(in); got != want {
			t.Errorf("ParseRole(%q) = %q, want %q", in, got, want)
		}
	}

	if !RoleOfficer.CanInvite() || RoleMember.CanInvite() {
		t.Error("only officers and up may invite")
	}
	if RoleOfficer.CanPromote() || !RoleLeader.CanPromote() {
		t.Error("only the leader may promote")
	}
}
