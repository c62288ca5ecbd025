package models

import "strings"

// Role is a member's rank inside a party.
type Role string

const (
	RoleLeader  Role = "leader"
	RoleOfficer Role = "officer"
	RoleMember  Role = "member"
	RoleRecruit Role = "recruit"
)

// Level orders roles from recruit (0) to leader (3).
func (r Role) Level() int {
	switch r {
	case RoleLeader:
		return 3
	case RoleOfficer:
		return 2
	case RoleMember:
		return 1
	default:
		return 0
	}
}

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleLeader, RoleOfficer, RoleMember, RoleRecruit:
		return true
	}
	return false
}

// CanInvite reports whether the role may invite players.
func (r Role) CanInvite() bool { return r.Level() >= RoleOfficer.Level() }

// CanKick reports whether the role may remove other members.
func (r Role) CanKick() bool { return r.Level() >= RoleOfficer.Level() }

// CanSetHome reports whether the role may move the party home.
func (r Role) CanSetHome() bool { return r.Level() >= RoleOfficer.Level() }

// CanBan reports whether the role may ban players.
func (r Role) CanBan() bool { return r.Level() >= RoleOfficer.Level() }

// CanPromote reports whether the role may change other members' roles.
func (r Role) CanPromote() bool { return r.Level() >= RoleLeader.Level() }

// ParseRole converts stored text into a Role. Empty or unknown values
// become RoleMember.
func ParseRole(value string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case RoleLeader:
		return RoleLeader
	case RoleOfficer:
		return RoleOfficer
	case RoleRecruit:
		return RoleRecruit
	default:
		return RoleMember
	}
}
