// Package models defines the core domain models for party management.
//
// # Models
//
//   - Party: one group of players with its membership, roles, pending
//     invites and join requests, bans, alliances and shared progress
//   - Role: a member's rank inside a party (leader, officer, member, recruit)
//   - Location: a saved position (party home) in a named level and dimension
//   - PartySnapshot: the persisted, string-keyed form of a Party
//
// Players and parties are identified by UUIDs. Timestamps are Unix
// milliseconds so that snapshots written by any backend compare exactly.
//
// # Invariants
//
// Every mutator on Party keeps these true:
//
//  1. The leader is always a member.
//  2. The leader's role is RoleLeader and roles exist only for members.
//  3. Members never appear in invites, join requests or the ban list.
//
// An empty party is never kept around; the registry disbands it as soon as
// the last member is removed.
//
// # Ownership
//
// A Party is owned by exactly one registry. Code outside the registry only
// ever sees clones (see Party.Clone), so it may read fields freely but its
// writes never reach live state.
package models
