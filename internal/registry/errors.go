package registry

import "errors"

// Validation outcomes. A call that returns one of these has not changed
// the registry.
var (
	ErrPartyNotFound   = errors.New("party not found")
	ErrAlreadyInParty  = errors.New("player is already in a party")
	ErrNotInParty      = errors.New("player is not in a party")
	ErrNotMember       = errors.New("player is not a member of this party")
	ErrAlreadyMember   = errors.New("player is already a member of this party")
	ErrPartyFull       = errors.New("party is full")
	ErrPartyPrivate    = errors.New("party is private")
	ErrLeaderImmune    = errors.New("the party leader cannot be removed")
	ErrBanned          = errors.New("player is banned from this party")
	ErrAlreadyBanned   = errors.New("player is already banned")
	ErrNotBanned       = errors.New("player is not banned")
	ErrInviteExists    = errors.New("player already has a pending invite")
	ErrTooManyInvites  = errors.New("party has too many pending invites")
	ErrNoInvite        = errors.New("no pending invite")
	ErrInviteExpired   = errors.New("invite has expired")
	ErrRequestExists   = errors.New("join request already pending")
	ErrNoRequest       = errors.New("no pending join request")
	ErrRequestExpired  = errors.New("join request has expired")
	ErrInvalidRole     = errors.New("role cannot be assigned")
	ErrInvalidName     = errors.New("party name must be 1-24 characters")
	ErrInvalidColor    = errors.New("unknown party color")
	ErrInvalidIcon     = errors.New("party icon must be 1-3 characters")
	ErrSameParty       = errors.New("a party cannot ally itself")
	ErrAlreadyAllied   = errors.New("parties are already allied")
	ErrNotAllied       = errors.New("parties are not allied")
	ErrRewardNotReady  = errors.New("daily reward already claimed")
	ErrAlreadyUnlocked = errors.New("achievement already unlocked")
	ErrBadAchievement  = errors.New("achievement id is empty")
)

// Teleport refusals.
var (
	ErrTeleportDisabled = errors.New("teleport is disabled")
	ErrTeleportCooldown = errors.New("teleport is on cooldown")
	ErrHomeNotSet       = errors.New("party home is not set")
	ErrLeaderOffline    = errors.New("party leader is offline")
	ErrAlreadyLeader    = errors.New("player is the party leader")
	ErrPlayerOffline    = errors.New("player is offline")
	ErrTooFar           = errors.New("destination is too far away")
	ErrUnsafeLocation   = errors.New("destination is not safe")
)
