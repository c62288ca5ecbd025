package registry

import (
	"github.com/google/uuid"

	"github.com/mmynk/partykeeper/internal/models"
)

// LeaveResult describes the party after a member left.
type LeaveResult struct {
	// Party is a copy of the party after the departure. When Disbanded is
	// set it holds the final state before removal.
	Party *models.Party

	// NewLeader is set when the departing player led the party and
	// leadership moved. uuid.Nil otherwise.
	NewLeader uuid.UUID

	Disbanded bool
}

// CreateParty makes player the leader of a new party.
func (r *Registry) CreateParty(player uuid.UUID) (_ *models.Party, err error) {
	r.lock()
	defer r.unlock()
	defer func() { r.metrics.Operation("create", err) }()

	if _, err := r.playerPartyLocked(player); err == nil {
		return nil, ErrAlreadyInParty
	}

	p := models.NewParty(player, r.nowMs())
	r.parties[p.ID] = p
	r.playerToParty[player] = p.ID
	r.recordOnlineNameLocked(player)
	r.checkAchievements(p)
	r.markDirty()

	r.logger.Info("Party created", "party_id", p.ID, "leader", player)
	return p.Clone(), nil
}

// DisbandParty removes the party and every index entry pointing at it.
func (r *Registry) DisbandParty(partyID uuid.UUID) (err error) {
	r.lock()
	defer r.unlock()
	defer func() { r.metrics.Operation("disband", err) }()

	p, err := r.partyLocked(partyID)
	if err != nil {
		return err
	}
	r.disbandLocked(p)
	return nil
}

func (r *Registry) disbandLocked(p *models.Party) {
	delete(r.parties, p.ID)
	for member := range p.Members {
		if r.playerToParty[member] == p.ID {
			delete(r.playerToParty, member)
		}
		delete(r.markers, member)
	}
	for target, partyID := range r.pendingInvite {
		if partyID == p.ID {
			delete(r.pendingInvite, target)
		}
	}
	for ally := range p.Allies {
		if other, ok := r.parties[ally]; ok {
			other.RemoveAlly(p.ID)
		}
	}
	r.markDirty()
	r.logger.Info("Party disbanded", "party_id", p.ID)
}

// InvitePlayer records an invite from the party to target. Expired invites
// of the party are swept first, so they neither block a new invite to the
// same player nor count toward the pending-invite limit.
func (r *Registry) InvitePlayer(partyID, target uuid.UUID) (err error) {
	r.lock()
	defer r.unlock()
	defer func() { r.metrics.Operation("invite", err) }()

	p, err := r.partyLocked(partyID)
	if err != nil {
		return err
	}
	if p.IsMember(target) {
		return ErrAlreadyMember
	}
	if p.IsBanned(target) {
		return ErrBanned
	}
	if _, err := r.playerPartyLocked(target); err == nil {
		return ErrAlreadyInParty
	}

	now, ttl := r.nowMs(), r.cfg.ttlMs()
	if sent, ok := p.Invites[target]; ok && !models.Expired(sent, ttl, now) {
		return ErrInviteExists
	}
	live := 0
	for _, sent := range p.Invites {
		if !models.Expired(sent, ttl, now) {
			live++
		}
	}
	if live >= r.cfg.MaxPendingInvites {
		return ErrTooManyInvites
	}

	r.dropInviteIndex(p.ID, p.SweepExpiredInvites(ttl, now))
	p.Invite(target, now)
	r.pendingInvite[target] = p.ID
	r.markDirty()
	return nil
}

// dropInviteIndex removes pendingInvite entries of targets whose invite from
// partyID is gone.
func (r *Registry) dropInviteIndex(partyID uuid.UUID, targets []uuid.UUID) {
	for _, target := range targets {
		if r.pendingInvite[target] == partyID {
			delete(r.pendingInvite, target)
		}
	}
}

// PendingInvite returns the party that most recently invited player, if the
// invite is still live.
func (r *Registry) PendingInvite(player uuid.UUID) (*models.Party, bool) {
	r.lock()
	defer r.unlock()

	partyID, ok := r.pendingInvite[player]
	if !ok {
		return nil, false
	}
	p, ok := r.parties[partyID]
	if !ok {
		return nil, false
	}
	sent, ok := p.Invites[player]
	if !ok || models.Expired(sent, r.cfg.ttlMs(), r.nowMs()) {
		return nil, false
	}
	return p.Clone(), true
}

// AcceptInvite adds player to the party that invited them.
func (r *Registry) AcceptInvite(player, partyID uuid.UUID) (err error) {
	r.lock()
	defer r.unlock()
	defer func() { r.metrics.Operation("accept_invite", err) }()

	p, err := r.partyLocked(partyID)
	if err != nil {
		return err
	}
	sent, ok := p.Invites[player]
	if !ok {
		return ErrNoInvite
	}
	if models.Expired(sent, r.cfg.ttlMs(), r.nowMs()) {
		return ErrInviteExpired
	}
	if err := r.canJoinLocked(p, player); err != nil {
		return err
	}

	r.joinLocked(p, player)
	return nil
}

// DeclineInvite discards the invite without joining.
func (r *Registry) DeclineInvite(player, partyID uuid.UUID) (err error) {
	r.lock()
	defer r.unlock()
	defer func() { r.metrics.Operation("decline_invite", err) }()

	p, err := r.partyLocked(partyID)
	if err != nil {
		return err
	}
	if !p.HasInvite(player) {
		return ErrNoInvite
	}
	p.RemoveInvite(player)
	r.dropInviteIndex(p.ID, []uuid.UUID{player})
	r.markDirty()
	return nil
}

func (r *Registry) canJoinLocked(p *models.Party, player uuid.UUID) error {
	if p.IsBanned(player) {
		return ErrBanned
	}
	if _, err := r.playerPartyLocked(player); err == nil {
		return ErrAlreadyInParty
	}
	if len(p.Members) >= r.cfg.MaxMembers {
		return ErrPartyFull
	}
	return nil
}

func (r *Registry) joinLocked(p *models.Party, player uuid.UUID) {
	p.AddMember(player)
	r.playerToParty[player] = p.ID
	delete(r.pendingInvite, player)
	r.recordOnlineNameLocked(player)
	r.checkAchievements(p)
	r.markDirty()
	r.logger.Info("Player joined party", "party_id", p.ID, "player", player)
}

// LeaveParty removes player from their party. An emptied party is disbanded;
// a departing leader is replaced through leadership election.
func (r *Registry) LeaveParty(player uuid.UUID) (_ LeaveResult, err error) {
	r.lock()
	defer r.unlock()
	defer func() { r.metrics.Operation("leave", err) }()

	p, err := r.playerPartyLocked(player)
	if err != nil {
		return LeaveResult{}, err
	}
	return r.removeMemberLocked(p, player), nil
}

func (r *Registry) removeMemberLocked(p *models.Party, player uuid.UUID) LeaveResult {
	wasLeader := p.IsLeader(player)

	p.RemoveMember(player)
	if r.playerToParty[player] == p.ID {
		delete(r.playerToParty, player)
	}
	delete(r.markers, player)
	r.markDirty()

	if len(p.Members) == 0 {
		r.disbandLocked(p)
		return LeaveResult{Party: p.Clone(), Disbanded: true}
	}

	res := LeaveResult{Party: p}
	if wasLeader {
		res.NewLeader = r.electLeaderLocked(p)
		p.TransferLeadership(res.NewLeader)
		r.logger.Info("Party leadership transferred", "party_id", p.ID, "leader", res.NewLeader)
	}
	res.Party = p.Clone()
	return res
}

// electLeaderLocked picks the first online member in id order, or the
// smallest member id when nobody is online. p must have members.
func (r *Registry) electLeaderLocked(p *models.Party) uuid.UUID {
	members := p.SortedMembers()
	for _, id := range members {
		if r.isOnline(id) {
			return id
		}
	}
	return members[0]
}

// KickPlayer removes a member other than the leader.
func (r *Registry) KickPlayer(partyID, target uuid.UUID) (err error) {
	r.lock()
	defer r.unlock()
	defer func() { r.metrics.Operation("kick", err) }()

	p, err := r.partyLocked(partyID)
	if err != nil {
		return err
	}
	if !p.IsMember(target) {
		return ErrNotMember
	}
	if p.IsLeader(target) {
		return ErrLeaderImmune
	}
	r.removeMemberLocked(p, target)
	return nil
}

// BanPlayer bans target from the party, removing their membership, invite
// and join request.
func (r *Registry) BanPlayer(partyID, target uuid.UUID) (err error) {
	r.lock()
	defer r.unlock()
	defer func() { r.metrics.Operation("ban", err) }()

	p, err := r.partyLocked(partyID)
	if err != nil {
		return err
	}
	if p.IsLeader(target) {
		return ErrLeaderImmune
	}
	if p.IsBanned(target) {
		return ErrAlreadyBanned
	}

	if p.IsMember(target) {
		r.removeMemberLocked(p, target)
	}
	p.Ban(target)
	r.dropInviteIndex(p.ID, []uuid.UUID{target})
	r.markDirty()
	return nil
}

// UnbanPlayer lifts a ban. Membership is not restored.
func (r *Registry) UnbanPlayer(partyID, target uuid.UUID) (err error) {
	r.lock()
	defer r.unlock()
	defer func() { r.metrics.Operation("unban", err) }()

	p, err := r.partyLocked(partyID)
	if err != nil {
		return err
	}
	if !p.IsBanned(target) {
		return ErrNotBanned
	}
	p.Unban(target)
	r.markDirty()
	return nil
}

// RequestToJoin files a join request from player to the party.
func (r *Registry) RequestToJoin(player, partyID uuid.UUID) (err error) {
	r.lock()
	defer r.unlock()
	defer func() { r.metrics.Operation("request_join", err) }()

	p, err := r.partyLocked(partyID)
	if err != nil {
		return err
	}
	if _, err := r.playerPartyLocked(player); err == nil {
		return ErrAlreadyInParty
	}
	if p.IsBanned(player) {
		return ErrBanned
	}
	if sent, ok := p.JoinRequests[player]; ok && !models.Expired(sent, r.cfg.ttlMs(), r.nowMs()) {
		return ErrRequestExists
	}
	p.AddJoinRequest(player, r.nowMs())
	r.markDirty()
	return nil
}

// AcceptJoinRequest admits requester into the party.
func (r *Registry) AcceptJoinRequest(partyID, requester uuid.UUID) (err error) {
	r.lock()
	defer r.unlock()
	defer func() { r.metrics.Operation("accept_request", err) }()

	p, err := r.partyLocked(partyID)
	if err != nil {
		return err
	}
	sent, ok := p.JoinRequests[requester]
	if !ok {
		return ErrNoRequest
	}
	if models.Expired(sent, r.cfg.ttlMs(), r.nowMs()) {
		return ErrRequestExpired
	}
	if err := r.canJoinLocked(p, requester); err != nil {
		return err
	}
	r.joinLocked(p, requester)
	return nil
}

// DenyJoinRequest discards a join request.
func (r *Registry) DenyJoinRequest(partyID, requester uuid.UUID) (err error) {
	r.lock()
	defer r.unlock()
	defer func() { r.metrics.Operation("deny_request", err) }()

	p, err := r.partyLocked(partyID)
	if err != nil {
		return err
	}
	if !p.HasJoinRequest(requester) {
		return ErrNoRequest
	}
	p.RemoveJoinRequest(requester)
	r.markDirty()
	return nil
}

// AddPlayerToParty joins player directly to a public party.
func (r *Registry) AddPlayerToParty(player, partyID uuid.UUID) (err error) {
	r.lock()
	defer r.unlock()
	defer func() { r.metrics.Operation("join", err) }()

	p, err := r.partyLocked(partyID)
	if err != nil {
		return err
	}
	if !p.IsPublic {
		return ErrPartyPrivate
	}
	if err := r.canJoinLocked(p, player); err != nil {
		return err
	}
	r.joinLocked(p, player)
	return nil
}

// CleanupExpiredInvites sweeps expired invites and join requests from every
// party and returns how many were removed.
func (r *Registry) CleanupExpiredInvites() int {
	r.lock()
	defer r.unlock()

	now, ttl := r.nowMs(), r.cfg.ttlMs()
	removed := 0
	for _, p := range r.parties {
		expired := p.SweepExpiredInvites(ttl, now)
		r.dropInviteIndex(p.ID, expired)
		removed += len(expired) + len(p.SweepExpiredJoinRequests(ttl, now))
	}
	if removed > 0 {
		r.markDirty()
		r.metrics.AddExpired(removed)
		r.logger.Debug("Expired invites swept", "count", removed)
	}
	return removed
}

// CheckPartyCleanup disbands the party when no member is online and the
// disband-when-all-offline policy is enabled. Reports whether it disbanded.
func (r *Registry) CheckPartyCleanup(partyID uuid.UUID) bool {
	r.lock()
	defer r.unlock()

	if !r.cfg.DisbandWhenAllOffline {
		return false
	}
	p, ok := r.parties[partyID]
	if !ok {
		return false
	}
	for member := range p.Members {
		if r.isOnline(member) {
			return false
		}
	}
	r.disbandLocked(p)
	return true
}
