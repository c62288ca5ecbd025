// Package registry owns the live set of parties and every index derived
// from it.
//
// One mutex guards all registry state for the duration of each public call,
// so the cross-collection invariants (every member indexed exactly once,
// invites pointing at live parties) are never observed half-updated.
// Callers receive clones; the only way to change a party is through a
// Registry method.
//
// Persistence never happens under that mutex: SaveAll copies the state while
// holding it and writes the copy afterwards.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/partykeeper/internal/metrics"
	"github.com/mmynk/partykeeper/internal/models"
	"github.com/mmynk/partykeeper/internal/scheduler"
	"github.com/mmynk/partykeeper/internal/storage"
)

// Options carries the collaborators. Store and Players are required.
type Options struct {
	Store   storage.Store
	Players PlayerDirectory

	Messenger    Messenger
	Clock        Clock
	Safety       SafetyChecker
	Achievements AchievementChecker

	// OnUnlock is called after the registry lock is released for every
	// achievement a party earns.
	OnUnlock func(Unlock)

	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Scheduler *scheduler.Scheduler
}

// Registry is the party state registry.
type Registry struct {
	cfg Config

	store        storage.Store
	players      PlayerDirectory
	messenger    Messenger
	clock        Clock
	safety       SafetyChecker
	achievements AchievementChecker
	onUnlock     func(Unlock)
	logger       *slog.Logger
	metrics      *metrics.Metrics
	scheduler    *scheduler.Scheduler

	mu            sync.Mutex
	parties       map[uuid.UUID]*models.Party
	playerToParty map[uuid.UUID]uuid.UUID
	pendingInvite map[uuid.UUID]uuid.UUID
	names         map[uuid.UUID]string

	// Not persisted.
	commandUsed  map[uuid.UUID]int64
	teleportUsed map[uuid.UUID]int64
	markers      map[uuid.UUID]models.Location

	dirty      bool
	generation uint64
	unlocks    []Unlock

	// saveMu orders snapshot-and-write so an older copy never lands after
	// a newer one.
	saveMu sync.Mutex
}

// New creates an empty registry. Call Load to populate it from storage.
func New(cfg Config, opts Options) (*Registry, error) {
	if opts.Store == nil {
		return nil, errors.New("registry: store is required")
	}
	if opts.Players == nil {
		return nil, errors.New("registry: player directory is required")
	}
	if cfg.MaxMembers < 1 || cfg.MaxPendingInvites < 1 || cfg.InviteTTL <= 0 {
		return nil, fmt.Errorf("registry: invalid limits (members=%d, invites=%d, ttl=%s)",
			cfg.MaxMembers, cfg.MaxPendingInvites, cfg.InviteTTL)
	}

	r := &Registry{
		cfg:           cfg,
		store:         opts.Store,
		players:       opts.Players,
		messenger:     opts.Messenger,
		clock:         opts.Clock,
		safety:        opts.Safety,
		achievements:  opts.Achievements,
		onUnlock:      opts.OnUnlock,
		logger:        opts.Logger,
		metrics:       opts.Metrics,
		scheduler:     opts.Scheduler,
		parties:       make(map[uuid.UUID]*models.Party),
		playerToParty: make(map[uuid.UUID]uuid.UUID),
		pendingInvite: make(map[uuid.UUID]uuid.UUID),
		names:         make(map[uuid.UUID]string),
		commandUsed:   make(map[uuid.UUID]int64),
		teleportUsed:  make(map[uuid.UUID]int64),
		markers:       make(map[uuid.UUID]models.Location),
	}
	if r.clock == nil {
		r.clock = systemClock{}
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.scheduler == nil {
		r.scheduler = scheduler.New(r.logger)
	}
	return r, nil
}

func (r *Registry) lock() {
	r.mu.Lock()
}

// unlock releases the registry and then delivers queued achievement
// notifications, so callbacks may call back into the registry.
func (r *Registry) unlock() {
	events := r.unlocks
	r.unlocks = nil
	r.mu.Unlock()

	if r.onUnlock == nil {
		return
	}
	for _, e := range events {
		r.onUnlock(e)
	}
}

func (r *Registry) nowMs() int64 {
	return r.clock.Now().UnixMilli()
}

func (r *Registry) markDirty() {
	r.dirty = true
	r.generation++
	r.metrics.SetPopulation(len(r.parties), len(r.playerToParty))
}

func (r *Registry) isOnline(id uuid.UUID) bool {
	_, ok := r.players.Lookup(id)
	return ok
}

func (r *Registry) partyLocked(id uuid.UUID) (*models.Party, error) {
	p, ok := r.parties[id]
	if !ok {
		return nil, ErrPartyNotFound
	}
	return p, nil
}

func (r *Registry) playerPartyLocked(player uuid.UUID) (*models.Party, error) {
	id, ok := r.playerToParty[player]
	if !ok {
		return nil, ErrNotInParty
	}
	p, ok := r.parties[id]
	if !ok || !p.IsMember(player) {
		return nil, ErrNotInParty
	}
	return p, nil
}

func (r *Registry) checkAchievements(p *models.Party) {
	if r.achievements == nil {
		return
	}
	for _, id := range r.achievements.Check(p) {
		r.logger.Info("Achievement unlocked", "party_id", p.ID, "achievement", id)
		r.unlocks = append(r.unlocks, Unlock{PartyID: p.ID, Achievement: id})
	}
}

// Party returns a copy of the party with the given id.
func (r *Registry) Party(id uuid.UUID) (*models.Party, bool) {
	r.lock()
	defer r.unlock()

	p, ok := r.parties[id]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// PlayerParty returns a copy of the party the player belongs to.
func (r *Registry) PlayerParty(player uuid.UUID) (*models.Party, bool) {
	r.lock()
	defer r.unlock()

	p, err := r.playerPartyLocked(player)
	if err != nil {
		return nil, false
	}
	return p.Clone(), true
}

// IsInParty reports whether the player belongs to any party.
func (r *Registry) IsInParty(player uuid.UUID) bool {
	r.lock()
	defer r.unlock()

	_, err := r.playerPartyLocked(player)
	return err == nil
}

// Parties returns copies of every party ordered by id.
func (r *Registry) Parties() []*models.Party {
	r.lock()
	defer r.unlock()

	out := make([]*models.Party, 0, len(r.parties))
	for _, id := range sortedPartyIDs(r.parties) {
		out = append(out, r.parties[id].Clone())
	}
	return out
}

// Count returns the number of parties and of players in a party.
func (r *Registry) Count() (parties, members int) {
	r.lock()
	defer r.unlock()
	return len(r.parties), len(r.playerToParty)
}

// Dirty reports whether there are changes not yet saved.
func (r *Registry) Dirty() bool {
	r.lock()
	defer r.unlock()
	return r.dirty
}

// Load replaces the registry contents with the stored state. A store error
// is logged and leaves the registry empty so the server can still start.
func (r *Registry) Load(ctx context.Context) {
	snap, err := r.store.Load(ctx)
	if err != nil {
		r.logger.Error("Failed to load party data", "error", err)
		snap = storage.NewSnapshot()
	}
	if snap.Skipped > 0 {
		r.logger.Warn("Skipped unreadable party entries", "count", snap.Skipped)
		r.metrics.AddSkipped(snap.Skipped)
	}

	r.lock()
	defer r.unlock()

	r.parties = make(map[uuid.UUID]*models.Party, len(snap.Parties))
	for _, p := range snap.Parties {
		if p != nil {
			r.parties[p.ID] = p
		}
	}
	r.names = maps.Clone(snap.PlayerNames)
	if r.names == nil {
		r.names = make(map[uuid.UUID]string)
	}

	r.dirty = false
	if r.rebuildIndexesLocked() || snap.Repaired > 0 {
		r.logger.Warn("Repaired inconsistent party data")
		r.markDirty()
	}
	r.metrics.SetPopulation(len(r.parties), len(r.playerToParty))
	r.logger.Info("Loaded parties", "count", len(r.parties), "players", len(r.playerToParty))
}

// rebuildIndexesLocked derives playerToParty and pendingInvite from parties.
// A player found in more than one party stays in the first by id order.
// Returns true if any party had to be changed.
func (r *Registry) rebuildIndexesLocked() bool {
	clear(r.playerToParty)
	clear(r.pendingInvite)
	inviteSent := make(map[uuid.UUID]int64)
	changed := false

	for _, id := range sortedPartyIDs(r.parties) {
		p := r.parties[id]
		if p.Repair() {
			changed = true
		}
		for _, member := range p.SortedMembers() {
			if _, taken := r.playerToParty[member]; taken {
				p.RemoveMember(member)
				changed = true
				continue
			}
			r.playerToParty[member] = p.ID
		}
		if !p.IsMember(p.Leader) {
			if len(p.Members) == 0 {
				delete(r.parties, id)
				changed = true
				continue
			}
			p.TransferLeadership(p.SortedMembers()[0])
			changed = true
		}
		for target, sent := range p.Invites {
			if prev, ok := inviteSent[target]; !ok || sent > prev {
				inviteSent[target] = sent
				r.pendingInvite[target] = p.ID
			}
		}
	}

	for id, p := range r.parties {
		for ally := range p.Allies {
			other, ok := r.parties[ally]
			if !ok || !other.IsAlly(id) {
				p.RemoveAlly(ally)
				changed = true
			}
		}
	}
	return changed
}

// SaveAll writes the current state if anything changed since the last
// successful save, or unconditionally when force is set. On failure the
// registry stays dirty so the next flush retries.
func (r *Registry) SaveAll(ctx context.Context, force bool) error {
	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	r.lock()
	if !r.dirty && !force {
		r.unlock()
		return nil
	}
	snap := r.snapshotLocked()
	generation := r.generation
	r.unlock()

	start := time.Now()
	err := r.store.Save(ctx, snap)
	r.metrics.ObserveSave(time.Since(start), err)
	if err != nil {
		r.logger.Error("Failed to save party data", "error", err, "parties", len(snap.Parties))
		return fmt.Errorf("save parties: %w", err)
	}

	r.lock()
	if r.generation == generation {
		r.dirty = false
	}
	r.unlock()

	r.logger.Debug("Saved party data", "parties", len(snap.Parties), "duration", time.Since(start))
	return nil
}

func (r *Registry) snapshotLocked() *storage.Snapshot {
	snap := storage.NewSnapshot()
	for id, p := range r.parties {
		snap.Parties[id] = p.Clone()
	}
	maps.Copy(snap.PlayerNames, r.names)
	return snap
}

// Start registers the periodic maintenance tasks and starts them. A zero
// interval disables the corresponding task.
func (r *Registry) Start(ctx context.Context) error {
	r.scheduler.Every("invite-sweep", r.cfg.Tasks.InviteSweep, func(context.Context) {
		r.CleanupExpiredInvites()
	})
	if r.cfg.TrackPlayTime {
		interval := r.cfg.Tasks.PlayTime
		r.scheduler.Every("playtime", interval, func(context.Context) {
			r.AccruePlayTime(interval)
		})
	}
	r.scheduler.Every("flush", r.cfg.Tasks.Flush, func(ctx context.Context) {
		_ = r.SaveAll(ctx, false)
	})
	r.scheduler.Every("prune", r.cfg.Tasks.Prune, func(context.Context) {
		r.PruneEphemeral()
	})
	return r.scheduler.Start(ctx)
}

// Shutdown stops the periodic tasks, forces a final save and closes the
// store. The store is closed even if the save fails.
func (r *Registry) Shutdown(ctx context.Context) error {
	var errs []error
	if err := r.scheduler.Stop(ctx); err != nil && !errors.Is(err, scheduler.ErrNotStarted) {
		errs = append(errs, fmt.Errorf("stop tasks: %w", err))
	}
	if err := r.SaveAll(context.WithoutCancel(ctx), true); err != nil {
		errs = append(errs, err)
	}
	if err := r.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}

func sortedPartyIDs(parties map[uuid.UUID]*models.Party) []uuid.UUID {
	ids := slices.Collect(maps.Keys(parties))
	slices.SortFunc(ids, func(a, b uuid.UUID) int {
		return strings.Compare(a.String(), b.String())
	})
	return ids
}
