package registry

import (
	"time"

	"github.com/mmynk/partykeeper/internal/config"
)

// Config holds the limits and intervals the registry enforces.
type Config struct {
	MaxMembers        int
	MaxPendingInvites int
	InviteTTL         time.Duration

	DisbandWhenAllOffline bool
	TrackPlayTime         bool

	CommandCooldown     time.Duration
	TeleportCooldown    time.Duration
	TeleportEnabled     bool
	SafeTeleport        bool
	MaxTeleportDistance float64

	Tasks config.Tasks
}

// ConfigFrom extracts the registry settings from the process configuration.
func ConfigFrom(cfg config.Config) Config {
	return Config{
		MaxMembers:            cfg.Party.MaxMembers,
		MaxPendingInvites:     cfg.Party.MaxPendingInvites,
		InviteTTL:             cfg.Party.InviteTTL,
		DisbandWhenAllOffline: cfg.Party.DisbandWhenAllOffline,
		TrackPlayTime:         cfg.Party.TrackPlayTime,
		CommandCooldown:       cfg.Security.CommandCooldown,
		TeleportCooldown:      cfg.Security.TeleportCooldown,
		TeleportEnabled:       cfg.Party.TeleportEnabled,
		SafeTeleport:          cfg.Security.SafeTeleport,
		MaxTeleportDistance:   cfg.Security.MaxTeleportDistance,
		Tasks:                 cfg.Tasks,
	}
}

// DefaultConfig returns the registry settings for an empty environment.
func DefaultConfig() Config {
	return ConfigFrom(config.Default())
}

func (c Config) ttlMs() int64 {
	return c.InviteTTL.Milliseconds()
}
