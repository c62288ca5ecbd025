// Package config loads process configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the complete server configuration.
type Config struct {
	Party    Party    `envPrefix:"PARTY_"`
	Security Security `envPrefix:"PARTY_SECURITY_"`
	Tasks    Tasks    `envPrefix:"PARTY_TASK_"`
	Storage  Storage  `envPrefix:"PARTY_STORAGE_"`

	MetricsAddr string `env:"PARTY_METRICS_ADDR" envDefault:":9102"`
}

// Party holds the gameplay limits the registry enforces.
type Party struct {
	MaxMembers        int           `env:"MAX_MEMBERS"         envDefault:"8"`
	MaxPendingInvites int           `env:"MAX_PENDING_INVITES" envDefault:"10"`
	InviteTTL         time.Duration `env:"INVITE_TTL"          envDefault:"5m"`

	// DisbandWhenAllOffline removes parties whose members are all offline.
	DisbandWhenAllOffline bool `env:"DISBAND_WHEN_ALL_OFFLINE" envDefault:"false"`

	TrackPlayTime   bool `env:"TRACK_PLAYTIME"   envDefault:"true"`
	TeleportEnabled bool `env:"TELEPORT_ENABLED" envDefault:"true"`
}

// Security holds abuse limits for player-facing actions.
type Security struct {
	CommandCooldown     time.Duration `env:"COMMAND_COOLDOWN"      envDefault:"3s"`
	TeleportCooldown    time.Duration `env:"TELEPORT_COOLDOWN"     envDefault:"30s"`
	MaxTeleportDistance float64       `env:"MAX_TELEPORT_DISTANCE" envDefault:"10000"`
	SafeTeleport        bool          `env:"SAFE_TELEPORT"         envDefault:"true"`
}

// Tasks holds the periodic maintenance intervals. A zero interval disables
// the task.
type Tasks struct {
	InviteSweep time.Duration `env:"INVITE_SWEEP" envDefault:"30s"`
	PlayTime    time.Duration `env:"PLAYTIME"     envDefault:"1m"`
	Flush       time.Duration `env:"FLUSH"        envDefault:"5m"`
	Prune       time.Duration `env:"PRUNE"        envDefault:"5m"`
}

// Storage selects and configures the persistence backend.
type Storage struct {
	// Provider is one of "json", "sqlite" or "redis".
	Provider string `env:"PROVIDER" envDefault:"json"`

	JSONPath string `env:"JSON_PATH" envDefault:"./data/parties.json"`

	SQLitePath  string `env:"SQLITE_PATH"  envDefault:"./data/parties.db"`
	TablePrefix string `env:"TABLE_PREFIX" envDefault:"party_"`

	RedisAddr     string `env:"REDIS_ADDR"     envDefault:"127.0.0.1:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"       envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX"   envDefault:"party:"`

	ConnectTimeout time.Duration `env:"CONNECT_TIMEOUT" envDefault:"5s"`
}

// Load parses the environment and clamps out-of-range values to defaults.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

// Default returns the configuration used when no variables are set.
func Default() Config {
	cfg, _ := env.ParseAsWithOptions[Config](env.Options{Environment: map[string]string{}})
	cfg.normalize()
	return cfg
}

func (c *Config) normalize() {
	if c.Party.MaxMembers < 1 {
		c.Party.MaxMembers = 8
	}
	if c.Party.MaxPendingInvites < 1 {
		c.Party.MaxPendingInvites = 10
	}
	if c.Party.InviteTTL <= 0 {
		c.Party.InviteTTL = 5 * time.Minute
	}
	if c.Security.CommandCooldown < 0 {
		c.Security.CommandCooldown = 0
	}
	if c.Security.TeleportCooldown < 0 {
		c.Security.TeleportCooldown = 0
	}
	if c.Storage.ConnectTimeout < time.Second {
		c.Storage.ConnectTimeout = 5 * time.Second
	}
}
