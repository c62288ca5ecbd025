// Package redisstore provides a Redis-backed implementation of the storage.Store interface.
package redisstore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/mmynk/partykeeper/internal/models"
	"github.com/mmynk/partykeeper/internal/storage"
)

// Ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

// DefaultKeyPrefix namespaces the hashes when no prefix is configured.
const DefaultKeyPrefix = "party:"

// Options configures the Redis connection.
type Options struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// Store keeps parties in one hash (party id -> snapshot JSON) and player
// names in another.
type Store struct {
	client     *redis.Client
	partiesKey string
	namesKey   string
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, opts Options) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", opts.Addr, err)
	}
	return NewWithClient(client, opts.KeyPrefix), nil
}

// NewWithClient wraps an existing client. The store takes ownership and
// closes the client on Close.
func NewWithClient(client *redis.Client, keyPrefix string) *Store {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &Store{
		client:     client,
		partiesKey: keyPrefix + "parties",
		namesKey:   keyPrefix + "player_names",
	}
}

// Load reads both hashes. Undecodable party entries are skipped.
func (s *Store) Load(ctx context.Context) (*storage.Snapshot, error) {
	snap := storage.NewSnapshot()

	parties, err := s.client.HGetAll(ctx, s.partiesKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get parties: %w", err)
	}
	for _, payload := range parties {
		snap.AddEncoded([]byte(payload))
	}

	names, err := s.client.HGetAll(ctx, s.namesKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get player names: %w", err)
	}
	for id, name := range names {
		storage.AddName(snap.PlayerNames, id, name)
	}

	return snap, nil
}

// Save replaces the parties hash and upserts names in one MULTI/EXEC
// transaction.
func (s *Store) Save(ctx context.Context, snap *storage.Snapshot) error {
	parties := make(map[string]any, len(snap.Parties))
	for id, p := range snap.Parties {
		payload, err := models.EncodeParty(p)
		if err != nil {
			return fmt.Errorf("failed to encode party %s: %w", id, err)
		}
		parties[id.String()] = string(payload)
	}
	names := make(map[string]any, len(snap.PlayerNames))
	for id, name := range storage.EncodeNames(snap.PlayerNames) {
		names[id] = name
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.partiesKey)
		if len(parties) > 0 {
			pipe.HSet(ctx, s.partiesKey, parties)
		}
		if len(names) > 0 {
			pipe.HSet(ctx, s.namesKey, names)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
