// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/mmynk/partykeeper/internal/models"
)

// Store defines the interface for party persistence.
// This abstraction allows swapping storage backends (JSON file, SQLite,
// Redis) without changing the registry.
type Store interface {
	// Load reads the full party set and the known player names.
	// A backend with no data yet returns an empty snapshot and no error.
	// Individual unusable entries are skipped and counted in Snapshot.Skipped.
	Load(ctx context.Context) (*Snapshot, error)

	// Save replaces the persisted state with snap. Parties missing from
	// snap are removed. On error the previously persisted state is intact.
	Save(ctx context.Context, snap *Snapshot) error

	// Close releases any resources held by the store.
	Close() error
}

// Snapshot is the complete persisted state at a point in time.
type Snapshot struct {
	Parties     map[uuid.UUID]*models.Party
	PlayerNames map[uuid.UUID]string

	// Skipped counts entries dropped during Load because they could not be
	// decoded. Ignored by Save.
	Skipped int

	// Repaired counts loaded parties whose stored form broke an invariant
	// and was corrected while decoding. Ignored by Save.
	Repaired int
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Parties:     make(map[uuid.UUID]*models.Party),
		PlayerNames: make(map[uuid.UUID]string),
	}
}

// AddEncoded decodes one stored party into the snapshot. Unusable entries
// are counted in Skipped, corrected ones in Repaired.
func (s *Snapshot) AddEncoded(data []byte) {
	p, repaired, err := models.DecodeAndRepair(data)
	if err != nil {
		s.Skipped++
		return
	}
	if repaired {
		s.Repaired++
	}
	s.Parties[p.ID] = p
}
