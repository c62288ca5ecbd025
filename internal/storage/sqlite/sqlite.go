// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/partykeeper/internal/models"
	"github.com/mmynk/partykeeper/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
// Each party is one row holding its JSON snapshot; each known player name
// is one row.
type SQLiteStore struct {
	db     *sql.DB
	tables tables
}

// New creates a new SQLiteStore with the given database path and table prefix.
// It creates the parent directories and runs migrations automatically.
func New(dbPath, tablePrefix string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database with pure Go driver
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps the pragmas below in effect for every statement.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	t := newTables(tablePrefix)
	if err := runMigrations(db, t); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db, tables: t}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load reads every party and player name row. Rows whose payload cannot be
// decoded are skipped.
func (s *SQLiteStore) Load(ctx context.Context) (*storage.Snapshot, error) {
	snap := storage.NewSnapshot()

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT party_id, payload FROM %s", s.tables.parties),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get parties: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var partyID, payload string
		if err := rows.Scan(&partyID, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan party: %w", err)
		}
		snap.AddEncoded([]byte(payload))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate parties: %w", err)
	}

	nameRows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT player_id, player_name FROM %s", s.tables.names),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get player names: %w", err)
	}
	defer nameRows.Close()

	for nameRows.Next() {
		var playerID, name string
		if err := nameRows.Scan(&playerID, &name); err != nil {
			return nil, fmt.Errorf("failed to scan player name: %w", err)
		}
		storage.AddName(snap.PlayerNames, playerID, name)
	}
	if err := nameRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate player names: %w", err)
	}

	return snap, nil
}

// Save upserts every party and name, then deletes party rows that are no
// longer present, all in one transaction. Every row written by a save
// carries a stamp newer than any row already stored, so rows left with an
// older stamp belong to parties missing from snap.
func (s *SQLiteStore) Save(ctx context.Context, snap *storage.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var last int64
	lastStamp := fmt.Sprintf("SELECT COALESCE(MAX(updated_at), 0) FROM %s", s.tables.parties)
	if err := tx.QueryRowContext(ctx, lastStamp).Scan(&last); err != nil {
		return fmt.Errorf("failed to read last save stamp: %w", err)
	}
	now := max(time.Now().UnixMilli(), last+1)

	upsertParty := fmt.Sprintf(`
		INSERT INTO %s (party_id, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(party_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at
	`, s.tables.parties)

	for _, p := range storage.SortedParties(snap) {
		payload, err := models.EncodeParty(p)
		if err != nil {
			return fmt.Errorf("failed to encode party %s: %w", p.ID, err)
		}
		if _, err := tx.ExecContext(ctx, upsertParty, p.ID.String(), string(payload), now); err != nil {
			return fmt.Errorf("failed to upsert party: %w", err)
		}
	}

	// Remove parties that were disbanded since the last save
	deleteMissing := fmt.Sprintf("DELETE FROM %s WHERE updated_at < ?", s.tables.parties)
	if _, err := tx.ExecContext(ctx, deleteMissing, now); err != nil {
		return fmt.Errorf("failed to delete missing parties: %w", err)
	}

	upsertName := fmt.Sprintf(`
		INSERT INTO %s (player_id, player_name, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(player_id) DO UPDATE SET player_name = excluded.player_name, updated_at = excluded.updated_at
	`, s.tables.names)

	for id, name := range storage.EncodeNames(snap.PlayerNames) {
		if _, err := tx.ExecContext(ctx, upsertName, id, name, now); err != nil {
			return fmt.Errorf("failed to upsert player name: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
