package sqlite

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/partykeeper/internal/models"
	"github.com/mmynk/partykeeper/internal/storage"
)

func newTestStore(t *testing.T, prefix string) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := New(dbPath, prefix)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func snapshotWith(parties ...*models.Party) *storage.Snapshot {
	snap := storage.NewSnapshot()
	for _, p := range parties {
		snap.Parties[p.ID] = p
	}
	return snap
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Load of empty database", func(t *testing.T) {
		store := newTestStore(t, "")
		snap, err := store.Load(ctx)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if len(snap.Parties) != 0 {
			t.Errorf("Expected no parties, got %d", len(snap.Parties))
		}
	})

	t.Run("Save then Load round trips", func(t *testing.T) {
		store := newTestStore(t, "euphoria_")

		leader, member := uuid.New(), uuid.New()
		p := models.NewParty(leader, 1_700_000_000_000)
		p.AddMember(member)
		p.Ban(uuid.New())
		p.ClaimDailyReward(member, 1_700_000_100_000)
		p.Home = &models.Location{Level: "world", Dimension: "nether", X: 1.5, Y: 70, Z: 2.25, Yaw: 90}
		snap := snapshotWith(p)
		snap.PlayerNames[leader] = "Alice"

		if err := store.Save(ctx, snap); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		loaded, err := store.Load(ctx)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if !reflect.DeepEqual(loaded.Parties, snap.Parties) {
			t.Errorf("parties mismatch:\n got  %+v\n want %+v", loaded.Parties, snap.Parties)
		}
		if loaded.PlayerNames[leader] != "Alice" {
			t.Errorf("name = %q, want Alice", loaded.PlayerNames[leader])
		}
	})

	t.Run("Save deletes parties no longer present", func(t *testing.T) {
		store := newTestStore(t, "")
		kept := models.NewParty(uuid.New(), 1)
		gone := models.NewParty(uuid.New(), 2)

		if err := store.Save(ctx, snapshotWith(kept, gone)); err != nil {
			t.Fatalf("first Save failed: %v", err)
		}
		if err := store.Save(ctx, snapshotWith(kept)); err != nil {
			t.Fatalf("second Save failed: %v", err)
		}

		loaded, err := store.Load(ctx)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if len(loaded.Parties) != 1 || loaded.Parties[kept.ID] == nil {
			t.Errorf("Expected only the kept party, got %d", len(loaded.Parties))
		}

		if err := store.Save(ctx, storage.NewSnapshot()); err != nil {
			t.Fatalf("empty Save failed: %v", err)
		}
		loaded, _ = store.Load(ctx)
		if len(loaded.Parties) != 0 {
			t.Errorf("Expected no parties after empty save, got %d", len(loaded.Parties))
		}
	})

	t.Run("Save deletes parties written with a clock ahead of ours", func(t *testing.T) {
		store := newTestStore(t, "")
		kept := models.NewParty(uuid.New(), 1)
		if err := store.Save(ctx, snapshotWith(kept)); err != nil {
			t.Fatalf("first Save failed: %v", err)
		}
		_, err := store.db.Exec(
			"INSERT INTO party_parties (party_id, payload, updated_at) VALUES (?, ?, ?)",
			uuid.NewString(), "{}", time.Now().Add(time.Hour).UnixMilli(),
		)
		if err != nil {
			t.Fatalf("Insert failed: %v", err)
		}

		if err := store.Save(ctx, snapshotWith(kept)); err != nil {
			t.Fatalf("second Save failed: %v", err)
		}
		var count int
		if err := store.db.QueryRow("SELECT COUNT(*) FROM party_parties").Scan(&count); err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if count != 1 {
			t.Errorf("rows = %d, want 1", count)
		}
	})

	t.Run("Save handles more parties than SQLite has bind variables", func(t *testing.T) {
		if testing.Short() {
			t.Skip("skipping large save in short mode")
		}
		store := newTestStore(t, "")
		snap := storage.NewSnapshot()
		for i := range 33_000 {
			p := models.NewParty(uuid.New(), int64(i))
			snap.Parties[p.ID] = p
		}
		if err := store.Save(ctx, snap); err != nil {
			t.Fatalf("first Save failed: %v", err)
		}

		for id := range snap.Parties {
			delete(snap.Parties, id)
			break
		}
		if err := store.Save(ctx, snap); err != nil {
			t.Fatalf("second Save failed: %v", err)
		}
		loaded, err := store.Load(ctx)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if len(loaded.Parties) != len(snap.Parties) {
			t.Errorf("got %d parties, want %d", len(loaded.Parties), len(snap.Parties))
		}
	})

	t.Run("Numeric table prefix is usable", func(t *testing.T) {
		store := newTestStore(t, "2024_")
		p := models.NewParty(uuid.New(), 1)
		if err := store.Save(ctx, snapshotWith(p)); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		loaded, err := store.Load(ctx)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if loaded.Parties[p.ID] == nil {
			t.Error("Expected the party to round trip")
		}
	})

	t.Run("Failed save rolls back", func(t *testing.T) {
		store := newTestStore(t, "")
		before := models.NewParty(uuid.New(), 1)
		if err := store.Save(ctx, snapshotWith(before)); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		_, err := store.db.Exec(`CREATE TRIGGER reject_names BEFORE INSERT ON party_player_names
			BEGIN SELECT RAISE(ABORT, 'names unavailable'); END`)
		if err != nil {
			t.Fatalf("Failed to create trigger: %v", err)
		}

		after := snapshotWith(models.NewParty(uuid.New(), 2))
		after.PlayerNames[uuid.New()] = "Eve"
		if err := store.Save(ctx, after); err == nil {
			t.Fatal("Expected Save to fail")
		}

		loaded, err := store.Load(ctx)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if len(loaded.Parties) != 1 || loaded.Parties[before.ID] == nil {
			t.Error("Expected the previous state to survive a failed save")
		}
	})

	t.Run("Load skips undecodable rows", func(t *testing.T) {
		store := newTestStore(t, "")
		good := models.NewParty(uuid.New(), 1)
		if err := store.Save(ctx, snapshotWith(good)); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		_, err := store.db.Exec(
			"INSERT INTO party_parties (party_id, payload, updated_at) VALUES (?, ?, ?), (?, ?, ?)",
			"bad-1", "{not json", 0,
			"bad-2", `{"id": "x", "leader": "y"}`, 0,
		)
		if err != nil {
			t.Fatalf("Insert failed: %v", err)
		}

		loaded, err := store.Load(ctx)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if len(loaded.Parties) != 1 {
			t.Errorf("Expected 1 party, got %d", len(loaded.Parties))
		}
		if loaded.Skipped != 2 {
			t.Errorf("Skipped = %d, want 2", loaded.Skipped)
		}
	})
}

func TestSanitizeTablePrefix(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"euphoria_", "euphoria_"},
		{"", DefaultTablePrefix},
		{"x`; DROP TABLE users; --", "xDROPTABLEusers"},
		{"!!!", DefaultTablePrefix},
		{"a_very_long_prefix_that_goes_past_the_limit", "a_very_long_prefix_that_goes_pas"},
		{"2024_", "t_2024_"},
		{"-7days", "t_7days"},
		{"12345678901234567890123456789012345", "t_123456789012345678901234567890"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := SanitizeTablePrefix(tt.in); got != tt.want {
				t.Errorf("SanitizeTablePrefix(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
