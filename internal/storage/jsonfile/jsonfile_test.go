package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/mmynk/partykeeper/internal/models"
	"github.com/mmynk/partykeeper/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "data", "parties.json"), nil)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleSnapshot() *storage.Snapshot {
	snap := storage.NewSnapshot()

	leader, member := uuid.New(), uuid.New()
	p := models.NewParty(leader, 1_700_000_000_000)
	p.AddMember(member)
	p.SetRole(member, models.RoleOfficer)
	p.Invite(uuid.New(), 1_700_000_000_500)
	p.Name = "Wanderers"
	p.Home = &models.Location{Level: "world", Dimension: "overworld", X: 10, Y: 64, Z: -3}
	p.RecordKill()
	snap.Parties[p.ID] = p

	q := models.NewParty(uuid.New(), 1_700_000_001_000)
	q.IsPublic = false
	snap.Parties[q.ID] = q

	snap.PlayerNames[leader] = "Alice"
	snap.PlayerNames[member] = "Bob"
	return snap
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Load of missing file is empty", func(t *testing.T) {
		store := newTestStore(t)
		snap, err := store.Load(ctx)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if len(snap.Parties) != 0 || len(snap.PlayerNames) != 0 {
			t.Errorf("Expected empty snapshot, got %d parties, %d names", len(snap.Parties), len(snap.PlayerNames))
		}
	})

	t.Run("Save then Load round trips", func(t *testing.T) {
		store := newTestStore(t)
		original := sampleSnapshot()

		if err := store.Save(ctx, original); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		loaded, err := store.Load(ctx)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}

		if !reflect.DeepEqual(loaded.Parties, original.Parties) {
			t.Errorf("parties mismatch:\n got  %+v\n want %+v", loaded.Parties, original.Parties)
		}
		if !reflect.DeepEqual(loaded.PlayerNames, original.PlayerNames) {
			t.Errorf("names = %v, want %v", loaded.PlayerNames, original.PlayerNames)
		}
		if _, err := os.Stat(store.tempPath()); !os.IsNotExist(err) {
			t.Error("Expected temporary file to be gone after save")
		}
	})

	t.Run("Save keeps a backup of the previous document", func(t *testing.T) {
		store := newTestStore(t)
		first := sampleSnapshot()
		if err := store.Save(ctx, first); err != nil {
			t.Fatalf("first Save failed: %v", err)
		}
		before, err := os.ReadFile(store.Path())
		if err != nil {
			t.Fatalf("ReadFile failed: %v", err)
		}

		if err := store.Save(ctx, storage.NewSnapshot()); err != nil {
			t.Fatalf("second Save failed: %v", err)
		}
		backup, err := os.ReadFile(store.BackupPath())
		if err != nil {
			t.Fatalf("Expected backup file: %v", err)
		}
		if string(backup) != string(before) {
			t.Error("Backup does not hold the previous document")
		}

		loaded, err := store.Load(ctx)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if len(loaded.Parties) != 0 {
			t.Errorf("Expected parties to be replaced, got %d", len(loaded.Parties))
		}
	})

	t.Run("Load skips malformed entries", func(t *testing.T) {
		store := newTestStore(t)
		good := models.NewParty(uuid.New(), 1)
		raw, err := models.EncodeParty(good)
		if err != nil {
			t.Fatalf("EncodeParty failed: %v", err)
		}
		named := uuid.New()
		doc := `{"parties": [` + string(raw) + `, {"id": "broken"}, 17],
			"player_names": {"` + named.String() + `": "Carol", "nope": "Dave", "` + uuid.NewString() + `": "  "}}`
		if err := os.WriteFile(store.Path(), []byte(doc), 0o644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}

		snap, err := store.Load(ctx)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if len(snap.Parties) != 1 || snap.Parties[good.ID] == nil {
			t.Errorf("Expected only the good party, got %d", len(snap.Parties))
		}
		if snap.Skipped != 2 {
			t.Errorf("Skipped = %d, want 2", snap.Skipped)
		}
		if len(snap.PlayerNames) != 1 || snap.PlayerNames[named] != "Carol" {
			t.Errorf("names = %v", snap.PlayerNames)
		}
	})

	t.Run("Load accepts a bare party list", func(t *testing.T) {
		store := newTestStore(t)
		p := models.NewParty(uuid.New(), 1)
		raw, _ := models.EncodeParty(p)
		if err := os.WriteFile(store.Path(), []byte("["+string(raw)+"]"), 0o644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		snap, err := store.Load(ctx)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if len(snap.Parties) != 1 {
			t.Errorf("Expected 1 party, got %d", len(snap.Parties))
		}
	})

	t.Run("Load of corrupt document fails", func(t *testing.T) {
		store := newTestStore(t)
		if err := os.WriteFile(store.Path(), []byte("{not json"), 0o644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		_, err := store.Load(ctx)
		if err == nil {
			t.Fatal("Expected error for corrupt document")
		}
		if !strings.Contains(err.Error(), "decode") {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestNewRequiresPath(t *testing.T) {
	if _, err := New("", nil); err == nil {
		t.Error("Expected error for empty path")
	}
}
