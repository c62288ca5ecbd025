package storage

import (
	"fmt"
	"slices"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/mmynk/partykeeper/internal/models"
)

// Document is the backend-agnostic JSON shape of a Snapshot.
type Document struct {
	Parties     []json.RawMessage `json:"parties"`
	PlayerNames map[string]string `json:"player_names"`
}

// EncodeDocument renders snap as an indented JSON document. Parties are
// ordered by ID so unchanged state yields identical bytes.
func EncodeDocument(snap *Snapshot) ([]byte, error) {
	doc := Document{
		Parties:     make([]json.RawMessage, 0, len(snap.Parties)),
		PlayerNames: EncodeNames(snap.PlayerNames),
	}
	for _, p := range SortedParties(snap) {
		raw, err := models.EncodeParty(p)
		if err != nil {
			return nil, fmt.Errorf("failed to encode party %s: %w", p.ID, err)
		}
		doc.Parties = append(doc.Parties, raw)
	}
	return json.MarshalIndent(doc, "", "  ")
}

// DecodeDocument parses a JSON document. Older files that hold a bare list
// of parties are accepted too. Anything else that is not an object is an
// error; individual bad party or name entries are skipped.
func DecodeDocument(data []byte) (*Snapshot, error) {
	snap := NewSnapshot()

	var entries []json.RawMessage
	if json.Unmarshal(data, &entries) == nil {
		decodeParties(snap, entries)
		return snap, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	if raw, ok := fields["parties"]; ok {
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, fmt.Errorf("failed to parse parties list: %w", err)
		}
	}
	decodeParties(snap, entries)
	var names map[string]json.RawMessage
	if raw, ok := fields["player_names"]; ok && json.Unmarshal(raw, &names) == nil {
		for rawID, rawName := range names {
			var name string
			if json.Unmarshal(rawName, &name) != nil {
				continue
			}
			AddName(snap.PlayerNames, rawID, name)
		}
	}
	return snap, nil
}

func decodeParties(snap *Snapshot, entries []json.RawMessage) {
	for _, entry := range entries {
		snap.AddEncoded(entry)
	}
}

// AddName stores a persisted name entry if both the ID and the name are usable.
func AddName(names map[uuid.UUID]string, rawID, name string) bool {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return false
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	names[id] = name
	return true
}

// EncodeNames converts the name map to string keys, dropping empty names.
func EncodeNames(names map[uuid.UUID]string) map[string]string {
	out := make(map[string]string, len(names))
	for id, name := range names {
		if name != "" {
			out[id.String()] = name
		}
	}
	return out
}

// SortedParties returns the snapshot's parties ordered by ID.
func SortedParties(snap *Snapshot) []*models.Party {
	parties := make([]*models.Party, 0, len(snap.Parties))
	for _, p := range snap.Parties {
		parties = append(parties, p)
	}
	slices.SortFunc(parties, func(a, b *models.Party) int {
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return parties
}
