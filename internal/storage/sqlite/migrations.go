package sqlite

import (
	"database/sql"
	"fmt"
	"regexp"
)

const (
	// DefaultTablePrefix is used when the configured prefix sanitizes to nothing.
	DefaultTablePrefix = "party_"

	maxTablePrefixLength = 32
)

var unsafeIdentifierChars = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// SanitizeTablePrefix reduces a configured prefix to [A-Za-z0-9_], at most
// 32 characters, starting with a letter or underscore. Table names are
// interpolated into DDL, so nothing else may pass through.
func SanitizeTablePrefix(prefix string) string {
	clean := unsafeIdentifierChars.ReplaceAllString(prefix, "")
	if clean != "" && clean[0] >= '0' && clean[0] <= '9' {
		clean = "t_" + clean
	}
	if len(clean) > maxTablePrefixLength {
		clean = clean[:maxTablePrefixLength]
	}
	if clean == "" {
		return DefaultTablePrefix
	}
	return clean
}

// tables holds the sanitized table names for one store.
type tables struct {
	parties string
	names   string
}

func newTables(prefix string) tables {
	prefix = SanitizeTablePrefix(prefix)
	return tables{
		parties: prefix + "parties",
		names:   prefix + "player_names",
	}
}

// schema returns the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
func (t tables) schema() string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
    party_id TEXT PRIMARY KEY,
    payload TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS %[2]s (
    player_id TEXT PRIMARY KEY,
    player_name TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);
`, t.parties, t.names)
}

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB, t tables) error {
	_, err := db.Exec(t.schema())
	return err
}
