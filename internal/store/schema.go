package store

import (
	"database/sql"
	"embed"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Well-known sync_meta keys.
const (
	MetaSchemaVersion      = "schema_version"
	MetaLastFullSync       = "last_full_sync"
	MetaDocumentName       = "document_name"
	MetaInvalidated        = "invalidated"
	MetaInvalidationReason = "invalidation_reason"
)

// migrate applies all embedded migrations above the store's recorded
// schema_version, in numeric filename order. Each script is idempotent, so
// re-applying against an already-upgraded store is safe; the version check
// just skips the work.
func migrate(db *sql.DB) error {
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	applied, err := schemaVersion(db)
	if err != nil {
		return err
	}

	for _, name := range names {
		level := migrationLevel(name)
		if level <= applied {
			continue
		}
		script, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := db.Exec(string(script)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if err := recordSchemaVersion(db, level); err != nil {
			return err
		}
	}
	return nil
}

// migrationLevel extracts the numeric prefix of "0002_variables.sql" → 2.
func migrationLevel(name string) int {
	prefix, _, _ := strings.Cut(name, "_")
	n, err := strconv.Atoi(prefix)
	if err != nil {
		return 0
	}
	return n
}

func schemaVersion(db *sql.DB) (int, error) {
	// sync_meta itself is created by migration 0001; before that the
	// table may not exist, which means version 0.
	var value string
	err := db.QueryRow(`SELECT value FROM sync_meta WHERE key = ?`, MetaSchemaVersion).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows || strings.Contains(err.Error(), "no such table") {
			return 0, nil
		}
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("malformed schema version %q: %w", value, err)
	}
	return n, nil
}

func recordSchemaVersion(db *sql.DB, level int) error {
	_, err := db.Exec(`
		INSERT INTO sync_meta (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, MetaSchemaVersion, strconv.Itoa(level), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("record schema version %d: %w", level, err)
	}
	return nil
}
