package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"vidbee/internal/logger"
)

// DB wraps the SQLite connection backing the HistoryStore.
type DB struct {
	conn *sql.DB
	path string
}

// migration is one step of the versioned schema history. hash is an
// arbitrary stable identifier, not a content checksum — it only needs to
// be unique and ordered.
type migration struct {
	hash string
	sql  string
}

// migrations is applied in order on a fresh database, and is also the
// source of truth baseline detection seeds against on a pre-existing one.
var migrations = []migration{
	{
		hash: "0001_init",
		sql: `
		CREATE TABLE IF NOT EXISTS download_history (
			id TEXT PRIMARY KEY,
			url TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			thumbnail TEXT,
			kind TEXT NOT NULL,
			status TEXT NOT NULL,
			download_path TEXT,
			saved_file_name TEXT,
			file_size INTEGER,
			duration INTEGER,
			downloaded_at INTEGER NOT NULL,
			completed_at INTEGER,
			sort_key INTEGER NOT NULL,
			error TEXT,
			description TEXT,
			channel TEXT,
			uploader TEXT,
			view_count INTEGER,
			tags TEXT,
			origin TEXT,
			subscription_id TEXT,
			selected_format TEXT,
			playlist_id TEXT,
			playlist_title TEXT,
			playlist_index INTEGER,
			playlist_size INTEGER
		);
		CREATE INDEX IF NOT EXISTS idx_download_history_status ON download_history(status);
		CREATE INDEX IF NOT EXISTS idx_download_history_url ON download_history(url);
		CREATE INDEX IF NOT EXISTS idx_download_history_sort_key ON download_history(sort_key DESC);

		CREATE TABLE IF NOT EXISTS subscriptions (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			source_url TEXT NOT NULL,
			feed_url TEXT NOT NULL,
			platform TEXT NOT NULL,
			keywords TEXT,
			tags TEXT,
			only_latest INTEGER NOT NULL DEFAULT 0,
			enabled INTEGER NOT NULL DEFAULT 1,
			cover_url TEXT,
			latest_video_title TEXT,
			latest_video_published_at INTEGER,
			last_checked_at INTEGER,
			last_success_at INTEGER,
			status TEXT NOT NULL DEFAULT 'idle',
			last_error TEXT,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			download_directory TEXT,
			naming_template TEXT
		);

		CREATE TABLE IF NOT EXISTS subscription_items (
			subscription_id TEXT NOT NULL,
			item_id TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL,
			published_at INTEGER NOT NULL,
			thumbnail TEXT,
			added_to_queue INTEGER NOT NULL DEFAULT 0,
			download_id TEXT,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (subscription_id, item_id),
			FOREIGN KEY (subscription_id) REFERENCES subscriptions(id) ON DELETE CASCADE
		);
		CREATE INDEX IF NOT EXISTS idx_subscription_items_published_at ON subscription_items(subscription_id, published_at DESC);
		`,
	},
}

// Open creates the data directory if needed, opens the SQLite database at
// <dataDir>/history.db, sets the WAL pragmas, and runs migrations (seeding
// the bookkeeping table via baseline detection on a pre-existing database).
func Open(dataDir string) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "history.db")

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("set pragma %q: %w", pragma, err)
		}
	}

	db := &DB{conn: conn, path: dbPath}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	if err := db.importLegacyJSON(dataDir); err != nil {
		logger.Log.Warn().Err(err).Msg("legacy history import failed")
	}

	return db, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn exposes the raw connection for the repository methods in
// downloads.go and subscriptions.go.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

func (db *DB) migrate() error {
	if _, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS __drizzle_migrations (
			hash TEXT NOT NULL,
			created_at NUMERIC
		);
	`); err != nil {
		return err
	}

	applied, err := db.appliedHashes()
	if err != nil {
		return err
	}

	if len(applied) == 0 {
		baseline, err := db.detectBaseline()
		if err != nil {
			return err
		}
		if baseline >= 0 {
			if err := db.seedAppliedUpTo(baseline); err != nil {
				return err
			}
			applied, err = db.appliedHashes()
			if err != nil {
				return err
			}
		}
	}

	for _, m := range migrations {
		if applied[m.hash] {
			continue
		}
		tx, err := db.conn.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %s: %w", m.hash, err)
		}
		if _, err := tx.Exec(`INSERT INTO __drizzle_migrations (hash, created_at) VALUES (?, ?)`, m.hash, nowUnix()); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}

	return nil
}

func (db *DB) appliedHashes() (map[string]bool, error) {
	rows, err := db.conn.Query(`SELECT hash FROM __drizzle_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, err
		}
		applied[hash] = true
	}
	return applied, rows.Err()
}

// detectBaseline inspects an un-migrated-but-nonempty database: if the core
// tables this version's schema expects are already present, treat every
// migration up to and including the one that introduced them as already
// applied, rather than re-running CREATE TABLE statements against a live
// database whose shape may have drifted further than our own schema.
// Returns -1 when no known table shape is found (a genuinely fresh database).
func (db *DB) detectBaseline() (int, error) {
	hasCoreTables, err := db.tablesExist("download_history", "subscriptions", "subscription_items")
	if err != nil {
		return -1, err
	}
	if !hasCoreTables {
		return -1, nil
	}
	// Only one baseline snapshot exists today; a pre-existing database that
	// already carries the core tables is caught up through migration 0.
	return 0, nil
}

func (db *DB) tablesExist(names ...string) (bool, error) {
	for _, name := range names {
		var got string
		err := db.conn.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name = ?`, name).Scan(&got)
		if err == sql.ErrNoRows {
			return false, nil
		}
		if err != nil {
			return false, err
		}
	}
	return true, nil
}

func (db *DB) seedAppliedUpTo(index int) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	for i := 0; i <= index && i < len(migrations); i++ {
		if _, err := tx.Exec(`INSERT INTO __drizzle_migrations (hash, created_at) VALUES (?, ?)`, migrations[i].hash, nowUnix()); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
