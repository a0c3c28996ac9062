package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"
)

// Current schema version
const SchemaVersion = "2"

// SQLite is a SQLite-backed store.
type SQLite struct {
	mu sync.Mutex
	db *sql.DB
}

// NewSQLite opens or creates a store at the given path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	// Create tables if not exists
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			created TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS chat_vars (
			session_id TEXT NOT NULL,
			name TEXT NOT NULL,
			value TEXT NOT NULL,
			PRIMARY KEY (session_id, name)
		);
		CREATE TABLE IF NOT EXISTS global_vars (
			name TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &SQLite{db: db}

	// Check/set schema version (use unlocked versions since we're in init)
	version, err := s.getMetadataUnlocked("schema_version")
	if err != nil {
		db.Close()
		return nil, err
	}

	if version == "" || version == "1" {
		// New DB or migrate from v1 to v2: add snapshot history
		if err := s.migrateToV2(); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate to v2: %w", err)
		}
		if err := s.setMetadataUnlocked("schema_version", SchemaVersion); err != nil {
			db.Close()
			return nil, err
		}
	} else if version != SchemaVersion {
		db.Close()
		return nil, fmt.Errorf("unsupported schema version: %s (expected %s)", version, SchemaVersion)
	}

	return s, nil
}

// migrateToV2 creates the snapshot history table.
func (s *SQLite) migrateToV2() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS history (
			session_id TEXT NOT NULL,
			version INTEGER NOT NULL,
			ts TEXT NOT NULL,
			snapshot BLOB NOT NULL,
			PRIMARY KEY (session_id, version)
		);
	`)
	return err
}

// ChatVars returns a session's chat variables.
func (s *SQLite) ChatVars(session string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queryVars("SELECT name, value FROM chat_vars WHERE session_id = ?", session)
}

// PutChatVars replaces a session's chat variables.
func (s *SQLite) PutChatVars(session string, vars map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := touchSession(tx, session); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM chat_vars WHERE session_id = ?", session); err != nil {
		return err
	}
	for name, value := range vars {
		if _, err := tx.Exec(`
			INSERT INTO chat_vars (session_id, name, value) VALUES (?, ?, ?)
			ON CONFLICT(session_id, name) DO UPDATE SET value = excluded.value
		`, session, name, value); err != nil {
			return fmt.Errorf("put chat var %q: %w", name, err)
		}
	}
	return tx.Commit()
}

// GlobalVars returns the shared variables.
func (s *SQLite) GlobalVars() (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queryVars("SELECT name, value FROM global_vars")
}

// PutGlobalVars replaces the shared variables.
func (s *SQLite) PutGlobalVars(vars map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM global_vars"); err != nil {
		return err
	}
	for name, value := range vars {
		if _, err := tx.Exec(`
			INSERT INTO global_vars (name, value) VALUES (?, ?)
			ON CONFLICT(name) DO UPDATE SET value = excluded.value
		`, name, value); err != nil {
			return fmt.Errorf("put global var %q: %w", name, err)
		}
	}
	return tx.Commit()
}

// Sessions lists session IDs, oldest first.
func (s *SQLite) Sessions() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query("SELECT id FROM sessions ORDER BY rowid")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteSession removes a session's variables and history.
func (s *SQLite) DeleteSession(session string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, q := range []string{
		"DELETE FROM chat_vars WHERE session_id = ?",
		"DELETE FROM history WHERE session_id = ?",
		"DELETE FROM sessions WHERE id = ?",
	} {
		if _, err := tx.Exec(q, session); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// AppendSnapshot stores snap as the session's next version.
func (s *SQLite) AppendSnapshot(session string, snap Snapshot) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if err := touchSession(tx, session); err != nil {
		return 0, err
	}
	var last int
	if err := tx.QueryRow(
		"SELECT COALESCE(MAX(version), 0) FROM history WHERE session_id = ?", session,
	).Scan(&last); err != nil {
		return 0, err
	}
	snap.Version = last + 1
	if snap.Ts.IsZero() {
		snap.Ts = time.Now().UTC()
	}
	data, err := EncodeSnapshot(snap)
	if err != nil {
		return 0, err
	}
	if _, err := tx.Exec(
		"INSERT INTO history (session_id, version, ts, snapshot) VALUES (?, ?, ?, ?)",
		session, snap.Version, snap.Ts.Format(time.RFC3339Nano), data,
	); err != nil {
		return 0, err
	}
	return snap.Version, tx.Commit()
}

// History returns snapshots newest first.
func (s *SQLite) History(session string, limit int) ([]Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := "SELECT snapshot FROM history WHERE session_id = ? ORDER BY version DESC"
	args := []any{session}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Snapshot
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		snap, err := DecodeSnapshot(data)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// GetMetadata retrieves a metadata value by key.
func (s *SQLite) GetMetadata(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getMetadataUnlocked(key)
}

// getMetadataUnlocked retrieves metadata without locking (caller must hold lock).
func (s *SQLite) getMetadataUnlocked(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetMetadata stores a metadata value by key.
func (s *SQLite) SetMetadata(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setMetadataUnlocked(key, value)
}

// setMetadataUnlocked stores metadata without locking (caller must hold lock).
func (s *SQLite) setMetadataUnlocked(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// queryVars reads name/value rows into a map; caller must hold the lock.
func (s *SQLite) queryVars(query string, args ...any) (map[string]string, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	vars := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		vars[name] = value
	}
	return vars, rows.Err()
}

func touchSession(tx *sql.Tx, session string) error {
	_, err := tx.Exec(
		"INSERT OR IGNORE INTO sessions (id, created) VALUES (?, ?)",
		session, time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}
